package services

import "math"

// TotalWeightKg returns the cart weight in kilograms. Gram weights are divided by 1000 and
// every line is multiplied by its quantity. Negative or unset weights count as zero.
func TotalWeightKg(cart Cart) float64 {
	total := 0.0
	for _, item := range cart.Items {
		if item.Quantity <= 0 {
			continue
		}
		total += itemWeightKg(item) * float64(item.Quantity)
	}
	return total
}

func itemWeightKg(item CartItem) float64 {
	weight := item.UnitWeight
	if weight <= 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return 0
	}
	if item.WeightUnit == WeightUnitGrams {
		return weight / 1000
	}
	return weight
}
