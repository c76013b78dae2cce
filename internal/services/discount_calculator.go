package services

import "github.com/shopspring/decimal"

// discountTiers is ordered from the highest threshold down; the first satisfied tier wins.
var discountTiers = []DiscountTier{
	{MinItemCount: 4, Percentage: 15},
	{MinItemCount: 3, Percentage: 10},
	{MinItemCount: 2, Percentage: 5},
}

// DiscountTiers returns a copy of the quantity discount table, highest threshold first.
func DiscountTiers() []DiscountTier {
	out := make([]DiscountTier, len(discountTiers))
	copy(out, discountTiers)
	return out
}

// DiscountPercentage returns the tier percentage for the number of items in the cart.
func DiscountPercentage(itemCount int) int {
	for _, tier := range discountTiers {
		if itemCount >= tier.MinItemCount {
			return tier.Percentage
		}
	}
	return 0
}

// DiscountFor computes the quantity discount over a merchandise subtotal.
func DiscountFor(itemCount int, subtotal decimal.Decimal) Discount {
	pct := DiscountPercentage(itemCount)
	if pct == 0 {
		return Discount{Amount: decimal.Zero}
	}
	return Discount{
		Percentage: pct,
		Amount:     subtotal.Mul(decimal.NewFromInt(int64(pct))).Shift(-2),
	}
}
