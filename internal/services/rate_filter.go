package services

// ApplicableRates returns the zone's weight rates whose bracket contains weightKg, keeping the
// zone order. Both bounds are inclusive, so overlapping brackets can all match.
func ApplicableRates(zone ShippingZone, weightKg float64) []WeightRate {
	rates := make([]WeightRate, 0, len(zone.WeightRates))
	for _, rate := range zone.WeightRates {
		if rateApplies(rate, weightKg) {
			rates = append(rates, rate)
		}
	}
	return rates
}

func rateApplies(rate WeightRate, weightKg float64) bool {
	if rate.WeightLow != nil && weightKg < *rate.WeightLow {
		return false
	}
	if rate.WeightHigh != nil && weightKg > *rate.WeightHigh {
		return false
	}
	return true
}

// QuoteShipping resolves the destination zone and the rates applicable to the cart weight.
// An uncovered destination yields a quote with no zone and no rates.
func QuoteShipping(zones []ShippingZone, cart Cart, address Address) ShippingQuote {
	quote := ShippingQuote{
		WeightKg: TotalWeightKg(cart),
		Rates:    []WeightRate{},
	}
	zone, ok := FindZone(zones, address)
	if !ok {
		return quote
	}
	quote.Zone = &zone
	quote.Rates = ApplicableRates(zone, quote.WeightKg)
	return quote
}
