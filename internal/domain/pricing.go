package domain

import "github.com/shopspring/decimal"

// Currency is the only currency the kiosk prices in.
const Currency = "EUR"

// DiscountTier maps a minimum item count to a percentage discount.
type DiscountTier struct {
	MinItemCount int
	Percentage   int
}

// Discount is the tier discount applied to a merchandise subtotal.
type Discount struct {
	Percentage int
	Amount     decimal.Decimal
}

// PricedOrder captures the computed totals for a cart and an optional shipping rate.
type PricedOrder struct {
	Subtotal           decimal.Decimal
	DiscountPercentage int
	DiscountAmount     decimal.Decimal
	ShippingPrice      decimal.Decimal
	Total              decimal.Decimal
	ItemCount          int
}
