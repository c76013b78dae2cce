package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrPricingInvalidInput signals a cart or rate that breaks the pricing contract.
var ErrPricingInvalidInput = errors.New("order pricing: invalid input")

// PriceOrder computes subtotal, quantity discount, shipping and total for the cart.
// A nil rate prices shipping at zero. The discount applies to the merchandise subtotal only.
func PriceOrder(cart Cart, rate *WeightRate) (PricedOrder, error) {
	subtotal := decimal.Zero
	count := 0
	for _, item := range cart.Items {
		if item.Quantity < 1 {
			return PricedOrder{}, fmt.Errorf("%w: variant %q has quantity %d", ErrPricingInvalidInput, item.VariantID, item.Quantity)
		}
		if item.UnitPrice.IsNegative() {
			return PricedOrder{}, fmt.Errorf("%w: variant %q has a negative unit price", ErrPricingInvalidInput, item.VariantID)
		}
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		count += item.Quantity
	}

	shipping := decimal.Zero
	if rate != nil {
		if rate.Price.IsNegative() {
			return PricedOrder{}, fmt.Errorf("%w: rate %q has a negative price", ErrPricingInvalidInput, rate.ID)
		}
		shipping = rate.Price
	}

	discount := DiscountFor(count, subtotal)

	return PricedOrder{
		Subtotal:           subtotal,
		DiscountPercentage: discount.Percentage,
		DiscountAmount:     discount.Amount,
		ShippingPrice:      shipping,
		Total:              subtotal.Sub(discount.Amount).Add(shipping),
		ItemCount:          count,
	}, nil
}
