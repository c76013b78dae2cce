package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// WeightUnit identifies the unit a variant weight is expressed in.
type WeightUnit string

const (
	// WeightUnitGrams marks weights expressed in grams.
	WeightUnitGrams WeightUnit = "g"
	// WeightUnitKilograms marks weights expressed in kilograms.
	WeightUnitKilograms WeightUnit = "kg"
)

// ErrInvalidCartItem is returned when a cart operation receives an item that breaks the cart contract.
var ErrInvalidCartItem = errors.New("cart: invalid item")

// CartItem is one variant line in a kiosk cart.
type CartItem struct {
	VariantID    string
	Title        string
	VariantLabel string
	UnitPrice    decimal.Decimal
	Quantity     int
	UnitWeight   float64
	WeightUnit   WeightUnit
}

// Cart holds at most one line per variant, in the order variants were first added.
type Cart struct {
	Items []CartItem
}

// ItemCount returns the total quantity across all lines.
func (c Cart) ItemCount() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Find returns the line for the variant when present.
func (c Cart) Find(variantID string) (CartItem, bool) {
	idx := c.index(variantID)
	if idx < 0 {
		return CartItem{}, false
	}
	return c.Items[idx], true
}

// Add returns a cart containing the item. Adding a variant already present merges quantities.
func (c Cart) Add(item CartItem) (Cart, error) {
	item.VariantID = strings.TrimSpace(item.VariantID)
	if item.VariantID == "" {
		return c, errors.Join(ErrInvalidCartItem, errors.New("variant id is required"))
	}
	if item.Quantity < 1 {
		return c, errors.Join(ErrInvalidCartItem, errors.New("quantity must be at least 1"))
	}
	if item.UnitPrice.IsNegative() {
		return c, errors.Join(ErrInvalidCartItem, errors.New("unit price must not be negative"))
	}

	next := c.clone()
	if idx := next.index(item.VariantID); idx >= 0 {
		next.Items[idx].Quantity += item.Quantity
		return next, nil
	}
	next.Items = append(next.Items, item)
	return next, nil
}

// SetQuantity replaces the quantity of a line. A quantity below 1 removes the line.
func (c Cart) SetQuantity(variantID string, quantity int) Cart {
	if quantity < 1 {
		return c.Remove(variantID)
	}
	idx := c.index(variantID)
	if idx < 0 {
		return c
	}
	next := c.clone()
	next.Items[idx].Quantity = quantity
	return next
}

// Remove returns a cart without the variant line.
func (c Cart) Remove(variantID string) Cart {
	idx := c.index(variantID)
	if idx < 0 {
		return c
	}
	next := Cart{Items: make([]CartItem, 0, len(c.Items)-1)}
	next.Items = append(next.Items, c.Items[:idx]...)
	next.Items = append(next.Items, c.Items[idx+1:]...)
	return next
}

// Clear returns an empty cart.
func (c Cart) Clear() Cart {
	return Cart{}
}

func (c Cart) index(variantID string) int {
	variantID = strings.TrimSpace(variantID)
	for i, item := range c.Items {
		if item.VariantID == variantID {
			return i
		}
	}
	return -1
}

func (c Cart) clone() Cart {
	if len(c.Items) == 0 {
		return Cart{}
	}
	items := make([]CartItem, len(c.Items))
	copy(items, c.Items)
	return Cart{Items: items}
}
