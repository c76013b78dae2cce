package domain

import "github.com/shopspring/decimal"

// Product is an active catalog product offered on the kiosk.
type Product struct {
	ID          string
	Title       string
	ProductType string
	ImageURL    string
	Variants    []ProductVariant
}

// ProductVariant is a purchasable variant of a product.
type ProductVariant struct {
	ID         string
	Title      string
	Price      decimal.Decimal
	Weight     float64
	WeightUnit WeightUnit
}

// ProductTypeGroup lists products sharing a product type, in catalog order.
type ProductTypeGroup struct {
	ProductType string
	Products    []Product
}
