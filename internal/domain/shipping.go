package domain

import (
	"github.com/shopspring/decimal"
)

// Address is a shipping destination. Only the country and province codes take part in zone matching.
type Address struct {
	FirstName    string
	LastName     string
	Address1     string
	Address2     string
	City         string
	PostalCode   string
	Province     string
	ProvinceCode string
	Country      string
	CountryCode  string
	Phone        string
}

// ShippingCountry lists a country covered by a zone. Empty ProvinceCodes covers every province.
type ShippingCountry struct {
	Code          string
	ProvinceCodes []string
}

// ShippingZone groups destination countries with the weight-bracketed rates that apply to them.
type ShippingZone struct {
	ID          string
	Name        string
	Countries   []ShippingCountry
	WeightRates []WeightRate
}

// WeightRate is a shipping option bounded by an inclusive weight bracket in kilograms.
// A nil WeightLow means 0 and a nil WeightHigh means unbounded.
type WeightRate struct {
	ID         string
	Name       string
	WeightLow  *float64
	WeightHigh *float64
	Price      decimal.Decimal
}

// ServiceCode is the shipping line code used when the rate is attached to a draft order.
func (r WeightRate) ServiceCode() string {
	return "WEIGHT_" + r.ID
}

// ShippingQuote is the outcome of resolving rates for a cart and destination.
type ShippingQuote struct {
	WeightKg float64
	Zone     *ShippingZone
	Rates    []WeightRate
}
