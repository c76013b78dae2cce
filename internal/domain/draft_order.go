package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerInfo is the contact data collected by the kiosk checkout.
type CustomerInfo struct {
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	AcceptsMarketing bool
}

// DraftOrderPayload is the draft_order body accepted by the commerce backend.
type DraftOrderPayload struct {
	LineItems                 []DraftOrderLineItem `json:"line_items"`
	Customer                  *DraftOrderCustomer  `json:"customer,omitempty"`
	Email                     string               `json:"email,omitempty"`
	ShippingAddress           *DraftOrderAddress   `json:"shipping_address,omitempty"`
	ShippingLine              *ShippingLine        `json:"shipping_line,omitempty"`
	AppliedDiscount           *AppliedDiscount     `json:"applied_discount,omitempty"`
	Tags                      string               `json:"tags,omitempty"`
	NoteAttributes            []DraftOrderNoteAttr `json:"note_attributes,omitempty"`
	UseCustomerDefaultAddress bool                 `json:"use_customer_default_address"`
}

// DraftOrderLineItem references a variant by its numeric id.
type DraftOrderLineItem struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// DraftOrderCustomer is the customer block of a draft order.
type DraftOrderCustomer struct {
	Email            string `json:"email"`
	FirstName        string `json:"first_name,omitempty"`
	LastName         string `json:"last_name,omitempty"`
	Phone            string `json:"phone,omitempty"`
	AcceptsMarketing bool   `json:"accepts_marketing"`
}

// DraftOrderAddress is the shipping address block of a draft order.
type DraftOrderAddress struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Address1     string `json:"address1"`
	Address2     string `json:"address2,omitempty"`
	City         string `json:"city"`
	Province     string `json:"province,omitempty"`
	ProvinceCode string `json:"province_code,omitempty"`
	Country      string `json:"country,omitempty"`
	CountryCode  string `json:"country_code"`
	Zip          string `json:"zip"`
	Phone        string `json:"phone,omitempty"`
}

// ShippingLine is a custom shipping charge attached to a draft order.
type ShippingLine struct {
	Title  string `json:"title"`
	Price  string `json:"price"`
	Code   string `json:"code,omitempty"`
	Custom bool   `json:"custom"`
}

// AppliedDiscount is an order-level discount attached to a draft order.
type AppliedDiscount struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ValueType   string `json:"value_type"`
	Value       string `json:"value"`
	Amount      string `json:"amount"`
}

// DraftOrderNoteAttr is a name/value note attached to a draft order.
type DraftOrderNoteAttr struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DraftOrder is a draft order as stored by the commerce backend.
type DraftOrder struct {
	ID              string
	Name            string
	Status          string
	Email           string
	LineItems       []DraftOrderLine
	ShippingAddress *Address
	ShippingLine    *AppliedShippingLine
	SubtotalPrice   decimal.Decimal
	TotalPrice      decimal.Decimal
	InvoiceURL      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DraftOrderLine is a line of a stored draft order.
type DraftOrderLine struct {
	VariantID    string
	Title        string
	VariantTitle string
	Quantity     int
	Grams        int
	Price        decimal.Decimal
}

// AppliedShippingLine is the shipping line currently set on a stored draft order.
type AppliedShippingLine struct {
	ID    string
	Title string
	Code  string
	Price decimal.Decimal
}

// WeightKg returns the draft order weight derived from line item grams.
func (d DraftOrder) WeightKg() float64 {
	total := 0.0
	for _, line := range d.LineItems {
		if line.Grams <= 0 || line.Quantity <= 0 {
			continue
		}
		total += float64(line.Grams) * float64(line.Quantity) / 1000
	}
	return total
}
