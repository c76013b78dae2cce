package handlers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/borne-automatique/api/internal/domain"
	"github.com/borne-automatique/api/internal/platform/money"
	"github.com/borne-automatique/api/internal/services"
)

type rateResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Price        string   `json:"price"`
	PriceDisplay string   `json:"price_display"`
	ServiceCode  string   `json:"service_code"`
	WeightLow    *float64 `json:"weight_low"`
	WeightHigh   *float64 `json:"weight_high"`
	Currency     string   `json:"currency"`
	Selected     bool     `json:"selected,omitempty"`
}

type zoneSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type quoteResponse struct {
	WeightKg      float64        `json:"weight_kg"`
	Zone          *zoneSummary   `json:"zone"`
	ShippingRates []rateResponse `json:"shipping_rates"`
}

type pricingResponse struct {
	Subtotal           string         `json:"subtotal"`
	DiscountPercentage int            `json:"discount_percentage"`
	DiscountAmount     string         `json:"discount_amount"`
	ShippingPrice      string         `json:"shipping_price"`
	Total              string         `json:"total"`
	ItemCount          int            `json:"item_count"`
	Currency           string         `json:"currency"`
	Display            pricingDisplay `json:"display"`
}

type pricingDisplay struct {
	Subtotal       string `json:"subtotal"`
	DiscountAmount string `json:"discount_amount"`
	ShippingPrice  string `json:"shipping_price"`
	Total          string `json:"total"`
}

type draftOrderResponse struct {
	ID            string                `json:"id"`
	Name          string                `json:"name,omitempty"`
	Status        string                `json:"status,omitempty"`
	InvoiceURL    string                `json:"invoice_url,omitempty"`
	SubtotalPrice string                `json:"subtotal_price"`
	TotalPrice    string                `json:"total_price"`
	ShippingLine  *shippingLineResponse `json:"shipping_line,omitempty"`
	CreatedAt     string                `json:"created_at,omitempty"`
}

type shippingLineResponse struct {
	Title string `json:"title"`
	Code  string `json:"code,omitempty"`
	Price string `json:"price"`
}

func buildRate(rate services.WeightRate, format money.Formatter) rateResponse {
	return rateResponse{
		ID:           rate.ID,
		Name:         rate.Name,
		Price:        rate.Price.StringFixed(2),
		PriceDisplay: format.Format(rate.Price),
		ServiceCode:  rate.ServiceCode(),
		WeightLow:    cloneFloat(rate.WeightLow),
		WeightHigh:   cloneFloat(rate.WeightHigh),
		Currency:     domain.Currency,
	}
}

func buildRates(rates []services.WeightRate, selectedID string, format money.Formatter) []rateResponse {
	out := make([]rateResponse, 0, len(rates))
	for _, rate := range rates {
		payload := buildRate(rate, format)
		payload.Selected = selectedID != "" && rate.ID == selectedID
		out = append(out, payload)
	}
	return out
}

func buildQuote(quote services.ShippingQuote, selectedID string, format money.Formatter) quoteResponse {
	resp := quoteResponse{
		WeightKg:      quote.WeightKg,
		ShippingRates: buildRates(quote.Rates, selectedID, format),
	}
	if quote.Zone != nil {
		resp.Zone = &zoneSummary{ID: quote.Zone.ID, Name: quote.Zone.Name}
	}
	return resp
}

func buildPricing(order services.PricedOrder, format money.Formatter) pricingResponse {
	return pricingResponse{
		Subtotal:           order.Subtotal.StringFixed(2),
		DiscountPercentage: order.DiscountPercentage,
		DiscountAmount:     order.DiscountAmount.StringFixed(2),
		ShippingPrice:      order.ShippingPrice.StringFixed(2),
		Total:              order.Total.StringFixed(2),
		ItemCount:          order.ItemCount,
		Currency:           domain.Currency,
		Display: pricingDisplay{
			Subtotal:       format.Format(order.Subtotal),
			DiscountAmount: format.Format(order.DiscountAmount),
			ShippingPrice:  format.Format(order.ShippingPrice),
			Total:          format.Format(order.Total),
		},
	}
}

func buildDraftOrder(order services.DraftOrder) draftOrderResponse {
	resp := draftOrderResponse{
		ID:            order.ID,
		Name:          order.Name,
		Status:        order.Status,
		InvoiceURL:    order.InvoiceURL,
		SubtotalPrice: fixed(order.SubtotalPrice),
		TotalPrice:    fixed(order.TotalPrice),
	}
	if line := order.ShippingLine; line != nil {
		resp.ShippingLine = &shippingLineResponse{Title: line.Title, Code: line.Code, Price: fixed(line.Price)}
	}
	if !order.CreatedAt.IsZero() {
		resp.CreatedAt = order.CreatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func fixed(value decimal.Decimal) string {
	return value.StringFixed(2)
}

func cloneFloat(value *float64) *float64 {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
