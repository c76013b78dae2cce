package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"

	"github.com/borne-automatique/api/internal/services"
)

const (
	maxCartBodySize     = 32 * 1024
	maxSelectBodySize   = 2 * 1024
	maxTextFieldLength  = 255
	maxCartLineQuantity = 99
)

var (
	errBodyTooLarge = errors.New("request body too large")
	errEmptyBody    = errors.New("request body is required")
)

// textPolicy strips any markup a customer types on the kiosk keyboard before it is stored
// on the draft order.
var textPolicy = bluemonday.StrictPolicy()

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func decodeBody(r *http.Request, limit int64, into any) error {
	body, err := readLimitedBody(r, limit)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, into); err != nil {
		return errors.New("request body must be valid JSON")
	}
	return nil
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type cartItemRequest struct {
	VariantID    string  `json:"variant_id"`
	Title        string  `json:"title"`
	VariantLabel string  `json:"variant_label"`
	Price        string  `json:"price"`
	Quantity     int     `json:"quantity"`
	Weight       float64 `json:"weight"`
	WeightUnit   string  `json:"weight_unit"`
}

type addressRequest struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Address1     string `json:"address1"`
	Address2     string `json:"address2"`
	City         string `json:"city"`
	Zip          string `json:"zip"`
	Province     string `json:"province"`
	ProvinceCode string `json:"province_code"`
	Country      string `json:"country"`
	CountryCode  string `json:"country_code"`
	Phone        string `json:"phone"`
}

type customerRequest struct {
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	AcceptsMarketing bool   `json:"accepts_marketing"`
}

// buildCart folds request lines into a cart. Repeated variants merge as they do on the kiosk.
func buildCart(items []cartItemRequest) (services.Cart, error) {
	if len(items) == 0 {
		return services.Cart{}, errors.New("items must contain at least one line")
	}
	var cart services.Cart
	for i, item := range items {
		price, err := parsePrice(item.Price)
		if err != nil {
			return services.Cart{}, fmt.Errorf("items[%d].price: %w", i, err)
		}
		unit, err := parseWeightUnit(item.WeightUnit)
		if err != nil {
			return services.Cart{}, fmt.Errorf("items[%d].weight_unit: %w", i, err)
		}
		if item.Quantity > maxCartLineQuantity {
			return services.Cart{}, fmt.Errorf("items[%d].quantity must not exceed %d", i, maxCartLineQuantity)
		}
		cart, err = cart.Add(services.CartItem{
			VariantID:    strings.TrimSpace(item.VariantID),
			Title:        sanitizeText(item.Title),
			VariantLabel: sanitizeText(item.VariantLabel),
			UnitPrice:    price,
			Quantity:     item.Quantity,
			UnitWeight:   item.Weight,
			WeightUnit:   unit,
		})
		if err != nil {
			return services.Cart{}, fmt.Errorf("items[%d]: %w", i, err)
		}
	}
	return cart, nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, errors.New("is required")
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.New("must be a decimal string")
	}
	if value.IsNegative() {
		return decimal.Zero, errors.New("must not be negative")
	}
	return value, nil
}

func parseWeightUnit(raw string) (services.WeightUnit, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "g":
		return services.WeightUnitGrams, nil
	case "kg":
		return services.WeightUnitKilograms, nil
	default:
		return "", fmt.Errorf("unsupported unit %q", raw)
	}
}

func (a addressRequest) toAddress() services.Address {
	return services.Address{
		FirstName:    sanitizeText(a.FirstName),
		LastName:     sanitizeText(a.LastName),
		Address1:     sanitizeText(a.Address1),
		Address2:     sanitizeText(a.Address2),
		City:         sanitizeText(a.City),
		PostalCode:   sanitizeText(a.Zip),
		Province:     sanitizeText(a.Province),
		ProvinceCode: strings.ToUpper(strings.TrimSpace(a.ProvinceCode)),
		Country:      sanitizeText(a.Country),
		CountryCode:  strings.ToUpper(strings.TrimSpace(a.CountryCode)),
		Phone:        sanitizeText(a.Phone),
	}
}

func (c customerRequest) toCustomer() services.CustomerInfo {
	return services.CustomerInfo{
		FirstName:        sanitizeText(c.FirstName),
		LastName:         sanitizeText(c.LastName),
		Email:            strings.TrimSpace(c.Email),
		Phone:            sanitizeText(c.Phone),
		AcceptsMarketing: c.AcceptsMarketing,
	}
}

func sanitizeText(value string) string {
	cleaned := html.UnescapeString(textPolicy.Sanitize(value))
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if len(cleaned) > maxTextFieldLength {
		cleaned = strings.ToValidUTF8(cleaned[:maxTextFieldLength], "")
	}
	return cleaned
}
