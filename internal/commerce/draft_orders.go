package commerce

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	domain "github.com/borne-automatique/api/internal/domain"
)

var errDraftOrderID = errors.New("commerce: draft order id is required")

type draftOrderEnvelope struct {
	DraftOrder draftOrderDoc `json:"draft_order"`
}

type draftOrderDoc struct {
	ID              flexString       `json:"id"`
	Name            string           `json:"name"`
	Status          string           `json:"status"`
	Email           string           `json:"email"`
	LineItems       []draftLineDoc   `json:"line_items"`
	ShippingAddress *addressDoc      `json:"shipping_address"`
	ShippingLine    *shippingLineDoc `json:"shipping_line"`
	SubtotalPrice   flexString       `json:"subtotal_price"`
	TotalPrice      flexString       `json:"total_price"`
	InvoiceURL      string           `json:"invoice_url"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type draftLineDoc struct {
	VariantID    flexString     `json:"variant_id"`
	Title        string         `json:"title"`
	VariantTitle string         `json:"variant_title"`
	Quantity     int            `json:"quantity"`
	Grams        optionalNumber `json:"grams"`
	Price        flexString     `json:"price"`
}

type addressDoc struct {
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

type shippingLineDoc struct {
	ID    flexString `json:"id"`
	Title string     `json:"title"`
	Code  string     `json:"code"`
	Price flexString `json:"price"`
}

type draftOrderRequest struct {
	DraftOrder any `json:"draft_order"`
}

type shippingLineUpdate struct {
	ID           string              `json:"id"`
	ShippingLine domain.ShippingLine `json:"shipping_line"`
}

// CreateDraftOrder stores a new draft order built from the payload.
func (c *Client) CreateDraftOrder(ctx context.Context, payload domain.DraftOrderPayload) (domain.DraftOrder, error) {
	var out draftOrderEnvelope
	if err := c.do(ctx, "draft_orders.create", http.MethodPost, "draft_orders.json", nil, draftOrderRequest{DraftOrder: payload}, &out); err != nil {
		return domain.DraftOrder{}, err
	}
	return toDomainDraftOrder(out.DraftOrder)
}

// DraftOrder loads a stored draft order.
func (c *Client) DraftOrder(ctx context.Context, id string) (domain.DraftOrder, error) {
	path, err := draftOrderPath(id)
	if err != nil {
		return domain.DraftOrder{}, err
	}
	var out draftOrderEnvelope
	if err := c.do(ctx, "draft_orders.get", http.MethodGet, path, nil, nil, &out); err != nil {
		return domain.DraftOrder{}, err
	}
	return toDomainDraftOrder(out.DraftOrder)
}

// UpdateDraftOrderShippingLine replaces the shipping line of a draft order.
func (c *Client) UpdateDraftOrderShippingLine(ctx context.Context, id string, line domain.ShippingLine) (domain.DraftOrder, error) {
	path, err := draftOrderPath(id)
	if err != nil {
		return domain.DraftOrder{}, err
	}
	body := draftOrderRequest{DraftOrder: shippingLineUpdate{ID: strings.TrimSpace(id), ShippingLine: line}}
	var out draftOrderEnvelope
	if err := c.do(ctx, "draft_orders.update_shipping", http.MethodPut, path, nil, body, &out); err != nil {
		return domain.DraftOrder{}, err
	}
	return toDomainDraftOrder(out.DraftOrder)
}

// DeleteDraftOrder removes a draft order.
func (c *Client) DeleteDraftOrder(ctx context.Context, id string) error {
	path, err := draftOrderPath(id)
	if err != nil {
		return err
	}
	return c.do(ctx, "draft_orders.delete", http.MethodDelete, path, nil, nil, nil)
}

func draftOrderPath(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, "/?#") {
		return "", errDraftOrderID
	}
	return fmt.Sprintf("draft_orders/%s.json", id), nil
}

func toDomainDraftOrder(doc draftOrderDoc) (domain.DraftOrder, error) {
	id := strings.TrimSpace(string(doc.ID))
	if id == "" {
		return domain.DraftOrder{}, errors.New("commerce: draft order response has no id")
	}
	subtotal, err := parseAmount(string(doc.SubtotalPrice))
	if err != nil {
		return domain.DraftOrder{}, fmt.Errorf("commerce: draft order %s subtotal: %w", id, err)
	}
	total, err := parseAmount(string(doc.TotalPrice))
	if err != nil {
		return domain.DraftOrder{}, fmt.Errorf("commerce: draft order %s total: %w", id, err)
	}

	order := domain.DraftOrder{
		ID:            id,
		Name:          doc.Name,
		Status:        doc.Status,
		Email:         doc.Email,
		LineItems:     make([]domain.DraftOrderLine, 0, len(doc.LineItems)),
		SubtotalPrice: subtotal,
		TotalPrice:    total,
		InvoiceURL:    doc.InvoiceURL,
		CreatedAt:     doc.CreatedAt.UTC(),
		UpdatedAt:     doc.UpdatedAt.UTC(),
	}
	for _, line := range doc.LineItems {
		price, err := parseAmount(string(line.Price))
		if err != nil {
			return domain.DraftOrder{}, fmt.Errorf("commerce: draft order %s line price: %w", id, err)
		}
		order.LineItems = append(order.LineItems, domain.DraftOrderLine{
			VariantID:    string(line.VariantID),
			Title:        line.Title,
			VariantTitle: line.VariantTitle,
			Quantity:     line.Quantity,
			Grams:        int(line.Grams.value),
			Price:        price,
		})
	}
	if a := doc.ShippingAddress; a != nil {
		order.ShippingAddress = &domain.Address{
			FirstName:    a.FirstName,
			LastName:     a.LastName,
			Address1:     a.Address1,
			Address2:     a.Address2,
			City:         a.City,
			PostalCode:   a.Zip,
			Province:     a.Province,
			ProvinceCode: normalizeCode(a.ProvinceCode),
			Country:      a.Country,
			CountryCode:  normalizeCode(a.CountryCode),
			Phone:        a.Phone,
		}
	}
	if s := doc.ShippingLine; s != nil {
		price, err := parseAmount(string(s.Price))
		if err != nil {
			return domain.DraftOrder{}, fmt.Errorf("commerce: draft order %s shipping price: %w", id, err)
		}
		order.ShippingLine = &domain.AppliedShippingLine{
			ID:    string(s.ID),
			Title: s.Title,
			Code:  s.Code,
			Price: price,
		}
	}
	return order, nil
}
