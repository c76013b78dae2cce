package services

import (
	"context"
	"fmt"
	"strings"
)

const (
	// MalformedVariantID replaces variant identifiers that carry no numeric id.
	MalformedVariantID = "0"

	variantGIDPrefix       = "gid://shopify/ProductVariant/"
	defaultDraftOrderTag   = "borne"
	referenceNoteAttribute = "kiosk_reference"
)

// DraftOrderBuilder shapes a priced kiosk cart into the commerce backend's draft order payload.
type DraftOrderBuilder struct {
	tags   string
	logger func(context.Context, string, map[string]any)
}

// DraftOrderBuilderDeps configures a DraftOrderBuilder.
type DraftOrderBuilderDeps struct {
	Tags   []string
	Logger func(context.Context, string, map[string]any)
}

// NewDraftOrderBuilder constructs a builder. Without tags, draft orders are tagged "borne".
func NewDraftOrderBuilder(deps DraftOrderBuilderDeps) *DraftOrderBuilder {
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	tags := make([]string, 0, len(deps.Tags))
	for _, tag := range deps.Tags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	if len(tags) == 0 {
		tags = []string{defaultDraftOrderTag}
	}
	return &DraftOrderBuilder{
		tags:   strings.Join(tags, ", "),
		logger: logger,
	}
}

// BuildDraftOrderCommand carries everything the payload is derived from.
type BuildDraftOrderCommand struct {
	Cart            Cart
	Customer        CustomerInfo
	ShippingAddress Address
	Rate            *WeightRate
	Discount        Discount
	Reference       string
}

// Build returns the draft order payload. Malformed variant ids are replaced with
// MalformedVariantID and logged; they never fail the build.
func (b *DraftOrderBuilder) Build(ctx context.Context, cmd BuildDraftOrderCommand) DraftOrderPayload {
	lines := make([]DraftOrderLineItem, 0, len(cmd.Cart.Items))
	for _, item := range cmd.Cart.Items {
		id, ok := NormalizeVariantID(item.VariantID)
		if !ok {
			b.logger(ctx, "draft_order_variant_id_malformed", map[string]any{
				"variantId": item.VariantID,
				"title":     item.Title,
			})
		}
		lines = append(lines, DraftOrderLineItem{VariantID: id, Quantity: item.Quantity})
	}

	customer := cmd.Customer
	addr := cmd.ShippingAddress
	payload := DraftOrderPayload{
		LineItems: lines,
		Customer: &DraftOrderCustomer{
			Email:            customer.Email,
			FirstName:        customer.FirstName,
			LastName:         customer.LastName,
			Phone:            customer.Phone,
			AcceptsMarketing: customer.AcceptsMarketing,
		},
		Email: customer.Email,
		ShippingAddress: &DraftOrderAddress{
			FirstName:    firstNonEmpty(addr.FirstName, customer.FirstName),
			LastName:     firstNonEmpty(addr.LastName, customer.LastName),
			Address1:     addr.Address1,
			Address2:     addr.Address2,
			City:         addr.City,
			Province:     addr.Province,
			ProvinceCode: addr.ProvinceCode,
			Country:      addr.Country,
			CountryCode:  addr.CountryCode,
			Zip:          addr.PostalCode,
			Phone:        firstNonEmpty(addr.Phone, customer.Phone),
		},
		Tags: b.tags,
	}

	if cmd.Rate != nil {
		payload.ShippingLine = &ShippingLine{
			Title:  cmd.Rate.Name,
			Price:  cmd.Rate.Price.StringFixed(2),
			Code:   cmd.Rate.ServiceCode(),
			Custom: true,
		}
	}

	if cmd.Discount.Percentage > 0 {
		payload.AppliedDiscount = &AppliedDiscount{
			Title:       fmt.Sprintf("Remise %d%%", cmd.Discount.Percentage),
			Description: fmt.Sprintf("Remise quantité pour %d articles", cmd.Cart.ItemCount()),
			ValueType:   "percentage",
			Value:       fmt.Sprintf("%d.0", cmd.Discount.Percentage),
			Amount:      cmd.Discount.Amount.StringFixed(2),
		}
	}

	if ref := strings.TrimSpace(cmd.Reference); ref != "" {
		payload.NoteAttributes = []DraftOrderNoteAttr{{Name: referenceNoteAttribute, Value: ref}}
	}

	return payload
}

// NormalizeVariantID extracts the numeric variant id from a global id such as
// "gid://shopify/ProductVariant/123456" or from a bare numeric id.
// The boolean is false, and the id is MalformedVariantID, when no positive numeric id is found.
func NormalizeVariantID(raw string) (string, bool) {
	id := strings.TrimSpace(raw)
	if idx := strings.IndexAny(id, "?#"); idx >= 0 {
		id = id[:idx]
	}
	id = strings.TrimPrefix(id, variantGIDPrefix)
	if idx := strings.LastIndex(id, "/"); idx >= 0 {
		id = id[idx+1:]
	}
	if id == "" || strings.TrimLeft(id, "0") == "" {
		return MalformedVariantID, false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return MalformedVariantID, false
		}
	}
	return id, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
