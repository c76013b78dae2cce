package services

import (
	"context"
	"testing"
)

func TestNormalizeVariantID(t *testing.T) {
	cases := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{raw: "gid://shopify/ProductVariant/123456", want: "123456", wantOK: true},
		{raw: "  gid://shopify/ProductVariant/42  ", want: "42", wantOK: true},
		{raw: "gid://shopify/ProductVariant/42?restock=true", want: "42", wantOK: true},
		{raw: "987", want: "987", wantOK: true},
		{raw: "gid://other/Thing/555", want: "555", wantOK: true},
		{raw: "", want: MalformedVariantID},
		{raw: "gid://shopify/ProductVariant/", want: MalformedVariantID},
		{raw: "gid://shopify/ProductVariant/abc", want: MalformedVariantID},
		{raw: "12a4", want: MalformedVariantID},
		{raw: "000", want: MalformedVariantID},
		{raw: "-15", want: MalformedVariantID},
	}
	for _, tc := range cases {
		got, ok := NormalizeVariantID(tc.raw)
		if got != tc.want || ok != tc.wantOK {
			t.Fatalf("NormalizeVariantID(%q): want (%q, %v), got (%q, %v)", tc.raw, tc.want, tc.wantOK, got, ok)
		}
	}
}

func TestDraftOrderBuilder_Build(t *testing.T) {
	recorder := &eventRecorder{}
	builder := NewDraftOrderBuilder(DraftOrderBuilderDeps{Logger: recorder.log})

	rate := WeightRate{ID: "101", Name: "Mondial Relay", Price: dec("4")}
	cmd := BuildDraftOrderCommand{
		Cart: Cart{Items: []CartItem{
			{VariantID: "gid://shopify/ProductVariant/123456", Title: "Tasse", UnitPrice: dec("10"), Quantity: 2},
			{VariantID: "not-a-variant", Title: "Mystère", UnitPrice: dec("5"), Quantity: 1},
		}},
		Customer: CustomerInfo{
			FirstName: "Camille",
			LastName:  "Durand",
			Email:     "camille@example.com",
			Phone:     "+33600000000",
		},
		ShippingAddress: Address{
			Address1:    "1 rue de la Paix",
			City:        "Paris",
			PostalCode:  "75002",
			Country:     "France",
			CountryCode: "FR",
		},
		Rate:      &rate,
		Discount:  Discount{Percentage: 10, Amount: dec("2.5")},
		Reference: "01HZXKIOSK",
	}

	payload := builder.Build(context.Background(), cmd)

	if len(payload.LineItems) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(payload.LineItems))
	}
	if payload.LineItems[0].VariantID != "123456" || payload.LineItems[0].Quantity != 2 {
		t.Fatalf("unexpected first line: %+v", payload.LineItems[0])
	}
	if payload.LineItems[1].VariantID != MalformedVariantID {
		t.Fatalf("expected malformed sentinel, got %+v", payload.LineItems[1])
	}
	if !recorder.has("draft_order_variant_id_malformed") {
		t.Fatalf("expected malformed variant to be logged")
	}

	if payload.ShippingLine == nil {
		t.Fatalf("expected shipping line")
	}
	if *payload.ShippingLine != (ShippingLine{Title: "Mondial Relay", Price: "4.00", Code: "WEIGHT_101", Custom: true}) {
		t.Fatalf("unexpected shipping line: %+v", *payload.ShippingLine)
	}
	if payload.AppliedDiscount == nil || payload.AppliedDiscount.Amount != "2.50" || payload.AppliedDiscount.ValueType != "percentage" || payload.AppliedDiscount.Value != "10.0" {
		t.Fatalf("unexpected applied discount: %+v", payload.AppliedDiscount)
	}
	if payload.Email != "camille@example.com" || payload.Customer == nil || payload.Customer.FirstName != "Camille" {
		t.Fatalf("unexpected customer: %+v / %q", payload.Customer, payload.Email)
	}
	addr := payload.ShippingAddress
	if addr == nil || addr.FirstName != "Camille" || addr.Zip != "75002" || addr.CountryCode != "FR" || addr.Phone != "+33600000000" {
		t.Fatalf("unexpected shipping address: %+v", addr)
	}
	if payload.Tags != "borne" {
		t.Fatalf("expected default tag, got %q", payload.Tags)
	}
	if len(payload.NoteAttributes) != 1 || payload.NoteAttributes[0].Value != "01HZXKIOSK" {
		t.Fatalf("expected reference note attribute, got %+v", payload.NoteAttributes)
	}
}

func TestDraftOrderBuilder_OmitsOptionalBlocks(t *testing.T) {
	builder := NewDraftOrderBuilder(DraftOrderBuilderDeps{Tags: []string{" kiosk ", "", "salon"}})
	payload := builder.Build(context.Background(), BuildDraftOrderCommand{
		Cart:     Cart{Items: []CartItem{{VariantID: "1", UnitPrice: dec("3"), Quantity: 1}}},
		Customer: CustomerInfo{Email: "a@b.fr"},
	})
	if payload.ShippingLine != nil {
		t.Fatalf("expected no shipping line without a rate, got %+v", payload.ShippingLine)
	}
	if payload.AppliedDiscount != nil {
		t.Fatalf("expected no discount below the first tier, got %+v", payload.AppliedDiscount)
	}
	if payload.NoteAttributes != nil {
		t.Fatalf("expected no note attributes without a reference, got %+v", payload.NoteAttributes)
	}
	if payload.Tags != "kiosk, salon" {
		t.Fatalf("unexpected tags %q", payload.Tags)
	}
}
