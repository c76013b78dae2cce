package services

import (
	"context"
	"errors"
	"testing"
)

func newTestCheckout(t *testing.T, drafts *fakeDraftOrderGateway, recorder *eventRecorder) CheckoutService {
	t.Helper()
	var logger func(context.Context, string, map[string]any)
	if recorder != nil {
		logger = recorder.log
	}
	shippingDeps := ShippingServiceDeps{Zones: &fakeZoneSource{zones: franceZones()}}
	deps := CheckoutServiceDeps{
		IDGenerator: func() string { return "01HZREF" },
		Logger:      logger,
	}
	if drafts != nil {
		shippingDeps.DraftOrders = drafts
		deps.DraftOrders = drafts
	}
	shipping, err := NewShippingService(shippingDeps)
	if err != nil {
		t.Fatalf("NewShippingService error: %v", err)
	}
	deps.Shipping = shipping
	svc, err := NewCheckoutService(deps)
	if err != nil {
		t.Fatalf("NewCheckoutService error: %v", err)
	}
	return svc
}

func twoMugs() Cart {
	return Cart{Items: []CartItem{
		{VariantID: "gid://shopify/ProductVariant/555", Title: "Mug", UnitPrice: dec("10.00"), Quantity: 2, UnitWeight: 500, WeightUnit: WeightUnitGrams},
	}}
}

func validCustomer() CustomerInfo {
	return CustomerInfo{FirstName: "Lina", LastName: "Martin", Email: "lina@example.com", Phone: "0601020304"}
}

func parisAddress() Address {
	return Address{Address1: "10 rue Oberkampf", City: "Paris", PostalCode: "75011", CountryCode: "FR"}
}

func TestCheckoutService_PriceCart(t *testing.T) {
	svc := newTestCheckout(t, nil, nil)
	ctx := context.Background()

	result, err := svc.PriceCart(ctx, PriceCartCommand{Cart: twoMugs()})
	if err != nil {
		t.Fatalf("PriceCart error: %v", err)
	}
	if result.Quote != nil || result.Rate != nil {
		t.Fatalf("expected no shipping without an address, got %+v", result)
	}
	if !result.Order.Total.Equal(dec("19.00")) {
		t.Fatalf("expected 19.00 before shipping, got %s", result.Order.Total)
	}

	addr := parisAddress()
	result, err = svc.PriceCart(ctx, PriceCartCommand{Cart: twoMugs(), Address: &addr})
	if err != nil {
		t.Fatalf("PriceCart error: %v", err)
	}
	if result.Quote == nil || len(result.Quote.Rates) != 2 {
		t.Fatalf("expected two candidate rates for 1kg, got %+v", result.Quote)
	}

	result, err = svc.PriceCart(ctx, PriceCartCommand{Cart: twoMugs(), Address: &addr, RateID: "101"})
	if err != nil {
		t.Fatalf("PriceCart error: %v", err)
	}
	if !result.Order.Total.Equal(dec("23.00")) {
		t.Fatalf("expected 23.00 with Mondial Relay, got %s", result.Order.Total)
	}

	if _, err := svc.PriceCart(ctx, PriceCartCommand{Cart: twoMugs(), Address: &addr, RateID: "103"}); !errors.Is(err, ErrCheckoutRateUnavailable) {
		t.Fatalf("expected rate unavailable, got %v", err)
	}
	if _, err := svc.PriceCart(ctx, PriceCartCommand{Cart: twoMugs(), RateID: "101"}); !errors.Is(err, ErrCheckoutInvalidInput) {
		t.Fatalf("expected invalid input for rate without address, got %v", err)
	}
	if _, err := svc.PriceCart(ctx, PriceCartCommand{}); !errors.Is(err, ErrCheckoutInvalidInput) {
		t.Fatalf("expected invalid input for empty cart, got %v", err)
	}
}

func TestCheckoutService_CreateDraftOrder(t *testing.T) {
	drafts := &fakeDraftOrderGateway{createOrder: DraftOrder{ID: "9001", Name: "#D12"}}
	recorder := &eventRecorder{}
	svc := newTestCheckout(t, drafts, recorder)

	result, err := svc.CreateDraftOrder(context.Background(), CreateDraftOrderCommand{
		Cart:            twoMugs(),
		Customer:        validCustomer(),
		ShippingAddress: parisAddress(),
		RateID:          "101",
	})
	if err != nil {
		t.Fatalf("CreateDraftOrder error: %v", err)
	}
	if result.DraftOrder.ID != "9001" || result.Reference != "01HZREF" || result.Rate.ID != "101" {
		t.Fatalf("unexpected result %+v", result)
	}
	if !result.Pricing.Total.Equal(dec("23.00")) {
		t.Fatalf("expected 23.00, got %s", result.Pricing.Total)
	}
	if len(drafts.created) != 1 {
		t.Fatalf("expected one payload sent, got %d", len(drafts.created))
	}
	payload := drafts.created[0]
	if payload.LineItems[0].VariantID != "555" {
		t.Fatalf("expected numeric variant id, got %q", payload.LineItems[0].VariantID)
	}
	if payload.ShippingLine == nil || payload.ShippingLine.Code != "WEIGHT_101" || payload.ShippingLine.Price != "4.00" {
		t.Fatalf("unexpected shipping line %+v", payload.ShippingLine)
	}
	if payload.AppliedDiscount == nil || payload.AppliedDiscount.Amount != "1.00" {
		t.Fatalf("unexpected discount %+v", payload.AppliedDiscount)
	}
	if !recorder.has("draft_order_created") {
		t.Fatalf("expected creation to be logged")
	}
}

func TestCheckoutService_CreateDraftOrderRejections(t *testing.T) {
	ctx := context.Background()
	base := func() CreateDraftOrderCommand {
		return CreateDraftOrderCommand{Cart: twoMugs(), Customer: validCustomer(), ShippingAddress: parisAddress(), RateID: "101"}
	}

	cases := []struct {
		name   string
		mutate func(*CreateDraftOrderCommand)
		want   error
	}{
		{name: "empty cart", mutate: func(c *CreateDraftOrderCommand) { c.Cart = Cart{} }, want: ErrCheckoutInvalidInput},
		{name: "bad email", mutate: func(c *CreateDraftOrderCommand) { c.Customer.Email = "not-an-email" }, want: ErrCheckoutInvalidInput},
		{name: "missing city", mutate: func(c *CreateDraftOrderCommand) { c.ShippingAddress.City = " " }, want: ErrCheckoutInvalidInput},
		{name: "uncovered country", mutate: func(c *CreateDraftOrderCommand) { c.ShippingAddress.CountryCode = "BR" }, want: ErrCheckoutNoShipping},
		{name: "missing rate", mutate: func(c *CreateDraftOrderCommand) { c.RateID = "" }, want: ErrCheckoutRateRequired},
		{name: "rate outside bracket", mutate: func(c *CreateDraftOrderCommand) { c.RateID = "103" }, want: ErrCheckoutRateUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			drafts := &fakeDraftOrderGateway{}
			svc := newTestCheckout(t, drafts, nil)
			cmd := base()
			tc.mutate(&cmd)
			_, err := svc.CreateDraftOrder(ctx, cmd)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if len(drafts.created) != 0 {
				t.Fatalf("no draft order should be sent on rejection")
			}
		})
	}
}

func TestCheckoutService_CreateDraftOrderUpstreamFailure(t *testing.T) {
	boom := errors.New("shopify 502")
	recorder := &eventRecorder{}
	svc := newTestCheckout(t, &fakeDraftOrderGateway{createErr: boom}, recorder)
	_, err := svc.CreateDraftOrder(context.Background(), CreateDraftOrderCommand{
		Cart: twoMugs(), Customer: validCustomer(), ShippingAddress: parisAddress(), RateID: "101",
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if !recorder.has("draft_order_create_failed") {
		t.Fatalf("expected failure to be logged")
	}
}

func TestCheckoutService_WithoutGateway(t *testing.T) {
	svc := newTestCheckout(t, nil, nil)
	ctx := context.Background()
	if _, err := svc.CreateDraftOrder(ctx, CreateDraftOrderCommand{Cart: twoMugs()}); !errors.Is(err, ErrCheckoutUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if err := svc.CancelDraftOrder(ctx, "1"); !errors.Is(err, ErrCheckoutUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestCheckoutService_SelectShippingMethod(t *testing.T) {
	drafts := &fakeDraftOrderGateway{orders: map[string]DraftOrder{
		"77": {
			ID:              "77",
			LineItems:       []DraftOrderLine{{VariantID: "1", Quantity: 3, Grams: 1000}},
			ShippingAddress: &Address{CountryCode: "FR"},
		},
	}}
	svc := newTestCheckout(t, drafts, nil)
	ctx := context.Background()

	order, err := svc.SelectShippingMethod(ctx, SelectShippingMethodCommand{DraftOrderID: "77", RateID: "102"})
	if err != nil {
		t.Fatalf("SelectShippingMethod error: %v", err)
	}
	line := drafts.updated["77"]
	if line != (ShippingLine{Title: "Colissimo", Price: "8.00", Code: "WEIGHT_102", Custom: true}) {
		t.Fatalf("unexpected shipping line %+v", line)
	}
	if order.ShippingLine == nil || order.ShippingLine.Code != "WEIGHT_102" {
		t.Fatalf("expected updated order, got %+v", order.ShippingLine)
	}

	if _, err := svc.SelectShippingMethod(ctx, SelectShippingMethodCommand{DraftOrderID: "77", RateID: "101"}); !errors.Is(err, ErrCheckoutRateUnavailable) {
		t.Fatalf("expected rate unavailable for 3kg Mondial Relay, got %v", err)
	}
	if _, err := svc.SelectShippingMethod(ctx, SelectShippingMethodCommand{DraftOrderID: "77"}); !errors.Is(err, ErrCheckoutRateRequired) {
		t.Fatalf("expected rate required, got %v", err)
	}
}

func TestCheckoutService_CancelDraftOrder(t *testing.T) {
	drafts := &fakeDraftOrderGateway{}
	recorder := &eventRecorder{}
	svc := newTestCheckout(t, drafts, recorder)

	if err := svc.CancelDraftOrder(context.Background(), " 42 "); err != nil {
		t.Fatalf("CancelDraftOrder error: %v", err)
	}
	if len(drafts.deleted) != 1 || drafts.deleted[0] != "42" {
		t.Fatalf("unexpected deletions %v", drafts.deleted)
	}
	if !recorder.has("draft_order_cancelled") {
		t.Fatalf("expected cancellation to be logged")
	}
	if err := svc.CancelDraftOrder(context.Background(), ""); !errors.Is(err, ErrCheckoutInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
