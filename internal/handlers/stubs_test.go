package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/borne-automatique/api/internal/services"
)

type stubShippingService struct {
	zonesFunc      func(context.Context) ([]services.ShippingZone, error)
	quoteFunc      func(context.Context, services.QuoteCartShippingCommand) (services.ShippingQuote, error)
	resolveFunc    func(context.Context, services.ResolveRateCommand) (services.ShippingQuote, services.WeightRate, error)
	draftQuoteFunc func(context.Context, string) (services.DraftOrderShippingQuote, error)
}

func (s *stubShippingService) Zones(ctx context.Context) ([]services.ShippingZone, error) {
	if s.zonesFunc == nil {
		return nil, nil
	}
	return s.zonesFunc(ctx)
}

func (s *stubShippingService) QuoteCart(ctx context.Context, cmd services.QuoteCartShippingCommand) (services.ShippingQuote, error) {
	if s.quoteFunc == nil {
		return services.ShippingQuote{}, nil
	}
	return s.quoteFunc(ctx, cmd)
}

func (s *stubShippingService) ResolveRate(ctx context.Context, cmd services.ResolveRateCommand) (services.ShippingQuote, services.WeightRate, error) {
	if s.resolveFunc == nil {
		return services.ShippingQuote{}, services.WeightRate{}, nil
	}
	return s.resolveFunc(ctx, cmd)
}

func (s *stubShippingService) QuoteDraftOrder(ctx context.Context, id string) (services.DraftOrderShippingQuote, error) {
	if s.draftQuoteFunc == nil {
		return services.DraftOrderShippingQuote{}, nil
	}
	return s.draftQuoteFunc(ctx, id)
}

type stubCheckoutService struct {
	priceFunc  func(context.Context, services.PriceCartCommand) (services.PriceCartResult, error)
	createFunc func(context.Context, services.CreateDraftOrderCommand) (services.DraftOrderResult, error)
	selectFunc func(context.Context, services.SelectShippingMethodCommand) (services.DraftOrder, error)
	cancelFunc func(context.Context, string) error
}

func (s *stubCheckoutService) PriceCart(ctx context.Context, cmd services.PriceCartCommand) (services.PriceCartResult, error) {
	if s.priceFunc == nil {
		return services.PriceCartResult{}, nil
	}
	return s.priceFunc(ctx, cmd)
}

func (s *stubCheckoutService) CreateDraftOrder(ctx context.Context, cmd services.CreateDraftOrderCommand) (services.DraftOrderResult, error) {
	if s.createFunc == nil {
		return services.DraftOrderResult{}, nil
	}
	return s.createFunc(ctx, cmd)
}

func (s *stubCheckoutService) SelectShippingMethod(ctx context.Context, cmd services.SelectShippingMethodCommand) (services.DraftOrder, error) {
	if s.selectFunc == nil {
		return services.DraftOrder{}, nil
	}
	return s.selectFunc(ctx, cmd)
}

func (s *stubCheckoutService) CancelDraftOrder(ctx context.Context, id string) error {
	if s.cancelFunc == nil {
		return nil
	}
	return s.cancelFunc(ctx, id)
}

type stubCatalogService struct {
	groups []services.ProductTypeGroup
	err    error
}

func (s *stubCatalogService) ProductsByType(context.Context) ([]services.ProductTypeGroup, error) {
	return s.groups, s.err
}

type stubUpstreamError struct{ status int }

func (e stubUpstreamError) Error() string       { return "commerce: upstream failure" }
func (e stubUpstreamError) UpstreamStatus() int { return e.status }

var (
	_ services.ShippingService = (*stubShippingService)(nil)
	_ services.CheckoutService = (*stubCheckoutService)(nil)
	_ services.CatalogService  = (*stubCatalogService)(nil)
)

func floatPtr(v float64) *float64 { return &v }

func franceZone() services.ShippingZone {
	return services.ShippingZone{
		ID:        "zone-fr",
		Name:      "France",
		Countries: []services.ShippingCountry{{Code: "FR"}},
		WeightRates: []services.WeightRate{
			{ID: "101", Name: "Colissimo", WeightLow: floatPtr(0), WeightHigh: floatPtr(2), Price: decimal.RequireFromString("4.00")},
			{ID: "102", Name: "Colissimo lourd", WeightLow: floatPtr(2), Price: decimal.RequireFromString("9.90")},
		},
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return body
}

const twoMugsItems = `[{"variant_id":"gid://shopify/ProductVariant/11","title":"Mug","price":"10.00","quantity":2,"weight":500,"weight_unit":"g"}]`
