package commerce

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	gax "github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/require"

	domain "github.com/borne-automatique/api/internal/domain"
	"github.com/borne-automatique/api/internal/services"
)

var (
	_ services.ShippingZoneSource = (*Client)(nil)
	_ services.ShippingZoneSource = (*StaticZones)(nil)
	_ services.DraftOrderGateway  = (*Client)(nil)
	_ services.ProductSource      = (*Client)(nil)
)

func newTestClient(t *testing.T, handler http.HandlerFunc, retries int) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(
		Config{StoreDomain: "kiosk-test.myshopify.com", AccessToken: "shpat_test", MaxRetries: retries},
		WithBaseURL(server.URL+"/admin/api/2024-01"),
		WithHTTPClient(server.Client()),
		WithBackoff(gax.Backoff{Initial: time.Millisecond, Max: 2 * time.Millisecond, Multiplier: 1}),
	)
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(Config{StoreDomain: "shop.myshopify.com"})
	require.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewClient(Config{AccessToken: "token"})
	require.ErrorIs(t, err, ErrNotConfigured)

	client, err := NewClient(Config{StoreDomain: "https://shop.myshopify.com/", AccessToken: "token"})
	require.NoError(t, err)
	require.Equal(t, "https://shop.myshopify.com/admin/api/2024-01/", client.baseURL.String())
}

func TestShippingZonesParsesBackendDocument(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/admin/api/2024-01/shipping_zones.json", r.URL.Path)
		require.Equal(t, "shpat_test", r.Header.Get("X-Shopify-Access-Token"))
		_, _ = io.WriteString(w, `{"shipping_zones":[
			{"id":101,"name":"France","countries":[{"code":"fr","provinces":[]}],
			 "weight_based_shipping_rates":[
				{"id":9001,"name":"Mondial Relay","price":"4.00","weight_low":0.0,"weight_high":2.0},
				{"id":9002,"name":"Colissimo","price":"8.00","weight_low":"0","weight_high":null},
				{"id":9003,"name":"Broken","price":"n/a","weight_low":0,"weight_high":1}
			 ]},
			{"id":102,"name":"Espagne","countries":[{"code":"ES","provinces":[{"code":"m"}]}],
			 "weight_based_shipping_rates":[]}
		]}`)
	}, 0)

	zones, err := client.ShippingZones(context.Background())
	require.NoError(t, err)
	require.Len(t, zones, 2)

	fr := zones[0]
	require.Equal(t, "101", fr.ID)
	require.Equal(t, []domain.ShippingCountry{{Code: "FR"}}, fr.Countries)
	require.Len(t, fr.WeightRates, 2, "invalid rates are dropped")
	require.Equal(t, "9001", fr.WeightRates[0].ID)
	require.Equal(t, 2.0, *fr.WeightRates[0].WeightHigh)
	require.Nil(t, fr.WeightRates[1].WeightHigh)
	require.Equal(t, "8", fr.WeightRates[1].Price.String())

	require.Equal(t, []string{"M"}, zones[1].Countries[0].ProvinceCodes)
}

func TestGetRetriesOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"shipping_zones":[]}`)
	}, 2)

	zones, err := client.ShippingZones(context.Background())
	require.NoError(t, err)
	require.Empty(t, zones)
	require.EqualValues(t, 3, calls.Load())
}

func TestGetStopsAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"errors":"Exceeded 2 calls per second"}`)
	}, 1)

	_, err := client.ShippingZones(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusTooManyRequests, apiErr.UpstreamStatus())
	require.Contains(t, apiErr.Body, "Exceeded")
	require.EqualValues(t, 2, calls.Load())
}

func TestWritesAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, 3)

	_, err := client.CreateDraftOrder(context.Background(), domain.DraftOrderPayload{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "draft_orders.create", apiErr.Op)
	require.EqualValues(t, 1, calls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}, 3)

	_, err := client.DraftOrder(context.Background(), "404")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusNotFound, apiErr.Status)
	require.EqualValues(t, 1, calls.Load())
}

func TestCreateDraftOrderSendsPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/admin/api/2024-01/draft_orders.json", r.URL.Path)

		var body map[string]map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		draft := body["draft_order"]
		require.Equal(t, "borne", draft["tags"])
		line := draft["shipping_line"].(map[string]any)
		require.Equal(t, "WEIGHT_101", line["code"])
		require.Equal(t, true, line["custom"])

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"draft_order":{
			"id":1122334455,"name":"#D7","status":"open","email":"lina@example.com",
			"line_items":[{"variant_id":123456,"title":"Mug","quantity":2,"grams":500,"price":"10.00"}],
			"shipping_address":{"first_name":"Lina","city":"Paris","zip":"75011","country_code":"fr"},
			"shipping_line":{"title":"Mondial Relay","code":"WEIGHT_101","price":"4.00"},
			"subtotal_price":"19.00","total_price":"23.00",
			"created_at":"2024-05-02T10:15:00+02:00"
		}}`)
	}, 0)

	order, err := client.CreateDraftOrder(context.Background(), domain.DraftOrderPayload{
		LineItems:    []domain.DraftOrderLineItem{{VariantID: "123456", Quantity: 2}},
		ShippingLine: &domain.ShippingLine{Title: "Mondial Relay", Price: "4.00", Code: "WEIGHT_101", Custom: true},
		Tags:         "borne",
	})
	require.NoError(t, err)
	require.Equal(t, "1122334455", order.ID)
	require.Equal(t, "123456", order.LineItems[0].VariantID)
	require.Equal(t, 1.0, order.WeightKg())
	require.Equal(t, "FR", order.ShippingAddress.CountryCode)
	require.Equal(t, "75011", order.ShippingAddress.PostalCode)
	require.Equal(t, "WEIGHT_101", order.ShippingLine.Code)
	require.Equal(t, "23.00", order.TotalPrice.StringFixed(2))
	require.Equal(t, time.Date(2024, 5, 2, 8, 15, 0, 0, time.UTC), order.CreatedAt)
}

func TestUpdateShippingLineAndDelete(t *testing.T) {
	var deleted bool
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/admin/api/2024-01/draft_orders/77.json", r.URL.Path)
		switch r.Method {
		case http.MethodPut:
			var body struct {
				DraftOrder struct {
					ID           string              `json:"id"`
					ShippingLine domain.ShippingLine `json:"shipping_line"`
				} `json:"draft_order"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "77", body.DraftOrder.ID)
			require.Equal(t, "WEIGHT_102", body.DraftOrder.ShippingLine.Code)
			_, _ = io.WriteString(w, `{"draft_order":{"id":77,"shipping_line":{"title":"Colissimo","code":"WEIGHT_102","price":"8.00"}}}`)
		case http.MethodDelete:
			deleted = true
			_, _ = io.WriteString(w, `{}`)
		default:
			t.Fatalf("unexpected method %s", r.Method)
		}
	}, 0)

	order, err := client.UpdateDraftOrderShippingLine(context.Background(), "77", domain.ShippingLine{Title: "Colissimo", Price: "8.00", Code: "WEIGHT_102", Custom: true})
	require.NoError(t, err)
	require.Equal(t, "8.00", order.ShippingLine.Price.StringFixed(2))

	require.NoError(t, client.DeleteDraftOrder(context.Background(), "77"))
	require.True(t, deleted)

	require.Error(t, client.DeleteDraftOrder(context.Background(), "../shop"))
}

func TestActiveProducts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "active", r.URL.Query().Get("status"))
		require.Equal(t, "id,title,product_type,images,variants", r.URL.Query().Get("fields"))
		_, _ = io.WriteString(w, `{"products":[
			{"id":1,"title":"Bol","product_type":"Céramique","images":[{"src":"https://cdn.example/bol.jpg"}],
			 "variants":[
				{"id":11,"title":"Bleu","price":"18.00","weight":350,"weight_unit":"g","grams":350},
				{"id":12,"title":"Grand","price":"24.00","weight":1.2,"weight_unit":"lb","grams":544}
			 ]}
		]}`)
	}, 0)

	products, err := client.ActiveProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, "https://cdn.example/bol.jpg", products[0].ImageURL)
	require.Len(t, products[0].Variants, 2)
	require.Equal(t, domain.WeightUnitGrams, products[0].Variants[0].WeightUnit)
	require.Equal(t, 350.0, products[0].Variants[0].Weight)
	require.Equal(t, 544.0, products[0].Variants[1].Weight)
	require.Equal(t, domain.WeightUnitGrams, products[0].Variants[1].WeightUnit)
}
