package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/borne-automatique/api/internal/platform/money"
)

func TestNewRouterHealthz(t *testing.T) {
	router := NewRouter()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", decodeJSON(t, rr)["status"])
}

func TestNewRouterUnknownRoute(t *testing.T) {
	router := NewRouter()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "route_not_found", decodeJSON(t, rr)["error"])
}

func TestNewRouterDisabledGroups(t *testing.T) {
	router := NewRouter()
	for _, path := range []string{"/api/v1/draft-orders", "/api/v1/draft-orders/991/shipping-rates", "/api/v1/catalog/products"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusServiceUnavailable, rr.Code, path)
		require.Equal(t, "feature_unavailable", decodeJSON(t, rr)["error"], path)
	}
}

func TestNewRouterMountsRegistrars(t *testing.T) {
	router := NewRouter(
		WithCartRoutes(NewCartHandlers(&stubCheckoutService{}, money.NewFormatter("")).Routes),
		WithShippingRoutes(NewShippingHandlers(&stubShippingService{}, money.NewFormatter("")).Routes),
	)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/shipping/zones", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/cart/price", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	require.Equal(t, "method_not_allowed", decodeJSON(t, rr)["error"])
}

func TestNewRouterAppliesMiddlewares(t *testing.T) {
	var seen bool
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = true
			next.ServeHTTP(w, r)
		})
	}
	router := NewRouter(WithMiddlewares(mw), WithCatalogRoutes(func(r chi.Router) {
		NewCatalogHandlers(&stubCatalogService{}).Routes(r)
	}))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/products", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, seen)
}
