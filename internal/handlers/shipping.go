package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/borne-automatique/api/internal/platform/httpx"
	"github.com/borne-automatique/api/internal/platform/money"
	"github.com/borne-automatique/api/internal/services"
)

// ShippingHandlers quotes shipping rates for kiosk carts.
type ShippingHandlers struct {
	shipping services.ShippingService
	format   money.Formatter
}

// NewShippingHandlers constructs the /shipping handlers.
func NewShippingHandlers(shipping services.ShippingService, format money.Formatter) *ShippingHandlers {
	return &ShippingHandlers{shipping: shipping, format: format}
}

// Routes wires the /shipping endpoints onto the provided router.
func (h *ShippingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/rates", h.quoteRates)
	r.Get("/zones", h.listZones)
}

type shippingRatesRequest struct {
	Address addressRequest    `json:"address"`
	Items   []cartItemRequest `json:"items"`
}

type zonesResponse struct {
	Zones []zoneResponse `json:"zones"`
}

type zoneResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Countries   []countryResponse `json:"countries"`
	WeightRates []rateResponse    `json:"weight_rates"`
}

type countryResponse struct {
	Code          string   `json:"code"`
	ProvinceCodes []string `json:"province_codes"`
}

func (h *ShippingHandlers) quoteRates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.shipping == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipping_unavailable", "shipping service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req shippingRatesRequest
	if err := decodeBody(r, maxCartBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	cart, err := buildCart(req.Items)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	quote, err := h.shipping.QuoteCart(ctx, services.QuoteCartShippingCommand{
		Cart:    cart,
		Address: req.Address.toAddress(),
	})
	if err != nil {
		writeServiceError(ctx, w, err, "invalid_address")
		return
	}
	writeJSONResponse(w, http.StatusOK, buildQuote(quote, "", h.format))
}

func (h *ShippingHandlers) listZones(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.shipping == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipping_unavailable", "shipping service unavailable", http.StatusServiceUnavailable))
		return
	}
	zones, err := h.shipping.Zones(ctx)
	if err != nil {
		writeServiceError(ctx, w, err, "invalid_request")
		return
	}

	resp := zonesResponse{Zones: make([]zoneResponse, 0, len(zones))}
	for _, zone := range zones {
		payload := zoneResponse{
			ID:          zone.ID,
			Name:        zone.Name,
			Countries:   make([]countryResponse, 0, len(zone.Countries)),
			WeightRates: buildRates(zone.WeightRates, "", h.format),
		}
		for _, country := range zone.Countries {
			provinces := append([]string{}, country.ProvinceCodes...)
			payload.Countries = append(payload.Countries, countryResponse{Code: country.Code, ProvinceCodes: provinces})
		}
		resp.Zones = append(resp.Zones, payload)
	}
	writeJSONResponse(w, http.StatusOK, resp)
}
