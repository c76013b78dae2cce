package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/borne-automatique/api/internal/platform/httpx"
	"github.com/borne-automatique/api/internal/platform/money"
	"github.com/borne-automatique/api/internal/services"
)

// CartHandlers prices kiosk carts. The cart itself lives on the kiosk; every request carries
// the full set of lines.
type CartHandlers struct {
	checkout services.CheckoutService
	format   money.Formatter
}

// NewCartHandlers constructs the /cart handlers.
func NewCartHandlers(checkout services.CheckoutService, format money.Formatter) *CartHandlers {
	return &CartHandlers{checkout: checkout, format: format}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/price", h.priceCart)
}

type priceCartRequest struct {
	Items          []cartItemRequest `json:"items"`
	Address        *addressRequest   `json:"address"`
	ShippingRateID string            `json:"shipping_rate_id"`
}

type priceCartResponse struct {
	Pricing      pricingResponse `json:"pricing"`
	Shipping     *quoteResponse  `json:"shipping,omitempty"`
	ShippingRate *rateResponse   `json:"shipping_rate,omitempty"`
}

func (h *CartHandlers) priceCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req priceCartRequest
	if err := decodeBody(r, maxCartBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	cart, err := buildCart(req.Items)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	cmd := services.PriceCartCommand{Cart: cart, RateID: strings.TrimSpace(req.ShippingRateID)}
	if req.Address != nil {
		address := req.Address.toAddress()
		cmd.Address = &address
	}

	result, err := h.checkout.PriceCart(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err, "invalid_request")
		return
	}

	resp := priceCartResponse{Pricing: buildPricing(result.Order, h.format)}
	selected := ""
	if result.Rate != nil {
		rate := buildRate(*result.Rate, h.format)
		rate.Selected = true
		resp.ShippingRate = &rate
		selected = result.Rate.ID
	}
	if result.Quote != nil {
		quote := buildQuote(*result.Quote, selected, h.format)
		resp.Shipping = &quote
	}
	writeJSONResponse(w, http.StatusOK, resp)
}
