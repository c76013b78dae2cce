package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/borne-automatique/api/internal/platform/httpx"
	"github.com/borne-automatique/api/internal/platform/money"
	"github.com/borne-automatique/api/internal/services"
)

// DraftOrderHandlers creates and updates the draft orders a kiosk hands over to the till.
type DraftOrderHandlers struct {
	checkout    services.CheckoutService
	shipping    services.ShippingService
	format      money.Formatter
	idempotency func(http.Handler) http.Handler
}

// DraftOrderOption customises DraftOrderHandlers.
type DraftOrderOption func(*DraftOrderHandlers)

// WithIdempotency guards draft order creation with the given middleware.
func WithIdempotency(mw func(http.Handler) http.Handler) DraftOrderOption {
	return func(h *DraftOrderHandlers) {
		h.idempotency = mw
	}
}

// WithMoneyFormatter sets the formatter used for display amounts.
func WithMoneyFormatter(format money.Formatter) DraftOrderOption {
	return func(h *DraftOrderHandlers) {
		h.format = format
	}
}

// NewDraftOrderHandlers constructs the /draft-orders handlers.
func NewDraftOrderHandlers(checkout services.CheckoutService, shipping services.ShippingService, opts ...DraftOrderOption) *DraftOrderHandlers {
	h := &DraftOrderHandlers{
		checkout: checkout,
		shipping: shipping,
		format:   money.NewFormatter(money.DefaultLocale),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes wires the /draft-orders endpoints onto the provided router.
func (h *DraftOrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	create := http.Handler(http.HandlerFunc(h.create))
	if h.idempotency != nil {
		create = h.idempotency(create)
	}
	r.Method(http.MethodPost, "/", create)
	r.Get("/{draftOrderID}/shipping-rates", h.shippingRates)
	r.Put("/{draftOrderID}/shipping-method", h.selectShippingMethod)
	r.Delete("/{draftOrderID}", h.cancel)
}

type createDraftOrderRequest struct {
	Items           []cartItemRequest `json:"items"`
	Customer        customerRequest   `json:"customer"`
	ShippingAddress addressRequest    `json:"shipping_address"`
	ShippingRateID  string            `json:"shipping_rate_id"`
}

type createDraftOrderResponse struct {
	DraftOrder   draftOrderResponse `json:"draft_order"`
	Reference    string             `json:"reference"`
	Pricing      pricingResponse    `json:"pricing"`
	ShippingRate rateResponse       `json:"shipping_rate"`
}

type draftOrderRatesResponse struct {
	DraftOrderID   string `json:"draft_order_id"`
	SelectedRateID string `json:"selected_rate_id,omitempty"`
	quoteResponse
}

type selectShippingMethodRequest struct {
	ShippingRateID string `json:"shipping_rate_id"`
}

type draftOrderEnvelope struct {
	DraftOrder draftOrderResponse `json:"draft_order"`
}

func (h *DraftOrderHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req createDraftOrderRequest
	if err := decodeBody(r, maxCartBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	cart, err := buildCart(req.Items)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	customer := req.Customer.toCustomer()
	address := req.ShippingAddress.toAddress()
	if address.FirstName == "" {
		address.FirstName = customer.FirstName
	}
	if address.LastName == "" {
		address.LastName = customer.LastName
	}
	if address.Phone == "" {
		address.Phone = customer.Phone
	}

	result, err := h.checkout.CreateDraftOrder(ctx, services.CreateDraftOrderCommand{
		Cart:            cart,
		Customer:        customer,
		ShippingAddress: address,
		RateID:          strings.TrimSpace(req.ShippingRateID),
	})
	if err != nil {
		writeServiceError(ctx, w, err, "invalid_customer")
		return
	}

	rate := buildRate(result.Rate, h.format)
	rate.Selected = true
	w.Header().Set("Location", "/api/v1/draft-orders/"+result.DraftOrder.ID)
	writeJSONResponse(w, http.StatusCreated, createDraftOrderResponse{
		DraftOrder:   buildDraftOrder(result.DraftOrder),
		Reference:    result.Reference,
		Pricing:      buildPricing(result.Pricing, h.format),
		ShippingRate: rate,
	})
}

func (h *DraftOrderHandlers) shippingRates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.shipping == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipping_unavailable", "shipping service unavailable", http.StatusServiceUnavailable))
		return
	}

	quote, err := h.shipping.QuoteDraftOrder(ctx, chi.URLParam(r, "draftOrderID"))
	if err != nil {
		writeServiceError(ctx, w, err, "invalid_request")
		return
	}
	writeJSONResponse(w, http.StatusOK, draftOrderRatesResponse{
		DraftOrderID:   quote.DraftOrderID,
		SelectedRateID: quote.SelectedRateID,
		quoteResponse:  buildQuote(quote.Quote, quote.SelectedRateID, h.format),
	})
}

func (h *DraftOrderHandlers) selectShippingMethod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req selectShippingMethodRequest
	if err := decodeBody(r, maxSelectBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	order, err := h.checkout.SelectShippingMethod(ctx, services.SelectShippingMethodCommand{
		DraftOrderID: chi.URLParam(r, "draftOrderID"),
		RateID:       req.ShippingRateID,
	})
	if err != nil {
		writeServiceError(ctx, w, err, "invalid_request")
		return
	}
	writeJSONResponse(w, http.StatusOK, draftOrderEnvelope{DraftOrder: buildDraftOrder(order)})
}

func (h *DraftOrderHandlers) cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}
	if err := h.checkout.CancelDraftOrder(ctx, chi.URLParam(r, "draftOrderID")); err != nil {
		writeServiceError(ctx, w, err, "invalid_request")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
