package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/borne-automatique/api/internal/platform/httpx"
	"github.com/borne-automatique/api/internal/services"
)

// upstreamError is implemented by commerce API errors that carry the backend status.
type upstreamError interface {
	UpstreamStatus() int
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	code := "invalid_request"
	if errors.Is(err, errBodyTooLarge) {
		status = http.StatusRequestEntityTooLarge
		code = "payload_too_large"
	}
	httpx.WriteError(ctx, w, httpx.NewError(code, err.Error(), status))
}

// writeServiceError maps service and commerce failures onto the API error codes.
// invalidCode names the 400 code used for input errors on the calling route.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error, invalidCode string) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCheckoutNoShipping), errors.Is(err, services.ErrShippingNoZone):
		httpx.WriteError(ctx, w, httpx.NewError("no_shipping_available", "no shipping rate is available for this destination", http.StatusConflict))
		return
	case errors.Is(err, services.ErrCheckoutRateRequired):
		httpx.WriteError(ctx, w, httpx.NewError("shipping_rate_required", "select a shipping rate first", http.StatusBadRequest))
		return
	case errors.Is(err, services.ErrCheckoutRateUnavailable), errors.Is(err, services.ErrShippingRateNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("shipping_rate_unavailable", "the selected shipping rate does not apply to this order", http.StatusUnprocessableEntity))
		return
	case errors.Is(err, services.ErrShippingAddressMissing):
		httpx.WriteError(ctx, w, httpx.NewError("shipping_address_missing", "the draft order has no shipping address", http.StatusBadRequest))
		return
	case errors.Is(err, services.ErrCheckoutInvalidInput),
		errors.Is(err, services.ErrShippingInvalidInput),
		errors.Is(err, services.ErrPricingInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError(invalidCode, err.Error(), http.StatusBadRequest))
		return
	case errors.Is(err, services.ErrCheckoutUnavailable), errors.Is(err, services.ErrShippingUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("draft_orders_unavailable", "draft orders are not available on this kiosk", http.StatusServiceUnavailable))
		return
	case errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(ctx, w, httpx.NewError("commerce_timeout", "the store did not answer in time", http.StatusGatewayTimeout))
		return
	}

	var upstream upstreamError
	if errors.As(err, &upstream) {
		status := upstream.UpstreamStatus()
		switch {
		case status == http.StatusNotFound:
			httpx.WriteError(ctx, w, httpx.NewError("not_found", "the store has no such record", http.StatusNotFound))
		case status == http.StatusUnprocessableEntity:
			httpx.WriteError(ctx, w, httpx.NewError("commerce_error", err.Error(), http.StatusUnprocessableEntity).
				WithDetails(map[string]any{"upstream_status": status}))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("commerce_error", "the store rejected the request", http.StatusBadGateway).
				WithDetails(map[string]any{"upstream_status": status}))
		}
		return
	}

	httpx.WriteError(ctx, w, httpx.NewError("commerce_error", "unable to reach the store", http.StatusBadGateway))
}
