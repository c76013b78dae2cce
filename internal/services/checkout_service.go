package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrCheckoutInvalidInput signals missing cart, customer or address data.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutNoShipping is returned when no rate can ship the cart to the destination.
	ErrCheckoutNoShipping = errors.New("checkout: no shipping available for destination")
	// ErrCheckoutRateRequired is returned when a draft order is requested without a shipping rate.
	ErrCheckoutRateRequired = errors.New("checkout: shipping rate required")
	// ErrCheckoutRateUnavailable is returned when the selected rate does not apply to the order.
	ErrCheckoutRateUnavailable = errors.New("checkout: shipping rate unavailable")
	// ErrCheckoutUnavailable is returned when the draft order gateway is not configured.
	ErrCheckoutUnavailable = errors.New("checkout: draft orders unavailable")
)

const checkoutMeterName = "github.com/borne-automatique/api/internal/services/checkout"

// CheckoutServiceDeps bundles collaborators required by the checkout service.
type CheckoutServiceDeps struct {
	Shipping    ShippingService
	DraftOrders DraftOrderGateway
	Builder     *DraftOrderBuilder
	IDGenerator func() string
	Meter       metric.Meter
	Logger      func(context.Context, string, map[string]any)
}

type checkoutService struct {
	shipping ShippingService
	drafts   DraftOrderGateway
	builder  *DraftOrderBuilder
	newID    func() string
	created  metric.Int64Counter
	logger   func(context.Context, string, map[string]any)
}

// PriceCartCommand prices a cart, optionally with a shipping rate resolved for the address.
type PriceCartCommand struct {
	Cart    Cart
	Address *Address
	RateID  string
}

// PriceCartResult carries the computed totals and, when an address was given, the shipping quote.
type PriceCartResult struct {
	Order PricedOrder
	Quote *ShippingQuote
	Rate  *WeightRate
}

// CreateDraftOrderCommand creates a draft order for a kiosk cart.
type CreateDraftOrderCommand struct {
	Cart            Cart
	Customer        CustomerInfo
	ShippingAddress Address
	RateID          string
}

// DraftOrderResult is the stored draft order together with the kiosk-side pricing.
type DraftOrderResult struct {
	DraftOrder DraftOrder
	Pricing    PricedOrder
	Rate       WeightRate
	Reference  string
}

// SelectShippingMethodCommand attaches a shipping rate to an existing draft order.
type SelectShippingMethodCommand struct {
	DraftOrderID string
	RateID       string
}

var _ CheckoutService = (*checkoutService)(nil)

// NewCheckoutService wires the checkout service.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Shipping == nil {
		return nil, errors.New("checkout service: shipping service is required")
	}
	builder := deps.Builder
	if builder == nil {
		builder = NewDraftOrderBuilder(DraftOrderBuilderDeps{Logger: deps.Logger})
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	meter := deps.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(checkoutMeterName)
	}
	created, err := meter.Int64Counter(
		"checkout.draft_orders.created",
		metric.WithDescription("Count of draft orders created by the kiosk"),
	)
	if err != nil {
		return nil, fmt.Errorf("checkout service: register metric: %w", err)
	}

	return &checkoutService{
		shipping: deps.Shipping,
		drafts:   deps.DraftOrders,
		builder:  builder,
		newID:    newID,
		created:  created,
		logger:   logger,
	}, nil
}

func (s *checkoutService) PriceCart(ctx context.Context, cmd PriceCartCommand) (PriceCartResult, error) {
	if cmd.Cart.IsEmpty() {
		return PriceCartResult{}, fmt.Errorf("%w: cart is empty", ErrCheckoutInvalidInput)
	}
	rateID := strings.TrimSpace(cmd.RateID)
	if rateID != "" && cmd.Address == nil {
		return PriceCartResult{}, fmt.Errorf("%w: address is required with a shipping rate", ErrCheckoutInvalidInput)
	}

	var result PriceCartResult
	if cmd.Address != nil {
		if rateID == "" {
			quote, err := s.shipping.QuoteCart(ctx, QuoteCartShippingCommand{Cart: cmd.Cart, Address: *cmd.Address})
			if err != nil {
				return PriceCartResult{}, mapShippingError(err)
			}
			result.Quote = &quote
		} else {
			quote, rate, err := s.shipping.ResolveRate(ctx, ResolveRateCommand{Cart: cmd.Cart, Address: *cmd.Address, RateID: rateID})
			if err != nil {
				return PriceCartResult{}, mapShippingError(err)
			}
			result.Quote = &quote
			result.Rate = &rate
		}
	}

	order, err := PriceOrder(cmd.Cart, result.Rate)
	if err != nil {
		return PriceCartResult{}, err
	}
	result.Order = order
	return result, nil
}

func (s *checkoutService) CreateDraftOrder(ctx context.Context, cmd CreateDraftOrderCommand) (DraftOrderResult, error) {
	if s.drafts == nil {
		return DraftOrderResult{}, ErrCheckoutUnavailable
	}
	if cmd.Cart.IsEmpty() {
		return DraftOrderResult{}, fmt.Errorf("%w: cart is empty", ErrCheckoutInvalidInput)
	}
	if missing := missingCheckoutFields(cmd.Customer, cmd.ShippingAddress); len(missing) > 0 {
		return DraftOrderResult{}, fmt.Errorf("%w: missing or invalid %s", ErrCheckoutInvalidInput, strings.Join(missing, ", "))
	}

	quote, err := s.shipping.QuoteCart(ctx, QuoteCartShippingCommand{Cart: cmd.Cart, Address: cmd.ShippingAddress})
	if err != nil {
		return DraftOrderResult{}, mapShippingError(err)
	}
	if quote.Zone == nil || len(quote.Rates) == 0 {
		return DraftOrderResult{}, ErrCheckoutNoShipping
	}
	rateID := strings.TrimSpace(cmd.RateID)
	if rateID == "" {
		return DraftOrderResult{}, ErrCheckoutRateRequired
	}
	rate, ok := findRate(quote.Rates, rateID)
	if !ok {
		return DraftOrderResult{}, fmt.Errorf("%w: %s", ErrCheckoutRateUnavailable, rateID)
	}

	priced, err := PriceOrder(cmd.Cart, &rate)
	if err != nil {
		return DraftOrderResult{}, err
	}

	reference := s.newID()
	payload := s.builder.Build(ctx, BuildDraftOrderCommand{
		Cart:            cmd.Cart,
		Customer:        cmd.Customer,
		ShippingAddress: cmd.ShippingAddress,
		Rate:            &rate,
		Discount:        Discount{Percentage: priced.DiscountPercentage, Amount: priced.DiscountAmount},
		Reference:       reference,
	})

	order, err := s.drafts.CreateDraftOrder(ctx, payload)
	if err != nil {
		s.logger(ctx, "draft_order_create_failed", map[string]any{
			"reference": reference,
			"error":     err.Error(),
		})
		return DraftOrderResult{}, fmt.Errorf("checkout: create draft order: %w", err)
	}

	s.created.Add(ctx, 1, metric.WithAttributes(
		attribute.String("zone", quote.Zone.ID),
		attribute.Int("discount_pct", priced.DiscountPercentage),
	))
	s.logger(ctx, "draft_order_created", map[string]any{
		"draftOrderId": order.ID,
		"reference":    reference,
		"itemCount":    priced.ItemCount,
		"total":        priced.Total.StringFixed(2),
		"rateId":       rate.ID,
	})

	return DraftOrderResult{
		DraftOrder: order,
		Pricing:    priced,
		Rate:       rate,
		Reference:  reference,
	}, nil
}

func (s *checkoutService) SelectShippingMethod(ctx context.Context, cmd SelectShippingMethodCommand) (DraftOrder, error) {
	if s.drafts == nil {
		return DraftOrder{}, ErrCheckoutUnavailable
	}
	draftOrderID := strings.TrimSpace(cmd.DraftOrderID)
	rateID := strings.TrimSpace(cmd.RateID)
	if draftOrderID == "" {
		return DraftOrder{}, fmt.Errorf("%w: draft order id is required", ErrCheckoutInvalidInput)
	}
	if rateID == "" {
		return DraftOrder{}, ErrCheckoutRateRequired
	}

	quote, err := s.shipping.QuoteDraftOrder(ctx, draftOrderID)
	if err != nil {
		return DraftOrder{}, mapShippingError(err)
	}
	rate, ok := findRate(quote.Quote.Rates, rateID)
	if !ok {
		return DraftOrder{}, fmt.Errorf("%w: %s", ErrCheckoutRateUnavailable, rateID)
	}

	order, err := s.drafts.UpdateDraftOrderShippingLine(ctx, draftOrderID, ShippingLine{
		Title:  rate.Name,
		Price:  rate.Price.StringFixed(2),
		Code:   rate.ServiceCode(),
		Custom: true,
	})
	if err != nil {
		return DraftOrder{}, fmt.Errorf("checkout: update shipping line: %w", err)
	}
	s.logger(ctx, "draft_order_shipping_selected", map[string]any{
		"draftOrderId": draftOrderID,
		"rateId":       rate.ID,
	})
	return order, nil
}

func (s *checkoutService) CancelDraftOrder(ctx context.Context, draftOrderID string) error {
	if s.drafts == nil {
		return ErrCheckoutUnavailable
	}
	draftOrderID = strings.TrimSpace(draftOrderID)
	if draftOrderID == "" {
		return fmt.Errorf("%w: draft order id is required", ErrCheckoutInvalidInput)
	}
	if err := s.drafts.DeleteDraftOrder(ctx, draftOrderID); err != nil {
		return fmt.Errorf("checkout: delete draft order: %w", err)
	}
	s.logger(ctx, "draft_order_cancelled", map[string]any{"draftOrderId": draftOrderID})
	return nil
}

// mapShippingError translates shipping lookups into checkout errors while keeping the cause.
func mapShippingError(err error) error {
	switch {
	case errors.Is(err, ErrShippingNoZone):
		return fmt.Errorf("%w: %w", ErrCheckoutNoShipping, err)
	case errors.Is(err, ErrShippingRateNotFound):
		return fmt.Errorf("%w: %w", ErrCheckoutRateUnavailable, err)
	case errors.Is(err, ErrShippingInvalidInput):
		return fmt.Errorf("%w: %w", ErrCheckoutInvalidInput, err)
	default:
		return err
	}
}

func missingCheckoutFields(customer CustomerInfo, addr Address) []string {
	var missing []string
	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	check("firstName", customer.FirstName)
	check("lastName", customer.LastName)
	if _, err := mail.ParseAddress(strings.TrimSpace(customer.Email)); err != nil {
		missing = append(missing, "email")
	}
	check("phone", customer.Phone)
	check("address1", addr.Address1)
	check("city", addr.City)
	check("postalCode", addr.PostalCode)
	check("countryCode", addr.CountryCode)
	return missing
}
