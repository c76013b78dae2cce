package services

import (
	"context"

	domain "github.com/borne-automatique/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Cart                = domain.Cart
	CartItem            = domain.CartItem
	WeightUnit          = domain.WeightUnit
	Address             = domain.Address
	ShippingZone        = domain.ShippingZone
	ShippingCountry     = domain.ShippingCountry
	WeightRate          = domain.WeightRate
	ShippingQuote       = domain.ShippingQuote
	DiscountTier        = domain.DiscountTier
	Discount            = domain.Discount
	PricedOrder         = domain.PricedOrder
	CustomerInfo        = domain.CustomerInfo
	DraftOrderPayload   = domain.DraftOrderPayload
	DraftOrderLineItem  = domain.DraftOrderLineItem
	DraftOrderCustomer  = domain.DraftOrderCustomer
	DraftOrderAddress   = domain.DraftOrderAddress
	DraftOrderNoteAttr  = domain.DraftOrderNoteAttr
	ShippingLine        = domain.ShippingLine
	AppliedDiscount     = domain.AppliedDiscount
	AppliedShippingLine = domain.AppliedShippingLine
	DraftOrder          = domain.DraftOrder
	DraftOrderLine      = domain.DraftOrderLine
	Product             = domain.Product
	ProductVariant      = domain.ProductVariant
	ProductTypeGroup    = domain.ProductTypeGroup
	SystemHealthReport  = domain.SystemHealthReport
	SystemHealthCheck   = domain.SystemHealthCheck
)

const (
	WeightUnitGrams     = domain.WeightUnitGrams
	WeightUnitKilograms = domain.WeightUnitKilograms
)

// ShippingZoneSource supplies the shipping zones configured for the store, in precedence order.
type ShippingZoneSource interface {
	ShippingZones(ctx context.Context) ([]ShippingZone, error)
}

// DraftOrderGateway persists draft orders in the commerce backend.
type DraftOrderGateway interface {
	CreateDraftOrder(ctx context.Context, payload DraftOrderPayload) (DraftOrder, error)
	DraftOrder(ctx context.Context, id string) (DraftOrder, error)
	UpdateDraftOrderShippingLine(ctx context.Context, id string, line ShippingLine) (DraftOrder, error)
	DeleteDraftOrder(ctx context.Context, id string) error
}

// ProductSource lists the active products sold on the kiosk.
type ProductSource interface {
	ActiveProducts(ctx context.Context) ([]Product, error)
}

// ShippingService resolves shipping options for carts and stored draft orders.
type ShippingService interface {
	Zones(ctx context.Context) ([]ShippingZone, error)
	QuoteCart(ctx context.Context, cmd QuoteCartShippingCommand) (ShippingQuote, error)
	ResolveRate(ctx context.Context, cmd ResolveRateCommand) (ShippingQuote, WeightRate, error)
	QuoteDraftOrder(ctx context.Context, draftOrderID string) (DraftOrderShippingQuote, error)
}

// CheckoutService prices carts and manages the kiosk's draft orders.
type CheckoutService interface {
	PriceCart(ctx context.Context, cmd PriceCartCommand) (PriceCartResult, error)
	CreateDraftOrder(ctx context.Context, cmd CreateDraftOrderCommand) (DraftOrderResult, error)
	SelectShippingMethod(ctx context.Context, cmd SelectShippingMethodCommand) (DraftOrder, error)
	CancelDraftOrder(ctx context.Context, draftOrderID string) error
}

// CatalogService exposes the kiosk catalog grouped for the browsing tunnel.
type CatalogService interface {
	ProductsByType(ctx context.Context) ([]ProductTypeGroup, error)
}

// SystemService reports dependency health.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}
