package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var (
	// ErrShippingInvalidInput signals a missing destination or draft order id.
	ErrShippingInvalidInput = errors.New("shipping: invalid input")
	// ErrShippingNoZone is returned when a rate is requested for a destination no zone covers.
	ErrShippingNoZone = errors.New("shipping: destination not covered by any zone")
	// ErrShippingRateNotFound is returned when the requested rate does not apply to the cart weight.
	ErrShippingRateNotFound = errors.New("shipping: rate not applicable")
	// ErrShippingAddressMissing is returned when a draft order has no usable shipping address.
	ErrShippingAddressMissing = errors.New("shipping: draft order has no shipping address")
	// ErrShippingUnavailable is returned when the draft order gateway is not configured.
	ErrShippingUnavailable = errors.New("shipping: draft orders unavailable")
)

const defaultZoneCacheTTL = 5 * time.Minute

type shippingService struct {
	zones  ShippingZoneSource
	drafts DraftOrderGateway
	cache  *zoneCache
	logger func(context.Context, string, map[string]any)
}

// ShippingServiceDeps bundles the collaborators of the shipping service.
type ShippingServiceDeps struct {
	Zones       ShippingZoneSource
	DraftOrders DraftOrderGateway
	CacheTTL    time.Duration
	Now         func() time.Time
	Logger      func(context.Context, string, map[string]any)
}

// QuoteCartShippingCommand asks for the shipping options of a cart.
type QuoteCartShippingCommand struct {
	Cart    Cart
	Address Address
}

// ResolveRateCommand asks for one specific rate for a cart and destination.
type ResolveRateCommand struct {
	Cart    Cart
	Address Address
	RateID  string
}

// DraftOrderShippingQuote lists the rates applicable to a stored draft order.
type DraftOrderShippingQuote struct {
	DraftOrderID   string
	Address        Address
	Quote          ShippingQuote
	SelectedRateID string
}

var _ ShippingService = (*shippingService)(nil)

// NewShippingService constructs the shipping service. Zones are cached for CacheTTL.
func NewShippingService(deps ShippingServiceDeps) (ShippingService, error) {
	if deps.Zones == nil {
		return nil, errors.New("shipping service: zone source is required")
	}
	ttl := deps.CacheTTL
	if ttl <= 0 {
		ttl = defaultZoneCacheTTL
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &shippingService{
		zones:  deps.Zones,
		drafts: deps.DraftOrders,
		cache:  newZoneCache(ttl, func() time.Time { return now().UTC() }),
		logger: logger,
	}, nil
}

func (s *shippingService) Zones(ctx context.Context) ([]ShippingZone, error) {
	if zones, ok := s.cache.Get(); ok {
		return zones, nil
	}
	zones, err := s.zones.ShippingZones(ctx)
	if err != nil {
		return nil, fmt.Errorf("shipping: load zones: %w", err)
	}
	s.cache.Put(zones)
	s.logger(ctx, "shipping_zones_refreshed", map[string]any{"zoneCount": len(zones)})
	return cloneZones(zones), nil
}

func (s *shippingService) QuoteCart(ctx context.Context, cmd QuoteCartShippingCommand) (ShippingQuote, error) {
	if strings.TrimSpace(cmd.Address.CountryCode) == "" {
		return ShippingQuote{}, fmt.Errorf("%w: country code is required", ErrShippingInvalidInput)
	}
	zones, err := s.Zones(ctx)
	if err != nil {
		return ShippingQuote{}, err
	}
	quote := QuoteShipping(zones, cmd.Cart, cmd.Address)
	s.logQuote(ctx, cmd.Address, quote)
	return quote, nil
}

func (s *shippingService) ResolveRate(ctx context.Context, cmd ResolveRateCommand) (ShippingQuote, WeightRate, error) {
	rateID := strings.TrimSpace(cmd.RateID)
	if rateID == "" {
		return ShippingQuote{}, WeightRate{}, fmt.Errorf("%w: rate id is required", ErrShippingInvalidInput)
	}
	quote, err := s.QuoteCart(ctx, QuoteCartShippingCommand{Cart: cmd.Cart, Address: cmd.Address})
	if err != nil {
		return ShippingQuote{}, WeightRate{}, err
	}
	if quote.Zone == nil {
		return quote, WeightRate{}, ErrShippingNoZone
	}
	rate, ok := findRate(quote.Rates, rateID)
	if !ok {
		return quote, WeightRate{}, fmt.Errorf("%w: %s", ErrShippingRateNotFound, rateID)
	}
	return quote, rate, nil
}

func (s *shippingService) QuoteDraftOrder(ctx context.Context, draftOrderID string) (DraftOrderShippingQuote, error) {
	if s.drafts == nil {
		return DraftOrderShippingQuote{}, ErrShippingUnavailable
	}
	draftOrderID = strings.TrimSpace(draftOrderID)
	if draftOrderID == "" {
		return DraftOrderShippingQuote{}, fmt.Errorf("%w: draft order id is required", ErrShippingInvalidInput)
	}

	order, err := s.drafts.DraftOrder(ctx, draftOrderID)
	if err != nil {
		return DraftOrderShippingQuote{}, fmt.Errorf("shipping: load draft order %s: %w", draftOrderID, err)
	}
	if order.ShippingAddress == nil || strings.TrimSpace(order.ShippingAddress.CountryCode) == "" {
		return DraftOrderShippingQuote{}, ErrShippingAddressMissing
	}
	address := *order.ShippingAddress

	zones, err := s.Zones(ctx)
	if err != nil {
		return DraftOrderShippingQuote{}, err
	}

	quote := ShippingQuote{WeightKg: order.WeightKg(), Rates: []WeightRate{}}
	if zone, ok := FindZone(zones, address); ok {
		quote.Zone = &zone
		quote.Rates = ApplicableRates(zone, quote.WeightKg)
	}
	s.logQuote(ctx, address, quote)

	result := DraftOrderShippingQuote{
		DraftOrderID: order.ID,
		Address:      address,
		Quote:        quote,
	}
	if line := order.ShippingLine; line != nil {
		for _, rate := range quote.Rates {
			if line.Code == rate.ServiceCode() || (line.ID != "" && line.ID == rate.ID) {
				result.SelectedRateID = rate.ID
				break
			}
		}
	}
	return result, nil
}

func (s *shippingService) logQuote(ctx context.Context, address Address, quote ShippingQuote) {
	if quote.Zone == nil {
		s.logger(ctx, "shipping_zone_not_found", map[string]any{
			"countryCode":  address.CountryCode,
			"provinceCode": address.ProvinceCode,
			"weightKg":     quote.WeightKg,
		})
		return
	}
	s.logger(ctx, "shipping_quote_resolved", map[string]any{
		"zoneId":    quote.Zone.ID,
		"weightKg":  quote.WeightKg,
		"rateCount": len(quote.Rates),
	})
}

func findRate(rates []WeightRate, id string) (WeightRate, bool) {
	for _, rate := range rates {
		if rate.ID == id {
			return rate, true
		}
	}
	return WeightRate{}, false
}

// zoneCache holds the last zone list fetched from the source until it expires.
type zoneCache struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
	zones   []ShippingZone
	expires time.Time
	loaded  bool
}

func newZoneCache(ttl time.Duration, now func() time.Time) *zoneCache {
	return &zoneCache{ttl: ttl, now: now}
}

func (c *zoneCache) Get() ([]ShippingZone, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded || c.now().After(c.expires) {
		return nil, false
	}
	return cloneZones(c.zones), true
}

func (c *zoneCache) Put(zones []ShippingZone) {
	c.mu.Lock()
	c.zones = cloneZones(zones)
	c.expires = c.now().Add(c.ttl)
	c.loaded = true
	c.mu.Unlock()
}

func cloneZones(zones []ShippingZone) []ShippingZone {
	if zones == nil {
		return []ShippingZone{}
	}
	out := make([]ShippingZone, len(zones))
	for i, zone := range zones {
		out[i] = zone
		out[i].Countries = make([]ShippingCountry, len(zone.Countries))
		for j, country := range zone.Countries {
			out[i].Countries[j] = ShippingCountry{
				Code:          country.Code,
				ProvinceCodes: append([]string(nil), country.ProvinceCodes...),
			}
		}
		out[i].WeightRates = append([]WeightRate(nil), zone.WeightRates...)
	}
	return out
}
