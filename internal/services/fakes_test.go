package services

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func kg(v float64) *float64 {
	return &v
}

type fakeZoneSource struct {
	zones []ShippingZone
	err   error
	calls int
}

func (f *fakeZoneSource) ShippingZones(context.Context) ([]ShippingZone, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.zones, nil
}

type fakeDraftOrderGateway struct {
	mu          sync.Mutex
	created     []DraftOrderPayload
	createErr   error
	createOrder DraftOrder
	orders      map[string]DraftOrder
	getErr      error
	updated     map[string]ShippingLine
	updateErr   error
	deleted     []string
	deleteErr   error
}

func (f *fakeDraftOrderGateway) CreateDraftOrder(_ context.Context, payload DraftOrderPayload) (DraftOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return DraftOrder{}, f.createErr
	}
	f.created = append(f.created, payload)
	return f.createOrder, nil
}

func (f *fakeDraftOrderGateway) DraftOrder(_ context.Context, id string) (DraftOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return DraftOrder{}, f.getErr
	}
	return f.orders[id], nil
}

func (f *fakeDraftOrderGateway) UpdateDraftOrderShippingLine(_ context.Context, id string, line ShippingLine) (DraftOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return DraftOrder{}, f.updateErr
	}
	if f.updated == nil {
		f.updated = make(map[string]ShippingLine)
	}
	f.updated[id] = line
	order := f.orders[id]
	order.ShippingLine = &AppliedShippingLine{Title: line.Title, Code: line.Code, Price: dec(line.Price)}
	return order, nil
}

func (f *fakeDraftOrderGateway) DeleteDraftOrder(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeProductSource struct {
	products []Product
	err      error
}

func (f *fakeProductSource) ActiveProducts(context.Context) ([]Product, error) {
	return f.products, f.err
}

type loggedEvent struct {
	name   string
	fields map[string]any
}

type eventRecorder struct {
	mu     sync.Mutex
	events []loggedEvent
}

func (r *eventRecorder) log(_ context.Context, name string, fields map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, loggedEvent{name: name, fields: fields})
}

func (r *eventRecorder) has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.name == name {
			return true
		}
	}
	return false
}

// franceZones mirrors a typical store setup: metropolitan France, then the rest of Europe.
func franceZones() []ShippingZone {
	return []ShippingZone{
		{
			ID:        "zone-fr",
			Name:      "France",
			Countries: []ShippingCountry{{Code: "FR"}},
			WeightRates: []WeightRate{
				{ID: "101", Name: "Mondial Relay", WeightLow: kg(0), WeightHigh: kg(2), Price: dec("4.00")},
				{ID: "102", Name: "Colissimo", WeightLow: kg(0), WeightHigh: kg(5), Price: dec("8.00")},
				{ID: "103", Name: "Colissimo lourd", WeightLow: kg(5), WeightHigh: kg(20), Price: dec("14.50")},
			},
		},
		{
			ID:        "zone-eu",
			Name:      "Europe",
			Countries: []ShippingCountry{{Code: "BE"}, {Code: "ES", ProvinceCodes: []string{"B", "M"}}},
			WeightRates: []WeightRate{
				{ID: "201", Name: "Colissimo Europe", WeightHigh: kg(10), Price: dec("12.00")},
			},
		},
	}
}
