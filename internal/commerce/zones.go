package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	domain "github.com/borne-automatique/api/internal/domain"
)

// ErrInvalidZone reports a zone or rate document that cannot be turned into a domain value.
var ErrInvalidZone = errors.New("commerce: invalid shipping zone")

type zonesDocument struct {
	ShippingZones []zoneDocument `json:"shipping_zones" yaml:"shipping_zones"`
}

type zoneDocument struct {
	ID                       flexString      `json:"id" yaml:"id"`
	Name                     string          `json:"name" yaml:"name"`
	Countries                []countryDoc    `json:"countries" yaml:"countries"`
	WeightBasedShippingRates []weightRateDoc `json:"weight_based_shipping_rates" yaml:"weight_based_shipping_rates"`
}

type countryDoc struct {
	Code      string        `json:"code" yaml:"code"`
	Provinces []provinceDoc `json:"provinces" yaml:"provinces"`
}

type provinceDoc struct {
	Code string `json:"code" yaml:"code"`
}

type weightRateDoc struct {
	ID         flexString     `json:"id" yaml:"id"`
	Name       string         `json:"name" yaml:"name"`
	Price      flexString     `json:"price" yaml:"price"`
	WeightLow  optionalNumber `json:"weight_low" yaml:"weight_low"`
	WeightHigh optionalNumber `json:"weight_high" yaml:"weight_high"`
}

// ShippingZones lists the store's shipping zones in the order the backend returns them.
// Rates that fail validation are dropped and logged.
func (c *Client) ShippingZones(ctx context.Context) ([]domain.ShippingZone, error) {
	var doc zonesDocument
	if err := c.do(ctx, "shipping_zones.list", http.MethodGet, "shipping_zones.json", nil, nil, &doc); err != nil {
		return nil, err
	}
	zones, problems := toDomainZones(doc.ShippingZones)
	for _, problem := range problems {
		c.logger.Warn("shipping zone entry skipped", zap.Error(problem))
	}
	return zones, nil
}

// toDomainZones validates zone documents. Invalid zones or rates are left out and reported.
func toDomainZones(docs []zoneDocument) ([]domain.ShippingZone, []error) {
	zones := make([]domain.ShippingZone, 0, len(docs))
	var problems []error
	for i, doc := range docs {
		id := strings.TrimSpace(string(doc.ID))
		if id == "" {
			problems = append(problems, fmt.Errorf("%w: zone #%d has no id", ErrInvalidZone, i))
			continue
		}
		zone := domain.ShippingZone{
			ID:          id,
			Name:        strings.TrimSpace(doc.Name),
			Countries:   make([]domain.ShippingCountry, 0, len(doc.Countries)),
			WeightRates: make([]domain.WeightRate, 0, len(doc.WeightBasedShippingRates)),
		}
		for _, country := range doc.Countries {
			code := normalizeCode(country.Code)
			if code == "" {
				problems = append(problems, fmt.Errorf("%w: zone %s lists a country without code", ErrInvalidZone, id))
				continue
			}
			entry := domain.ShippingCountry{Code: code}
			for _, province := range country.Provinces {
				if pc := normalizeCode(province.Code); pc != "" {
					entry.ProvinceCodes = append(entry.ProvinceCodes, pc)
				}
			}
			zone.Countries = append(zone.Countries, entry)
		}
		for _, rateDoc := range doc.WeightBasedShippingRates {
			rate, err := toDomainRate(rateDoc)
			if err != nil {
				problems = append(problems, fmt.Errorf("zone %s: %w", id, err))
				continue
			}
			zone.WeightRates = append(zone.WeightRates, rate)
		}
		zones = append(zones, zone)
	}
	return zones, problems
}

func toDomainRate(doc weightRateDoc) (domain.WeightRate, error) {
	id := strings.TrimSpace(string(doc.ID))
	if id == "" {
		return domain.WeightRate{}, fmt.Errorf("%w: rate %q has no id", ErrInvalidZone, doc.Name)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(string(doc.Price)))
	if err != nil {
		return domain.WeightRate{}, fmt.Errorf("%w: rate %s price %q: %v", ErrInvalidZone, id, doc.Price, err)
	}
	if price.IsNegative() {
		return domain.WeightRate{}, fmt.Errorf("%w: rate %s has a negative price", ErrInvalidZone, id)
	}
	rate := domain.WeightRate{
		ID:         id,
		Name:       strings.TrimSpace(doc.Name),
		WeightLow:  doc.WeightLow.ptr(),
		WeightHigh: doc.WeightHigh.ptr(),
		Price:      price,
	}
	if rate.WeightLow != nil && rate.WeightHigh != nil && *rate.WeightLow > *rate.WeightHigh {
		return domain.WeightRate{}, fmt.Errorf("%w: rate %s bracket %.3f-%.3f is inverted", ErrInvalidZone, id, *rate.WeightLow, *rate.WeightHigh)
	}
	return rate, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// flexString accepts JSON strings and numbers, the backend uses both for ids and prices.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = flexString(n.String())
	return nil
}

func (s *flexString) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar", node.Line)
	}
	if node.Tag == "!!null" {
		*s = ""
		return nil
	}
	*s = flexString(node.Value)
	return nil
}

// optionalNumber is a weight bound that may be absent, null, numeric or a numeric string.
type optionalNumber struct {
	set   bool
	value float64
}

func (n optionalNumber) ptr() *float64 {
	if !n.set {
		return nil
	}
	v := n.value
	return &v
}

func (n *optionalNumber) parse(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*n = optionalNumber{}
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("invalid weight %q", raw)
	}
	*n = optionalNumber{set: true, value: v}
	return nil
}

func (n *optionalNumber) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	return n.parse(string(s))
}

func (n *optionalNumber) UnmarshalYAML(node *yaml.Node) error {
	var s flexString
	if err := s.UnmarshalYAML(node); err != nil {
		return err
	}
	return n.parse(string(s))
}
