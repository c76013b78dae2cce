package commerce

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	domain "github.com/borne-automatique/api/internal/domain"
)

// StaticZones serves shipping zones from a YAML file instead of the backend.
type StaticZones struct {
	zones []domain.ShippingZone
}

// LoadStaticZones reads and validates a zone catalog file. Unlike backend documents,
// any invalid entry rejects the whole file.
func LoadStaticZones(path string) (*StaticZones, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("commerce: read zone file: %w", err)
	}
	return ParseStaticZones(raw)
}

// ParseStaticZones validates a YAML zone catalog.
func ParseStaticZones(raw []byte) (*StaticZones, error) {
	var doc zonesDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidZone, err)
	}
	zones, problems := toDomainZones(doc.ShippingZones)
	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}
	if len(zones) == 0 {
		return nil, fmt.Errorf("%w: zone file defines no zones", ErrInvalidZone)
	}
	return &StaticZones{zones: zones}, nil
}

// ShippingZones returns the zones in file order.
func (s *StaticZones) ShippingZones(context.Context) ([]domain.ShippingZone, error) {
	out := make([]domain.ShippingZone, len(s.zones))
	copy(out, s.zones)
	return out, nil
}
