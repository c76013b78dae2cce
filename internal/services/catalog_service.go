package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type catalogService struct {
	products ProductSource
	logger   func(context.Context, string, map[string]any)
}

// CatalogServiceDeps bundles collaborators required by the catalog service.
type CatalogServiceDeps struct {
	Products ProductSource
	Logger   func(context.Context, string, map[string]any)
}

var _ CatalogService = (*catalogService)(nil)

// NewCatalogService constructs the catalog service.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog service: product source is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &catalogService{products: deps.Products, logger: logger}, nil
}

// ProductsByType groups sellable products by product type, keeping the order in which
// types and products first appear. Products without variants are skipped.
func (s *catalogService) ProductsByType(ctx context.Context) ([]ProductTypeGroup, error) {
	products, err := s.products.ActiveProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list products: %w", err)
	}

	groups := make([]ProductTypeGroup, 0)
	index := make(map[string]int)
	skipped := 0
	for _, product := range products {
		if len(product.Variants) == 0 {
			skipped++
			continue
		}
		productType := strings.TrimSpace(product.ProductType)
		idx, ok := index[productType]
		if !ok {
			idx = len(groups)
			index[productType] = idx
			groups = append(groups, ProductTypeGroup{ProductType: productType})
		}
		groups[idx].Products = append(groups[idx].Products, product)
	}

	if skipped > 0 {
		s.logger(ctx, "catalog_products_skipped", map[string]any{"count": skipped})
	}
	return groups, nil
}
