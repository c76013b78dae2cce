package commerce

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domain "github.com/borne-automatique/api/internal/domain"
)

const productFields = "id,title,product_type,images,variants"

type productsDocument struct {
	Products []productDoc `json:"products"`
}

type productDoc struct {
	ID          flexString   `json:"id"`
	Title       string       `json:"title"`
	ProductType string       `json:"product_type"`
	Images      []imageDoc   `json:"images"`
	Variants    []variantDoc `json:"variants"`
}

type imageDoc struct {
	Src string `json:"src"`
}

type variantDoc struct {
	ID         flexString     `json:"id"`
	Title      string         `json:"title"`
	Price      flexString     `json:"price"`
	Weight     optionalNumber `json:"weight"`
	WeightUnit string         `json:"weight_unit"`
	Grams      optionalNumber `json:"grams"`
}

// ActiveProducts lists the active products with their variants.
func (c *Client) ActiveProducts(ctx context.Context) ([]domain.Product, error) {
	query := url.Values{
		"status": {"active"},
		"fields": {productFields},
		"limit":  {"250"},
	}
	var doc productsDocument
	if err := c.do(ctx, "products.list", http.MethodGet, "products.json", query, nil, &doc); err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(doc.Products))
	for _, p := range doc.Products {
		product := domain.Product{
			ID:          string(p.ID),
			Title:       strings.TrimSpace(p.Title),
			ProductType: strings.TrimSpace(p.ProductType),
		}
		if len(p.Images) > 0 {
			product.ImageURL = p.Images[0].Src
		}
		for _, v := range p.Variants {
			variant, err := toDomainVariant(v)
			if err != nil {
				c.logger.Warn("product variant skipped", zap.String("productId", product.ID), zap.Error(err))
				continue
			}
			product.Variants = append(product.Variants, variant)
		}
		products = append(products, product)
	}
	return products, nil
}

// toDomainVariant keeps gram and kilogram weights as published and falls back to the
// gram weight for imperial units.
func toDomainVariant(doc variantDoc) (domain.ProductVariant, error) {
	id := strings.TrimSpace(string(doc.ID))
	if id == "" {
		return domain.ProductVariant{}, fmt.Errorf("commerce: variant %q has no id", doc.Title)
	}
	price, err := parseAmount(string(doc.Price))
	if err != nil {
		return domain.ProductVariant{}, fmt.Errorf("commerce: variant %s price: %w", id, err)
	}
	variant := domain.ProductVariant{
		ID:    id,
		Title: strings.TrimSpace(doc.Title),
		Price: price,
	}
	switch unit := domain.WeightUnit(strings.ToLower(strings.TrimSpace(doc.WeightUnit))); unit {
	case domain.WeightUnitGrams, domain.WeightUnitKilograms:
		variant.Weight = doc.Weight.value
		variant.WeightUnit = unit
	default:
		variant.Weight = doc.Grams.value
		variant.WeightUnit = domain.WeightUnitGrams
	}
	return variant, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
