package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/borne-automatique/api/internal/platform/httpx"
	"github.com/borne-automatique/api/internal/services"
)

// CatalogHandlers serves the product tunnel (type, then product, then variant).
type CatalogHandlers struct {
	catalog services.CatalogService
}

// NewCatalogHandlers constructs the /catalog handlers.
func NewCatalogHandlers(catalog services.CatalogService) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog}
}

// Routes wires the /catalog endpoints onto the provided router.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.listProducts)
}

type catalogResponse struct {
	ProductTypes []productTypeResponse `json:"product_types"`
}

type productTypeResponse struct {
	ProductType string            `json:"product_type"`
	Products    []productResponse `json:"products"`
}

type productResponse struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	ImageURL string            `json:"image_url,omitempty"`
	Variants []variantResponse `json:"variants"`
}

type variantResponse struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Price      string  `json:"price"`
	Weight     float64 `json:"weight"`
	WeightUnit string  `json:"weight_unit"`
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}
	groups, err := h.catalog.ProductsByType(ctx)
	if err != nil {
		writeServiceError(ctx, w, err, "invalid_request")
		return
	}

	resp := catalogResponse{ProductTypes: make([]productTypeResponse, 0, len(groups))}
	for _, group := range groups {
		products := make([]productResponse, 0, len(group.Products))
		for _, product := range group.Products {
			variants := make([]variantResponse, 0, len(product.Variants))
			for _, variant := range product.Variants {
				variants = append(variants, variantResponse{
					ID:         variant.ID,
					Title:      variant.Title,
					Price:      fixed(variant.Price),
					Weight:     variant.Weight,
					WeightUnit: string(variant.WeightUnit),
				})
			}
			products = append(products, productResponse{
				ID:       product.ID,
				Title:    product.Title,
				ImageURL: product.ImageURL,
				Variants: variants,
			})
		}
		resp.ProductTypes = append(resp.ProductTypes, productTypeResponse{ProductType: group.ProductType, Products: products})
	}
	w.Header().Set("Cache-Control", "private, max-age=60")
	writeJSONResponse(w, http.StatusOK, resp)
}
