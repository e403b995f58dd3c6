package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kynaruniverse/storefront/internal/catalog"
	"github.com/kynaruniverse/storefront/internal/pricing"
)

// CatalogReader is the published side of the catalog service.
type CatalogReader interface {
	ListPublished(ctx context.Context) ([]*catalog.Product, error)
	GetBySlug(ctx context.Context, slug string) (*catalog.Product, error)
}

type CatalogHandler struct {
	catalog  CatalogReader
	resolver *pricing.Resolver
	timeout  time.Duration
}

func NewCatalogHandler(reader CatalogReader, resolver *pricing.Resolver, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{
		catalog:  reader,
		resolver: resolver,
		timeout:  timeout,
	}
}

type ProductDTO struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Slug             string   `json:"slug"`
	World            string   `json:"world"`
	Category         string   `json:"category"`
	PriceID          string   `json:"price_id"`
	Price            float64  `json:"price"`
	PriceDisplay     string   `json:"price_display"`
	ActionLabel      string   `json:"action_label"`
	ShortDescription string   `json:"short_description"`
	Description      string   `json:"description,omitempty"`
	PreviewImage     string   `json:"preview_image,omitempty"`
	Tags             []string `json:"tags"`
	FileTypes        []string `json:"file_types"`
	Published        bool     `json:"published"`
}

func (h *CatalogHandler) toDTO(p *catalog.Product) ProductDTO {
	price := h.resolver.Resolve(p.PriceID)
	return ProductDTO{
		ID:               p.ID,
		Title:            p.Title,
		Slug:             p.Slug,
		World:            p.World,
		Category:         p.Category,
		PriceID:          p.PriceID,
		Price:            price,
		PriceDisplay:     pricing.FormatGBP(price),
		ActionLabel:      pricing.ActionLabel(price),
		ShortDescription: p.ShortDescription,
		Description:      p.Description,
		PreviewImage:     p.PreviewImage,
		Tags:             p.Tags,
		FileTypes:        p.FileTypes,
		Published:        p.Published,
	}
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.ListPublished(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load products")
		return
	}

	world := r.URL.Query().Get("world")
	dtos := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		if world != "" && p.World != world {
			continue
		}
		dtos = append(dtos, h.toDTO(p))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"products": dtos})
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	slug := chi.URLParam(r, "slug")
	product, err := h.catalog.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load product")
		return
	}
	if !product.Published {
		respondError(w, http.StatusNotFound, "not_found", "product not found")
		return
	}

	respondJSON(w, http.StatusOK, h.toDTO(product))
}
