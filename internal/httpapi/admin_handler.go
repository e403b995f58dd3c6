package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kynaruniverse/storefront/internal/catalog"
)

// CatalogAdmin is the management side of the catalog service.
type CatalogAdmin interface {
	ListAll(ctx context.Context) ([]*catalog.Product, error)
	GetByID(ctx context.Context, id string) (*catalog.Product, error)
	Create(ctx context.Context, p *catalog.Product) error
	Update(ctx context.Context, p *catalog.Product) error
	Delete(ctx context.Context, id string) error
	SetPublished(ctx context.Context, id string, published bool) error
}

type AdminHandler struct {
	catalog CatalogAdmin
	timeout time.Duration
}

func NewAdminHandler(admin CatalogAdmin, timeout time.Duration) *AdminHandler {
	return &AdminHandler{
		catalog: admin,
		timeout: timeout,
	}
}

type ProductRequestDTO struct {
	Title            string   `json:"title"`
	Slug             string   `json:"slug"`
	World            string   `json:"world"`
	Category         string   `json:"category"`
	PriceID          string   `json:"price_id"`
	ShortDescription string   `json:"short_description"`
	Description      string   `json:"description"`
	ContentURL       string   `json:"content_url"`
	PreviewImage     string   `json:"preview_image"`
	Tags             []string `json:"tags"`
	FileTypes        []string `json:"file_types"`
	Published        bool     `json:"published"`
}

type SetPublishedRequestDTO struct {
	Published bool `json:"published"`
}

func (dto *ProductRequestDTO) toProduct(id string) *catalog.Product {
	return &catalog.Product{
		ID:               id,
		Title:            dto.Title,
		Slug:             dto.Slug,
		World:            dto.World,
		Category:         dto.Category,
		PriceID:          dto.PriceID,
		ShortDescription: dto.ShortDescription,
		Description:      dto.Description,
		ContentURL:       dto.ContentURL,
		PreviewImage:     dto.PreviewImage,
		Tags:             dto.Tags,
		FileTypes:        dto.FileTypes,
		Published:        dto.Published,
	}
}

func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.ListAll(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load products")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"products": products})
}

func (h *AdminHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.catalog.GetByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load product")
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var dto ProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	product := dto.toProduct("")
	if err := product.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	if err := h.catalog.Create(ctx, product); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create product")
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var dto ProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	product := dto.toProduct(chi.URLParam(r, "id"))
	if err := product.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	if err := h.catalog.Update(ctx, product); err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update product")
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.catalog.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) SetPublished(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SetPublishedRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.catalog.SetPublished(ctx, id, req.Published); err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update product")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"id": id, "published": req.Published})
}
