package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kynaruniverse/storefront/internal/catalog"
	"github.com/kynaruniverse/storefront/internal/notify"
	"github.com/kynaruniverse/storefront/internal/pricing"
	"github.com/kynaruniverse/storefront/internal/selection"
)

// ProductGetter is the slice of the catalog the selection surface needs to
// turn a product ID into a line item.
type ProductGetter interface {
	GetByID(ctx context.Context, id string) (*catalog.Product, error)
}

type SelectionHandler struct {
	manager  *selection.Manager
	products ProductGetter
	resolver *pricing.Resolver
	timeout  time.Duration
}

func NewSelectionHandler(manager *selection.Manager, products ProductGetter, resolver *pricing.Resolver, timeout time.Duration) *SelectionHandler {
	return &SelectionHandler{
		manager:  manager,
		products: products,
		resolver: resolver,
		timeout:  timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type SignInRequestDTO struct {
	UserID string `json:"user_id"`
}

// SelectionStateDTO is the full view a selection surface renders from: the
// drawer, the counter badge and the checkout button all read off this one
// response.
type SelectionStateDTO struct {
	Hydrated     bool             `json:"hydrated"`
	Items        []selection.Item `json:"items"`
	Count        int              `json:"count"`
	Total        float64          `json:"total"`
	TotalDisplay string           `json:"total_display"`
	ActionLabel  string           `json:"action_label"`
	Toast        *notify.Toast    `json:"toast,omitempty"`
}

func (h *SelectionHandler) state(store *selection.Store, toaster *notify.Toaster) SelectionStateDTO {
	total := store.Total()
	return SelectionStateDTO{
		Hydrated:     store.Hydrated(),
		Items:        store.Items(),
		Count:        store.Count(),
		Total:        total,
		TotalDisplay: pricing.FormatGBP(total),
		ActionLabel:  pricing.ActionLabel(total),
		Toast:        toaster.Current(),
	}
}

func (h *SelectionHandler) session(r *http.Request) (*selection.Store, *notify.Toaster, context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	sessionID := getSessionID(r.Context())
	store := h.manager.Get(ctx, sessionID)
	toaster := h.manager.Toaster(ctx, sessionID)
	return store, toaster, ctx, cancel
}

func (h *SelectionHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	store, toaster, _, cancel := h.session(r)
	defer cancel()

	// A store that has not finished reading its snapshot is reported as
	// hydrating rather than empty, so surfaces never flash a zero badge
	if !store.Hydrated() {
		respondJSON(w, http.StatusAccepted, map[string]interface{}{"status": "hydrating"})
		return
	}

	respondJSON(w, http.StatusOK, h.state(store, toaster))
}

func (h *SelectionHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	store, toaster, ctx, cancel := h.session(r)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	// Zero means "not specified" and defaults to a quantity of one
	if req.Quantity < 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 0 and 99")
		return
	}

	product, err := h.products.GetByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load product")
		return
	}

	store.Add(ctx, selection.Item{
		ID:       product.ID,
		Title:    product.Title,
		World:    product.World,
		Image:    product.PreviewImage,
		PriceID:  product.PriceID,
		Price:    h.resolver.Resolve(product.PriceID),
		Quantity: req.Quantity,
	})

	respondJSON(w, http.StatusCreated, h.state(store, toaster))
}

func (h *SelectionHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	store, toaster, ctx, cancel := h.session(r)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	if !store.IsSelected(productID) {
		respondError(w, http.StatusNotFound, "not_found", "item is not in the selection")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 0 and 99")
		return
	}

	store.SetQuantity(ctx, productID, req.Quantity)
	respondJSON(w, http.StatusOK, h.state(store, toaster))
}

func (h *SelectionHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	store, toaster, ctx, cancel := h.session(r)
	defer cancel()

	store.Remove(ctx, chi.URLParam(r, "product_id"))
	respondJSON(w, http.StatusOK, h.state(store, toaster))
}

func (h *SelectionHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	store, toaster, ctx, cancel := h.session(r)
	defer cancel()

	store.Clear(ctx)
	respondJSON(w, http.StatusOK, h.state(store, toaster))
}

func (h *SelectionHandler) GetToast(w http.ResponseWriter, r *http.Request) {
	_, toaster, _, cancel := h.session(r)
	defer cancel()

	toast := toaster.Current()
	if toast == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"toast": nil})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"toast": toast})
}

func (h *SelectionHandler) DismissToast(w http.ResponseWriter, r *http.Request) {
	_, toaster, _, cancel := h.session(r)
	defer cancel()

	toaster.Dismiss()
	w.WriteHeader(http.StatusNoContent)
}

// SignIn binds the authenticated user to the session's selection. The remote
// copy replaces whatever the anonymous session held.
func (h *SelectionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	store, toaster, ctx, cancel := h.session(r)
	defer cancel()

	userID := getUserID(r.Context())
	if userID == "" {
		var req SignInRequestDTO
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			userID = req.UserID
		}
	}
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	store.Attach(ctx, userID)
	respondJSON(w, http.StatusOK, h.state(store, toaster))
}

// SignOut detaches the user and resets the local selection; the remote copy
// stays for the next sign-in.
func (h *SelectionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	store, toaster, ctx, cancel := h.session(r)
	defer cancel()

	store.Detach(ctx)
	respondJSON(w, http.StatusOK, h.state(store, toaster))
}
