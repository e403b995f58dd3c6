package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/kynaruniverse/storefront/internal/checkout"
	"github.com/kynaruniverse/storefront/internal/selection"
)

// CheckoutInitiator opens a checkout session from the current selection.
type CheckoutInitiator interface {
	Initiate(ctx context.Context, req *checkout.Request) (*checkout.Result, error)
}

type CheckoutHandler struct {
	checkouts CheckoutInitiator
	manager   *selection.Manager
	timeout   time.Duration
}

func NewCheckoutHandler(checkouts CheckoutInitiator, manager *selection.Manager, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkouts: checkouts,
		manager:   manager,
		timeout:   timeout,
	}
}

type InitiateCheckoutRequestDTO struct {
	Email string `json:"email"`
}

// InitiateCheckout freezes the session's selection and returns the provider
// hand-off links. The selection itself is left untouched; it is cleared by
// the fulfillment worker once the provider reports the sale.
func (h *CheckoutHandler) InitiateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		respondError(w, http.StatusBadRequest, "missing_idempotency_key", "Idempotency-Key header is required")
		return
	}

	var req InitiateCheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	store := h.manager.Get(ctx, getSessionID(r.Context()))
	userID := getUserID(r.Context())
	if userID == "" {
		userID = store.UserID()
	}

	result, err := h.checkouts.Initiate(ctx, &checkout.Request{
		UserID:         userID,
		Email:          req.Email,
		IdempotencyKey: idempotencyKey,
		Items:          store.Items(),
	})
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrEmptyCart):
			respondError(w, http.StatusBadRequest, "empty_selection", "nothing selected to check out")
		case errors.Is(err, checkout.ErrIdempotencyKeyMissing):
			respondError(w, http.StatusBadRequest, "missing_idempotency_key", "Idempotency-Key header is required")
		default:
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to initiate checkout")
		}
		return
	}

	respondJSON(w, http.StatusCreated, result)
}
