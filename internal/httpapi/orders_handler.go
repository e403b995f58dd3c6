package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/kynaruniverse/storefront/internal/orders"
	"github.com/kynaruniverse/storefront/internal/pricing"
)

// PurchaseLister reads a user's completed purchases, which back their digital
// library.
type PurchaseLister interface {
	ListPurchases(ctx context.Context, userID string) ([]*orders.Purchase, error)
}

type OrdersHandler struct {
	purchases PurchaseLister
	timeout   time.Duration
}

func NewOrdersHandler(purchases PurchaseLister, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		purchases: purchases,
		timeout:   timeout,
	}
}

type PurchaseDTO struct {
	ID              string    `json:"id"`
	ProviderOrderID string    `json:"provider_order_id"`
	Total           float64   `json:"total"`
	TotalDisplay    string    `json:"total_display"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	PurchasedAt     time.Time `json:"purchased_at"`
}

// ListLibrary returns the authenticated user's purchases.
func (h *OrdersHandler) ListLibrary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserID(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	purchases, err := h.purchases.ListPurchases(ctx, userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load purchases")
		return
	}

	dtos := make([]PurchaseDTO, 0, len(purchases))
	for _, p := range purchases {
		dtos = append(dtos, PurchaseDTO{
			ID:              p.ID,
			ProviderOrderID: p.ProviderOrderID,
			Total:           p.Total,
			TotalDisplay:    pricing.FormatGBP(p.Total),
			Currency:        p.Currency,
			Status:          p.Status,
			PurchasedAt:     p.PurchasedAt,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"purchases": dtos})
}
