package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/kynaruniverse/storefront/internal/orders"
	"github.com/kynaruniverse/storefront/internal/provider"
)

// SignatureHeader is where the provider puts the hex HMAC-SHA256 of the raw
// request body.
const SignatureHeader = "X-Signature"

const eventOrderCreated = "order_created"

// statusPaid is the provider order status that releases fulfillment; pending
// and failed deliveries are acknowledged without recording anything.
const statusPaid = "paid"

// OrderRecorder is the slice of the orders repository the webhook needs.
type OrderRecorder interface {
	RecordOrder(ctx context.Context, purchase *orders.Purchase, eventPayload []byte) (bool, error)
}

// OrderVerifier cross-checks a webhook delivery against the provider's order
// API. Optional; verification failures other than "order does not exist" are
// treated as best-effort.
type OrderVerifier interface {
	GetOrder(ctx context.Context, orderID string) (*provider.Order, error)
}

// payload mirrors the provider's webhook envelope: meta carries the event
// name and the custom data we attached to the checkout URL, data carries the
// order resource.
type payload struct {
	Meta struct {
		EventName  string `json:"event_name"`
		CustomData struct {
			UserID     string `json:"user_id"`
			CheckoutID string `json:"checkout_id"`
			ProductIDs string `json:"product_ids"`
		} `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Identifier string  `json:"identifier"`
			Status     string  `json:"status"`
			Total      float64 `json:"total"`
			Currency   string  `json:"currency"`
		} `json:"attributes"`
	} `json:"data"`
}

type Handler struct {
	secret   []byte
	recorder OrderRecorder
	verifier OrderVerifier
}

func NewHandler(secret string, recorder OrderRecorder, verifier OrderVerifier) *Handler {
	return &Handler{
		secret:   []byte(secret),
		recorder: recorder,
		verifier: verifier,
	}
}

// VerifySignature checks the hex HMAC-SHA256 of the body against the header
// value using a constant-time comparison.
func VerifySignature(secret, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	expected := mac.Sum(nil)

	received, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, received)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if !VerifySignature(h.secret, body, r.Header.Get(SignatureHeader)) {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if p.Meta.EventName != eventOrderCreated {
		// Other provider events are acknowledged and ignored
		respondReceived(w)
		return
	}

	if p.Data.Attributes.Status != statusPaid {
		// The provider also fires order_created for pending and failed
		// payments; fulfillment waits for paid
		log.Printf("webhook: order %s has status %q, skipping fulfillment", p.Data.ID, p.Data.Attributes.Status)
		respondReceived(w)
		return
	}

	ctx := r.Context()
	h.crossCheck(ctx, p.Data.ID)

	purchase := &orders.Purchase{
		UserID:          p.Meta.CustomData.UserID,
		ProviderOrderID: p.Data.ID,
		ProductID:       firstProductID(p.Meta.CustomData.ProductIDs),
		CheckoutID:      p.Meta.CustomData.CheckoutID,
		Total:           p.Data.Attributes.Total,
		Currency:        p.Data.Attributes.Currency,
		Status:          "completed",
	}

	event, err := json.Marshal(map[string]any{
		"order_id":    p.Data.ID,
		"user_id":     p.Meta.CustomData.UserID,
		"product_ids": p.Meta.CustomData.ProductIDs,
		"checkout_id": p.Meta.CustomData.CheckoutID,
		"total":       p.Data.Attributes.Total,
		"currency":    p.Data.Attributes.Currency,
	})
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	inserted, err := h.recorder.RecordOrder(ctx, purchase, event)
	if err != nil {
		log.Printf("webhook: failed to record order %s: %v", p.Data.ID, err)
		// Non-2xx makes the provider retry; RecordOrder is idempotent
		http.Error(w, "failed to record order", http.StatusInternalServerError)
		return
	}
	if !inserted {
		log.Printf("webhook: duplicate delivery for order %s", p.Data.ID)
	}

	respondReceived(w)
}

// crossCheck asks the provider's API for the order. Unavailability is fine;
// the signature already authenticates the delivery.
func (h *Handler) crossCheck(ctx context.Context, orderID string) {
	if h.verifier == nil {
		return
	}
	_, err := h.verifier.GetOrder(ctx, orderID)
	if err != nil && !errors.Is(err, provider.ErrUnavailable) {
		log.Printf("webhook: order %s failed provider cross-check: %v", orderID, err)
	}
}

// firstProductID takes the head of the comma-joined product_ids custom value.
// Hand-off links carry one product each, so in practice this is the whole
// value.
func firstProductID(joined string) string {
	ids := strings.Split(joined, ",")
	return strings.TrimSpace(ids[0])
}

func respondReceived(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"received":true}`))
}
