package orders

import (
	"encoding/json"
	"time"
)

// Purchase is a completed sale reported by the payment provider. It is what
// grants library access to a digital product.
type Purchase struct {
	ID              string
	UserID          string
	ProviderOrderID string
	ProductID       string
	CheckoutID      string
	Total           float64
	Currency        string
	Status          string
	PurchasedAt     time.Time
}

// OutboxEvent is a pending publication to the order-events topic. Events are
// written in the same transaction as the purchase row so a crash between
// database and broker cannot lose a sale.
type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// EventTypeOrderCompleted is published once a provider order has been
// recorded; consumers react by clearing selections and completing checkout
// sessions.
const EventTypeOrderCompleted = "order.completed"
