package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/segmentio/kafka-go"

	"github.com/kynaruniverse/storefront/internal/orders"
)

// GroupID is the consumer group; one fulfillment worker per deployment is
// enough, the group keeps offsets across restarts.
const GroupID = "fulfillment"

// SelectionClearer removes a user's remote selection once their order is
// recorded.
type SelectionClearer interface {
	Delete(ctx context.Context, userID string) error
}

// CheckoutCompleter settles the checkout session the order originated from.
type CheckoutCompleter interface {
	Complete(ctx context.Context, checkoutID string) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// OrderCompletedEvent mirrors the outbox payload written by the webhook
// handler.
type OrderCompletedEvent struct {
	OrderID    string  `json:"order_id"`
	UserID     string  `json:"user_id"`
	CheckoutID string  `json:"checkout_id"`
	Total      float64 `json:"total"`
	Currency   string  `json:"currency"`
}

// Consumer reads order-events and performs post-purchase housekeeping:
// clearing the buyer's synced selection and completing their checkout
// session. Both steps tolerate replays.
type Consumer struct {
	reader     messageReader
	selections SelectionClearer
	checkouts  CheckoutCompleter
}

func NewConsumer(selections SelectionClearer, checkouts CheckoutCompleter, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    orders.Topic,
		GroupID:  GroupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader, selections: selections, checkouts: checkouts}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		log.Printf("fulfillment: error closing kafka reader: %v", err)
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Printf("fulfillment: error reading message: %v", err)
		return
	}

	var event OrderCompletedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		log.Printf("fulfillment: error parsing message: %v", err)
		return
	}

	if event.UserID != "" {
		if err := c.selections.Delete(ctx, event.UserID); err != nil {
			log.Printf("fulfillment: failed to clear selection for user %s: %v", event.UserID, err)
		}
	}

	if event.CheckoutID != "" {
		if err := c.checkouts.Complete(ctx, event.CheckoutID); err != nil {
			log.Printf("fulfillment: failed to complete checkout %s: %v", event.CheckoutID, err)
			return
		}
	}

	log.Printf("fulfillment: processed order %s for user %s", event.OrderID, event.UserID)
}
