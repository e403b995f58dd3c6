package checkout

import (
	"encoding/json"
	"time"
)

// SnapshotItem is one selection line frozen at checkout initiation. It keeps
// the price identifier so hand-off links can be rebuilt for an idempotent
// replay of the same checkout.
type SnapshotItem struct {
	ProductID string  `json:"product_id"`
	Title     string  `json:"title"`
	PriceID   string  `json:"price_id,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
}

// Snapshot is the full selection state captured when checkout begins. The
// live selection can keep changing; the session settles against this copy.
type Snapshot struct {
	Items       []SnapshotItem `json:"items"`
	TotalAmount float64        `json:"total_amount"`
	Currency    string         `json:"currency"`
	CapturedAt  time.Time      `json:"captured_at"`
}

type Session struct {
	ID             string
	UserID         string
	IdempotencyKey string
	Status         Status
	CartSnapshot   json.RawMessage
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
