package selection

// Item is one product the visitor intends to acquire. ID is the dedup key; a
// product appears at most once in a selection.
type Item struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	World    string  `json:"world,omitempty"`
	Image    string  `json:"image,omitempty"`
	PriceID  string  `json:"price_id,omitempty"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// SnapshotVersion is embedded in every persisted snapshot. A stored snapshot
// with a different version is discarded on hydration rather than migrated.
const SnapshotVersion = 1

// DefaultKey is the storage key for an anonymous browser session's
// selection, kept stable across deployments.
const DefaultKey = "kynar_cart_v1"

type snapshot struct {
	Version int    `json:"version"`
	Items   []Item `json:"items"`
}
