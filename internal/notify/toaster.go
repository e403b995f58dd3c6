package notify

import (
	"sync"
	"time"
)

// DefaultTTL is how long a confirmation stays visible before auto-dismissing.
const DefaultTTL = 4 * time.Second

// Toast is a transient confirmation shown after an item lands in the
// selection.
type Toast struct {
	Message string    `json:"message"`
	Item    string    `json:"item"`
	ShownAt time.Time `json:"shown_at"`
}

// Toaster holds at most one live confirmation. A new confirmation replaces
// the current one and restarts the dismiss timer; explicit dismissal cancels
// the timer early.
type Toaster struct {
	mu      sync.Mutex
	current *Toast
	timer   *time.Timer
	ttl     time.Duration
}

func NewToaster(ttl time.Duration) *Toaster {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Toaster{ttl: ttl}
}

// ItemAdded satisfies the selection store's notifier contract. It fires on
// every add call, including re-adds of an already-selected item.
func (t *Toaster) ItemAdded(title string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.current = &Toast{
		Message: title + " added to your selection",
		Item:    title,
		ShownAt: time.Now(),
	}
	t.timer = time.AfterFunc(t.ttl, t.Dismiss)
}

// Current returns the live confirmation, or nil once dismissed.
func (t *Toaster) Current() *Toast {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		return nil
	}
	toast := *t.current
	return &toast
}

// Dismiss clears the confirmation and cancels the pending auto-dismiss.
func (t *Toaster) Dismiss() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.current = nil
}
