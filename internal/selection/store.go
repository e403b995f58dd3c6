package selection

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
	"sync"
	"time"

	"github.com/kynaruniverse/storefront/internal/pricing"
	"github.com/kynaruniverse/storefront/internal/storage"
)

// Notifier is the confirmation side-channel fired on every Add call, even
// when the item was already selected.
type Notifier interface {
	ItemAdded(title string)
}

// Syncer pushes a user's selection to remote persistence and pulls it back on
// sign-in. The remote copy is eventually consistent; it is never
// authoritative for the current session.
type Syncer interface {
	Fetch(ctx context.Context, userID string) ([]Item, error)
	Push(ctx context.Context, userID string, items []Item) error
	Delete(ctx context.Context, userID string) error
}

// ErrNotSynced is returned by a Syncer when the user has no remote selection
// row yet.
var ErrNotSynced = errors.New("no remote selection for user")

const defaultPushTimeout = 5 * time.Second

// Store owns a single selection. It moves through three states:
// constructed (nothing read yet), hydrating, and ready. Hydration happens
// once; after that the store is authoritative in memory and every mutation is
// written through to durable storage, plus coalesced to the remote syncer
// when a user is attached.
type Store struct {
	mu sync.Mutex

	storage  storage.Storage
	key      string
	resolver *pricing.Resolver
	notifier Notifier
	syncer   Syncer

	items    []Item
	hydrated bool
	userID   string
	subs     []func()

	pushCh      chan []Item
	pushTimeout time.Duration
	done        chan struct{}
	wg          sync.WaitGroup
}

// Option configures a Store at construction.
type Option func(*Store)

func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

func WithSyncer(sy Syncer) Option {
	return func(s *Store) { s.syncer = sy }
}

func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

func WithPushTimeout(d time.Duration) Option {
	return func(s *Store) { s.pushTimeout = d }
}

func NewStore(st storage.Storage, resolver *pricing.Resolver, opts ...Option) *Store {
	s := &Store{
		storage:     st,
		key:         DefaultKey,
		resolver:    resolver,
		pushCh:      make(chan []Item, 1),
		pushTimeout: defaultPushTimeout,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.syncer != nil {
		s.wg.Add(1)
		go s.runSync()
	}
	return s
}

// Hydrate restores in-memory state from durable storage. A missing snapshot
// is an empty selection; a corrupted or version-mismatched snapshot is purged
// and treated as empty. Hydrate is terminal: calling it again is a no-op.
func (s *Store) Hydrate(ctx context.Context) {
	s.mu.Lock()
	if s.hydrated {
		s.mu.Unlock()
		return
	}

	data, err := s.storage.Load(ctx, s.key)
	switch {
	case errors.Is(err, storage.ErrNoSnapshot):
		// first visit, nothing to restore
	case err != nil:
		log.Printf("selection: snapshot load failed, starting empty: %v", err)
	default:
		var snap snapshot
		if jsonErr := json.Unmarshal(data, &snap); jsonErr != nil || snap.Version != SnapshotVersion {
			log.Printf("selection: discarding unusable snapshot under %q", s.key)
			if delErr := s.storage.Delete(ctx, s.key); delErr != nil {
				log.Printf("selection: snapshot purge failed: %v", delErr)
			}
		} else {
			s.items = snap.Items
		}
	}

	s.hydrated = true
	s.mu.Unlock()
	s.notifySubs()
}

// Hydrated reports whether durable storage has been read. It transitions at
// most once per store lifetime and never reverts.
func (s *Store) Hydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrated
}

// Add inserts the item if its ID is not already selected and reports whether
// the selection changed. The confirmation notifier fires either way, matching
// the storefront behavior of re-surfacing the drawer on a duplicate add.
func (s *Store) Add(ctx context.Context, item Item) bool {
	if item.Quantity < 1 {
		item.Quantity = 1
	}

	s.mu.Lock()
	added := false
	if !s.containsLocked(item.ID) {
		s.items = append(s.items, item)
		added = true
		s.persistLocked(ctx)
	}
	s.mu.Unlock()

	if s.notifier != nil {
		s.notifier.ItemAdded(item.Title)
	}
	if added {
		s.notifySubs()
	}
	return added
}

// Remove drops the entry with the matching ID. Absent IDs are a no-op.
func (s *Store) Remove(ctx context.Context, id string) {
	s.mu.Lock()
	changed := false
	for i, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			changed = true
			break
		}
	}
	if changed {
		s.persistLocked(ctx)
	}
	s.mu.Unlock()

	if changed {
		s.notifySubs()
	}
}

// SetQuantity adjusts the quantity for an already-selected item. A quantity
// of zero or less removes the item.
func (s *Store) SetQuantity(ctx context.Context, id string, n int) {
	if n <= 0 {
		s.Remove(ctx, id)
		return
	}

	s.mu.Lock()
	changed := false
	for i := range s.items {
		if s.items[i].ID == id {
			if s.items[i].Quantity != n {
				s.items[i].Quantity = n
				changed = true
			}
			break
		}
	}
	if changed {
		s.persistLocked(ctx)
	}
	s.mu.Unlock()

	if changed {
		s.notifySubs()
	}
}

// Clear empties the selection. Used after a completed checkout and on
// sign-out; clearing an empty selection is fine.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.items = nil
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.notifySubs()
}

func (s *Store) IsSelected(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.containsLocked(id)
}

// Items returns a copy of the selection in insertion order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Total is the sum of resolved prices, rounded to two decimals. Items
// carrying a price identifier resolve through the registry; items with a
// captured price use it directly.
func (s *Store) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total float64
	for _, item := range s.items {
		total += s.itemPriceLocked(item) * float64(item.Quantity)
	}
	return math.Round(total*100) / 100
}

func (s *Store) itemPriceLocked(item Item) float64 {
	if item.PriceID != "" && s.resolver != nil {
		return s.resolver.Resolve(item.PriceID)
	}
	return item.Price
}

// Subscribe registers a callback invoked after hydration and after every
// mutation that changed the selection. Callbacks run on the mutating
// goroutine, in order.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Attach binds an authenticated user to the store. The remote selection
// replaces whatever the anonymous session accumulated; a missing remote row
// replaces it with empty. A fetch failure keeps local state and logs.
func (s *Store) Attach(ctx context.Context, userID string) {
	if s.syncer == nil || userID == "" {
		return
	}

	remote, err := s.syncer.Fetch(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotSynced) {
		log.Printf("selection: remote fetch failed for user %s, keeping local state: %v", userID, err)
		s.mu.Lock()
		s.userID = userID
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.userID = userID
	s.items = remote
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.notifySubs()
}

// Detach unbinds the user and resets the selection, per the sign-out
// lifecycle. The remote row is left intact for the next sign-in.
func (s *Store) Detach(ctx context.Context) {
	s.mu.Lock()
	s.userID = ""
	s.items = nil
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.notifySubs()
}

// UserID returns the attached user, or empty for anonymous sessions.
func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Close stops the background sync worker. Pending pushes are dropped; the
// next session's mutations re-send the full snapshot anyway.
func (s *Store) Close() {
	s.mu.Lock()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Store) containsLocked(id string) bool {
	for _, item := range s.items {
		if item.ID == id {
			return true
		}
	}
	return false
}

// persistLocked writes the full snapshot through to durable storage and, when
// a user is attached, enqueues a coalesced remote push. Storage failures are
// logged, never surfaced: the in-memory state stays authoritative.
func (s *Store) persistLocked(ctx context.Context) {
	snap := snapshot{Version: SnapshotVersion, Items: s.items}
	data, err := json.Marshal(snap)
	if err != nil {
		log.Printf("selection: snapshot marshal failed: %v", err)
		return
	}
	if err := s.storage.Save(ctx, s.key, data); err != nil {
		log.Printf("selection: snapshot save failed: %v", err)
	}

	if s.syncer != nil && s.userID != "" {
		items := make([]Item, len(s.items))
		copy(items, s.items)
		s.enqueuePush(items)
	}
}

// enqueuePush coalesces remote writes to "latest full snapshot wins" so rapid
// mutations cannot land out of order on the remote row.
func (s *Store) enqueuePush(items []Item) {
	for {
		select {
		case s.pushCh <- items:
			return
		default:
			select {
			case <-s.pushCh:
			default:
			}
		}
	}
}

func (s *Store) runSync() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case items := <-s.pushCh:
			s.mu.Lock()
			userID := s.userID
			s.mu.Unlock()
			if userID == "" {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), s.pushTimeout)
			if err := s.syncer.Push(ctx, userID, items); err != nil {
				log.Printf("selection: remote push failed for user %s: %v", userID, err)
			}
			cancel()
		}
	}
}

func (s *Store) notifySubs() {
	s.mu.Lock()
	subs := make([]func(), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}
