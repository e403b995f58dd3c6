package selection

import (
	"context"
	"sync"
	"time"

	"github.com/kynaruniverse/storefront/internal/notify"
	"github.com/kynaruniverse/storefront/internal/pricing"
	"github.com/kynaruniverse/storefront/internal/storage"
)

// Manager owns the per-session stores. A session's first request constructs
// and hydrates its store; later requests reuse it. This replaces the old
// storefront's ambient global cart object with an injected instance that has
// a defined lifecycle.
type Manager struct {
	mu sync.Mutex

	storage  storage.Storage
	resolver *pricing.Resolver
	syncer   Syncer
	toastTTL time.Duration

	stores   map[string]*Store
	toasters map[string]*notify.Toaster
}

func NewManager(st storage.Storage, resolver *pricing.Resolver, syncer Syncer) *Manager {
	return &Manager{
		storage:  st,
		resolver: resolver,
		syncer:   syncer,
		toastTTL: notify.DefaultTTL,
		stores:   make(map[string]*Store),
		toasters: make(map[string]*notify.Toaster),
	}
}

// Get returns the hydrated store for a session, constructing it on first
// use. The session ID becomes the storage key suffix so each visitor owns
// exactly one durable slot.
func (m *Manager) Get(ctx context.Context, sessionID string) *Store {
	store, _ := m.get(ctx, sessionID)
	return store
}

// Toaster returns the session's confirmation surface.
func (m *Manager) Toaster(ctx context.Context, sessionID string) *notify.Toaster {
	_, toaster := m.get(ctx, sessionID)
	return toaster
}

func (m *Manager) get(ctx context.Context, sessionID string) (*Store, *notify.Toaster) {
	m.mu.Lock()
	store, ok := m.stores[sessionID]
	toaster := m.toasters[sessionID]
	if !ok {
		toaster = notify.NewToaster(m.toastTTL)
		opts := []Option{
			WithKey(DefaultKey + ":" + sessionID),
			WithNotifier(toaster),
		}
		if m.syncer != nil {
			opts = append(opts, WithSyncer(m.syncer))
		}
		store = NewStore(m.storage, m.resolver, opts...)
		m.stores[sessionID] = store
		m.toasters[sessionID] = toaster
	}
	m.mu.Unlock()

	store.Hydrate(ctx)
	return store, toaster
}

// Drop tears down a session's store, stopping its sync worker. Called when a
// session expires.
func (m *Manager) Drop(sessionID string) {
	m.mu.Lock()
	store, ok := m.stores[sessionID]
	if ok {
		delete(m.stores, sessionID)
		delete(m.toasters, sessionID)
	}
	m.mu.Unlock()

	if ok {
		store.Close()
	}
}

// Close stops every live store.
func (m *Manager) Close() {
	m.mu.Lock()
	stores := make([]*Store, 0, len(m.stores))
	for _, s := range m.stores {
		stores = append(stores, s)
	}
	m.stores = make(map[string]*Store)
	m.toasters = make(map[string]*notify.Toaster)
	m.mu.Unlock()

	for _, s := range stores {
		s.Close()
	}
}
