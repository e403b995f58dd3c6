package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/kynaruniverse/storefront/internal/pricing"
	"github.com/kynaruniverse/storefront/internal/selection"
)

type Request struct {
	UserID         string
	Email          string
	IdempotencyKey string
	Items          []selection.Item
}

type Result struct {
	CheckoutID string        `json:"checkout_id"`
	Status     Status        `json:"status"`
	Total      float64       `json:"total"`
	Currency   string        `json:"currency"`
	Links      []HandoffLink `json:"links"`
}

type Service struct {
	repo     SessionRepository
	resolver *pricing.Resolver
	urls     *URLBuilder
}

func NewService(repo SessionRepository, resolver *pricing.Resolver, urls *URLBuilder) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		urls:     urls,
	}
}

// Initiate freezes the selection into a session snapshot and returns one
// provider hand-off link per line item. Replays of the same idempotency key
// return the original session rather than opening a second one.
func (s *Service) Initiate(ctx context.Context, req *Request) (*Result, error) {
	if req.IdempotencyKey == "" {
		return nil, ErrIdempotencyKeyMissing
	}

	existing, err := s.repo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil && !errors.Is(err, ErrIdempotencyKeyNotFound) {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if existing != nil {
		log.Printf("checkout: duplicate request, idempotency_key=%s checkout_id=%s status=%s",
			req.IdempotencyKey, existing.ID, existing.Status)
		return s.resultFromSession(existing, req)
	}

	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}

	snap := s.capture(req.Items)
	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cart snapshot: %w", err)
	}

	session := &Session{
		ID:             uuid.NewString(),
		UserID:         req.UserID,
		IdempotencyKey: req.IdempotencyKey,
		Status:         StatusInitiated,
		CartSnapshot:   snapJSON,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	// The visitor is now on their way to the provider
	if err := s.repo.UpdateStatus(ctx, session.ID, StatusPending); err != nil {
		log.Printf("checkout: failed to mark session %s pending: %v", session.ID, err)
	}

	return &Result{
		CheckoutID: session.ID,
		Status:     StatusPending,
		Total:      snap.TotalAmount,
		Currency:   snap.Currency,
		Links: s.urls.Links(req.Items, req.Email, CustomData{
			UserID:     req.UserID,
			CheckoutID: session.ID,
		}),
	}, nil
}

// Complete marks a session settled. Driven by the fulfillment consumer once
// the provider webhook lands.
func (s *Service) Complete(ctx context.Context, checkoutID string) error {
	return s.repo.UpdateStatus(ctx, checkoutID, StatusCompleted)
}

func (s *Service) capture(items []selection.Item) *Snapshot {
	snap := &Snapshot{
		Currency:   "GBP",
		CapturedAt: time.Now().UTC(),
	}
	for _, item := range items {
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}
		unit := item.Price
		if item.PriceID != "" {
			unit = s.resolver.Resolve(item.PriceID)
		}
		subtotal := unit * float64(qty)
		snap.Items = append(snap.Items, SnapshotItem{
			ProductID: item.ID,
			Title:     item.Title,
			PriceID:   item.PriceID,
			Quantity:  qty,
			UnitPrice: unit,
			Subtotal:  subtotal,
		})
		snap.TotalAmount += subtotal
	}
	snap.TotalAmount = math.Round(snap.TotalAmount*100) / 100
	return snap
}

func (s *Service) resultFromSession(session *Session, req *Request) (*Result, error) {
	var snap Snapshot
	if err := json.Unmarshal(session.CartSnapshot, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart snapshot: %w", err)
	}

	return &Result{
		CheckoutID: session.ID,
		Status:     session.Status,
		Total:      snap.TotalAmount,
		Currency:   snap.Currency,
		Links: s.urls.linksFromSnapshot(&snap, req.Email, CustomData{
			UserID:     req.UserID,
			CheckoutID: session.ID,
		}),
	}, nil
}
