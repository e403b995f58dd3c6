package storage

import (
	"context"
	"errors"
)

// Storage is durable key-value persistence for selection snapshots. Only the
// selection store writes through it; everything else is a reader at most.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

var ErrNoSnapshot = errors.New("no snapshot stored")
