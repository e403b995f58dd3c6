package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

// ListingCache holds the published product listing, the one query every
// storefront page hits.
type ListingCache interface {
	Get(ctx context.Context) ([]*Product, error)
	Set(ctx context.Context, products []*Product) error
	Invalidate(ctx context.Context) error
}

var ErrCacheMiss = errors.New("cache miss")

const listingKey = "catalog:published"

type RedisListingCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisListingCache(client *redis.Client) *RedisListingCache {
	return &RedisListingCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

func (r *RedisListingCache) Get(ctx context.Context) ([]*Product, error) {
	data, err := r.client.Get(ctx, listingKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var products []*Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("unmarshal listing failed: %w", err)
	}
	return products, nil
}

func (r *RedisListingCache) Set(ctx context.Context, products []*Product) error {
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("marshal listing failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	if err := r.client.Set(ctx, listingKey, data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisListingCache) Invalidate(ctx context.Context) error {
	if err := r.client.Del(ctx, listingKey).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
