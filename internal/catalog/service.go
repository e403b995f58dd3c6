package catalog

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/singleflight"
)

// Service fronts the repository with a listing cache. Admin writes go
// straight through and invalidate the listing.
type Service struct {
	repo  ProductRepository
	cache ListingCache
	sfg   singleflight.Group // prevents cache stampede on the listing
}

func NewService(repo ProductRepository, cache ListingCache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

// ListPublished returns the storefront listing, cache-first with
// singleflight so a cold cache produces one repository query, not one per
// concurrent request.
func (s *Service) ListPublished(ctx context.Context) ([]*Product, error) {
	v, err, _ := s.sfg.Do("published", func() (interface{}, error) {
		products, err := s.cache.Get(ctx)
		if err == nil {
			return products, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("catalog: cache get error: %v", err)
		}

		products, err = s.repo.GetAll(ctx, false)
		if err != nil {
			return nil, err
		}

		go func() {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := s.cache.Set(setCtx, products); err != nil {
				log.Printf("catalog: cache set error: %v", err)
			}
		}()

		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*Product), nil
}

// ListAll is the admin view and bypasses the cache.
func (s *Service) ListAll(ctx context.Context) ([]*Product, error) {
	return s.repo.GetAll(ctx, true)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*Product, error) {
	return s.repo.GetBySlug(ctx, slug)
}

func (s *Service) GetByID(ctx context.Context, id string) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, p *Product) error {
	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

func (s *Service) Update(ctx context.Context, p *Product) error {
	if err := s.repo.Update(ctx, p); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

func (s *Service) SetPublished(ctx context.Context, id string, published bool) error {
	if err := s.repo.SetPublished(ctx, id, published); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

func (s *Service) invalidate() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Printf("catalog: cache invalidate error: %v", err)
	}
}
