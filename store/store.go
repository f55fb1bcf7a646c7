// Package store defines ConvergeAI's persistence-facing domain types and
// the Driver seam that decouples business logic from a concrete database
// engine, following the teacher's store/store.go facade-over-driver shape.
package store

import "context"

// CatalogCache is satisfied by store/cache's TTL cache, kept here as an
// interface so Store doesn't depend on the concrete cache implementation.
type CatalogCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// Store is the single persistence handle business-logic packages depend
// on. It wraps a Driver (the concrete database engine) and an optional
// catalog cache (spec.md §5: catalog reads may be served from a cache with
// a TTL no greater than five minutes).
type Store struct {
	Driver Driver
	cache  CatalogCache
}

// New wraps a concrete Driver, optionally layering a catalog cache over it.
func New(d Driver, cache CatalogCache) *Store {
	return &Store{Driver: d, cache: cache}
}

// Categories returns the catalog's categories, served from cache when one
// is configured and warm.
func (s *Store) Categories(ctx context.Context, activeOnly bool) ([]Category, error) {
	const key = "categories:active"
	if s.cache != nil && activeOnly {
		if v, ok := s.cache.Get(key); ok {
			if cats, ok := v.([]Category); ok {
				return cats, nil
			}
		}
	}
	cats, err := s.Driver.ListCategories(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && activeOnly {
		s.cache.Set(key, cats)
	}
	return cats, nil
}

// Close releases the underlying driver's resources.
func (s *Store) Close() error {
	return s.Driver.Close()
}
