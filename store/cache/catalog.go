package cache

import "time"

// CatalogCache adapts an LRUCache[string, any] to store.CatalogCache,
// giving every cached catalog read the same 5-minute ceiling (spec.md §5).
type CatalogCache struct {
	inner *LRUCache[string, any]
}

// NewCatalogCache builds a CatalogCache with the given capacity, capping
// entry lifetime at ttl (spec.md requires ttl <= 5 minutes).
func NewCatalogCache(capacity int, ttl time.Duration) *CatalogCache {
	if ttl > 5*time.Minute {
		ttl = 5 * time.Minute
	}
	return &CatalogCache{inner: New[string, any](capacity, ttl)}
}

// Get satisfies store.CatalogCache.
func (c *CatalogCache) Get(key string) (any, bool) {
	return c.inner.Get(key)
}

// Set satisfies store.CatalogCache.
func (c *CatalogCache) Set(key string, value any) {
	c.inner.Set(key, value)
}
