package ledger

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/persistorai/txlink/internal/models"
)

// Cache defaults.
const (
	DefaultCacheSize = 4096
	DefaultCacheTTL  = 10 * time.Minute
)

type cacheKey struct {
	addr models.Address
	opts models.PageOptions
}

// Cache holds recent transaction listings keyed by address and page options.
// A nil *Cache is valid and never hits.
type Cache struct {
	lru *expirable.LRU[cacheKey, []models.Edge]
}

// NewCache returns a cache of at most size listings, each kept for ttl.
// A non-positive size disables caching and returns nil.
func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		return nil
	}

	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &Cache{lru: expirable.NewLRU[cacheKey, []models.Edge](size, nil, ttl)}
}

// Get returns a copy of the cached listing for addr.
func (c *Cache) Get(addr models.Address, opts models.PageOptions) ([]models.Edge, bool) {
	if c == nil {
		return nil, false
	}

	edges, ok := c.lru.Get(cacheKey{addr: addr, opts: opts})
	if !ok {
		return nil, false
	}

	return append([]models.Edge(nil), edges...), true
}

// Add stores a listing for addr.
func (c *Cache) Add(addr models.Address, opts models.PageOptions, edges []models.Edge) {
	if c == nil {
		return
	}

	c.lru.Add(cacheKey{addr: addr, opts: opts}, append([]models.Edge(nil), edges...))
}

// Len returns the number of cached listings.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}

	return c.lru.Len()
}
