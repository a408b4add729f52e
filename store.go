package difyflow

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultStoreEntries is the capacity of a GraphStore created without
// WithMaxEntries.
const DefaultStoreEntries = 128

// GraphStore caches loaded graphs by key, typically the source path.
// It is bounded, optionally expiring and safe for concurrent use.
//
// The engine never consults a GraphStore; callers that load graphs decide
// whether and how to cache them.
type GraphStore struct {
	cache *expirable.LRU[string, *Graph]
}

type storeConfig struct {
	maxEntries int
	ttl        time.Duration
	onEvict    func(key string, g *Graph)
}

// StoreOption configures a GraphStore.
type StoreOption func(*storeConfig)

// WithMaxEntries sets the maximum number of cached graphs.
// Zero means unbounded.
func WithMaxEntries(n int) StoreOption {
	return func(c *storeConfig) {
		c.maxEntries = n
	}
}

// WithTTL expires entries ttl after they were stored.
// Zero disables expiry.
func WithTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.ttl = ttl
	}
}

// WithEvictionCallback is called whenever an entry leaves the store,
// whether by eviction, expiry, Delete or Purge.
func WithEvictionCallback(fn func(key string, g *Graph)) StoreOption {
	return func(c *storeConfig) {
		c.onEvict = fn
	}
}

// NewGraphStore creates an empty store.
func NewGraphStore(opts ...StoreOption) *GraphStore {
	cfg := storeConfig{maxEntries: DefaultStoreEntries}
	for _, opt := range opts {
		opt(&cfg)
	}

	var onEvict expirable.EvictCallback[string, *Graph]
	if cfg.onEvict != nil {
		onEvict = cfg.onEvict
	}
	return &GraphStore{
		cache: expirable.NewLRU[string, *Graph](cfg.maxEntries, onEvict, cfg.ttl),
	}
}

// Get returns the graph stored under key.
func (s *GraphStore) Get(key string) (*Graph, bool) {
	return s.cache.Get(key)
}

// Put stores g under key and reports whether an older entry was evicted to
// make room.
func (s *GraphStore) Put(key string, g *Graph) bool {
	return s.cache.Add(key, g)
}

// Delete removes key and reports whether it was present.
func (s *GraphStore) Delete(key string) bool {
	return s.cache.Remove(key)
}

// Len returns the number of stored graphs.
func (s *GraphStore) Len() int {
	return s.cache.Len()
}

// Keys returns the stored keys from oldest to newest.
func (s *GraphStore) Keys() []string {
	return s.cache.Keys()
}

// Purge removes every entry.
func (s *GraphStore) Purge() {
	s.cache.Purge()
}
