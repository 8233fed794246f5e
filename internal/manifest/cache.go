package manifest

import (
	"sync"
	"sync/atomic"
	"time"
)

// Cache is a TTL-based in-memory cache with stale-while-revalidate for
// manifests. Uses sync.Map for lock-free reads on the hot path.
type Cache struct {
	store sync.Map // map[string]*cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	manifest   *Manifest // nil = negative cache (actor not found)
	expiresAt  time.Time
	refreshing atomic.Bool
}

// CacheGetResult holds the result of a cache lookup.
type CacheGetResult struct {
	Manifest     *Manifest // nil if not found or negative cache
	Hit          bool      // true if a value was found (fresh or stale)
	NeedsRefresh bool      // true if expired — caller should refresh in background
}

// NewCache creates a cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl}
}

// Get performs a non-blocking cache lookup.
// Returns stale entries with NeedsRefresh=true when expired.
func (c *Cache) Get(actorID string) CacheGetResult {
	val, ok := c.store.Load(actorID)
	if !ok {
		return CacheGetResult{Hit: false}
	}

	entry := val.(*cacheEntry)

	if time.Now().Before(entry.expiresAt) {
		return CacheGetResult{
			Manifest: entry.manifest,
			Hit:      true,
		}
	}

	// Stale hit — signal refresh needed (only one goroutine wins the CAS)
	needsRefresh := entry.refreshing.CompareAndSwap(false, true)
	return CacheGetResult{
		Manifest:     entry.manifest,
		Hit:          true,
		NeedsRefresh: needsRefresh,
	}
}

// Set stores a manifest with a fresh TTL.
// Passing nil stores a negative cache entry (actor not found).
func (c *Cache) Set(actorID string, m *Manifest) {
	c.store.Store(actorID, &cacheEntry{
		manifest:  m,
		expiresAt: time.Now().Add(c.ttl),
	})
}

// Delete removes an entry from the cache.
func (c *Cache) Delete(actorID string) {
	c.store.Delete(actorID)
}
