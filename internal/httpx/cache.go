package httpx

import (
	"sync"
	"time"
)

// DefaultTTL is how long a cached payload stays valid.
const DefaultTTL = 60 * time.Second

// Cache is a TTL-keyed store for raw response payloads. Stale entries
// are treated as absent and overwritten lazily on the next Put; there
// is no eviction sweep. The key space is derived from a small fixed
// set of endpoint URLs, so the store stays bounded in practice.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	value    []byte
	storedAt time.Time
}

// NewCache creates a cache with the given TTL. A non-positive ttl
// falls back to DefaultTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached payload for key, or ok=false when the entry
// is missing or expired.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		return nil, false
	}
	return e.value, true
}

// Put stores value under key with the current timestamp, replacing
// any previous entry.
func (c *Cache) Put(key string, value []byte) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, storedAt: c.now()}
	c.mu.Unlock()
}
