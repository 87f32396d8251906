package throttle

import (
	"sync"
	"time"
)

// Default intervals and TTLs for outbound request pacing and result caching
const (
	DefaultMinInterval = 2 * time.Second
	QuoteCacheTTL      = 20 * time.Minute
	ChartCacheTTL      = 2 * time.Hour
)

// Gate enforces a minimum spacing between outbound requests per key.
// Acquire blocks the caller until the key's slot is available; the
// last-granted timestamp is advanced atomically with the grant so two
// concurrent callers can never share a slot.
type Gate struct {
	mu          sync.Mutex
	minInterval time.Duration
	lastGrant   map[string]time.Time
}

// NewGate creates a gate with the given minimum interval between grants.
func NewGate(minInterval time.Duration) *Gate {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &Gate{
		minInterval: minInterval,
		lastGrant:   make(map[string]time.Time),
	}
}

// Acquire blocks until at least the configured interval has elapsed since
// the previous grant for key. This is the only deliberate suspension point
// in the fetch pipelines besides network I/O.
func (g *Gate) Acquire(key string) {
	g.mu.Lock()
	now := time.Now()
	target := g.lastGrant[key].Add(g.minInterval)
	if !target.After(now) {
		g.lastGrant[key] = now
		g.mu.Unlock()
		return
	}
	// Reserve the slot before sleeping so competing callers queue behind it.
	g.lastGrant[key] = target
	g.mu.Unlock()
	time.Sleep(time.Until(target))
}

// MinInterval returns the configured spacing between grants.
func (g *Gate) MinInterval() time.Duration {
	return g.minInterval
}

type cacheEntry struct {
	value     interface{}
	fetchedAt time.Time
}

// Cache memoizes fetch results per key with lazy staleness checks on read.
// There is no eviction sweep; memory is bounded by the number of distinct
// keys ever seen, which is acceptable for a watchlist-sized universe.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Get returns the cached value for key if it is younger than ttl.
func (c *Cache) Get(key string, ttl time.Duration) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Since(entry.fetchedAt) > ttl {
		return nil, false
	}
	return entry.value, true
}

// GetStale returns the last stored value for key regardless of age. Used
// as a last-resort fallback when a refresh fails.
func (c *Cache) GetStale(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return entry.value, true
}

// Put stores value under key with the current timestamp.
func (c *Cache) Put(key string, value interface{}) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, fetchedAt: time.Now()}
	c.mu.Unlock()
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
