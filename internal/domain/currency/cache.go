package currency

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultTTL is how long a fetched rate stays fresh.
const DefaultTTL = time.Hour

// RateCache stores exchange rates with a time-to-live.
type RateCache interface {
	Get(key CacheKey) (ExchangeRate, bool)
	Set(key CacheKey, rate ExchangeRate)
	Clear()
	Size() int
}

type cacheEntry struct {
	rate      ExchangeRate
	expiresAt time.Time
}

// MemoryRateCache is a process-wide in-memory RateCache.
// Entries are replaced whole under the lock, never mutated in place.
type MemoryRateCache struct {
	mu    sync.RWMutex
	store map[CacheKey]cacheEntry
	ttl   time.Duration
	clock clockwork.Clock
}

// NewMemoryRateCache creates a cache whose entries expire after ttl.
// A nil clock uses wall time.
func NewMemoryRateCache(ttl time.Duration, clock clockwork.Clock) *MemoryRateCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryRateCache{
		store: make(map[CacheKey]cacheEntry),
		ttl:   ttl,
		clock: clock,
	}
}

// Get returns the cached rate if present and not yet expired.
func (c *MemoryRateCache) Get(key CacheKey) (ExchangeRate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, found := c.store[key]
	if !found || !c.clock.Now().Before(entry.expiresAt) {
		return ExchangeRate{}, false
	}
	return entry.rate, true
}

// Set stores rate under key with expiry now+TTL.
func (c *MemoryRateCache) Set(key CacheKey, rate ExchangeRate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[key] = cacheEntry{
		rate:      rate,
		expiresAt: c.clock.Now().Add(c.ttl),
	}
}

// Clear removes all entries from cache
func (c *MemoryRateCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store = make(map[CacheKey]cacheEntry)
}

// Size returns the number of stored entries, expired ones included.
func (c *MemoryRateCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.store)
}

// TTL returns the configured time-to-live.
func (c *MemoryRateCache) TTL() time.Duration {
	return c.ttl
}
