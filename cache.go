package portalx

import (
	"sync"
	"time"
)

// CacheKey builds the composite key for an installment record. Installment
// ids are not globally unique without their parent boleto, so both parts are
// always required.
func CacheKey(parentID, childID string) string {
	return parentID + "::" + childID
}

type cacheEntry[T any] struct {
	value    T
	storedAt time.Time
}

// FreshCache is a TTL cache. An entry older than the TTL is absent, not a
// distinct stale state: expired entries are dropped lazily on read. An
// optional background sweeper can reclaim memory for keys nobody reads.
type FreshCache[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry[T]
	now     func() time.Time

	sweepInterval time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
}

// FreshCacheOption customizes a FreshCache.
type FreshCacheOption[T any] func(*FreshCache[T])

// WithClock overrides the time source. Tests use it to step through the TTL
// window without sleeping.
func WithClock[T any](now func() time.Time) FreshCacheOption[T] {
	return func(c *FreshCache[T]) {
		c.now = now
	}
}

// WithSweepInterval starts a background goroutine that drops expired entries
// every interval. Stop must be called to release it.
func WithSweepInterval[T any](interval time.Duration) FreshCacheOption[T] {
	return func(c *FreshCache[T]) {
		c.sweepInterval = interval
	}
}

// NewFreshCache builds a cache with the given TTL. A non-positive TTL falls
// back to the default freshness window.
func NewFreshCache[T any](ttl time.Duration, opts ...FreshCacheOption[T]) *FreshCache[T] {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	cache := &FreshCache[T]{
		ttl:     ttl,
		entries: make(map[string]cacheEntry[T]),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(cache)
	}
	if cache.sweepInterval > 0 {
		go cache.sweep()
	}
	return cache
}

// Get returns the cached value when it is still fresh. Expired entries read
// as absent and are removed.
func (c *FreshCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		delete(c.entries, key)
		var zero T
		return zero, false
	}
	return entry.value, true
}

// Put stores the value stamped with the current time.
func (c *FreshCache[T]) Put(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry[T]{value: value, storedAt: c.now()}
}

// Remove drops the entry for key, if any.
func (c *FreshCache[T]) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len reports the number of entries currently held, fresh or not.
func (c *FreshCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stop terminates the background sweeper, when one was started.
func (c *FreshCache[T]) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

func (c *FreshCache[T]) sweep() {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			cutoff := c.now()
			for key, entry := range c.entries {
				if cutoff.Sub(entry.storedAt) >= c.ttl {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
