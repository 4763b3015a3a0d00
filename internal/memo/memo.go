// Package memo provides small time-bounded caches for upstream calls.
// Staleness up to the TTL is acceptable by design; the point is keeping
// request rates low enough to stay under the source's limits.
package memo

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Clock supplies the current time. Injected so expiry is testable.
type Clock func() time.Time

type entry[V any] struct {
	value   V
	expires time.Time
}

// Cache memoises per-key results for a fixed TTL. Concurrent callers of
// the same key share a single in-flight fill instead of racing duplicate
// fetches. Errors are never cached.
type Cache[V any] struct {
	ttl   time.Duration
	now   Clock
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]entry[V]
}

// New constructs a Cache with the given TTL. A nil clock uses time.Now.
func New[V any](ttl time.Duration, now Clock) *Cache[V] {
	if now == nil {
		now = time.Now
	}
	return &Cache[V]{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]entry[V]),
	}
}

// Get returns the cached value for key when fresh, otherwise invokes fill
// and caches its result for the TTL window.
func (c *Cache[V]) Get(key string, fill func() (V, error)) (V, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// A concurrent caller may have filled the entry while this one
		// was queued behind the flight.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		value, err := fill()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = entry[V]{value: value, expires: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return value, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

func (c *Cache[V]) lookup(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expires) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Flush drops every cached entry.
func (c *Cache[V]) Flush() {
	c.mu.Lock()
	c.entries = make(map[string]entry[V])
	c.mu.Unlock()
}
