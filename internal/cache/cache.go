package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache is a process-local get-or-compute cache with a fixed TTL and
// explicit invalidation. Concurrent lookups of the same cold key share
// one computation.
type Cache[V any] struct {
	ttl   time.Duration
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]entry[V]

	// Overridable in tests
	now func() time.Time
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		ttl:     ttl,
		entries: make(map[string]entry[V]),
		now:     time.Now,
	}
}

// GetOrCompute returns the cached value for key, computing and storing
// it when absent or expired. Compute errors are not cached.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (V, error)) (V, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()

	if ok && c.now().Before(e.expiresAt) {
		return e.value, nil
	}

	value, err, _ := c.group.Do(key, func() (any, error) {
		value, err := compute(ctx)
		if err != nil {
			return value, err
		}

		c.mu.Lock()
		c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
		c.mu.Unlock()

		return value, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}

	return value.(V), nil
}

// Invalidate drops the cached value for key, if any
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	c.group.Forget(key)
}
