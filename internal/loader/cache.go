// Package loader memoizes slow asynchronous loads (SoundFonts, denoiser
// models) behind an explicit cache that callers construct once and pass
// around.
package loader

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// LoadFunc produces the value for key
type LoadFunc[T any] func(ctx context.Context, key string) (T, error)

// Cache maps keys to loaded values. Concurrent requests for the same key
// share one load; failed loads are not cached so a later call retries.
type Cache[T any] struct {
	load   LoadFunc[T]
	group  singleflight.Group
	mu     sync.RWMutex
	values map[string]T
}

// New creates a cache backed by load
func New[T any](load LoadFunc[T]) *Cache[T] {
	return &Cache[T]{
		load:   load,
		values: make(map[string]T),
	}
}

// Get returns the cached value for key, loading it if needed. The load runs
// detached from any single caller so one caller giving up does not fail the
// others; ctx only bounds how long this caller waits.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, error) {
	if v, ok := c.Peek(key); ok {
		return v, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		if v, ok := c.Peek(key); ok {
			return v, nil
		}
		v, err := c.load(context.WithoutCancel(ctx), key)
		if err != nil {
			return v, err
		}
		c.mu.Lock()
		c.values[key] = v
		c.mu.Unlock()
		return v, nil
	})

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		v, _ := res.Val.(T)
		return v, nil
	}
}

// Peek returns a cached value without loading
func (c *Cache[T]) Peek(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// Forget drops key so the next Get reloads it
func (c *Cache[T]) Forget(key string) {
	c.mu.Lock()
	delete(c.values, key)
	c.mu.Unlock()
	c.group.Forget(key)
}
