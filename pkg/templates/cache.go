// Package templates caches builder resources that are fetched over HTTP and
// shared across component mounts, such as form templates and the
// translator's language list.
package templates

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/parishkit/formengine/pkg/schema"
)

// Template is one reusable form blueprint offered by the builder.
type Template struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Form        schema.Form `json:"form"`
}

// Fetcher loads the cached resource from its origin.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Cache memoizes a single fetched resource. Concurrent callers of Get share
// one in-flight fetch; Invalidate forces the next Get to refetch. The zero
// value is not usable; construct with NewCache.
type Cache[T any] struct {
	fetch Fetcher[T]
	group singleflight.Group

	mu    sync.Mutex
	value T
	valid bool
}

// NewCache builds a cache around a fetcher.
func NewCache[T any](fetch Fetcher[T]) *Cache[T] {
	return &Cache[T]{fetch: fetch}
}

// Get returns the cached value, fetching it on first use or after an
// invalidation. Errors are not cached; a failed fetch leaves the cache
// empty so the next Get retries.
func (c *Cache[T]) Get(ctx context.Context) (T, error) {
	c.mu.Lock()
	if c.valid {
		value := c.value
		c.mu.Unlock()
		return value, nil
	}
	c.mu.Unlock()

	result, err, _ := c.group.Do("fetch", func() (any, error) {
		value, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.value = value
		c.valid = true
		c.mu.Unlock()
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

// Invalidate discards the cached value.
func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	var zero T
	c.value = zero
	c.valid = false
	c.mu.Unlock()
}

// Refresh invalidates and refetches in one step.
func (c *Cache[T]) Refresh(ctx context.Context) (T, error) {
	c.Invalidate()
	return c.Get(ctx)
}
