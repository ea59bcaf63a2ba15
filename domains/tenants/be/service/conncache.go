package service

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// HandleOpener opens a live handle (typically a credentialed store) for a
// ready tenant database record.
type HandleOpener[T any] func(ctx context.Context, rec TenantDatabase) (T, error)

// HandleCloser releases a handle evicted from the cache. May be nil.
type HandleCloser[T any] func(handle T)

type cacheEntry[T any] struct {
	handle   T
	openedAt time.Time
}

// ConnCache is an injected, concurrency-safe map from principal id to a live
// tenant store handle, populated lazily through the registry. Entries expire
// after the configured TTL (zero disables expiry) and can be evicted
// explicitly with Invalidate, e.g. after an out-of-band credential rotation.
type ConnCache[T any] struct {
	mu       sync.Mutex
	entries  map[string]cacheEntry[T]
	registry Registry
	open     HandleOpener[T]
	close    HandleCloser[T]
	ttl      time.Duration
}

// NewConnCache constructs a cache with required dependencies.
func NewConnCache[T any](registry Registry, opener HandleOpener[T], closer HandleCloser[T], ttl time.Duration) *ConnCache[T] {
	if registry == nil {
		panic("conn cache requires registry")
	}
	if opener == nil {
		panic("conn cache requires opener")
	}
	return &ConnCache[T]{
		entries:  make(map[string]cacheEntry[T]),
		registry: registry,
		open:     opener,
		close:    closer,
		ttl:      ttl,
	}
}

// Get returns the cached handle for the principal, opening one on miss or
// after expiry. Returns ErrNotReady unless the registry record is ready.
func (c *ConnCache[T]) Get(ctx context.Context, principalID string) (T, error) {
	var zero T
	if principalID == "" {
		return zero, ErrNotAuthenticated
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[principalID]; ok {
		if c.ttl <= 0 || time.Since(entry.openedAt) < c.ttl {
			return entry.handle, nil
		}
		delete(c.entries, principalID)
		if c.close != nil {
			c.close(entry.handle)
		}
	}

	rec, err := c.registry.GetByPrincipal(ctx, principalID)
	if err != nil {
		return zero, err
	}
	if rec.Status != StatusReady {
		return zero, fmt.Errorf("tenant database %s is %s: %w", rec.DBName, rec.Status, ErrNotReady)
	}

	handle, err := c.open(ctx, rec)
	if err != nil {
		return zero, fmt.Errorf("open tenant database %s: %w", rec.DBName, err)
	}

	c.entries[principalID] = cacheEntry[T]{handle: handle, openedAt: time.Now()}
	return handle, nil
}

// Invalidate evicts the principal's handle, if any.
func (c *ConnCache[T]) Invalidate(principalID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[principalID]
	if !ok {
		return
	}
	delete(c.entries, principalID)
	if c.close != nil {
		c.close(entry.handle)
	}
}
