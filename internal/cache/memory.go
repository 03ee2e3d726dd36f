package cache

import (
	"context"
	"sync"

	"RateSentinel/internal/model"
)

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]byte)}
}

func (c *MemoryCache) Get(_ context.Context, ns Namespace, cur model.Currency) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key(ns, cur)]
	return v, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, ns Namespace, cur model.Currency, val []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(ns, cur)] = val
	return nil
}

func (c *MemoryCache) InvalidateAll(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]byte)
	return nil
}

// Len reports the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
