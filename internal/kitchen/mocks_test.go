package kitchen

import (
	"context"
	"sync"

	"github.com/appetiteclub/dinein/internal/store"
)

// CountingStore wraps a store and records the keys written through it.
type CountingStore struct {
	store.Store
	mu      sync.Mutex
	Written []string
}

func NewCountingStore(s store.Store) *CountingStore {
	return &CountingStore{Store: s}
}

func (c *CountingStore) Set(ctx context.Context, key string, value []byte) error {
	c.record(key)
	return c.Store.Set(ctx, key, value)
}

func (c *CountingStore) MSet(ctx context.Context, entries []store.Entry) error {
	for _, e := range entries {
		c.record(e.Key)
	}
	return c.Store.MSet(ctx, entries)
}

func (c *CountingStore) record(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Written = append(c.Written, key)
}

func (c *CountingStore) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Written = nil
}

func (c *CountingStore) WritesWithPrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, k := range c.Written {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}
