package cache

import (
	"context"
	"sync"
	"time"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
)

// MemoryCache is a single-node cache. Expired entries are left in place and
// treated as absent when read.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	entry     domain.IdempotencyEntry
	expiresAt time.Time
}

var _ application.IdempotencyCache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithClock(time.Now)
}

// NewMemoryCacheWithClock lets tests control expiry.
func NewMemoryCacheWithClock(now func() time.Time) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*domain.IdempotencyEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored, ok := c.live(key)
	if !ok {
		return nil, application.ErrCacheMiss
	}
	entry := stored.entry
	return &entry, nil
}

func (c *MemoryCache) Put(_ context.Context, key string, entry *domain.IdempotencyEntry, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{entry: *entry, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Reserve(_ context.Context, key string, entry *domain.IdempotencyEntry, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.live(key); ok {
		return false, nil
	}
	c.entries[key] = memoryEntry{entry: *entry, expiresAt: c.now().Add(ttl)}
	return true, nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

// live must be called with mu held.
func (c *MemoryCache) live(key string) (memoryEntry, bool) {
	stored, ok := c.entries[key]
	if !ok || !c.now().Before(stored.expiresAt) {
		return memoryEntry{}, false
	}
	return stored, true
}
