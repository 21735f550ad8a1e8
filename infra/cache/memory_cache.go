package cache

import (
	"context"
	"sync"
	"time"

	"github.com/amirasaad/vatm/pkg/cache"
)

const cleanupInterval = 5 * time.Minute

// MemoryCache implements cache.ResponseCache in process memory.
type MemoryCache struct {
	entries map[string]*cacheEntry
	mu      sync.RWMutex
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type cacheEntry struct {
	resp      cache.Response
	expiresAt time.Time
}

// NewMemoryCache creates a cache and starts its expiry sweeper. Call Close to
// stop the sweeper.
func NewMemoryCache() *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]*cacheEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go c.cleanup(cleanupInterval)
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) (*cache.Response, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiresAt) {
		return nil, nil
	}
	resp := entry.resp
	resp.Body = append([]byte(nil), entry.resp.Body...)
	return &resp, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, resp *cache.Response, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := *resp
	stored.Body = append([]byte(nil), resp.Body...)
	c.entries[key] = &cacheEntry{resp: stored, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Close stops the sweeper. It is safe to call more than once.
func (c *MemoryCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *MemoryCache) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// sweep removes expired entries.
func (c *MemoryCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

var _ cache.ResponseCache = (*MemoryCache)(nil)
