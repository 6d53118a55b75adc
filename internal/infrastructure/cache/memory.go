package cache

import (
	"context"
	"sync"
	"time"

	"github.com/foodflow/backend/internal/domain"
)

// storedEntry wraps a cache entry with its expiration time
type storedEntry struct {
	entry      domain.CacheEntry
	expiration time.Time
}

// MemoryCache is a thread-safe in-memory result cache with TTL support
type MemoryCache struct {
	data  map[string]storedEntry
	ttl   time.Duration
	mutex sync.RWMutex
}

// NewMemoryCache creates a new in-memory cache. Entries older than ttl are
// treated as misses; a background sweep reclaims them every 10 minutes.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	cache := &MemoryCache{
		data: make(map[string]storedEntry),
		ttl:  ttl,
	}

	go cache.cleanupExpired()

	return cache
}

// entryKey builds the map key for a (fingerprint, task) pair. The task is
// part of the key so identical bytes scanned as receipt and label never
// collide.
func entryKey(fingerprint string, task domain.TaskType) string {
	return string(task) + ":" + fingerprint
}

// Get retrieves a cached result
func (c *MemoryCache) Get(ctx context.Context, fingerprint string, task domain.TaskType) (*domain.CacheEntry, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[entryKey(fingerprint, task)]
	if !exists {
		return nil, domain.ErrCacheMiss
	}

	if time.Now().After(item.expiration) {
		return nil, domain.ErrCacheMiss
	}

	entry := item.entry
	return &entry, nil
}

// Put stores a result, overwriting any previous entry for the same
// (fingerprint, task) pair
func (c *MemoryCache) Put(ctx context.Context, entry *domain.CacheEntry) error {
	if entry.Fingerprint == "" {
		return domain.ErrInvalidRequest
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	stored := *entry
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	// Copy the payload so later caller mutations cannot reach the cache
	stored.Result = append([]byte(nil), entry.Result...)

	c.data[entryKey(entry.Fingerprint, entry.Task)] = storedEntry{
		entry:      stored,
		expiration: time.Now().Add(c.ttl),
	}

	return nil
}

// Delete removes a cached result
func (c *MemoryCache) Delete(ctx context.Context, fingerprint string, task domain.TaskType) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, entryKey(fingerprint, task))
	return nil
}

// cleanupExpired removes expired entries from the cache periodically
func (c *MemoryCache) cleanupExpired() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mutex.Lock()
		now := time.Now()
		for key, item := range c.data {
			if now.After(item.expiration) {
				delete(c.data, key)
			}
		}
		c.mutex.Unlock()
	}
}

// Size returns the current number of items in the cache (for debugging/monitoring)
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]storedEntry)
}
