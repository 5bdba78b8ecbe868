package access

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/storeforge/access-plane/authz"
)

// cacheEntry represents a single cache entry with TTL
type cacheEntry struct {
	userID     uuid.UUID
	perms      authz.PermissionSet
	insertedAt time.Time
	element    *list.Element // For LRU tracking
}

// isExpired checks if the cache entry has expired
func (e *cacheEntry) isExpired(ttl time.Duration) bool {
	return time.Since(e.insertedAt) > ttl
}

// PermissionCache is an in-memory LRU cache with TTL for resolved permission sets
// Thread-safe implementation using sync.RWMutex
type PermissionCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*cacheEntry
	lruList *list.List    // Doubly linked list for LRU tracking
	maxSize int           // Maximum number of entries
	ttl     time.Duration // Time-to-live for entries
	hits    uint64        // Cache hit counter
	misses  uint64        // Cache miss counter
}

// NewPermissionCache creates a new PermissionCache with specified max size and TTL
func NewPermissionCache(maxSize int, ttl time.Duration) *PermissionCache {
	return &PermissionCache{
		entries: make(map[uuid.UUID]*cacheEntry),
		lruList: list.New(),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get retrieves a resolved permission set from cache
// Returns nil and false if not found or expired
func (c *PermissionCache) Get(userID uuid.UUID) (authz.PermissionSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[userID]

	// Check if entry exists and is not expired
	if !exists || entry.isExpired(c.ttl) {
		c.misses++
		if exists {
			// Remove expired entry
			c.removeEntry(userID)
		}
		return nil, false
	}

	// Move to front (most recently used)
	c.lruList.MoveToFront(entry.element)
	c.hits++

	return entry.perms, true
}

// Set stores a resolved permission set in cache
func (c *PermissionCache) Set(userID uuid.UUID, perms authz.PermissionSet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Check if entry already exists
	if entry, exists := c.entries[userID]; exists {
		// Update existing entry
		entry.perms = perms
		entry.insertedAt = time.Now()
		c.lruList.MoveToFront(entry.element)
		return
	}

	// Evict least recently used entry if cache is full
	if c.lruList.Len() >= c.maxSize {
		c.evictLRU()
	}

	// Create new entry
	entry := &cacheEntry{
		userID:     userID,
		perms:      perms,
		insertedAt: time.Now(),
	}

	// Add to front of LRU list
	entry.element = c.lruList.PushFront(userID)
	c.entries[userID] = entry
}

// Invalidate removes a specific cache entry
func (c *PermissionCache) Invalidate(userID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeEntry(userID)
}

// Clear removes all entries from the cache
func (c *PermissionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[uuid.UUID]*cacheEntry)
	c.lruList.Init()
}

// CacheStats represents cache statistics
type CacheStats struct {
	Size    int
	MaxSize int
	Hits    uint64
	Misses  uint64
	HitRate float64
}

// Stats returns cache statistics
func (c *PermissionCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return CacheStats{
		Size:    c.lruList.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: c.calculateHitRate(),
	}
}

// calculateHitRate calculates the cache hit rate
func (c *PermissionCache) calculateHitRate() float64 {
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}

// removeEntry removes an entry from the cache (must be called with lock held)
func (c *PermissionCache) removeEntry(userID uuid.UUID) {
	if entry, exists := c.entries[userID]; exists {
		c.lruList.Remove(entry.element)
		delete(c.entries, userID)
	}
}

// evictLRU evicts the least recently used entry (must be called with lock held)
func (c *PermissionCache) evictLRU() {
	if c.lruList.Len() == 0 {
		return
	}

	// Remove from back (least recently used)
	backElement := c.lruList.Back()
	if backElement != nil {
		userID := backElement.Value.(uuid.UUID)
		c.lruList.Remove(backElement)
		delete(c.entries, userID)
	}
}

// CleanupExpired removes all expired entries
// Should be called periodically in a background goroutine
func (c *PermissionCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	expired := make([]uuid.UUID, 0)

	for userID, entry := range c.entries {
		if entry.isExpired(c.ttl) {
			expired = append(expired, userID)
		}
	}

	for _, userID := range expired {
		c.removeEntry(userID)
	}

	return len(expired)
}

// StartCleanupWorker starts a background worker to periodically clean up expired entries
func (c *PermissionCache) StartCleanupWorker(interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CleanupExpired()
		case <-stopCh:
			return
		}
	}
}
