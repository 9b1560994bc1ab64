package cache

import (
	"context"
	"sync"
	"time"

	"github.com/auramail/placement-ingest/internal/core"
	"go.uber.org/zap"
)

// memoryEntry is a cached extraction with its insertion time
type memoryEntry struct {
	fields   *core.ExtractedFields
	storedAt time.Time
}

// MemoryCache is an in-memory implementation of the ExtractionCache interface.
// Entries expire after the TTL, and when the cache grows past capacity the
// oldest half is dropped.
type MemoryCache struct {
	entries  map[string]memoryEntry
	order    []string
	mu       sync.RWMutex
	ttl      time.Duration
	capacity int
	logger   *zap.Logger
	trimFreq time.Duration
	stopCh   chan struct{}

	now func() time.Time
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(ttl time.Duration, capacity int, trimFreq time.Duration, logger *zap.Logger) *MemoryCache {
	cache := &MemoryCache{
		entries:  make(map[string]memoryEntry),
		ttl:      ttl,
		capacity: capacity,
		logger:   logger,
		trimFreq: trimFreq,
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}

	// Start background trimming
	go cache.startTrimTask()

	return cache
}

// Get retrieves cached extraction results for a key
func (c *MemoryCache) Get(ctx context.Context, key string) (*core.ExtractedFields, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if c.now().Sub(entry.storedAt) > c.ttl {
		return nil, false
	}

	return entry.fields, true
}

// Set stores extraction results for a key
func (c *MemoryCache) Set(ctx context.Context, key string, fields *core.ExtractedFields) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = memoryEntry{fields: fields, storedAt: c.now()}

	if len(c.entries) > c.capacity {
		c.evictOldestHalf()
	}
}

// evictOldestHalf drops the oldest half of the cache. Caller must hold the lock.
func (c *MemoryCache) evictOldestHalf() {
	drop := len(c.order) / 2
	for _, key := range c.order[:drop] {
		delete(c.entries, key)
	}
	c.order = append([]string(nil), c.order[drop:]...)

	c.logger.Debug("Evicted oldest cache entries",
		zap.Int("evicted", drop),
		zap.Int("remaining", len(c.entries)))
}

// trim removes expired entries and enforces the capacity bound
func (c *MemoryCache) trim() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	expiredCount := 0

	kept := c.order[:0]
	for _, key := range c.order {
		entry, ok := c.entries[key]
		if !ok {
			continue
		}
		if now.Sub(entry.storedAt) > c.ttl {
			delete(c.entries, key)
			expiredCount++
			continue
		}
		kept = append(kept, key)
	}
	c.order = kept

	if len(c.entries) > c.capacity {
		c.evictOldestHalf()
	}

	c.logger.Debug("Trimmed expired cache entries", zap.Int("expired_count", expiredCount))
}

// startTrimTask starts a background task to trim the cache
func (c *MemoryCache) startTrimTask() {
	ticker := time.NewTicker(c.trimFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.trim()
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background trim task
func (c *MemoryCache) Stop() {
	close(c.stopCh)
}
