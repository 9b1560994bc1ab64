package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/auramail/placement-ingest/internal/core"
)

func newTestCache(t *testing.T, ttl time.Duration, capacity int) *MemoryCache {
	t.Helper()
	c := NewMemoryCache(ttl, capacity, time.Hour, zap.NewNop())
	t.Cleanup(c.Stop)
	return c
}

func sampleFields(summary string) *core.ExtractedFields {
	return &core.ExtractedFields{Summary: &summary}
}

func TestMemoryCache_SetGet(t *testing.T) {
	c := newTestCache(t, time.Hour, 10)
	ctx := context.Background()

	c.Set(ctx, "key", sampleFields("hello"))

	got, ok := c.Get(ctx, "key")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.Summary == nil || *got.Summary != "hello" {
		t.Errorf("unexpected cached value: %v", got.Summary)
	}

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestMemoryCache_TTLExpiry(t *testing.T) {
	c := newTestCache(t, time.Hour, 10)
	ctx := context.Background()

	current := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	c.Set(ctx, "key", sampleFields("hello"))

	current = current.Add(30 * time.Minute)
	if _, ok := c.Get(ctx, "key"); !ok {
		t.Fatal("entry must survive within the TTL")
	}

	current = current.Add(time.Hour)
	if _, ok := c.Get(ctx, "key"); ok {
		t.Fatal("entry must expire after the TTL")
	}
}

func TestMemoryCache_CapacityEvictsOldestHalf(t *testing.T) {
	c := newTestCache(t, time.Hour, 4)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		c.Set(ctx, fmt.Sprintf("key-%d", i), sampleFields("v"))
	}

	// Inserting the fifth entry tips the cache past capacity; the oldest
	// half of the insertion order is dropped.
	if _, ok := c.Get(ctx, "key-0"); ok {
		t.Error("oldest entry must be evicted")
	}
	if _, ok := c.Get(ctx, "key-1"); ok {
		t.Error("second-oldest entry must be evicted")
	}
	if _, ok := c.Get(ctx, "key-4"); !ok {
		t.Error("newest entry must survive eviction")
	}
}

func TestMemoryCache_SetOverwrites(t *testing.T) {
	c := newTestCache(t, time.Hour, 10)
	ctx := context.Background()

	c.Set(ctx, "key", sampleFields("first"))
	c.Set(ctx, "key", sampleFields("second"))

	got, ok := c.Get(ctx, "key")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if *got.Summary != "second" {
		t.Errorf("expected overwrite, got %q", *got.Summary)
	}
	if len(c.order) != 1 {
		t.Errorf("overwrite must not duplicate the order entry, got %d", len(c.order))
	}
}

func TestMemoryCache_TrimDropsExpired(t *testing.T) {
	c := newTestCache(t, time.Hour, 10)
	ctx := context.Background()

	current := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	c.Set(ctx, "old", sampleFields("old"))
	current = current.Add(2 * time.Hour)
	c.Set(ctx, "fresh", sampleFields("fresh"))

	c.trim()

	if _, ok := c.entries["old"]; ok {
		t.Error("expired entry must be removed by trim")
	}
	if _, ok := c.Get(ctx, "fresh"); !ok {
		t.Error("fresh entry must survive trim")
	}
	if len(c.order) != 1 {
		t.Errorf("order must track surviving entries, got %d", len(c.order))
	}
}
