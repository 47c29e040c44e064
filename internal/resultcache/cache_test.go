package resultcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mutualfriends/backend/internal/models"
)

func entryFor(viewer, target models.UserID, expires time.Time) models.CachedResult {
	return models.CachedResult{
		Viewer:    viewer,
		Target:    target,
		Options:   models.QueryOptions{Limit: 3, Order: models.OrderRandom},
		Result:    models.MutualResult{Count: 1, Friends: []models.FriendSummary{{ID: 9}}},
		ExpiresAt: expires,
	}
}

func newMemoryTier(t *testing.T, size int) *MemoryTier {
	t.Helper()
	tier, err := NewMemoryTier(size)
	if err != nil {
		t.Fatalf("new memory tier: %v", err)
	}
	return tier
}

func TestMemoryTierExpiry(t *testing.T) {
	tier := newMemoryTier(t, 10)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tier.now = func() time.Time { return now }
	ctx := context.Background()

	if err := tier.Set(ctx, entryFor(1, 2, now.Add(time.Minute))); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, _ := tier.Get(ctx, Key{1, 2}); !ok {
		t.Fatal("expected fresh entry")
	}
	if _, ok, _ := tier.Get(ctx, Key{2, 1}); ok {
		t.Fatal("reverse pair must be cached independently")
	}

	now = now.Add(time.Minute)
	if _, ok, _ := tier.Get(ctx, Key{1, 2}); ok {
		t.Fatal("expected entry to expire at its deadline")
	}
	if tier.Len() != 0 {
		t.Fatalf("expected expired entry dropped, len %d", tier.Len())
	}
}

func TestMemoryTierInvalidateUser(t *testing.T) {
	tier := newMemoryTier(t, 10)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	for _, pair := range [][2]models.UserID{{1, 2}, {3, 1}, {2, 3}, {4, 5}} {
		if err := tier.Set(ctx, entryFor(pair[0], pair[1], expires)); err != nil {
			t.Fatalf("set: %v", err)
		}
	}

	removed, err := tier.InvalidateUser(ctx, 1)
	if err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 entries removed got %d", removed)
	}
	for _, key := range []Key{{1, 2}, {3, 1}} {
		if _, ok, _ := tier.Get(ctx, key); ok {
			t.Fatalf("expected %s purged", key)
		}
	}
	for _, key := range []Key{{2, 3}, {4, 5}} {
		if _, ok, _ := tier.Get(ctx, key); !ok {
			t.Fatalf("expected %s kept", key)
		}
	}

	removed, _ = tier.InvalidateUser(ctx, 1)
	if removed != 0 {
		t.Fatalf("repeated invalidation should be a no-op, removed %d", removed)
	}
}

func TestMemoryTierEvictionMaintainsIndex(t *testing.T) {
	tier := newMemoryTier(t, 2)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	_ = tier.Set(ctx, entryFor(1, 2, expires))
	_ = tier.Set(ctx, entryFor(3, 4, expires))
	_ = tier.Set(ctx, entryFor(5, 6, expires))

	if tier.Len() != 2 {
		t.Fatalf("expected capacity 2 got %d", tier.Len())
	}
	if _, ok := tier.byUser[1]; ok {
		t.Fatal("evicted entry should leave the user index")
	}
	if _, ok := tier.byUser[2]; ok {
		t.Fatal("evicted entry should leave the user index")
	}

	if err := tier.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if tier.Len() != 0 || len(tier.byUser) != 0 {
		t.Fatal("expected empty tier after clear")
	}
}

type failingTier struct{}

var errDown = errors.New("tier down")

func (failingTier) Get(context.Context, Key) (models.CachedResult, bool, error) {
	return models.CachedResult{}, false, errDown
}
func (failingTier) Set(context.Context, models.CachedResult) error { return errDown }
func (failingTier) InvalidateUser(context.Context, models.UserID) (int, error) {
	return 0, errDown
}
func (failingTier) Clear(context.Context) error { return errDown }

func newDurable(t *testing.T) *MemoryDurableTier {
	t.Helper()
	tier, err := NewMemoryDurableTier(100)
	if err != nil {
		t.Fatalf("new durable tier: %v", err)
	}
	return tier
}

func TestCacheBackfillsFastTier(t *testing.T) {
	fast := newMemoryTier(t, 10)
	durable := newDurable(t)
	cache := New(fast, durable)
	ctx := context.Background()

	if err := durable.Set(ctx, entryFor(1, 2, time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("seed durable: %v", err)
	}

	entry, ok := cache.Get(ctx, 1, 2)
	if !ok || entry.Result.Count != 1 {
		t.Fatalf("expected durable hit got %+v %v", entry, ok)
	}
	if _, ok, _ := fast.Get(ctx, Key{1, 2}); !ok {
		t.Fatal("expected fast tier backfilled")
	}
}

func TestCacheWriteThroughAndInvalidate(t *testing.T) {
	fast := newMemoryTier(t, 10)
	durable := newDurable(t)
	cache := New(fast, durable)
	ctx := context.Background()

	opts := models.QueryOptions{Limit: 2, Order: models.OrderStable, UseCache: true}
	written := cache.Set(ctx, 1, 2, opts, models.EmptyResult(), 10*time.Minute)
	cache.Set(ctx, 7, 8, opts, models.EmptyResult(), 10*time.Minute)

	if written.Options.UseCache {
		t.Fatal("use_cache is not part of the stored shape")
	}
	fastEntry, ok, _ := fast.Get(ctx, Key{1, 2})
	if !ok {
		t.Fatal("expected fast tier write")
	}
	durableEntry, ok, _ := durable.Get(ctx, Key{1, 2})
	if !ok {
		t.Fatal("expected durable tier write")
	}
	if !fastEntry.ExpiresAt.Equal(durableEntry.ExpiresAt) {
		t.Fatal("expected both tiers to share the same expiry")
	}

	cache.InvalidateForUser(ctx, 2)
	if _, ok := cache.Get(ctx, 1, 2); ok {
		t.Fatal("expected entry involving user 2 purged from both tiers")
	}
	if _, ok := cache.Get(ctx, 7, 8); !ok {
		t.Fatal("unrelated entry should survive")
	}

	if err := cache.ClearAll(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := cache.Get(ctx, 7, 8); ok {
		t.Fatal("expected cache cleared")
	}
}

func TestCacheToleratesTierFailures(t *testing.T) {
	durable := newDurable(t)
	cache := New(failingTier{}, durable)
	ctx := context.Background()

	cache.Set(ctx, 1, 2, models.QueryOptions{Limit: 1}, models.EmptyResult(), time.Minute)
	if _, ok := cache.Get(ctx, 1, 2); !ok {
		t.Fatal("expected durable tier to serve when the fast tier fails")
	}

	cache.InvalidateForUser(ctx, 1)
	if _, ok := cache.Get(ctx, 1, 2); ok {
		t.Fatal("expected durable invalidation despite fast tier failure")
	}

	if err := cache.ClearAll(ctx); !errors.Is(err, errDown) {
		t.Fatalf("expected clear to report the failing tier got %v", err)
	}

	allDown := New(failingTier{}, nil)
	if _, ok := allDown.Get(ctx, 1, 2); ok {
		t.Fatal("expected miss when every tier fails")
	}
}

func TestCacheCleanupExpired(t *testing.T) {
	durable := newDurable(t)
	cache := New(nil, durable)
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	durable.now = cache.now
	ctx := context.Background()

	_ = durable.Set(ctx, entryFor(1, 2, now.Add(time.Hour)))
	_ = durable.Set(ctx, entryFor(3, 4, now.Add(2*time.Hour)))

	now = now.Add(90 * time.Minute)
	removed, err := cache.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 expired row removed got %d", removed)
	}
	if durable.Len() != 1 {
		t.Fatalf("expected one live row left got %d", durable.Len())
	}

	var nilCache *Cache
	if n, err := nilCache.CleanupExpired(ctx); n != 0 || err != nil {
		t.Fatalf("nil cache cleanup should be a no-op got %d %v", n, err)
	}
}
