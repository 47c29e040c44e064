package resultcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mutualfriends/backend/internal/logging"
	"github.com/mutualfriends/backend/internal/models"
)

// DefaultTTL applies when a write does not specify an expiry.
const DefaultTTL = time.Hour

// Cache is the two-tier result cache. Reads consult the fast tier first and
// backfill it from the durable tier; writes go to both with the same expiry.
// Tier failures are logged and behave like misses. Either tier may be nil.
type Cache struct {
	fast    Tier
	durable DurableTier
	now     func() time.Time
}

// New constructs a Cache over the given tiers.
func New(fast Tier, durable DurableTier) *Cache {
	return &Cache{fast: fast, durable: durable, now: time.Now}
}

// Get returns the cached result for the ordered pair (viewer, target).
func (c *Cache) Get(ctx context.Context, viewer, target models.UserID) (models.CachedResult, bool) {
	if c == nil {
		return models.CachedResult{}, false
	}
	key := Key{Viewer: viewer, Target: target}
	logger := logging.FromContext(ctx)

	if c.fast != nil {
		entry, ok, err := c.fast.Get(ctx, key)
		switch {
		case err != nil:
			lookups.WithLabelValues(tierFast, "error").Inc()
			logger.Warn("fast result cache read failed", "key", key.String(), "error", err)
		case ok:
			lookups.WithLabelValues(tierFast, "hit").Inc()
			return entry, true
		default:
			lookups.WithLabelValues(tierFast, "miss").Inc()
		}
	}

	if c.durable == nil {
		return models.CachedResult{}, false
	}

	entry, ok, err := c.durable.Get(ctx, key)
	if err != nil {
		lookups.WithLabelValues(tierDurable, "error").Inc()
		logger.Warn("durable result cache read failed", "key", key.String(), "error", err)
		return models.CachedResult{}, false
	}
	if !ok || entry.Expired(c.now()) {
		lookups.WithLabelValues(tierDurable, "miss").Inc()
		return models.CachedResult{}, false
	}
	lookups.WithLabelValues(tierDurable, "hit").Inc()

	if c.fast != nil {
		if err := c.fast.Set(ctx, entry); err != nil {
			tierErrors.WithLabelValues(tierFast, "backfill").Inc()
			logger.Warn("fast result cache backfill failed", "key", key.String(), "error", err)
		}
	}
	return entry, true
}

// Set writes result, produced with opts, through to both tiers. The stored
// entry is returned so callers can inspect its expiry.
func (c *Cache) Set(ctx context.Context, viewer, target models.UserID, opts models.QueryOptions, result models.MutualResult, ttl time.Duration) models.CachedResult {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	if c != nil {
		now = c.now()
	}
	entry := models.CachedResult{
		Viewer:    viewer,
		Target:    target,
		Options:   models.QueryOptions{Limit: opts.Limit, Order: opts.Order},
		Result:    result,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if c == nil {
		return entry
	}

	logger := logging.FromContext(ctx)
	if c.fast != nil {
		if err := c.fast.Set(ctx, entry); err != nil {
			tierErrors.WithLabelValues(tierFast, "set").Inc()
			logger.Warn("fast result cache write failed", "viewerId", viewer, "targetId", target, "error", err)
		}
	}
	if c.durable != nil {
		if err := c.durable.Set(ctx, entry); err != nil {
			tierErrors.WithLabelValues(tierDurable, "set").Inc()
			logger.Warn("durable result cache write failed", "viewerId", viewer, "targetId", target, "error", err)
		}
	}
	return entry
}

// InvalidateForUser purges every entry where userID is viewer or target from
// both tiers. Failures are logged; the remaining entries expire with their TTL.
func (c *Cache) InvalidateForUser(ctx context.Context, userID models.UserID) {
	if c == nil || userID <= 0 {
		return
	}
	logger := logging.FromContext(ctx)

	if c.fast != nil {
		n, err := c.fast.InvalidateUser(ctx, userID)
		if err != nil {
			tierErrors.WithLabelValues(tierFast, "invalidate").Inc()
			logger.Warn("fast result cache invalidation failed", "userId", userID, "error", err)
		}
		invalidated.WithLabelValues(tierFast).Add(float64(n))
	}
	if c.durable != nil {
		n, err := c.durable.InvalidateUser(ctx, userID)
		if err != nil {
			tierErrors.WithLabelValues(tierDurable, "invalidate").Inc()
			logger.Warn("durable result cache invalidation failed", "userId", userID, "error", err)
		}
		invalidated.WithLabelValues(tierDurable).Add(float64(n))
	}
}

// ClearAll drops every entry in both tiers. Both tiers are attempted even when
// the first fails.
func (c *Cache) ClearAll(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.fast != nil {
		if err := c.fast.Clear(ctx); err != nil {
			tierErrors.WithLabelValues(tierFast, "clear").Inc()
			errs = append(errs, fmt.Errorf("clear fast tier: %w", err))
		}
	}
	if c.durable != nil {
		if err := c.durable.Clear(ctx); err != nil {
			tierErrors.WithLabelValues(tierDurable, "clear").Inc()
			errs = append(errs, fmt.Errorf("clear durable tier: %w", err))
		}
	}
	return errors.Join(errs...)
}

// CleanupExpired removes expired rows from the durable tier. The fast tier
// drops expired entries on its own.
func (c *Cache) CleanupExpired(ctx context.Context) (int64, error) {
	if c == nil || c.durable == nil {
		return 0, nil
	}
	n, err := c.durable.CleanupExpired(ctx, c.now())
	if err != nil {
		tierErrors.WithLabelValues(tierDurable, "cleanup").Inc()
		return 0, fmt.Errorf("cleanup expired results: %w", err)
	}
	expiredSwept.Add(float64(n))
	return n, nil
}

// MemoryDurableTier is an in-process DurableTier for tests and local runs
// without a database.
type MemoryDurableTier struct {
	*MemoryTier
}

// NewMemoryDurableTier returns an in-memory durable tier holding at most maxEntries results.
func NewMemoryDurableTier(maxEntries int) (*MemoryDurableTier, error) {
	tier, err := NewMemoryTier(maxEntries)
	if err != nil {
		return nil, err
	}
	return &MemoryDurableTier{MemoryTier: tier}, nil
}

// CleanupExpired removes entries that expired at or before now.
func (t *MemoryDurableTier) CleanupExpired(_ context.Context, now time.Time) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var removed int64
	for _, key := range t.items.Keys() {
		entry, ok := t.items.Peek(key)
		if ok && entry.Expired(now) {
			t.items.Remove(key)
			removed++
		}
	}
	return removed, nil
}

var _ DurableTier = (*MemoryDurableTier)(nil)
