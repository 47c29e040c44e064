package friends

import (
	"context"
	"sync"
	"time"

	"github.com/mutualfriends/backend/internal/models"
)

// SetCache stores friend sets for a short period so that bursts of requests do
// not repeatedly hit the social graph provider.
type SetCache interface {
	Get(ctx context.Context, userID models.UserID) (models.FriendSet, bool, error)
	Set(ctx context.Context, userID models.UserID, set models.FriendSet, ttl time.Duration) error
	Delete(ctx context.Context, userID models.UserID) error
}

type cacheEntry struct {
	set     models.FriendSet
	expires time.Time
}

// MemorySetCache is a process-local SetCache with per-entry expiry.
type MemorySetCache struct {
	mu    sync.RWMutex
	items map[models.UserID]cacheEntry
	now   func() time.Time
}

// NewMemorySetCache returns an empty in-memory friend set cache.
func NewMemorySetCache() *MemorySetCache {
	return &MemorySetCache{
		items: make(map[models.UserID]cacheEntry),
		now:   time.Now,
	}
}

// Get returns the cached set when present and not yet expired.
func (c *MemorySetCache) Get(_ context.Context, userID models.UserID) (models.FriendSet, bool, error) {
	c.mu.RLock()
	entry, ok := c.items[userID]
	c.mu.RUnlock()
	if !ok || !c.now().Before(entry.expires) {
		return nil, false, nil
	}
	return entry.set, true, nil
}

// Set replaces the cached set for userID.
func (c *MemorySetCache) Set(_ context.Context, userID models.UserID, set models.FriendSet, ttl time.Duration) error {
	now := c.now()

	c.mu.Lock()
	c.items[userID] = cacheEntry{set: set, expires: now.Add(ttl)}
	c.sweepLocked(now)
	c.mu.Unlock()
	return nil
}

// Delete drops the cached set for userID.
func (c *MemorySetCache) Delete(_ context.Context, userID models.UserID) error {
	c.mu.Lock()
	delete(c.items, userID)
	c.mu.Unlock()
	return nil
}

func (c *MemorySetCache) sweepLocked(now time.Time) {
	for id, entry := range c.items {
		if !now.Before(entry.expires) {
			delete(c.items, id)
		}
	}
}

var _ SetCache = (*MemorySetCache)(nil)
