package resultcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mutualfriends/backend/internal/models"
)

// DefaultMaxEntries bounds the in-process tier when no capacity is configured.
const DefaultMaxEntries = 1000

// MemoryTier is a bounded in-process tier. Least recently used entries are
// evicted once capacity is reached and a per-user index keeps invalidation
// proportional to the entries involved.
type MemoryTier struct {
	mu     sync.Mutex
	items  *lru.Cache[Key, models.CachedResult]
	byUser map[models.UserID]map[Key]struct{}
	now    func() time.Time
}

// NewMemoryTier returns an empty tier holding at most maxEntries results.
func NewMemoryTier(maxEntries int) (*MemoryTier, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	t := &MemoryTier{
		byUser: make(map[models.UserID]map[Key]struct{}),
		now:    time.Now,
	}
	items, err := lru.NewWithEvict(maxEntries, t.onEvict)
	if err != nil {
		return nil, fmt.Errorf("create memory tier: %w", err)
	}
	t.items = items
	return t, nil
}

// onEvict runs inside lru calls, which are always made with t.mu held.
func (t *MemoryTier) onEvict(key Key, _ models.CachedResult) {
	t.unindex(key.Viewer, key)
	t.unindex(key.Target, key)
}

func (t *MemoryTier) index(userID models.UserID, key Key) {
	keys, ok := t.byUser[userID]
	if !ok {
		keys = make(map[Key]struct{})
		t.byUser[userID] = keys
	}
	keys[key] = struct{}{}
}

func (t *MemoryTier) unindex(userID models.UserID, key Key) {
	keys, ok := t.byUser[userID]
	if !ok {
		return
	}
	delete(keys, key)
	if len(keys) == 0 {
		delete(t.byUser, userID)
	}
}

// Get returns the entry for key if it has not expired. Expired entries are dropped.
func (t *MemoryTier) Get(_ context.Context, key Key) (models.CachedResult, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.items.Get(key)
	if !ok {
		return models.CachedResult{}, false, nil
	}
	if entry.Expired(t.now()) {
		t.items.Remove(key)
		return models.CachedResult{}, false, nil
	}
	return entry, true, nil
}

// Set stores entry, replacing any previous result for the same pair.
func (t *MemoryTier) Set(_ context.Context, entry models.CachedResult) error {
	key := KeyOf(entry)

	t.mu.Lock()
	defer t.mu.Unlock()

	if entry.Expired(t.now()) {
		t.items.Remove(key)
		return nil
	}
	t.items.Add(key, entry)
	t.index(key.Viewer, key)
	t.index(key.Target, key)
	return nil
}

// InvalidateUser removes every entry involving userID.
func (t *MemoryTier) InvalidateUser(_ context.Context, userID models.UserID) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	keys := t.byUser[userID]
	if len(keys) == 0 {
		return 0, nil
	}

	victims := make([]Key, 0, len(keys))
	for key := range keys {
		victims = append(victims, key)
	}

	removed := 0
	for _, key := range victims {
		if t.items.Remove(key) {
			removed++
		}
	}
	delete(t.byUser, userID)
	return removed, nil
}

// Clear drops every entry.
func (t *MemoryTier) Clear(context.Context) error {
	t.mu.Lock()
	t.items.Purge()
	t.byUser = make(map[models.UserID]map[Key]struct{})
	t.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (t *MemoryTier) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.items.Len()
}

var _ Tier = (*MemoryTier)(nil)
