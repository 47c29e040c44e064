package resultcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mutualfriends/backend/internal/models"
)

// ErrTierUnavailable indicates a cache tier could not be reached.
var ErrTierUnavailable = errors.New("result cache tier unavailable")

// Key identifies a cached tooltip result. The pair is ordered: (A,B) and (B,A)
// are stored independently because privacy gating depends on the viewer.
type Key struct {
	Viewer models.UserID
	Target models.UserID
}

// KeyOf returns the key an entry is stored under.
func KeyOf(entry models.CachedResult) Key {
	return Key{Viewer: entry.Viewer, Target: entry.Target}
}

// Involves reports whether userID is either member of the pair.
func (k Key) Involves(userID models.UserID) bool {
	return k.Viewer == userID || k.Target == userID
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%d", k.Viewer, k.Target)
}

// Tier is one layer of the result cache. Get must not return expired entries.
type Tier interface {
	Get(ctx context.Context, key Key) (models.CachedResult, bool, error)
	Set(ctx context.Context, entry models.CachedResult) error
	// InvalidateUser removes every entry where userID is viewer or target and
	// returns how many entries were removed.
	InvalidateUser(ctx context.Context, userID models.UserID) (int, error)
	Clear(ctx context.Context) error
}

// DurableTier survives restarts and needs an explicit sweep of expired rows.
type DurableTier interface {
	Tier
	CleanupExpired(ctx context.Context, now time.Time) (int64, error)
}
