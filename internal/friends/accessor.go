package friends

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mutualfriends/backend/internal/logging"
	"github.com/mutualfriends/backend/internal/models"
	"github.com/mutualfriends/backend/internal/socialgraph"
)

// DefaultTTL bounds how long a friend set is served without asking the provider again.
const DefaultTTL = time.Hour

// Accessor fetches friend id sets from the social graph provider, fronted by a
// short-term cache. Failures degrade to an empty set.
type Accessor struct {
	provider socialgraph.Provider
	cache    SetCache
	ttl      time.Duration

	group singleflight.Group
}

// NewAccessor wires a provider and an optional cache. A nil cache disables caching.
func NewAccessor(provider socialgraph.Provider, cache SetCache, ttl time.Duration) *Accessor {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Accessor{provider: provider, cache: cache, ttl: ttl}
}

// FriendIDs returns the friend set of userID. Provider errors and empty
// responses both yield an empty set.
func (a *Accessor) FriendIDs(ctx context.Context, userID models.UserID, useCache bool) models.FriendSet {
	if a == nil || userID <= 0 {
		return models.FriendSet{}
	}

	logger := logging.FromContext(ctx)
	useCache = useCache && a.cache != nil

	if useCache {
		set, ok, err := a.cache.Get(ctx, userID)
		if err != nil {
			logger.Warn("friend set cache read failed", "userId", userID, "error", err)
		} else if ok {
			return set
		}
	}

	if a.provider == nil {
		logger.Error("social graph provider unavailable")
		return models.FriendSet{}
	}

	// The fetch is shared by every concurrent caller for userID, so it must not
	// end when the first of them goes away.
	fetchCtx := context.WithoutCancel(ctx)
	v, err, _ := a.group.Do(flightKey(userID), func() (any, error) {
		ids, err := a.provider.FriendIDs(fetchCtx, userID)
		if err != nil {
			return nil, err
		}
		return models.NewFriendSet(ids), nil
	})
	if err != nil {
		logger.Warn("friend list fetch failed", "userId", userID, "error", err)
		return models.FriendSet{}
	}

	set := v.(models.FriendSet)
	if useCache {
		if err := a.cache.Set(ctx, userID, set, a.ttl); err != nil {
			logger.Warn("friend set cache write failed", "userId", userID, "error", err)
		}
	}
	return set
}

// Invalidate drops any cached friend set for userID.
func (a *Accessor) Invalidate(ctx context.Context, userID models.UserID) {
	if a == nil || userID <= 0 {
		return
	}
	a.group.Forget(flightKey(userID))
	if a.cache == nil {
		return
	}
	if err := a.cache.Delete(ctx, userID); err != nil {
		logging.FromContext(ctx).Warn("friend set invalidation failed", "userId", userID, "error", err)
	}
}

func flightKey(userID models.UserID) string {
	return strconv.FormatInt(int64(userID), 10)
}
