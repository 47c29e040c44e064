package resultcache_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutualfriends/backend/internal/models"
	"github.com/mutualfriends/backend/internal/resultcache"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, rueidis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func cached(viewer, target models.UserID, ttl time.Duration) models.CachedResult {
	now := time.Now().UTC().Truncate(time.Second)
	return models.CachedResult{
		Viewer:    viewer,
		Target:    target,
		Options:   models.QueryOptions{Limit: 3, Order: models.OrderRandom},
		Result:    models.MutualResult{Count: 2, Friends: []models.FriendSummary{{ID: 3, DisplayName: "Cleo"}}},
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestRedisTierRoundTrip(t *testing.T) {
	t.Parallel()
	mr, client := setupRedis(t)
	tier := resultcache.NewRedisTier(client)
	ctx := t.Context()

	_, ok, err := tier.Get(ctx, resultcache.Key{Viewer: 1, Target: 2})
	require.NoError(t, err)
	assert.False(t, ok)

	entry := cached(1, 2, 10*time.Minute)
	require.NoError(t, tier.Set(ctx, entry))

	got, ok, err := tier.Get(ctx, resultcache.Key{Viewer: 1, Target: 2})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entry.Result, got.Result)
	assert.Equal(t, entry.Options, got.Options)

	_, ok, err = tier.Get(ctx, resultcache.Key{Viewer: 2, Target: 1})
	require.NoError(t, err)
	assert.False(t, ok, "reverse pair is a distinct key")

	assert.True(t, mr.Exists(resultcache.UserIndexPrefix+"1"))
	assert.True(t, mr.Exists(resultcache.UserIndexPrefix+"2"))

	mr.FastForward(11 * time.Minute)
	_, ok, err = tier.Get(ctx, resultcache.Key{Viewer: 1, Target: 2})
	require.NoError(t, err)
	assert.False(t, ok, "entry should expire with its ttl")
}

func TestRedisTierInvalidateUser(t *testing.T) {
	t.Parallel()
	mr, client := setupRedis(t)
	tier := resultcache.NewRedisTier(client)
	ctx := t.Context()

	require.NoError(t, tier.Set(ctx, cached(1, 2, time.Hour)))
	require.NoError(t, tier.Set(ctx, cached(3, 1, time.Hour)))
	require.NoError(t, tier.Set(ctx, cached(2, 3, time.Hour)))

	removed, err := tier.InvalidateUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.False(t, mr.Exists(resultcache.UserIndexPrefix+"1"))

	for _, key := range []resultcache.Key{{Viewer: 1, Target: 2}, {Viewer: 3, Target: 1}} {
		_, ok, err := tier.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, "entry %s should be purged", key)
	}
	_, ok, err := tier.Get(ctx, resultcache.Key{Viewer: 2, Target: 3})
	require.NoError(t, err)
	assert.True(t, ok)

	removed, err = tier.InvalidateUser(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestRedisTierInvalidateUserAcrossSlots(t *testing.T) {
	t.Parallel()
	_, client := setupRedis(t)
	tier := resultcache.NewRedisTier(client)
	ctx := t.Context()

	for target := models.UserID(2); target <= 9; target++ {
		require.NoError(t, tier.Set(ctx, cached(1, target, time.Hour)))
	}
	require.NoError(t, tier.Set(ctx, cached(20, 1, time.Hour)))

	removed, err := tier.InvalidateUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 9, removed)

	for target := models.UserID(2); target <= 9; target++ {
		_, ok, err := tier.Get(ctx, resultcache.Key{Viewer: 1, Target: target})
		require.NoError(t, err)
		assert.False(t, ok, "entry 1:%d should be purged", target)
	}
}

func TestRedisTierClear(t *testing.T) {
	t.Parallel()
	mr, client := setupRedis(t)
	tier := resultcache.NewRedisTier(client)
	ctx := t.Context()

	require.NoError(t, mr.Set("unrelated", "keep"))
	for i := models.UserID(1); i <= 30; i++ {
		require.NoError(t, tier.Set(ctx, cached(i, i+100, time.Hour)))
	}

	require.NoError(t, tier.Clear(ctx))

	for _, key := range mr.Keys() {
		assert.NotContains(t, key, "mutuals:", "key %s should be cleared", key)
	}
	assert.True(t, mr.Exists("unrelated"))
}

func TestRedisTierSkipsExpiredWrites(t *testing.T) {
	t.Parallel()
	mr, client := setupRedis(t)
	tier := resultcache.NewRedisTier(client)

	require.NoError(t, tier.Set(t.Context(), cached(1, 2, -time.Minute)))
	assert.Empty(t, mr.Keys())
}
