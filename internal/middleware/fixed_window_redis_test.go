package middleware_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutualfriends/backend/internal/middleware"
)

func newRedisClient(t *testing.T) (*miniredis.Miniredis, rueidis.Client) {
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

func TestRedisWindowLimiter(t *testing.T) {
	t.Parallel()
	mr, client := newRedisClient(t)

	limiter := middleware.NewRedisWindowLimiter(client, 30, time.Minute)
	ctx := t.Context()

	for i := 1; i <= 30; i++ {
		ok, err := limiter.Allow(ctx, "42")
		require.NoError(t, err)
		require.True(t, ok, "request %d should pass", i)
	}

	ok, err := limiter.Allow(ctx, "42")
	require.NoError(t, err)
	assert.False(t, ok, "31st request must be rejected")

	assert.Equal(t, time.Minute, mr.TTL(middleware.CallerLimitKeyPrefix+"42"))

	mr.FastForward(time.Minute)
	ok, err = limiter.Allow(ctx, "42")
	require.NoError(t, err)
	assert.True(t, ok, "counter should reset with the window")
}

func TestRedisWindowLimiterRepairsMissingTTL(t *testing.T) {
	t.Parallel()
	mr, client := newRedisClient(t)

	key := middleware.CallerLimitKeyPrefix + "7"
	require.NoError(t, mr.Set(key, "30"))
	require.Zero(t, mr.TTL(key))

	limiter := middleware.NewRedisWindowLimiter(client, 30, time.Minute)
	ctx := t.Context()

	ok, err := limiter.Allow(ctx, "7")
	require.NoError(t, err)
	assert.False(t, ok, "counter over the limit rejects")
	assert.Equal(t, time.Minute, mr.TTL(key), "stray counter should get a ttl")

	ok, err = limiter.Allow(ctx, "7")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, mr.TTL(key), "nx keeps the running window")

	mr.FastForward(time.Minute)
	ok, err = limiter.Allow(ctx, "7")
	require.NoError(t, err)
	assert.True(t, ok, "caller recovers once the window passes")
}
