package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/rueidis"
)

const (
	// DefaultCallerLimit and DefaultCallerWindow bound mutual friend lookups per caller.
	DefaultCallerLimit  = 30
	DefaultCallerWindow = 60 * time.Second

	// CallerLimitKeyPrefix identifies fixed-window counters in Redis.
	CallerLimitKeyPrefix = "mutuals:ratelimit:"
)

// WindowLimiter counts calls per key in fixed windows. The first limit calls in
// a window are allowed; every later call in that window is rejected.
type WindowLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type window struct {
	start time.Time
	count int
}

// FixedWindowLimiter is a process-local WindowLimiter.
type FixedWindowLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// NewFixedWindowLimiter allows limit calls per key in each window.
func NewFixedWindowLimiter(limit int, size time.Duration) *FixedWindowLimiter {
	if limit <= 0 {
		limit = DefaultCallerLimit
	}
	if size <= 0 {
		size = DefaultCallerWindow
	}
	return &FixedWindowLimiter{
		limit:   limit,
		window:  size,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow counts the call and reports whether it fits in the current window.
func (l *FixedWindowLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.gcLocked(now)
		w = &window{start: now}
		l.windows[key] = w
	}
	w.count++
	return w.count <= l.limit, nil
}

func (l *FixedWindowLimiter) gcLocked(now time.Time) {
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.window {
			delete(l.windows, key)
		}
	}
}

// RedisWindowLimiter shares fixed-window counters between instances. INCR is
// atomic, so concurrent calls from one caller are never undercounted.
type RedisWindowLimiter struct {
	client rueidis.Client
	limit  int
	window time.Duration
}

// NewRedisWindowLimiter allows limit calls per key in each window.
func NewRedisWindowLimiter(client rueidis.Client, limit int, size time.Duration) *RedisWindowLimiter {
	if limit <= 0 {
		limit = DefaultCallerLimit
	}
	if size < time.Second {
		size = DefaultCallerWindow
	}
	return &RedisWindowLimiter{client: client, limit: limit, window: size}
}

// Allow increments the caller's counter. EXPIRE NX rides along with every
// INCR, so a counter left without a TTL gets one on the next call.
func (l *RedisWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := CallerLimitKeyPrefix + key

	resps := l.client.DoMulti(ctx,
		l.client.B().Incr().Key(redisKey).Build(),
		l.client.B().Expire().Key(redisKey).Seconds(int64(l.window/time.Second)).Nx().Build(),
	)
	count, err := resps[0].AsInt64()
	if err != nil {
		return false, fmt.Errorf("increment rate counter: %w", err)
	}
	if err := resps[1].Error(); err != nil {
		return false, fmt.Errorf("expire rate counter: %w", err)
	}
	return count <= int64(l.limit), nil
}

var (
	_ WindowLimiter = (*FixedWindowLimiter)(nil)
	_ WindowLimiter = (*RedisWindowLimiter)(nil)
)
