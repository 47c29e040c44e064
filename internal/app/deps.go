package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/rueidis"

	"github.com/mutualfriends/backend/internal/auth"
	"github.com/mutualfriends/backend/internal/config"
	"github.com/mutualfriends/backend/internal/db"
	"github.com/mutualfriends/backend/internal/friends"
	"github.com/mutualfriends/backend/internal/handlers"
	"github.com/mutualfriends/backend/internal/invalidation"
	"github.com/mutualfriends/backend/internal/maintenance"
	"github.com/mutualfriends/backend/internal/middleware"
	"github.com/mutualfriends/backend/internal/mutuals"
	"github.com/mutualfriends/backend/internal/render"
	"github.com/mutualfriends/backend/internal/repositories"
	"github.com/mutualfriends/backend/internal/resultcache"
	"github.com/mutualfriends/backend/internal/service"
	"github.com/mutualfriends/backend/internal/settings"
	"github.com/mutualfriends/backend/internal/socialgraph"
)

// components holds the wired service graph.
type components struct {
	handlers  handlers.Dependencies
	cache     *resultcache.Cache
	sessions  *auth.Manager
	bus       *socialgraph.Bus
	listener  *invalidation.Listener
	scheduler *maintenance.Scheduler
	ipLimiter *middleware.IPRateLimiter
}

// newRedisClient connects to Redis when the configuration asks for it. A nil
// client selects the in-process backends.
func newRedisClient(cfg config.Config) (rueidis.Client, error) {
	if cfg.FastCache != config.FastCacheRedis {
		return nil, nil
	}
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{cfg.RedisAddr},
		Username:     cfg.RedisUsername,
		Password:     cfg.RedisPassword,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, redis rueidis.Client, cfg config.Config, logger *slog.Logger) (*components, error) {
	if logger == nil {
		logger = slog.Default()
	}

	graph := repositories.NewPostgresGraphRepository(pool)

	settingsManager := settings.NewManager(repositories.NewPostgresSettingsStore(pool))
	if err := settingsManager.Load(ctx); err != nil {
		logger.Warn("using default settings", "error", err)
	}

	var (
		fastTier resultcache.Tier
		setCache friends.SetCache
		limiter  middleware.WindowLimiter
	)
	if redis != nil {
		fastTier = resultcache.NewRedisTier(redis)
		setCache = friends.NewRedisSetCache(redis)
		limiter = middleware.NewRedisWindowLimiter(redis, cfg.RateLimit, cfg.RateWindow)
	} else {
		memoryTier, err := resultcache.NewMemoryTier(cfg.FastCacheEntries)
		if err != nil {
			return nil, fmt.Errorf("create fast result tier: %w", err)
		}
		fastTier = memoryTier
		setCache = friends.NewMemorySetCache()
		limiter = middleware.NewFixedWindowLimiter(cfg.RateLimit, cfg.RateWindow)
	}
	cache := resultcache.New(fastTier, repositories.NewPostgresResultTier(pool))

	accessor := friends.NewAccessor(graph, setCache, cfg.FriendSetTTL)
	engine := mutuals.NewEngine(accessor, graph, mutuals.Strategies{
		Privacy: mutuals.NewVisibilityPolicy(graph, settingsManager),
	})

	renderer, err := render.New()
	if err != nil {
		return nil, err
	}

	sessions := auth.NewManager(cfg.AccessTokenTTL, cfg.RefreshTokenTTL, repositories.NewPostgresSessionStore(pool))

	svc := service.New(service.Dependencies{
		Auth:     sessions,
		Users:    graph,
		Engine:   engine,
		Cache:    cache,
		Limiter:  limiter,
		Settings: settingsManager,
		Renderer: renderer,
	})

	bus := socialgraph.NewBus()
	listener := invalidation.NewListener(accessor, cache)

	scheduler := maintenance.NewScheduler(cfg.CleanupPeriod, logger,
		maintenance.Job{Name: "expired-results", Run: cache.CleanupExpired},
		maintenance.Job{Name: "expired-sessions", Run: sessions.PurgeExpired},
	)

	checks := map[string]handlers.HealthCheck{
		"database": func(ctx context.Context) error {
			conn, err := pool.Acquire(ctx)
			if err != nil {
				return err
			}
			defer conn.Release()
			return conn.Ping(ctx)
		},
	}
	if redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redis.Do(ctx, redis.B().Ping().Build()).Error()
		}
	}

	return &components{
		handlers: handlers.Dependencies{
			Mutuals:      svc,
			Sessions:     sessions,
			Settings:     settingsManager,
			Users:        graph,
			Events:       bus,
			Admin:        auth.NewAdminVerifier(cfg.AdminTokenHash),
			HealthChecks: checks,
		},
		cache:     cache,
		sessions:  sessions,
		bus:       bus,
		listener:  listener,
		scheduler: scheduler,
		ipLimiter: middleware.NewIPRateLimiter(cfg.IPRateLimit, cfg.IPRateWindow, cfg.IPRateBurst, 0),
	}, nil
}
