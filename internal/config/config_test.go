package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AppPort != 8080 || cfg.FastCache != FastCacheMemory || cfg.FastCacheEntries != 1000 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.RateLimit != 30 || cfg.RateWindow != time.Minute || cfg.CleanupPeriod != 24*time.Hour {
		t.Fatalf("unexpected limiter defaults %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MUTUALS_PORT", "9090")
	t.Setenv("MUTUALS_FAST_CACHE", "Redis")
	t.Setenv("MUTUALS_REDIS_ADDR", "cache:6379")
	t.Setenv("MUTUALS_RATE_WINDOW", "2m")
	t.Setenv("MUTUALS_FRIEND_SET_TTL", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AppPort != 9090 || cfg.FastCache != FastCacheRedis || cfg.RedisAddr != "cache:6379" {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
	if cfg.RateWindow != 2*time.Minute {
		t.Fatalf("expected 2m window got %s", cfg.RateWindow)
	}
	if cfg.FriendSetTTL != time.Hour {
		t.Fatalf("expected invalid duration to fall back, got %s", cfg.FriendSetTTL)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("MUTUALS_FAST_CACHE", "memcached")
	t.Setenv("MUTUALS_PORT", "70000")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"MUTUALS_FAST_CACHE", "MUTUALS_PORT"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %v", want, err)
		}
	}
}
