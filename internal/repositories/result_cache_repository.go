package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mutualfriends/backend/internal/db"
	"github.com/mutualfriends/backend/internal/models"
	"github.com/mutualfriends/backend/internal/resultcache"
)

// PostgresResultTier is the durable tier of the result cache. The primary key
// leads with viewer_id and a secondary index covers target_id, so per-user
// invalidation touches only the affected rows.
type PostgresResultTier struct {
	pool db.Pool
	now  func() time.Time
}

// NewPostgresResultTier constructs a durable result tier backed by PostgreSQL.
func NewPostgresResultTier(pool db.Pool) *PostgresResultTier {
	return &PostgresResultTier{pool: pool, now: time.Now}
}

// Get loads the unexpired entry for key.
func (t *PostgresResultTier) Get(ctx context.Context, key resultcache.Key) (models.CachedResult, bool, error) {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return models.CachedResult{}, false, fmt.Errorf("%w: acquire connection: %w", resultcache.ErrTierUnavailable, err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT options, result, created_at, expires_at
        FROM mutual_cache
        WHERE viewer_id = $1 AND target_id = $2 AND expires_at > $3
    `, int64(key.Viewer), int64(key.Target), t.now().UTC())

	var (
		options, result []byte
		entry           = models.CachedResult{Viewer: key.Viewer, Target: key.Target}
	)
	if err := row.Scan(&options, &result, &entry.CreatedAt, &entry.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.CachedResult{}, false, nil
		}
		return models.CachedResult{}, false, fmt.Errorf("select cached result: %w", err)
	}

	if err := json.Unmarshal(options, &entry.Options); err != nil {
		return models.CachedResult{}, false, fmt.Errorf("decode cached options: %w", err)
	}
	if err := json.Unmarshal(result, &entry.Result); err != nil {
		return models.CachedResult{}, false, fmt.Errorf("decode cached result: %w", err)
	}
	entry.CreatedAt = entry.CreatedAt.UTC()
	entry.ExpiresAt = entry.ExpiresAt.UTC()
	return entry, true, nil
}

// Set upserts entry, replacing any earlier result for the same ordered pair.
func (t *PostgresResultTier) Set(ctx context.Context, entry models.CachedResult) error {
	options, err := json.Marshal(entry.Options)
	if err != nil {
		return fmt.Errorf("encode cached options: %w", err)
	}
	result, err := json.Marshal(entry.Result)
	if err != nil {
		return fmt.Errorf("encode cached result: %w", err)
	}

	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: acquire connection: %w", resultcache.ErrTierUnavailable, err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO mutual_cache (viewer_id, target_id, options, result, created_at, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (viewer_id, target_id)
        DO UPDATE SET options = EXCLUDED.options,
                      result = EXCLUDED.result,
                      created_at = EXCLUDED.created_at,
                      expires_at = EXCLUDED.expires_at
    `, int64(entry.Viewer), int64(entry.Target), string(options), string(result), entry.CreatedAt.UTC(), entry.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert cached result: %w", err)
	}
	return nil
}

// InvalidateUser deletes every row where userID is viewer or target.
func (t *PostgresResultTier) InvalidateUser(ctx context.Context, userID models.UserID) (int, error) {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: acquire connection: %w", resultcache.ErrTierUnavailable, err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM mutual_cache
        WHERE viewer_id = $1 OR target_id = $1
    `, int64(userID))
	if err != nil {
		return 0, fmt.Errorf("invalidate cached results: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Clear deletes every cached result.
func (t *PostgresResultTier) Clear(ctx context.Context) error {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: acquire connection: %w", resultcache.ErrTierUnavailable, err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `DELETE FROM mutual_cache`); err != nil {
		return fmt.Errorf("clear cached results: %w", err)
	}
	return nil
}

// CleanupExpired deletes rows that expired at or before now.
func (t *PostgresResultTier) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: acquire connection: %w", resultcache.ErrTierUnavailable, err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM mutual_cache
        WHERE expires_at <= $1
    `, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired cached results: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ resultcache.DurableTier = (*PostgresResultTier)(nil)
