package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mutualfriends/backend/internal/db"
	"github.com/mutualfriends/backend/internal/settings"
)

// PostgresSettingsStore persists plugin options as key-value rows.
type PostgresSettingsStore struct {
	pool db.Pool
}

// NewPostgresSettingsStore constructs a settings store backed by PostgreSQL.
func NewPostgresSettingsStore(pool db.Pool) *PostgresSettingsStore {
	return &PostgresSettingsStore{pool: pool}
}

// Load returns every stored option.
func (s *PostgresSettingsStore) Load(ctx context.Context) (map[string]string, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT key, value FROM mutual_settings`)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		values[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings: %w", err)
	}

	return values, nil
}

// Save upserts every value in a single transaction.
func (s *PostgresSettingsStore) Save(ctx context.Context, values map[string]string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin settings transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for key, value := range values {
		if _, err := tx.Exec(ctx, `
            INSERT INTO mutual_settings (key, value, updated_at)
            VALUES ($1, $2, NOW())
            ON CONFLICT (key)
            DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
        `, key, value); err != nil {
			return fmt.Errorf("upsert setting %s: %w", key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit settings: %w", err)
	}
	return nil
}

var _ settings.Store = (*PostgresSettingsStore)(nil)
