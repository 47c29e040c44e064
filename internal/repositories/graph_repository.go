package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mutualfriends/backend/internal/db"
	"github.com/mutualfriends/backend/internal/models"
	"github.com/mutualfriends/backend/internal/socialgraph"
)

// PostgresGraphRepository reads users and confirmed friendships from PostgreSQL
// and serves them as the social graph provider.
type PostgresGraphRepository struct {
	pool db.Pool
}

// NewPostgresGraphRepository constructs a graph repository backed by PostgreSQL.
func NewPostgresGraphRepository(pool db.Pool) *PostgresGraphRepository {
	return &PostgresGraphRepository{pool: pool}
}

// FriendIDs returns every user sharing a confirmed friendship with userID,
// regardless of who initiated it.
func (r *PostgresGraphRepository) FriendIDs(ctx context.Context, userID models.UserID) ([]models.UserID, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT friend_id FROM friendships WHERE initiator_id = $1 AND is_confirmed
        UNION
        SELECT initiator_id FROM friendships WHERE friend_id = $1 AND is_confirmed
    `, int64(userID))
	if err != nil {
		return nil, fmt.Errorf("query friend ids: %w", err)
	}
	defer rows.Close()

	var ids []models.UserID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan friend id: %w", err)
		}
		ids = append(ids, models.UserID(id))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friend ids: %w", err)
	}

	return ids, nil
}

// Profile loads the public projection of a user.
func (r *PostgresGraphRepository) Profile(ctx context.Context, userID models.UserID) (models.Profile, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Profile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, display_name, avatar_url, profile_url, friends_private, roles
        FROM users
        WHERE id = $1
    `, int64(userID))

	var (
		profile models.Profile
		id      int64
	)
	if err := row.Scan(&id, &profile.DisplayName, &profile.AvatarURL, &profile.ProfileURL, &profile.FriendsPrivate, &profile.Roles); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Profile{}, socialgraph.ErrUserNotFound
		}
		return models.Profile{}, fmt.Errorf("select user profile: %w", err)
	}

	profile.ID = models.UserID(id)
	return profile, nil
}

// Exists reports whether userID has an account.
func (r *PostgresGraphRepository) Exists(ctx context.Context, userID models.UserID) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, int64(userID)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

// UpsertUser creates or replaces a user's profile.
func (r *PostgresGraphRepository) UpsertUser(ctx context.Context, profile models.Profile) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	roles := profile.Roles
	if roles == nil {
		roles = []string{}
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, display_name, avatar_url, profile_url, friends_private, roles)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id)
        DO UPDATE SET display_name = EXCLUDED.display_name,
                      avatar_url = EXCLUDED.avatar_url,
                      profile_url = EXCLUDED.profile_url,
                      friends_private = EXCLUDED.friends_private,
                      roles = EXCLUDED.roles
    `, int64(profile.ID), profile.DisplayName, profile.AvatarURL, profile.ProfileURL, profile.FriendsPrivate, roles)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// AddFriendship records a friendship initiated by initiator. Unconfirmed
// friendships are pending requests and do not count as friends.
func (r *PostgresGraphRepository) AddFriendship(ctx context.Context, initiator, friend models.UserID, confirmed bool) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO friendships (initiator_id, friend_id, is_confirmed)
        VALUES ($1, $2, $3)
    `, int64(initiator), int64(friend), confirmed)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert friendship: %w", err)
	}

	return nil
}

// ConfirmFriendship marks a pending friendship as accepted.
func (r *PostgresGraphRepository) ConfirmFriendship(ctx context.Context, initiator, friend models.UserID) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE friendships
        SET is_confirmed = TRUE
        WHERE initiator_id = $1 AND friend_id = $2
    `, int64(initiator), int64(friend))
	if err != nil {
		return fmt.Errorf("confirm friendship: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// RemoveFriendship deletes the friendship between a and b in either direction.
func (r *PostgresGraphRepository) RemoveFriendship(ctx context.Context, a, b models.UserID) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM friendships
        WHERE (initiator_id = $1 AND friend_id = $2)
           OR (initiator_id = $2 AND friend_id = $1)
    `, int64(a), int64(b))
	if err != nil {
		return fmt.Errorf("delete friendship: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

var _ socialgraph.Provider = (*PostgresGraphRepository)(nil)
