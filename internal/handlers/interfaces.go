package handlers

import (
	"context"

	"github.com/mutualfriends/backend/internal/models"
	"github.com/mutualfriends/backend/internal/service"
	"github.com/mutualfriends/backend/internal/settings"
	"github.com/mutualfriends/backend/internal/socialgraph"
)

// MutualsService serves mutual friend lookups.
type MutualsService interface {
	GetMutualFriends(ctx context.Context, req service.MutualRequest) (service.MutualResponse, error)
	GetAllMutualFriends(ctx context.Context, req service.AllRequest) (service.AllResponse, error)
	ClearCache(ctx context.Context) error
}

// SessionManager issues and refreshes authentication tokens for users.
type SessionManager interface {
	Issue(ctx context.Context, userID models.UserID) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
}

// SettingsManager reads and updates the persisted options.
type SettingsManager interface {
	Current() settings.Settings
	Update(ctx context.Context, changes map[string]string) (settings.Settings, error)
}

// EventPublisher forwards friendship changes to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event socialgraph.Event)
}

// AdminVerifier checks the privileged bearer token.
type AdminVerifier interface {
	Verify(token string) bool
}

// UserDirectory reports whether a platform user exists.
type UserDirectory interface {
	Exists(ctx context.Context, userID models.UserID) (bool, error)
}

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error
