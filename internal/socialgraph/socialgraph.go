package socialgraph

import (
	"context"
	"errors"

	"github.com/mutualfriends/backend/internal/models"
)

// ErrUserNotFound indicates the provider has no account for the requested id.
var ErrUserNotFound = errors.New("user not found")

// Provider is the system of record for identities and friendships.
type Provider interface {
	FriendIDs(ctx context.Context, userID models.UserID) ([]models.UserID, error)
	Profile(ctx context.Context, userID models.UserID) (models.Profile, error)
	Exists(ctx context.Context, userID models.UserID) (bool, error)
}

// EventKind names a friendship lifecycle transition.
type EventKind string

const (
	FriendshipAccepted  EventKind = "accepted"
	FriendshipDeleted   EventKind = "deleted"
	FriendshipWithdrawn EventKind = "withdrawn"
)

// ParseEventKind validates an externally supplied event type.
func ParseEventKind(raw string) (EventKind, bool) {
	switch kind := EventKind(raw); kind {
	case FriendshipAccepted, FriendshipDeleted, FriendshipWithdrawn:
		return kind, true
	default:
		return "", false
	}
}

// Event reports that the friendships of UserID changed.
type Event struct {
	Kind   EventKind
	UserID models.UserID
}

// Handler consumes friendship events.
type Handler func(ctx context.Context, event Event)

// EventSource delivers friendship events to subscribers. The returned function
// removes the subscription.
type EventSource interface {
	Subscribe(handler Handler) (unsubscribe func())
}
