package invalidation

import (
	"context"
	"sync"

	"github.com/mutualfriends/backend/internal/logging"
	"github.com/mutualfriends/backend/internal/models"
	"github.com/mutualfriends/backend/internal/socialgraph"
)

// FriendSetInvalidator drops cached friend lists.
type FriendSetInvalidator interface {
	Invalidate(ctx context.Context, userID models.UserID)
}

// ResultInvalidator drops cached mutual friend results involving a user.
type ResultInvalidator interface {
	InvalidateForUser(ctx context.Context, userID models.UserID)
}

// Listener purges caches whenever a user's friendships change. Handling the
// same event twice only costs a cache miss.
type Listener struct {
	friends FriendSetInvalidator
	results ResultInvalidator

	mu          sync.Mutex
	unsubscribe func()
}

// NewListener constructs a Listener over both caches.
func NewListener(friends FriendSetInvalidator, results ResultInvalidator) *Listener {
	return &Listener{friends: friends, results: results}
}

// Start subscribes to source. Calling Start again replaces the subscription.
func (l *Listener) Start(source socialgraph.EventSource) {
	if source == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unsubscribe != nil {
		l.unsubscribe()
	}
	l.unsubscribe = source.Subscribe(l.Handle)
}

// Stop removes the subscription.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unsubscribe != nil {
		l.unsubscribe()
		l.unsubscribe = nil
	}
}

// Handle invalidates the friend set and every cached result of the event's user.
func (l *Listener) Handle(ctx context.Context, event socialgraph.Event) {
	if event.UserID <= 0 {
		return
	}
	if _, ok := socialgraph.ParseEventKind(string(event.Kind)); !ok {
		logging.FromContext(ctx).Warn("ignoring unknown friendship event", "kind", event.Kind, "userId", event.UserID)
		return
	}

	if l.friends != nil {
		l.friends.Invalidate(ctx, event.UserID)
	}
	if l.results != nil {
		l.results.InvalidateForUser(ctx, event.UserID)
	}
	logging.FromContext(ctx).Debug("friendship change invalidated caches", "kind", event.Kind, "userId", event.UserID)
}
