package mutuals

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/mutualfriends/backend/internal/logging"
	"github.com/mutualfriends/backend/internal/models"
	"github.com/mutualfriends/backend/internal/settings"
)

// PrivacyPolicy decides whether viewer may see the mutual friends shared with target.
type PrivacyPolicy interface {
	CanView(ctx context.Context, viewer, target models.UserID) bool
}

// OrderingStrategy arranges the mutual friend ids before truncation. It must
// return a new slice and leave ids untouched.
type OrderingStrategy interface {
	Arrange(ids models.FriendSet) []models.UserID
}

// AllowAll is a PrivacyPolicy that never denies.
type AllowAll struct{}

// CanView always returns true.
func (AllowAll) CanView(context.Context, models.UserID, models.UserID) bool { return true }

// SettingsSource exposes the active option snapshot.
type SettingsSource interface {
	Current() settings.Settings
}

// VisibilityPolicy applies the respect_privacy and exclude_roles options against
// the target's profile.
type VisibilityPolicy struct {
	profiles ProfileLookup
	settings SettingsSource
}

// NewVisibilityPolicy builds the default privacy gate.
func NewVisibilityPolicy(profiles ProfileLookup, source SettingsSource) *VisibilityPolicy {
	return &VisibilityPolicy{profiles: profiles, settings: source}
}

// CanView denies when the target keeps their friends private (and privacy is
// respected) or when the target holds an excluded role. A failed profile lookup denies.
func (p *VisibilityPolicy) CanView(ctx context.Context, viewer, target models.UserID) bool {
	opts := settings.Defaults()
	if p.settings != nil {
		opts = p.settings.Current()
	}
	if !opts.RespectPrivacy && len(opts.ExcludeRoles) == 0 {
		return true
	}
	if p.profiles == nil {
		return !opts.RespectPrivacy
	}

	profile, err := p.profiles.Profile(ctx, target)
	if err != nil {
		logging.FromContext(ctx).Warn("privacy profile lookup failed", "targetId", target, "error", err)
		return false
	}

	if opts.RespectPrivacy && profile.FriendsPrivate && viewer != target {
		return false
	}
	return !opts.ExcludesAny(profile.Roles)
}

// Ascending orders mutual friends by id so that pages are reproducible.
type Ascending struct{}

// Arrange returns a sorted copy of ids.
func (Ascending) Arrange(ids models.FriendSet) []models.UserID {
	out := slices.Clone([]models.UserID(ids))
	slices.Sort(out)
	return out
}

// Shuffle produces a uniformly random permutation of the mutual friends.
type Shuffle struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewShuffle uses src as its randomness; nil selects the runtime's global source.
func NewShuffle(src rand.Source) *Shuffle {
	s := &Shuffle{}
	if src != nil {
		s.rng = rand.New(src)
	}
	return s
}

// Arrange returns a shuffled copy of ids.
func (s *Shuffle) Arrange(ids models.FriendSet) []models.UserID {
	out := slices.Clone([]models.UserID(ids))
	swap := func(i, j int) { out[i], out[j] = out[j], out[i] }

	if s == nil || s.rng == nil {
		rand.Shuffle(len(out), swap)
		return out
	}

	s.mu.Lock()
	s.rng.Shuffle(len(out), swap)
	s.mu.Unlock()
	return out
}
