package mutuals

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"github.com/mutualfriends/backend/internal/logging"
	"github.com/mutualfriends/backend/internal/models"
)

const (
	// PageSize is the number of friends on each page of the full listing.
	PageSize = 20

	// profileLookupConcurrency caps parallel profile lookups for one result slice.
	profileLookupConcurrency = 8
)

// FriendLister returns a user's friend set, degrading to empty on failure.
type FriendLister interface {
	FriendIDs(ctx context.Context, userID models.UserID, useCache bool) models.FriendSet
}

// ProfileLookup resolves a user's public profile.
type ProfileLookup interface {
	Profile(ctx context.Context, userID models.UserID) (models.Profile, error)
}

// Strategies are the pluggable policies of an Engine. Nil fields fall back to
// AllowAll, Shuffle and Ascending respectively.
type Strategies struct {
	Privacy PrivacyPolicy
	Random  OrderingStrategy
	Stable  OrderingStrategy
}

// Engine computes mutual friends between two users.
type Engine struct {
	friends  FriendLister
	profiles ProfileLookup
	privacy  PrivacyPolicy
	random   OrderingStrategy
	stable   OrderingStrategy
}

// NewEngine constructs an Engine over the friend lister and profile lookup.
func NewEngine(friends FriendLister, profiles ProfileLookup, strategies Strategies) *Engine {
	e := &Engine{
		friends:  friends,
		profiles: profiles,
		privacy:  strategies.Privacy,
		random:   strategies.Random,
		stable:   strategies.Stable,
	}
	if e.privacy == nil {
		e.privacy = AllowAll{}
	}
	if e.random == nil {
		e.random = NewShuffle(nil)
	}
	if e.stable == nil {
		e.stable = Ascending{}
	}
	return e
}

// Options carry per-call behaviour that is not part of the cached query shape.
type Options struct {
	models.QueryOptions
	// HidePrivate skips mutual friends whose own profile is private.
	HidePrivate bool
}

// Compute returns the mutual friends of viewer and target, arranged by
// opts.Order and truncated to opts.Limit. Count always reflects the full
// intersection.
func (e *Engine) Compute(ctx context.Context, viewer, target models.UserID, opts Options) models.MutualResult {
	mutual, ok := e.mutualIDs(ctx, viewer, target, opts.UseCache)
	if !ok || len(mutual) == 0 {
		return models.EmptyResult()
	}

	limit := max(opts.Limit, 1)
	ids := e.arrange(opts.Order, mutual)
	ids = ids[:min(limit, len(ids))]

	return models.MutualResult{
		Count:   len(mutual),
		Friends: e.resolve(ctx, ids, opts.HidePrivate),
	}
}

// Page returns one page of the stably ordered full listing. Pages past the end
// are empty, not errors.
func (e *Engine) Page(ctx context.Context, viewer, target models.UserID, page int, opts Options) models.MutualPage {
	page = max(page, 1)
	result := models.MutualPage{Page: page, Friends: []models.FriendSummary{}}

	mutual, ok := e.mutualIDs(ctx, viewer, target, opts.UseCache)
	if !ok || len(mutual) == 0 {
		return result
	}

	result.Count = len(mutual)
	result.TotalPages = TotalPages(len(mutual), PageSize)

	ids := e.stable.Arrange(mutual)
	offset := (page - 1) * PageSize
	if offset >= len(ids) {
		return result
	}
	end := min(offset+PageSize, len(ids))

	result.Friends = e.resolve(ctx, ids[offset:end], opts.HidePrivate)
	return result
}

// TotalPages is the number of pages needed to show count entries.
func TotalPages(count, size int) int {
	if count <= 0 || size <= 0 {
		return 0
	}
	return (count + size - 1) / size
}

func (e *Engine) mutualIDs(ctx context.Context, viewer, target models.UserID, useCache bool) (models.FriendSet, bool) {
	if viewer <= 0 || target <= 0 {
		return nil, false
	}
	if !e.privacy.CanView(ctx, viewer, target) {
		logging.FromContext(ctx).Debug("mutual friends hidden by privacy policy", "viewerId", viewer, "targetId", target)
		return nil, false
	}
	if e.friends == nil {
		return nil, false
	}

	viewerFriends := e.friends.FriendIDs(ctx, viewer, useCache)
	targetFriends := e.friends.FriendIDs(ctx, target, useCache)
	return viewerFriends.Intersect(targetFriends), true
}

func (e *Engine) arrange(order models.Order, ids models.FriendSet) []models.UserID {
	if order == models.OrderStable {
		return e.stable.Arrange(ids)
	}
	return e.random.Arrange(ids)
}

// resolve looks up profiles for ids only, preserving order. Failed lookups
// and hidden profiles are skipped.
func (e *Engine) resolve(ctx context.Context, ids []models.UserID, hidePrivate bool) []models.FriendSummary {
	out := make([]models.FriendSummary, 0, len(ids))
	if len(ids) == 0 || e.profiles == nil {
		return out
	}

	logger := logging.FromContext(ctx)
	profiles := make([]*models.Profile, len(ids))

	p := pool.New().WithMaxGoroutines(profileLookupConcurrency)
	for i, id := range ids {
		p.Go(func() {
			profile, err := e.profiles.Profile(ctx, id)
			if err != nil {
				logger.Warn("mutual friend profile lookup failed", "userId", id, "error", err)
				return
			}
			profile.ID = id
			profiles[i] = &profile
		})
	}
	p.Wait()

	for _, profile := range profiles {
		if profile == nil {
			continue
		}
		if hidePrivate && profile.FriendsPrivate {
			continue
		}
		out = append(out, models.SummaryFromProfile(*profile))
	}
	return out
}
