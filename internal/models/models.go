package models

import (
	"slices"
	"time"
)

// UserID identifies an account on the host social platform. Valid ids are positive.
type UserID int64

// Profile is the public projection of a user as exposed by the social graph provider.
type Profile struct {
	ID          UserID
	DisplayName string
	AvatarURL   string
	ProfileURL  string
	// FriendsPrivate reports whether the user restricts their friend list to themselves.
	FriendsPrivate bool
	Roles          []string
}

// FriendSummary is the display record returned for each mutual friend.
type FriendSummary struct {
	ID          UserID `json:"id"`
	DisplayName string `json:"name"`
	AvatarURL   string `json:"avatar"`
	ProfileURL  string `json:"link"`
}

// SummaryFromProfile projects a profile onto the fields shown to viewers.
func SummaryFromProfile(p Profile) FriendSummary {
	return FriendSummary{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
		ProfileURL:  p.ProfileURL,
	}
}

// FriendSet is a sorted, de-duplicated list of friend ids.
type FriendSet []UserID

// NewFriendSet normalises ids into a FriendSet, dropping non-positive ids.
func NewFriendSet(ids []UserID) FriendSet {
	out := make(FriendSet, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Contains reports whether id is a member of the set.
func (s FriendSet) Contains(id UserID) bool {
	_, ok := slices.BinarySearch(s, id)
	return ok
}

// Intersect returns the members present in both sets, in ascending order.
func (s FriendSet) Intersect(other FriendSet) FriendSet {
	if len(s) == 0 || len(other) == 0 {
		return FriendSet{}
	}

	out := make(FriendSet, 0, min(len(s), len(other)))
	i, j := 0, 0
	for i < len(s) && j < len(other) {
		switch {
		case s[i] == other[j]:
			out = append(out, s[i])
			i++
			j++
		case s[i] < other[j]:
			i++
		default:
			j++
		}
	}
	return out
}

// Order selects how mutual friends are arranged before truncation.
type Order string

const (
	OrderRandom Order = "random"
	OrderStable Order = "stable"
)

// QueryOptions parameterise one mutual friends computation.
type QueryOptions struct {
	Limit    int   `json:"limit"`
	Order    Order `json:"order"`
	UseCache bool  `json:"-"`
}

// MutualResult is the outcome of a mutual friends query. Friends never holds
// more entries than Count.
type MutualResult struct {
	Count   int             `json:"count"`
	Friends []FriendSummary `json:"friends"`
}

// EmptyResult is returned for invalid pairs, privacy denials, and empty intersections alike.
func EmptyResult() MutualResult {
	return MutualResult{Count: 0, Friends: []FriendSummary{}}
}

// MutualPage is one page of the full mutual friends listing.
type MutualPage struct {
	Count      int             `json:"count"`
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
	Friends    []FriendSummary `json:"friends"`
}

// CachedResult is a stored tooltip result together with the options that produced it.
type CachedResult struct {
	Viewer    UserID       `json:"viewer"`
	Target    UserID       `json:"target"`
	Options   QueryOptions `json:"options"`
	Result    MutualResult `json:"result"`
	CreatedAt time.Time    `json:"created_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Expired reports whether the entry is no longer valid at now.
func (c CachedResult) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
