package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mutualfriends/backend/internal/logging"
	"github.com/mutualfriends/backend/internal/middleware"
	"github.com/mutualfriends/backend/internal/models"
	"github.com/mutualfriends/backend/internal/mutuals"
	"github.com/mutualfriends/backend/internal/render"
	"github.com/mutualfriends/backend/internal/settings"
)

// AllFriendsLimit bounds the full listing served by the "view all" path.
const AllFriendsLimit = 999

// Format selects the fragment rendered for a tooltip request.
type Format string

const (
	FormatTooltip Format = "tooltip"
	FormatModal   Format = "modal"
)

// ParseFormat falls back to the tooltip for anything unrecognised.
func ParseFormat(raw string) Format {
	if Format(strings.ToLower(strings.TrimSpace(raw))) == FormatModal {
		return FormatModal
	}
	return FormatTooltip
}

// Placement names the page a request originates from.
type Placement string

const (
	PlacementAny       Placement = ""
	PlacementDirectory Placement = "directory"
	PlacementProfile   Placement = "profile"
)

// Authenticator resolves an access token to the calling user.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (models.UserID, error)
}

// UserDirectory reports whether a user exists.
type UserDirectory interface {
	Exists(ctx context.Context, userID models.UserID) (bool, error)
}

// Computer runs mutual friend queries.
type Computer interface {
	Compute(ctx context.Context, viewer, target models.UserID, opts mutuals.Options) models.MutualResult
	Page(ctx context.Context, viewer, target models.UserID, page int, opts mutuals.Options) models.MutualPage
}

// ResultCache stores tooltip results per (viewer, target).
type ResultCache interface {
	Get(ctx context.Context, viewer, target models.UserID) (models.CachedResult, bool)
	Set(ctx context.Context, viewer, target models.UserID, opts models.QueryOptions, result models.MutualResult, ttl time.Duration) models.CachedResult
	ClearAll(ctx context.Context) error
}

// SettingsSource returns the active option snapshot.
type SettingsSource interface {
	Current() settings.Settings
}

// Renderer produces HTML fragments.
type Renderer interface {
	Tooltip(data render.TooltipData) (string, error)
	Modal(data render.TooltipData) (string, error)
	List(friends []models.FriendSummary) (string, error)
}

// Dependencies are the collaborators of a Service.
type Dependencies struct {
	Auth     Authenticator
	Users    UserDirectory
	Engine   Computer
	Cache    ResultCache
	Limiter  middleware.WindowLimiter
	Settings SettingsSource
	Renderer Renderer
}

// Service validates mutual friend requests, runs the engine, renders the result
// and keeps the result cache current.
type Service struct {
	deps Dependencies
}

// New constructs a Service.
func New(deps Dependencies) *Service {
	return &Service{deps: deps}
}

// MutualRequest is the input of GetMutualFriends.
type MutualRequest struct {
	AccessToken  string
	TargetID     models.UserID
	DisplayCount int
	Format       Format
	Placement    Placement
}

// MutualResponse is the tooltip-shaped result.
type MutualResponse struct {
	Count   int                    `json:"count"`
	Mutuals []models.FriendSummary `json:"mutuals"`
	HTML    string                 `json:"html"`
}

// AllRequest is the input of GetAllMutualFriends.
type AllRequest struct {
	AccessToken string
	TargetID    models.UserID
	Page        int
}

// AllResponse is one page of the full listing.
type AllResponse struct {
	models.MutualPage
	HTML string `json:"html"`
}

// GetMutualFriends serves the inline preview for the caller and target.
func (s *Service) GetMutualFriends(ctx context.Context, req MutualRequest) (MutualResponse, error) {
	opts := s.settings()
	if err := checkPlacement(opts, req.Placement); err != nil {
		return MutualResponse{}, err
	}

	viewer, err := s.authenticate(ctx, req.AccessToken)
	if err != nil {
		return MutualResponse{}, err
	}
	ctx = logging.WithCaller(ctx, int64(viewer))

	if req.TargetID <= 0 {
		return MutualResponse{}, errInvalidUserID
	}
	if err := s.checkTarget(ctx, req.TargetID); err != nil {
		return MutualResponse{}, err
	}
	if err := s.checkRate(ctx, viewer); err != nil {
		return MutualResponse{}, err
	}

	displayCount := opts.DisplayCount
	if req.DisplayCount != 0 {
		displayCount = settings.ClampDisplayCount(req.DisplayCount)
	}
	query := models.QueryOptions{
		Limit:    displayCount,
		Order:    models.OrderRandom,
		UseCache: opts.EnableCaching,
	}

	ctx, span := logging.StartSpan(ctx, "mutuals.tooltip")
	span.Verbose(opts.DebugMode)

	result, cached := s.cachedResult(ctx, viewer, req.TargetID, query)
	if !cached {
		result = s.deps.Engine.Compute(ctx, viewer, req.TargetID, mutuals.Options{
			QueryOptions: query,
			HidePrivate:  opts.HidePrivateFriends,
		})
	}
	if !cached && query.UseCache && s.deps.Cache != nil {
		s.deps.Cache.Set(ctx, viewer, req.TargetID, query, result, opts.CacheDuration)
	}

	if result.Count < opts.MinMutualThreshold {
		result = models.EmptyResult()
	}
	if result.Friends == nil {
		result.Friends = []models.FriendSummary{}
	}

	html, err := s.renderPreview(req, opts, result)
	if err != nil {
		logging.FromContext(ctx).Error("render mutual friends", "error", err)
	}

	span.End("targetId", req.TargetID, "count", result.Count, "returned", len(result.Friends), "cached", cached)
	return MutualResponse{Count: result.Count, Mutuals: result.Friends, HTML: html}, nil
}

// GetAllMutualFriends serves one page of the stably ordered full listing.
// Pages are recomputed on every call and never cached.
func (s *Service) GetAllMutualFriends(ctx context.Context, req AllRequest) (AllResponse, error) {
	opts := s.settings()
	if !opts.Enabled {
		return AllResponse{}, errDisabled
	}

	viewer, err := s.authenticate(ctx, req.AccessToken)
	if err != nil {
		return AllResponse{}, err
	}
	ctx = logging.WithCaller(ctx, int64(viewer))

	if req.TargetID <= 0 || req.Page < 1 {
		return AllResponse{}, errInvalidParams
	}
	if err := s.checkTarget(ctx, req.TargetID); err != nil {
		return AllResponse{}, err
	}
	if err := s.checkRate(ctx, viewer); err != nil {
		return AllResponse{}, err
	}

	ctx, span := logging.StartSpan(ctx, "mutuals.page")
	span.Verbose(opts.DebugMode)

	page := s.deps.Engine.Page(ctx, viewer, req.TargetID, req.Page, mutuals.Options{
		QueryOptions: models.QueryOptions{
			Limit:    AllFriendsLimit,
			Order:    models.OrderStable,
			UseCache: opts.EnableCaching,
		},
		HidePrivate: opts.HidePrivateFriends,
	})
	if page.Count < opts.MinMutualThreshold {
		page = models.MutualPage{Page: req.Page, Friends: []models.FriendSummary{}}
	}

	var html string
	if s.deps.Renderer != nil {
		html, err = s.deps.Renderer.List(page.Friends)
		if err != nil {
			logging.FromContext(ctx).Error("render mutual friends page", "error", err)
		}
	}

	span.End("targetId", req.TargetID, "page", page.Page, "count", page.Count)
	return AllResponse{MutualPage: page, HTML: html}, nil
}

// ClearCache drops every cached result in both tiers.
func (s *Service) ClearCache(ctx context.Context) error {
	if s.deps.Cache == nil {
		return nil
	}
	if err := s.deps.Cache.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear result cache: %w", err)
	}
	logging.FromContext(ctx).Info("result cache cleared")
	return nil
}

func (s *Service) settings() settings.Settings {
	if s.deps.Settings == nil {
		return settings.Defaults()
	}
	return s.deps.Settings.Current()
}

func checkPlacement(opts settings.Settings, placement Placement) error {
	if !opts.Enabled {
		return errDisabled
	}
	switch placement {
	case PlacementAny:
		return nil
	case PlacementDirectory:
		if !opts.EnableOnDirectory {
			return errDisabled
		}
	case PlacementProfile:
		if !opts.EnableOnProfile {
			return errDisabled
		}
	default:
		return errInvalidParams
	}
	return nil
}

func (s *Service) authenticate(ctx context.Context, token string) (models.UserID, error) {
	if strings.TrimSpace(token) == "" || s.deps.Auth == nil {
		return 0, errNotLoggedIn
	}
	viewer, err := s.deps.Auth.Authenticate(ctx, token)
	if err != nil || viewer <= 0 {
		logging.FromContext(ctx).Debug("caller authentication failed", "error", err)
		return 0, errNotLoggedIn
	}
	return viewer, nil
}

// checkTarget treats lookup errors like a missing user so nothing is computed
// for a target that cannot be confirmed.
func (s *Service) checkTarget(ctx context.Context, target models.UserID) error {
	if s.deps.Users == nil {
		return nil
	}
	ok, err := s.deps.Users.Exists(ctx, target)
	if err != nil {
		logging.FromContext(ctx).Warn("target lookup failed", "targetId", target, "error", err)
		return errUserNotFound
	}
	if !ok {
		return errUserNotFound
	}
	return nil
}

// checkRate fails open when the limiter backend is unreachable.
func (s *Service) checkRate(ctx context.Context, viewer models.UserID) error {
	if s.deps.Limiter == nil {
		return nil
	}
	allowed, err := s.deps.Limiter.Allow(ctx, strconv.FormatInt(int64(viewer), 10))
	if err != nil {
		logging.FromContext(ctx).Warn("rate limiter unavailable", "error", err)
		return nil
	}
	if !allowed {
		logging.FromContext(ctx).Warn("caller rate limit exceeded")
		return errRateLimited
	}
	return nil
}

// cachedResult returns a stored result only when it was computed with the
// same limit and order as query.
func (s *Service) cachedResult(ctx context.Context, viewer, target models.UserID, query models.QueryOptions) (models.MutualResult, bool) {
	if !query.UseCache || s.deps.Cache == nil {
		return models.MutualResult{}, false
	}
	entry, ok := s.deps.Cache.Get(ctx, viewer, target)
	if !ok {
		return models.MutualResult{}, false
	}
	if entry.Options.Limit != query.Limit || entry.Options.Order != query.Order {
		return models.MutualResult{}, false
	}
	return entry.Result, true
}

func (s *Service) renderPreview(req MutualRequest, opts settings.Settings, result models.MutualResult) (string, error) {
	if s.deps.Renderer == nil {
		return "", errors.New("renderer not configured")
	}
	data := render.TooltipData{
		TargetID:   req.TargetID,
		Count:      result.Count,
		Friends:    result.Friends,
		TotalPages: mutuals.TotalPages(result.Count, mutuals.PageSize),
		Position:   opts.TooltipPosition,
		Animation:  opts.AnimationEffect,
	}
	if req.Format == FormatModal {
		return s.deps.Renderer.Modal(data)
	}
	return s.deps.Renderer.Tooltip(data)
}
