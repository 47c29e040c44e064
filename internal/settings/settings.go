package settings

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// Recognised option keys.
const (
	KeyEnabled            = "enabled"
	KeyEnableOnDirectory  = "enable_on_directory"
	KeyEnableOnProfile    = "enable_on_profile"
	KeyDisplayCount       = "display_count"
	KeyTooltipPosition    = "tooltip_position"
	KeyAnimationEffect    = "animation_effect"
	KeyEnableCaching      = "enable_caching"
	KeyCacheDuration      = "cache_duration"
	KeyRespectPrivacy     = "respect_privacy"
	KeyHidePrivateFriends = "hide_private_friends"
	KeyMinMutualThreshold = "min_mutual_threshold"
	KeyExcludeRoles       = "exclude_roles"
	KeyDebugMode          = "debug_mode"
)

const (
	MinDisplayCount  = 1
	MaxDisplayCount  = 5
	MinCacheDuration = 300 * time.Second
	MaxCacheDuration = 86400 * time.Second
)

var (
	tooltipPositions = []string{"auto", "top", "bottom", "left", "right"}
	animationEffects = []string{"fade", "slide", "none"}
)

// Settings is a sanitised snapshot of the persisted options.
type Settings struct {
	Enabled            bool          `json:"enabled"`
	EnableOnDirectory  bool          `json:"enable_on_directory"`
	EnableOnProfile    bool          `json:"enable_on_profile"`
	DisplayCount       int           `json:"display_count"`
	TooltipPosition    string        `json:"tooltip_position"`
	AnimationEffect    string        `json:"animation_effect"`
	EnableCaching      bool          `json:"enable_caching"`
	CacheDuration      time.Duration `json:"-"`
	RespectPrivacy     bool          `json:"respect_privacy"`
	HidePrivateFriends bool          `json:"hide_private_friends"`
	MinMutualThreshold int           `json:"min_mutual_threshold"`
	ExcludeRoles       []string      `json:"exclude_roles"`
	DebugMode          bool          `json:"debug_mode"`
}

// Defaults returns the options applied on a fresh install.
func Defaults() Settings {
	return Settings{
		Enabled:            true,
		EnableOnDirectory:  true,
		EnableOnProfile:    true,
		DisplayCount:       3,
		TooltipPosition:    "auto",
		AnimationEffect:    "fade",
		EnableCaching:      true,
		CacheDuration:      time.Hour,
		RespectPrivacy:     true,
		HidePrivateFriends: true,
		MinMutualThreshold: 0,
		ExcludeRoles:       []string{},
		DebugMode:          false,
	}
}

// Parse applies raw key-value pairs on top of the defaults. Unknown keys and
// unparseable values are ignored; numeric values are clamped into range.
func Parse(raw map[string]string) Settings {
	return Defaults().Apply(raw)
}

// Apply returns a copy of s with the recognised keys in raw applied.
func (s Settings) Apply(raw map[string]string) Settings {
	out := s
	out.ExcludeRoles = slices.Clone(s.ExcludeRoles)

	for key, value := range raw {
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case KeyEnabled:
			out.Enabled = parseBool(value, out.Enabled)
		case KeyEnableOnDirectory:
			out.EnableOnDirectory = parseBool(value, out.EnableOnDirectory)
		case KeyEnableOnProfile:
			out.EnableOnProfile = parseBool(value, out.EnableOnProfile)
		case KeyDisplayCount:
			if n, err := strconv.Atoi(value); err == nil {
				out.DisplayCount = ClampDisplayCount(n)
			}
		case KeyTooltipPosition:
			if slices.Contains(tooltipPositions, value) {
				out.TooltipPosition = value
			}
		case KeyAnimationEffect:
			if slices.Contains(animationEffects, value) {
				out.AnimationEffect = value
			}
		case KeyEnableCaching:
			out.EnableCaching = parseBool(value, out.EnableCaching)
		case KeyCacheDuration:
			if n, err := strconv.Atoi(value); err == nil {
				out.CacheDuration = clampDuration(time.Duration(n) * time.Second)
			}
		case KeyRespectPrivacy:
			out.RespectPrivacy = parseBool(value, out.RespectPrivacy)
		case KeyHidePrivateFriends:
			out.HidePrivateFriends = parseBool(value, out.HidePrivateFriends)
		case KeyMinMutualThreshold:
			if n, err := strconv.Atoi(value); err == nil {
				out.MinMutualThreshold = max(n, 0)
			}
		case KeyExcludeRoles:
			out.ExcludeRoles = splitList(value)
		case KeyDebugMode:
			out.DebugMode = parseBool(value, out.DebugMode)
		}
	}
	return out
}

// Values encodes s back into its persisted key-value form.
func (s Settings) Values() map[string]string {
	return map[string]string{
		KeyEnabled:            formatBool(s.Enabled),
		KeyEnableOnDirectory:  formatBool(s.EnableOnDirectory),
		KeyEnableOnProfile:    formatBool(s.EnableOnProfile),
		KeyDisplayCount:       strconv.Itoa(s.DisplayCount),
		KeyTooltipPosition:    s.TooltipPosition,
		KeyAnimationEffect:    s.AnimationEffect,
		KeyEnableCaching:      formatBool(s.EnableCaching),
		KeyCacheDuration:      strconv.Itoa(int(s.CacheDuration / time.Second)),
		KeyRespectPrivacy:     formatBool(s.RespectPrivacy),
		KeyHidePrivateFriends: formatBool(s.HidePrivateFriends),
		KeyMinMutualThreshold: strconv.Itoa(s.MinMutualThreshold),
		KeyExcludeRoles:       strings.Join(s.ExcludeRoles, ","),
		KeyDebugMode:          formatBool(s.DebugMode),
	}
}

// ExcludesAny reports whether any of roles is listed in ExcludeRoles.
func (s Settings) ExcludesAny(roles []string) bool {
	for _, role := range roles {
		if slices.Contains(s.ExcludeRoles, role) {
			return true
		}
	}
	return false
}

// ClampDisplayCount bounds an inline display count to [1,5].
func ClampDisplayCount(n int) int {
	return min(max(n, MinDisplayCount), MaxDisplayCount)
}

func clampDuration(d time.Duration) time.Duration {
	return min(max(d, MinCacheDuration), MaxCacheDuration)
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(value) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off", "":
		return false
	default:
		return fallback
	}
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func splitList(value string) []string {
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" && !slices.Contains(out, part) {
			out = append(out, part)
		}
	}
	return out
}
