package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/mutualfriends/backend/internal/logging"
	"github.com/mutualfriends/backend/internal/models"
	"github.com/mutualfriends/backend/internal/socialgraph"
)

// AdminHandler exposes privileged maintenance endpoints. Every call must carry
// the admin bearer token.
type AdminHandler struct {
	Admin    AdminVerifier
	Service  MutualsService
	Settings SettingsManager
	Sessions SessionManager
	Users    UserDirectory
	Events   EventPublisher
}

func (h AdminHandler) authorize(w http.ResponseWriter, r *http.Request) bool {
	if h.Admin != nil && h.Admin.Verify(bearerToken(r)) {
		return true
	}
	logging.FromContext(r.Context()).Warn("admin authorization failed")
	respondMessage(r.Context(), w, http.StatusForbidden, "You do not have permission to do this.")
	return false
}

// ClearCache handles POST /api/v1/admin/cache/clear.
func (h AdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.authorize(w, r) {
		return
	}

	ctx := r.Context()
	if h.Service == nil {
		respondMessage(ctx, w, http.StatusInternalServerError, "mutual friends unavailable")
		return
	}
	if err := h.Service.ClearCache(ctx); err != nil {
		logging.FromContext(ctx).Error("clear cache failed", "error", err)
		respondMessage(ctx, w, http.StatusInternalServerError, "Failed to clear cache")
		return
	}
	respondMessage(ctx, w, http.StatusOK, "Cache cleared successfully")
}

// ManageSettings handles GET and PUT /api/v1/admin/settings.
func (h AdminHandler) ManageSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.authorize(w, r) {
		return
	}

	ctx := r.Context()
	if h.Settings == nil {
		respondMessage(ctx, w, http.StatusInternalServerError, "settings unavailable")
		return
	}

	if r.Method == http.MethodGet {
		respondJSON(ctx, w, http.StatusOK, h.Settings.Current().Values())
		return
	}

	var changes map[string]string
	if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
		logging.FromContext(ctx).Warn("invalid settings payload", "error", err)
		respondMessage(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.Settings.Update(ctx, changes)
	if err != nil {
		logging.FromContext(ctx).Error("settings update failed", "error", err)
		respondMessage(ctx, w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	logging.FromContext(ctx).Info("settings updated", "keys", len(changes))
	respondJSON(ctx, w, http.StatusOK, updated.Values())
}

type issueSessionRequest struct {
	UserID int64 `json:"userId"`
}

// IssueSession handles POST /api/v1/admin/sessions. The host platform calls it
// to obtain tokens for a logged-in user.
func (h AdminHandler) IssueSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.authorize(w, r) {
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)
	if h.Sessions == nil {
		logger.Error("session manager unavailable")
		respondMessage(ctx, w, http.StatusInternalServerError, "session service unavailable")
		return
	}

	var req issueSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID <= 0 {
		respondMessage(ctx, w, http.StatusBadRequest, "userId must be a positive integer")
		return
	}
	userID := models.UserID(req.UserID)

	if h.Users != nil {
		ok, err := h.Users.Exists(ctx, userID)
		if err != nil {
			logger.Error("session user lookup failed", "userId", userID, "error", err)
			respondMessage(ctx, w, http.StatusInternalServerError, "unable to verify user")
			return
		}
		if !ok {
			respondMessage(ctx, w, http.StatusNotFound, "User not found")
			return
		}
	}

	tokens, err := h.Sessions.Issue(ctx, userID)
	if err != nil {
		logger.Error("failed to issue session", "userId", userID, "error", err)
		respondMessage(ctx, w, http.StatusInternalServerError, "failed to create session")
		return
	}
	respondJSON(ctx, w, http.StatusCreated, authResponse{Tokens: tokens})
}

type friendshipEventRequest struct {
	Type    string  `json:"type"`
	UserIDs []int64 `json:"userIds"`
}

// FriendshipEvent handles POST /api/v1/events/friendship.
func (h AdminHandler) FriendshipEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.authorize(w, r) {
		return
	}

	ctx := r.Context()
	if h.Events == nil {
		respondMessage(ctx, w, http.StatusInternalServerError, "event bus unavailable")
		return
	}

	var req friendshipEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	kind, ok := socialgraph.ParseEventKind(req.Type)
	if !ok || len(req.UserIDs) == 0 {
		respondMessage(ctx, w, http.StatusBadRequest, "type must be accepted, deleted or withdrawn and userIds must not be empty")
		return
	}
	for _, id := range req.UserIDs {
		if id <= 0 {
			respondMessage(ctx, w, http.StatusBadRequest, "userIds must be positive")
			return
		}
	}

	for _, id := range req.UserIDs {
		h.Events.Publish(ctx, socialgraph.Event{Kind: kind, UserID: models.UserID(id)})
	}
	respondJSON(ctx, w, http.StatusAccepted, map[string]int{"published": len(req.UserIDs)})
}
