package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mutualfriends/backend/internal/logging"
	"github.com/mutualfriends/backend/internal/service"
)

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

func respondMessage(ctx context.Context, w http.ResponseWriter, status int, message string) {
	respondJSON(ctx, w, status, map[string]string{"message": message})
}

// respondError maps service failures onto HTTP statuses. Anything else is a 500.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	failure, ok := service.AsFailure(err)
	if !ok {
		logging.FromContext(ctx).Error("request handling failed", "error", err)
		respondMessage(ctx, w, http.StatusInternalServerError, "internal error")
		return
	}
	if failure.Reason == service.ReasonRateLimited {
		w.Header().Set("Retry-After", "60")
	}
	respondMessage(ctx, w, statusFor(failure.Reason), failure.Message)
}

func statusFor(reason service.Reason) int {
	switch reason {
	case service.ReasonInvalidAuth:
		return http.StatusUnauthorized
	case service.ReasonInvalidTarget:
		return http.StatusNotFound
	case service.ReasonInvalidParams:
		return http.StatusBadRequest
	case service.ReasonRateLimited:
		return http.StatusTooManyRequests
	case service.ReasonDisabled, service.ReasonForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
