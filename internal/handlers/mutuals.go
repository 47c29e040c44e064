package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/mutualfriends/backend/internal/logging"
	"github.com/mutualfriends/backend/internal/models"
	"github.com/mutualfriends/backend/internal/service"
)

// MutualHandler serves the tooltip and full-listing endpoints.
type MutualHandler struct {
	Service MutualsService
}

// mutualRequest accepts either a JSON body or a form-encoded body with the
// same field names. A missing page means the first page.
type mutualRequest struct {
	TargetUserID int64  `json:"target_user_id"`
	DisplayCount int    `json:"display_count"`
	Format       string `json:"format"`
	Placement    string `json:"placement"`
	Page         *int   `json:"page"`
}

func (r mutualRequest) page() int {
	if r.Page == nil {
		return 1
	}
	return *r.Page
}

// Get handles POST /api/v1/mutuals.
func (h MutualHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if h.Service == nil {
		logging.FromContext(ctx).Error("mutuals service unavailable")
		respondMessage(ctx, w, http.StatusInternalServerError, "mutual friends unavailable")
		return
	}

	req, err := decodeMutualRequest(r)
	if err != nil {
		logging.FromContext(ctx).Warn("invalid mutual friends payload", "error", err)
		respondMessage(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.Service.GetMutualFriends(ctx, service.MutualRequest{
		AccessToken:  bearerToken(r),
		TargetID:     models.UserID(req.TargetUserID),
		DisplayCount: req.DisplayCount,
		Format:       service.ParseFormat(req.Format),
		Placement:    service.Placement(strings.ToLower(strings.TrimSpace(req.Placement))),
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, resp)
}

// All handles POST /api/v1/mutuals/all.
func (h MutualHandler) All(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if h.Service == nil {
		logging.FromContext(ctx).Error("mutuals service unavailable")
		respondMessage(ctx, w, http.StatusInternalServerError, "mutual friends unavailable")
		return
	}

	req, err := decodeMutualRequest(r)
	if err != nil {
		logging.FromContext(ctx).Warn("invalid mutual friends payload", "error", err)
		respondMessage(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.Service.GetAllMutualFriends(ctx, service.AllRequest{
		AccessToken: bearerToken(r),
		TargetID:    models.UserID(req.TargetUserID),
		Page:        req.page(),
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, resp)
}

func decodeMutualRequest(r *http.Request) (mutualRequest, error) {
	var req mutualRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data" {
		if err := r.ParseForm(); err != nil {
			return req, err
		}
		var err error
		if req.TargetUserID, err = formInt64(r, "target_user_id"); err != nil {
			return req, err
		}
		count, err := formInt64(r, "display_count")
		if err != nil {
			return req, err
		}
		req.DisplayCount = int(count)
		if strings.TrimSpace(r.PostFormValue("page")) != "" {
			page, err := formInt64(r, "page")
			if err != nil {
				return req, err
			}
			n := int(page)
			req.Page = &n
		}
		req.Format = r.PostFormValue("format")
		req.Placement = r.PostFormValue("placement")
		return req, nil
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, err
	}
	return req, nil
}

func formInt64(r *http.Request, key string) (int64, error) {
	raw := strings.TrimSpace(r.PostFormValue(key))
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
