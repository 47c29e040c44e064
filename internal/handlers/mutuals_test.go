package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/mutualfriends/backend/internal/models"
	"github.com/mutualfriends/backend/internal/service"
)

type stubMutuals struct {
	lastMutual service.MutualRequest
	lastAll    service.AllRequest
	err        error
	cleared    int
	clearErr   error
}

func (s *stubMutuals) GetMutualFriends(_ context.Context, req service.MutualRequest) (service.MutualResponse, error) {
	s.lastMutual = req
	if s.err != nil {
		return service.MutualResponse{}, s.err
	}
	return service.MutualResponse{
		Count:   2,
		Mutuals: []models.FriendSummary{{ID: 3, DisplayName: "carol"}},
		HTML:    "<div></div>",
	}, nil
}

func (s *stubMutuals) GetAllMutualFriends(_ context.Context, req service.AllRequest) (service.AllResponse, error) {
	s.lastAll = req
	if s.err != nil {
		return service.AllResponse{}, s.err
	}
	return service.AllResponse{
		MutualPage: models.MutualPage{Count: 45, Page: req.Page, TotalPages: 3, Friends: []models.FriendSummary{}},
		HTML:       "<ul></ul>",
	}, nil
}

func (s *stubMutuals) ClearCache(context.Context) error {
	s.cleared++
	return s.clearErr
}

func TestMutualHandlerGetJSON(t *testing.T) {
	svc := &stubMutuals{}
	handler := MutualHandler{Service: svc}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/mutuals", bytes.NewBufferString(`{"target_user_id":200,"display_count":4,"format":"modal","placement":"Profile"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer viewer-token")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	want := service.MutualRequest{
		AccessToken:  "viewer-token",
		TargetID:     200,
		DisplayCount: 4,
		Format:       service.FormatModal,
		Placement:    service.PlacementProfile,
	}
	if svc.lastMutual != want {
		t.Fatalf("expected %+v got %+v", want, svc.lastMutual)
	}

	var resp struct {
		Count   int `json:"count"`
		Mutuals []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"mutuals"`
		HTML string `json:"html"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 || len(resp.Mutuals) != 1 || resp.Mutuals[0].Name != "carol" || resp.HTML == "" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestMutualHandlerGetForm(t *testing.T) {
	svc := &stubMutuals{}
	handler := MutualHandler{Service: svc}

	form := url.Values{"target_user_id": {"200"}, "display_count": {"2"}, "format": {"bogus"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/mutuals", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if svc.lastMutual.TargetID != 200 || svc.lastMutual.DisplayCount != 2 || svc.lastMutual.Format != service.FormatTooltip {
		t.Fatalf("unexpected request %+v", svc.lastMutual)
	}

	form.Set("target_user_id", "abc")
	req = httptest.NewRequest(http.MethodPost, "/api/v1/mutuals", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	handler.Get(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for malformed id got %d", rec.Code)
	}
}

func TestMutualHandlerMapsFailures(t *testing.T) {
	tests := []struct {
		reason service.Reason
		status int
	}{
		{service.ReasonInvalidAuth, http.StatusUnauthorized},
		{service.ReasonInvalidTarget, http.StatusNotFound},
		{service.ReasonInvalidParams, http.StatusBadRequest},
		{service.ReasonRateLimited, http.StatusTooManyRequests},
		{service.ReasonDisabled, http.StatusForbidden},
		{service.ReasonForbidden, http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(string(tc.reason), func(t *testing.T) {
			svc := &stubMutuals{err: &service.Failure{Reason: tc.reason, Message: "nope"}}
			handler := MutualHandler{Service: svc}

			rec := httptest.NewRecorder()
			handler.Get(rec, httptest.NewRequest(http.MethodPost, "/api/v1/mutuals", bytes.NewBufferString(`{"target_user_id":1}`)))

			if rec.Code != tc.status {
				t.Fatalf("expected status %d got %d", tc.status, rec.Code)
			}
			var payload map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if payload["message"] != "nope" {
				t.Fatalf("expected failure message, got %v", payload)
			}
		})
	}

	svc := &stubMutuals{err: errors.New("boom")}
	rec := httptest.NewRecorder()
	MutualHandler{Service: svc}.Get(rec, httptest.NewRequest(http.MethodPost, "/api/v1/mutuals", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500 for unexpected errors got %d", rec.Code)
	}
}

func TestMutualHandlerAll(t *testing.T) {
	svc := &stubMutuals{}
	handler := MutualHandler{Service: svc}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/mutuals/all", bytes.NewBufferString(`{"target_user_id":200,"page":2}`))
	req.Header.Set("Authorization", "Bearer viewer-token")
	rec := httptest.NewRecorder()

	handler.All(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if svc.lastAll != (service.AllRequest{AccessToken: "viewer-token", TargetID: 200, Page: 2}) {
		t.Fatalf("unexpected request %+v", svc.lastAll)
	}

	var payload map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"count", "page", "total_pages", "friends", "html"} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("expected %q in response %v", key, payload)
		}
	}

	form := url.Values{"target_user_id": {"200"}}
	req = httptest.NewRequest(http.MethodPost, "/api/v1/mutuals/all", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	handler.All(rec, req)
	if rec.Code != http.StatusOK || svc.lastAll.TargetID != 200 || svc.lastAll.Page != 1 {
		t.Fatalf("expected form request without page to ask for page 1, got status %d request %+v", rec.Code, svc.lastAll)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/mutuals/all", bytes.NewBufferString(`{"target_user_id":200}`))
	rec = httptest.NewRecorder()
	handler.All(rec, req)
	if svc.lastAll.Page != 1 {
		t.Fatalf("expected json request without page to ask for page 1, got %+v", svc.lastAll)
	}

	form.Set("page", "0")
	req = httptest.NewRequest(http.MethodPost, "/api/v1/mutuals/all", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	handler.All(rec, req)
	if svc.lastAll.Page != 0 {
		t.Fatalf("expected explicit page forwarded unchanged, got %+v", svc.lastAll)
	}

	rec = httptest.NewRecorder()
	handler.All(rec, httptest.NewRequest(http.MethodGet, "/api/v1/mutuals/all", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405 got %d", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := bearerToken(req); got != "" {
		t.Fatalf("expected empty token got %q", got)
	}
	req.Header.Set("Authorization", "bearer  abc ")
	if got := bearerToken(req); got != "abc" {
		t.Fatalf("expected abc got %q", got)
	}
	req.Header.Set("Authorization", "Basic abc")
	if got := bearerToken(req); got != "" {
		t.Fatalf("expected non-bearer schemes ignored got %q", got)
	}
}
