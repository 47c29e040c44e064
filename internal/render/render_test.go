package render

import (
	"strings"
	"testing"

	"github.com/mutualfriends/backend/internal/models"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return r
}

func friend(id models.UserID, name string) models.FriendSummary {
	return models.FriendSummary{
		ID:          id,
		DisplayName: name,
		AvatarURL:   "https://cdn.example.com/" + name + ".png",
		ProfileURL:  "https://social.example.com/u/" + name,
	}
}

func TestTooltipShowsViewAllWhenTruncated(t *testing.T) {
	r := newRenderer(t)

	out, err := r.Tooltip(TooltipData{
		TargetID:  42,
		Count:     3,
		Friends:   []models.FriendSummary{friend(3, "carol")},
		Position:  "top",
		Animation: "slide",
	})
	if err != nil {
		t.Fatalf("render tooltip: %v", err)
	}

	for _, want := range []string{
		`data-position="top"`,
		`data-animation="slide"`,
		`<strong>3</strong> mutual friends`,
		`href="https://social.example.com/u/carol"`,
		`class="mf-view-all" data-user-id="42"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %s", want, out)
		}
	}
	if strings.Contains(out, "\n\t") {
		t.Fatalf("expected minified markup, got %q", out)
	}
}

func TestTooltipSingularAndComplete(t *testing.T) {
	r := newRenderer(t)

	out, err := r.Tooltip(TooltipData{TargetID: 7, Count: 1, Friends: []models.FriendSummary{friend(3, "carol")}})
	if err != nil {
		t.Fatalf("render tooltip: %v", err)
	}
	if !strings.Contains(out, "<strong>1</strong> mutual friend<") {
		t.Fatalf("expected singular label in %s", out)
	}
	if strings.Contains(out, "View all") {
		t.Fatalf("did not expect view all link when every friend is shown: %s", out)
	}
}

func TestTooltipEmpty(t *testing.T) {
	r := newRenderer(t)

	out, err := r.Tooltip(TooltipData{TargetID: 7})
	if err != nil {
		t.Fatalf("render tooltip: %v", err)
	}
	if strings.Contains(out, "mf-mutual-list") || !strings.Contains(out, "mf-tooltip") {
		t.Fatalf("expected empty tooltip shell, got %s", out)
	}
}

func TestListEscapesFriendData(t *testing.T) {
	r := newRenderer(t)

	out, err := r.List([]models.FriendSummary{{
		ID:          9,
		DisplayName: `<script>alert(1)</script>`,
		ProfileURL:  "javascript:alert(1)",
	}})
	if err != nil {
		t.Fatalf("render list: %v", err)
	}
	if !strings.Contains(out, `<span class="mf-friend-name">&lt;script`) {
		t.Fatalf("expected display name escaped, got %s", out)
	}
	if strings.Contains(out, "javascript:") {
		t.Fatalf("expected unsafe url filtered, got %s", out)
	}
}

func TestModalEmbedsList(t *testing.T) {
	r := newRenderer(t)

	out, err := r.Modal(TooltipData{
		TargetID:   42,
		Count:      2,
		TotalPages: 1,
		Friends:    []models.FriendSummary{friend(3, "carol"), friend(4, "dave")},
	})
	if err != nil {
		t.Fatalf("render modal: %v", err)
	}
	if strings.Count(out, `class="mf-friend-item"`) != 2 {
		t.Fatalf("expected two list items, got %s", out)
	}
	if !strings.Contains(out, `role="dialog"`) || !strings.Contains(out, `data-total-pages="1"`) {
		t.Fatalf("expected dialog shell with pagination, got %s", out)
	}
}

func TestListEmpty(t *testing.T) {
	r := newRenderer(t)

	out, err := r.List(nil)
	if err != nil {
		t.Fatalf("render list: %v", err)
	}
	if !strings.Contains(out, "mf-friends-list") || strings.Contains(out, "<li") {
		t.Fatalf("expected empty list, got %s", out)
	}
}
