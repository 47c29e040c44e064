package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"

	"github.com/mutualfriends/backend/internal/models"
)

const textHTML = "text/html"

//go:embed templates/*.html
var templateFS embed.FS

// TooltipData feeds the inline preview and the modal.
type TooltipData struct {
	TargetID   models.UserID
	Count      int
	Friends    []models.FriendSummary
	TotalPages int
	Position   string
	Animation  string
}

// Renderer produces minified HTML fragments for mutual friend results.
type Renderer struct {
	templates *template.Template
	minify    *minify.M
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("fragments").Funcs(template.FuncMap{
		"plural": plural,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	m := minify.New()
	m.Add(textHTML, &html.Minifier{KeepEndTags: true, KeepQuotes: true})

	return &Renderer{templates: tmpl, minify: m}, nil
}

// Tooltip renders the hover preview.
func (r *Renderer) Tooltip(data TooltipData) (string, error) {
	return r.execute("tooltip", data)
}

// Modal renders the dialog shell with the first page of friends.
func (r *Renderer) Modal(data TooltipData) (string, error) {
	return r.execute("modal", data)
}

// List renders one page of the full listing.
func (r *Renderer) List(friends []models.FriendSummary) (string, error) {
	if friends == nil {
		friends = []models.FriendSummary{}
	}
	return r.execute("list", friends)
}

func (r *Renderer) execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}

	out, err := r.minify.Bytes(textHTML, buf.Bytes())
	if err != nil {
		// Unminified markup is still valid.
		return buf.String(), nil
	}
	return string(out), nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
