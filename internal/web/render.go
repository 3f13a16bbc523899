package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/a-h/templ"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page names, one per template file.
const (
	PageIndex      = "index"
	PageRegister   = "register"
	PageLogin      = "login"
	PageProfile    = "profile"
	PageGames      = "games"
	PageGenres     = "genres"
	PageNews       = "news"
	PageReviews    = "reviews"
	PageGameForm   = "game_form"
	PageGenreForm  = "genre_form"
	PageNewsForm   = "news_form"
	PageReviewForm = "review_form"
	PageError      = "error"
)

var pageNames = []string{
	PageIndex, PageRegister, PageLogin, PageProfile,
	PageGames, PageGenres, PageNews, PageReviews,
	PageGameForm, PageGenreForm, PageNewsForm, PageReviewForm,
	PageError,
}

// Renderer holds the parsed page templates.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every embedded page with the shared layout.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/base.html",
			"templates/partials.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Component returns page rendered with data as a templ.Component.
func (r *Renderer) Component(page string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, ok := r.pages[page]
		if !ok {
			return fmt.Errorf("unknown page %q", page)
		}
		return t.ExecuteTemplate(w, "base", data)
	})
}

// Handler returns an http.Handler that renders page with the given status.
func (r *Renderer) Handler(page string, data any, status int) http.Handler {
	return templ.Handler(r.Component(page, data), templ.WithStatus(status))
}

// Static returns the embedded stylesheet directory.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

var funcs = template.FuncMap{
	"formatTime": formatTime,
	"statusText": http.StatusText,
	"dict":       dict,
	"choices":    choices,
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("02 Jan 2006 15:04")
}

func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, errors.New("dict needs key/value pairs")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", kv[i])
		}
		m[key] = kv[i+1]
	}
	return m, nil
}

// choices returns names with selected prepended when it is set but missing,
// so editing a document whose genre was since removed keeps its value.
func choices(names []string, selected string) []string {
	if selected == "" {
		return names
	}
	for _, n := range names {
		if n == selected {
			return names
		}
	}
	return append([]string{selected}, names...)
}
