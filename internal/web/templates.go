package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	PageHome     = "home.html"
	PageLanding  = "landing.html"
	PageLoading  = "loading.html"
	PageNotFound = "notfound.html"
)

// Templates holds the public pages, each parsed together with the layout.
type Templates struct {
	cache map[string]*template.Template
}

func NewTemplates() (*Templates, error) {
	layout, err := template.New("layout.html").Funcs(templateFuncMap()).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, err
	}

	t := &Templates{cache: make(map[string]*template.Template)}
	for _, page := range []string{PageHome, PageLanding, PageLoading, PageNotFound} {
		clone, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		pt, err := clone.ParseFS(templateFS, "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		t.cache[page] = pt
	}
	return t, nil
}

// Execute writes page to w.
func (t *Templates) Execute(w io.Writer, page string, data any) error {
	pt, ok := t.cache[page]
	if !ok {
		return fmt.Errorf("template not found: %s", page)
	}
	return pt.Execute(w, data)
}

// Render renders page into a buffer first so a template error never leaves a
// half-written response.
func (t *Templates) Render(w http.ResponseWriter, status int, page string, data any) error {
	var buf bytes.Buffer
	if err := t.Execute(&buf, page, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// LandingData feeds landing.html.
type LandingData struct {
	Title       string
	Description string
	LogoURL     string
	CTAText     string
	RedirectURL string
	Destination string
}

// LoadingData feeds loading.html, the client-mode redirect page.
type LoadingData struct {
	ShortCode   string
	FallbackURL string
}
