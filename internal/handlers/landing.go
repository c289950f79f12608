package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scmmishra/qrtrack/internal/models"
	"github.com/scmmishra/qrtrack/internal/web"
)

// PageHandler serves the public HTML pages.
type PageHandler struct {
	Resolver CodeResolver
	Pages    *web.Templates
	Log      *slog.Logger
}

func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, web.PageHome, nil)
}

// Landing renders the preview page for GET /qr/{shortCode}. Its button links
// to the redirect entry point; nothing is recorded here.
func (h *PageHandler) Landing(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")
	code, err := h.Resolver.ResolveForLandingPage(r.Context(), shortCode)
	if err != nil {
		h.render(w, http.StatusNotFound, web.PageNotFound, nil)
		return
	}

	title := code.LandingPage.Title
	if title == "" {
		title = code.Name
	}
	cta := code.LandingPage.CTAText
	if cta == "" {
		cta = models.DefaultCTAText
	}
	h.render(w, http.StatusOK, web.PageLanding, web.LandingData{
		Title:       title,
		Description: code.LandingPage.Description,
		LogoURL:     code.LandingPage.LogoURL,
		CTAText:     cta,
		RedirectURL: "/r/" + code.ShortCode,
		Destination: code.DestinationURL,
	})
}

func (h *PageHandler) render(w http.ResponseWriter, status int, page string, data any) {
	if err := h.Pages.Render(w, status, page, data); err != nil {
		h.Log.Error("render page", slog.String("page", page), slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
