package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scmmishra/qrtrack/internal/analytics"
	"github.com/scmmishra/qrtrack/internal/config"
	"github.com/scmmishra/qrtrack/internal/models"
	"github.com/scmmishra/qrtrack/internal/utm"
	"github.com/scmmishra/qrtrack/internal/web"
)

type CodeResolver interface {
	Resolve(ctx context.Context, shortCode string) (*models.TrackedCode, error)
	ResolveForLandingPage(ctx context.Context, shortCode string) (*models.TrackedCode, error)
	Invalidate(shortCode string)
}

type ScanRecorder interface {
	Record(code *models.TrackedCode, rc analytics.RequestContext)
	RecordNow(ctx context.Context, code *models.TrackedCode, rc analytics.RequestContext) error
}

// RedirectHandler serves GET /r/{shortCode}.
type RedirectHandler struct {
	Resolver    CodeResolver
	Recorder    ScanRecorder
	Pages       *web.Templates
	FallbackURL string
	Mode        string
	Log         *slog.Logger
}

func (h *RedirectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")

	if h.Mode == config.RedirectModeClient {
		h.serveLoadingPage(w, r, shortCode)
		return
	}

	code, err := h.Resolver.Resolve(r.Context(), shortCode)
	if err != nil {
		analytics.ObserveRedirect(analytics.OutcomeNotFound)
		http.Redirect(w, r, h.FallbackURL, http.StatusFound)
		return
	}

	h.Recorder.Record(code, analytics.RequestContextFrom(r))

	analytics.ObserveRedirect(analytics.OutcomeRedirected)
	http.Redirect(w, r, destinationFor(code), http.StatusFound)
}

func (h *RedirectHandler) serveLoadingPage(w http.ResponseWriter, r *http.Request, shortCode string) {
	w.Header().Set("Cache-Control", "no-store")
	err := h.Pages.Render(w, http.StatusOK, web.PageLoading, web.LoadingData{
		ShortCode:   shortCode,
		FallbackURL: h.FallbackURL,
	})
	if err != nil {
		h.Log.Error("render loading page", slog.String("short_code", shortCode), slog.Any("error", err))
		http.Redirect(w, r, h.FallbackURL, http.StatusFound)
	}
}

// destinationFor is the stored destination with UTM applied, or the raw
// destination when tracking is off.
func destinationFor(code *models.TrackedCode) string {
	if !code.EnableTracking {
		return code.DestinationURL
	}
	return utm.Compose(code.DestinationURL, code.UTM)
}
