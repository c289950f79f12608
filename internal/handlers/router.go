package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scmmishra/qrtrack/internal/config"
	"github.com/scmmishra/qrtrack/internal/models"
	"github.com/scmmishra/qrtrack/internal/web"
)

type Deps struct {
	Config   *config.Config
	Store    *models.Store
	Resolver CodeResolver
	Recorder ScanRecorder
	Pages    *web.Templates
	Log      *slog.Logger
	// AccessLog enables chi's request logger.
	AccessLog bool
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	cfg := d.Config

	redirect := &RedirectHandler{
		Resolver:    d.Resolver,
		Recorder:    d.Recorder,
		Pages:       d.Pages,
		FallbackURL: cfg.FallbackURL,
		Mode:        cfg.RedirectMode,
		Log:         log,
	}
	track := &TrackHandler{
		Resolver: d.Resolver,
		Codes:    d.Store,
		Recorder: d.Recorder,
		Log:      log,
	}
	pages := &PageHandler{Resolver: d.Resolver, Pages: d.Pages, Log: log}
	codes := &CodeHandler{Store: d.Store, Resolver: d.Resolver, Log: log}
	qr := &QRHandler{Codes: codes, ShortURL: cfg.ShortURL, Log: log}

	r := chi.NewRouter()
	if d.AccessLog {
		r.Use(chimiddleware.Logger)
	}

	// Scan path: a panic becomes a fallback redirect.
	r.Group(func(r chi.Router) {
		r.Use(RecoverToFallback(cfg.FallbackURL, log))
		r.Get("/r/{shortCode}", redirect.ServeHTTP)
		r.Get("/resolve/{shortCode}", track.Resolve)
		r.Post("/track", track.Track)
	})

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Recoverer)
		r.Get("/", pages.Home)
		r.Get("/qr/{shortCode}", pages.Landing)
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Handle("/metrics", promhttp.Handler())

		r.Route("/api", func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.APIKey))
			r.Post("/codes", codes.Create)
			r.Get("/codes", codes.List)
			r.Get("/codes/{id}", codes.Get)
			r.Patch("/codes/{id}", codes.Update)
			r.Delete("/codes/{id}", codes.Delete)
			r.Get("/codes/{id}/scans", codes.Scans)
			r.Get("/codes/{id}/qr.png", qr.PNG)
		})
	})

	return r
}
