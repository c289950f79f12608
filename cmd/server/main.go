package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scmmishra/qrtrack/internal/analytics"
	"github.com/scmmishra/qrtrack/internal/cache"
	"github.com/scmmishra/qrtrack/internal/config"
	"github.com/scmmishra/qrtrack/internal/db"
	"github.com/scmmishra/qrtrack/internal/geo"
	"github.com/scmmishra/qrtrack/internal/handlers"
	"github.com/scmmishra/qrtrack/internal/logger"
	"github.com/scmmishra/qrtrack/internal/models"
	"github.com/scmmishra/qrtrack/internal/resolver"
	"github.com/scmmishra/qrtrack/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "qrtrack: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(log)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer database.Close()
	store := models.NewStore(database)

	geoReader, err := geo.Open(cfg.GeoIPPath)
	if err != nil {
		log.Warn("geo lookups disabled", slog.Any("error", err))
		geoReader, _ = geo.Open("")
	}
	defer geoReader.Close()

	var enricher analytics.Enricher
	if geoReader.Enabled() {
		enricher = geoReader
	}

	res := resolver.New(store, cache.New(cfg.CacheSize, cfg.CacheTTL), log)
	recorder := analytics.NewRecorder(store, analytics.Options{
		BufferSize:    cfg.BufferSize,
		FlushInterval: cfg.FlushInterval,
		SkipBots:      cfg.SkipBots,
		Enricher:      enricher,
		Logger:        log,
	})

	pages, err := web.NewTemplates()
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: handlers.NewRouter(handlers.Deps{
			Config:    cfg,
			Store:     store,
			Resolver:  res,
			Recorder:  recorder,
			Pages:     pages,
			Log:       log,
			AccessLog: true,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Info("qrtrack listening",
			slog.String("addr", srv.Addr),
			slog.String("redirect_mode", cfg.RedirectMode),
			slog.Bool("geo", geoReader.Enabled()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errCh:
		recorder.Shutdown()
		return fmt.Errorf("server: %w", err)
	}
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("server shutdown", slog.Any("error", err))
	}

	// Flush queued scans after the last request has finished.
	recorder.Shutdown()
	log.Info("goodbye")
	return nil
}
