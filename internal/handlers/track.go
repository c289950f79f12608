package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/scmmishra/qrtrack/internal/analytics"
	"github.com/scmmishra/qrtrack/internal/models"
)

type CodeGetter interface {
	GetCode(ctx context.Context, id string) (*models.TrackedCode, error)
}

// TrackHandler serves the client-mode endpoints: GET /resolve/{shortCode}
// and POST /track.
type TrackHandler struct {
	Resolver CodeResolver
	Codes    CodeGetter
	Recorder ScanRecorder
	Log      *slog.Logger
}

type trackRequest struct {
	QRCodeID string `json:"qr_code_id"`
}

type resolveResponse struct {
	QRCodeID    string `json:"qr_code_id"`
	Destination string `json:"destination"`
	Tracking    bool   `json:"tracking"`
}

func (h *TrackHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	code, err := h.Resolver.Resolve(r.Context(), chi.URLParam(r, "shortCode"))
	if err != nil {
		analytics.ObserveRedirect(analytics.OutcomeNotFound)
		jsonError(w, "not found", http.StatusNotFound)
		return
	}

	analytics.ObserveRedirect(analytics.OutcomeRedirected)
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resolveResponse{
		QRCodeID:    code.ID,
		Destination: destinationFor(code),
		Tracking:    code.EnableTracking,
	})
}

func (h *TrackHandler) Track(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.QRCodeID == "" {
		jsonError(w, "qr_code_id is required", http.StatusBadRequest)
		return
	}

	code, err := h.Codes.GetCode(r.Context(), req.QRCodeID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			jsonError(w, "not found", http.StatusNotFound)
			return
		}
		h.Log.Error("track lookup failed", slog.String("code_id", req.QRCodeID), slog.Any("error", err))
		jsonError(w, "failed to record scan", http.StatusInternalServerError)
		return
	}
	if !code.Servable(time.Now()) {
		jsonError(w, "not found", http.StatusNotFound)
		return
	}

	if err := h.Recorder.RecordNow(r.Context(), code, analytics.RequestContextFrom(r)); err != nil {
		h.Log.Warn("scan write failed", slog.String("code_id", code.ID), slog.Any("error", err))
		jsonError(w, "failed to record scan", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
