package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/scmmishra/qrtrack/internal/models"
	"github.com/scmmishra/qrtrack/internal/slug"
	"github.com/scmmishra/qrtrack/internal/utm"
)

const (
	defaultListLimit = 25
	maxListLimit     = 100
	slugAttempts     = 10
)

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// CodeHandler is the management API under /api/codes.
type CodeHandler struct {
	Store    *models.Store
	Resolver CodeResolver
	Log      *slog.Logger
}

type landingPageRequest struct {
	Enabled     *bool   `json:"enabled"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	LogoURL     *string `json:"logo_url"`
	CTAText     *string `json:"cta_text"`
}

type utmRequest struct {
	Source   *string `json:"source"`
	Medium   *string `json:"medium"`
	Campaign *string `json:"campaign"`
	Term     *string `json:"term"`
	Content  *string `json:"content"`
}

// codeRequest is shared by create and update; nil fields are left alone.
type codeRequest struct {
	OwnerID        *string             `json:"owner_id"`
	Name           *string             `json:"name"`
	DestinationURL *string             `json:"destination_url"`
	UTM            *utmRequest         `json:"utm"`
	QRColor        *string             `json:"qr_color"`
	LandingPage    *landingPageRequest `json:"landing_page"`
	Status         *models.Status      `json:"status"`
	EnableTracking *bool               `json:"enable_tracking"`
	ExpiresAt      *time.Time          `json:"expires_at"`
}

type listResponse struct {
	Codes  []models.TrackedCode `json:"codes"`
	Total  int                  `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

func (h *CodeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.DestinationURL == nil || *req.DestinationURL == "" {
		jsonError(w, "destination_url is required", http.StatusBadRequest)
		return
	}

	code := &models.TrackedCode{
		Status:         models.StatusActive,
		EnableTracking: true,
	}
	if err := req.apply(code); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if code.Name == "" {
		jsonError(w, "name is required", http.StatusBadRequest)
		return
	}

	for range slugAttempts {
		candidate, err := slug.Generate(slug.Length)
		if err != nil {
			h.Log.Error("generate short code", slog.Any("error", err))
			jsonError(w, "internal error", http.StatusInternalServerError)
			return
		}
		exists, err := h.Store.ShortCodeExists(r.Context(), candidate)
		if err != nil {
			h.Log.Error("check short code", slog.Any("error", err))
			jsonError(w, "internal error", http.StatusInternalServerError)
			return
		}
		if !exists {
			code.ShortCode = candidate
			break
		}
	}
	if code.ShortCode == "" {
		jsonError(w, "failed to generate unique short code", http.StatusInternalServerError)
		return
	}

	if err := h.Store.CreateCode(r.Context(), code); err != nil {
		h.Log.Error("create code", slog.Any("error", err))
		jsonError(w, "failed to create code", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, code)
}

func (h *CodeHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset, _ := strconv.Atoi(q.Get("offset"))
	if offset < 0 {
		offset = 0
	}
	status := models.Status(q.Get("status"))
	if status != "" && !status.Valid() {
		jsonError(w, "status must be active or inactive", http.StatusBadRequest)
		return
	}

	codes, total, err := h.Store.ListCodes(r.Context(), models.ListFilter{
		OwnerID: q.Get("owner_id"),
		Status:  status,
		Search:  q.Get("search"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		h.Log.Error("list codes", slog.Any("error", err))
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if codes == nil {
		codes = []models.TrackedCode{}
	}

	writeJSON(w, http.StatusOK, listResponse{
		Codes:  codes,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func (h *CodeHandler) Get(w http.ResponseWriter, r *http.Request) {
	code, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, code)
}

func (h *CodeHandler) Update(w http.ResponseWriter, r *http.Request) {
	code, ok := h.load(w, r)
	if !ok {
		return
	}

	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.OwnerID != nil && *req.OwnerID != code.OwnerID {
		jsonError(w, "owner_id cannot be changed", http.StatusBadRequest)
		return
	}
	if err := req.apply(code); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Store.UpdateCode(r.Context(), code); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			jsonError(w, "not found", http.StatusNotFound)
			return
		}
		h.Log.Error("update code", slog.String("code_id", code.ID), slog.Any("error", err))
		jsonError(w, "failed to update code", http.StatusInternalServerError)
		return
	}
	h.Resolver.Invalidate(code.ShortCode)

	writeJSON(w, http.StatusOK, code)
}

func (h *CodeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	code, ok := h.load(w, r)
	if !ok {
		return
	}

	if err := h.Store.DeleteCode(r.Context(), code.ID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			jsonError(w, "not found", http.StatusNotFound)
			return
		}
		h.Log.Error("delete code", slog.String("code_id", code.ID), slog.Any("error", err))
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.Resolver.Invalidate(code.ShortCode)

	w.WriteHeader(http.StatusNoContent)
}

func (h *CodeHandler) Scans(w http.ResponseWriter, r *http.Request) {
	code, ok := h.load(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	scans, err := h.Store.ListScans(r.Context(), code.ID, limit)
	if err != nil {
		h.Log.Error("list scans", slog.String("code_id", code.ID), slog.Any("error", err))
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if scans == nil {
		scans = []models.ScanEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"scans":       scans,
		"total_scans": code.TotalScans,
	})
}

// load fetches the code named by the {id} URL param, writing the error
// response itself when it returns false.
func (h *CodeHandler) load(w http.ResponseWriter, r *http.Request) (*models.TrackedCode, bool) {
	id := chi.URLParam(r, "id")
	code, err := h.Store.GetCode(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			jsonError(w, "not found", http.StatusNotFound)
			return nil, false
		}
		h.Log.Error("get code", slog.String("code_id", id), slog.Any("error", err))
		jsonError(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	return code, true
}

// apply copies the set fields of req onto c and validates the result.
func (req *codeRequest) apply(c *models.TrackedCode) error {
	if req.OwnerID != nil {
		c.OwnerID = strings.TrimSpace(*req.OwnerID)
	}
	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.DestinationURL != nil {
		dest := strings.TrimSpace(*req.DestinationURL)
		if err := utm.ValidateDestination(dest); err != nil {
			return err
		}
		c.DestinationURL = dest
	}
	if u := req.UTM; u != nil {
		setString(&c.UTM.Source, u.Source)
		setString(&c.UTM.Medium, u.Medium)
		setString(&c.UTM.Campaign, u.Campaign)
		setString(&c.UTM.Term, u.Term)
		setString(&c.UTM.Content, u.Content)
	}
	if req.QRColor != nil {
		if !hexColorRe.MatchString(*req.QRColor) {
			return errors.New("qr_color must be a #rrggbb hex color")
		}
		c.QRColor = *req.QRColor
	}
	if lp := req.LandingPage; lp != nil {
		if lp.Enabled != nil {
			c.LandingPage.Enabled = *lp.Enabled
		}
		setString(&c.LandingPage.Title, lp.Title)
		setString(&c.LandingPage.Description, lp.Description)
		setString(&c.LandingPage.LogoURL, lp.LogoURL)
		setString(&c.LandingPage.CTAText, lp.CTAText)
		if c.LandingPage.LogoURL != "" && !utm.Validate(c.LandingPage.LogoURL) {
			return errors.New("landing_page.logo_url must be an absolute http or https URL")
		}
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return errors.New("status must be active or inactive")
		}
		c.Status = *req.Status
	}
	if req.EnableTracking != nil {
		c.EnableTracking = *req.EnableTracking
	}
	if req.ExpiresAt != nil {
		t := req.ExpiresAt.UTC()
		c.ExpiresAt = &t
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
