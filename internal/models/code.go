package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scmmishra/qrtrack/internal/utm"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

const DefaultCTAText = "Visit Site"

type LandingPage struct {
	Enabled     bool   `json:"enabled"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	LogoURL     string `json:"logo_url,omitempty"`
	CTAText     string `json:"cta_text"`
}

// TrackedCode is a short code mapped to a campaign destination.
type TrackedCode struct {
	ID             string      `json:"id"`
	OwnerID        string      `json:"owner_id"`
	Name           string      `json:"name"`
	DestinationURL string      `json:"destination_url"`
	ShortCode      string      `json:"short_code"`
	UTM            utm.Params  `json:"utm"`
	QRColor        string      `json:"qr_color"`
	LandingPage    LandingPage `json:"landing_page"`
	Status         Status      `json:"status"`
	EnableTracking bool        `json:"enable_tracking"`
	ExpiresAt      *time.Time  `json:"expires_at,omitempty"`
	TotalScans     int64       `json:"total_scans"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func (c *TrackedCode) IsActive() bool {
	return c.Status == StatusActive
}

// Servable reports whether the code may be scanned at now: active and not
// expired. Redirects and /track both apply it.
func (c *TrackedCode) Servable(now time.Time) bool {
	return c.IsActive() && !c.Expired(now)
}

// Expired reports whether the code has an expiry at or before now.
func (c *TrackedCode) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

const codeColumns = `id, owner_id, name, destination_url, short_code,
	utm_source, utm_medium, utm_campaign, utm_term, utm_content,
	qr_color, landing_page_enabled, landing_page_title, landing_page_description,
	landing_page_logo_url, landing_page_cta_text, status, enable_tracking,
	expires_at, total_scans, created_at, updated_at`

// CreateCode inserts c, assigning its id and defaults, and re-reads the row.
func (s *Store) CreateCode(ctx context.Context, c *TrackedCode) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = StatusActive
	}
	if c.QRColor == "" {
		c.QRColor = "#000000"
	}
	if c.LandingPage.CTAText == "" {
		c.LandingPage.CTAText = DefaultCTAText
	}
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tracked_codes (id, owner_id, name, destination_url, short_code,
			utm_source, utm_medium, utm_campaign, utm_term, utm_content,
			qr_color, landing_page_enabled, landing_page_title, landing_page_description,
			landing_page_logo_url, landing_page_cta_text, status, enable_tracking,
			expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Name, c.DestinationURL, c.ShortCode,
		nullString(c.UTM.Source), nullString(c.UTM.Medium), nullString(c.UTM.Campaign),
		nullString(c.UTM.Term), nullString(c.UTM.Content),
		c.QRColor, boolInt(c.LandingPage.Enabled), nullString(c.LandingPage.Title),
		nullString(c.LandingPage.Description), nullString(c.LandingPage.LogoURL),
		c.LandingPage.CTAText, string(c.Status), boolInt(c.EnableTracking),
		nullTime(c.ExpiresAt), now, now,
	)
	if err != nil {
		return fmt.Errorf("insert code: %w", err)
	}
	return s.reload(ctx, c)
}

// GetCode loads a code by id regardless of status.
func (s *Store) GetCode(ctx context.Context, id string) (*TrackedCode, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+codeColumns+` FROM tracked_codes WHERE id = ?`, id)
	c := &TrackedCode{}
	if err := scanCode(row, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetActiveCodeByShortCode is the redirect-path lookup: exact, case-sensitive
// match on short_code, restricted to status = active.
func (s *Store) GetActiveCodeByShortCode(ctx context.Context, shortCode string) (*TrackedCode, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+codeColumns+` FROM tracked_codes WHERE short_code = ? AND status = 'active'`,
		shortCode,
	)
	c := &TrackedCode{}
	if err := scanCode(row, c); err != nil {
		return nil, err
	}
	return c, nil
}

type ListFilter struct {
	OwnerID string
	Status  Status
	Search  string
	Limit   int
	Offset  int
}

// ListCodes returns a page of codes, newest first, and the total match count.
func (s *Store) ListCodes(ctx context.Context, f ListFilter) ([]TrackedCode, int, error) {
	var (
		conds []string
		args  []any
	)
	if f.OwnerID != "" {
		conds = append(conds, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Search != "" {
		conds = append(conds, "(name LIKE ? OR destination_url LIKE ? OR short_code LIKE ?)")
		q := "%" + f.Search + "%"
		args = append(args, q, q, q)
	}
	where := "1=1"
	if len(conds) > 0 {
		where = strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tracked_codes WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count codes: %w", err)
	}

	query := "SELECT " + codeColumns + " FROM tracked_codes WHERE " + where + " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list codes: %w", err)
	}
	defer rows.Close()

	var codes []TrackedCode
	for rows.Next() {
		var c TrackedCode
		if err := scanCode(rows, &c); err != nil {
			return nil, 0, fmt.Errorf("scan code: %w", err)
		}
		codes = append(codes, c)
	}
	return codes, total, rows.Err()
}

// UpdateCode writes the mutable fields of c. The short code, owner and scan
// counter are never changed here.
func (s *Store) UpdateCode(ctx context.Context, c *TrackedCode) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tracked_codes SET name = ?, destination_url = ?,
			utm_source = ?, utm_medium = ?, utm_campaign = ?, utm_term = ?, utm_content = ?,
			qr_color = ?, landing_page_enabled = ?, landing_page_title = ?,
			landing_page_description = ?, landing_page_logo_url = ?, landing_page_cta_text = ?,
			status = ?, enable_tracking = ?, expires_at = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.DestinationURL,
		nullString(c.UTM.Source), nullString(c.UTM.Medium), nullString(c.UTM.Campaign),
		nullString(c.UTM.Term), nullString(c.UTM.Content),
		c.QRColor, boolInt(c.LandingPage.Enabled), nullString(c.LandingPage.Title),
		nullString(c.LandingPage.Description), nullString(c.LandingPage.LogoURL),
		c.LandingPage.CTAText, string(c.Status), boolInt(c.EnableTracking),
		nullTime(c.ExpiresAt), time.Now().UTC(), c.ID,
	)
	if err != nil {
		return fmt.Errorf("update code: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return s.reload(ctx, c)
}

// DeleteCode removes the code; its scan events go with it via ON DELETE CASCADE.
func (s *Store) DeleteCode(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tracked_codes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete code: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ShortCodeExists(ctx context.Context, shortCode string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracked_codes WHERE short_code = ?`, shortCode).Scan(&count)
	return count > 0, err
}

func (s *Store) reload(ctx context.Context, c *TrackedCode) error {
	row := s.db.QueryRowContext(ctx, `SELECT `+codeColumns+` FROM tracked_codes WHERE id = ?`, c.ID)
	return scanCode(row, c)
}

func scanCode(row rowScanner, c *TrackedCode) error {
	var (
		source, medium, campaign, term, content sql.NullString
		lpTitle, lpDesc, lpLogo                 sql.NullString
		lpEnabled, tracking                     int
		status                                  string
		expires                                 sql.NullTime
	)
	err := row.Scan(
		&c.ID, &c.OwnerID, &c.Name, &c.DestinationURL, &c.ShortCode,
		&source, &medium, &campaign, &term, &content,
		&c.QRColor, &lpEnabled, &lpTitle, &lpDesc, &lpLogo, &c.LandingPage.CTAText,
		&status, &tracking, &expires, &c.TotalScans, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	c.UTM = utm.Params{
		Source:   source.String,
		Medium:   medium.String,
		Campaign: campaign.String,
		Term:     term.String,
		Content:  content.String,
	}
	c.LandingPage.Enabled = lpEnabled == 1
	c.LandingPage.Title = lpTitle.String
	c.LandingPage.Description = lpDesc.String
	c.LandingPage.LogoURL = lpLogo.String
	c.Status = Status(status)
	c.EnableTracking = tracking == 1
	c.ExpiresAt = nil
	if expires.Valid {
		t := expires.Time
		c.ExpiresAt = &t
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
