package models

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/scmmishra/qrtrack/internal/utm"
)

// ScanEvent is one recorded traversal of a tracked code. Rows are append-only.
type ScanEvent struct {
	ID          int64       `json:"id"`
	CodeID      string      `json:"code_id"`
	ScannedAt   time.Time   `json:"scanned_at"`
	UserAgent   string      `json:"user_agent"`
	DeviceType  string      `json:"device_type"`
	OS          string      `json:"os"`
	Browser     string      `json:"browser"`
	Referrer    string      `json:"referrer,omitempty"`
	IP          string      `json:"ip_address,omitempty"`
	Country     string      `json:"country,omitempty"`
	City        string      `json:"city,omitempty"`
	UTMSnapshot *utm.Params `json:"utm_snapshot,omitempty"`
}

const insertScanSQL = `INSERT INTO scan_events (code_id, scanned_at, user_agent, device_type, os, browser,
	referrer, ip_address, country, city, utm_snapshot) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// InsertScan appends a single event and sets its ID.
func (s *Store) InsertScan(ctx context.Context, e *ScanEvent) error {
	args, err := scanArgs(e)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, insertScanSQL, args...)
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	e.ID, _ = res.LastInsertId()
	return nil
}

// BatchInsertScans appends events in one transaction.
func (s *Store) BatchInsertScans(ctx context.Context, events []ScanEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertScanSQL)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := range events {
		args, err := scanArgs(&events[i])
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert scan: %w", err)
		}
	}
	return tx.Commit()
}

// IncrementScanCounts adds n to total_scans for each code id. Ids that no
// longer exist are ignored.
func (s *Store) IncrementScanCounts(ctx context.Context, counts map[string]int) error {
	for id, n := range counts {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE tracked_codes SET total_scans = total_scans + ? WHERE id = ?`, n, id,
		); err != nil {
			return fmt.Errorf("increment scans for %s: %w", id, err)
		}
	}
	return nil
}

// ListScans returns the most recent events for a code.
func (s *Store) ListScans(ctx context.Context, codeID string, limit int) ([]ScanEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, code_id, scanned_at, user_agent, device_type, os, browser,
			referrer, ip_address, country, city, utm_snapshot
		FROM scan_events WHERE code_id = ? ORDER BY scanned_at DESC, id DESC LIMIT ?`,
		codeID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()

	var events []ScanEvent
	for rows.Next() {
		var e ScanEvent
		var referrer, ip, country, city, snap sql.NullString
		if err := rows.Scan(&e.ID, &e.CodeID, &e.ScannedAt, &e.UserAgent, &e.DeviceType, &e.OS, &e.Browser,
			&referrer, &ip, &country, &city, &snap); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Referrer = referrer.String
		e.IP = ip.String
		e.Country = country.String
		e.City = city.String
		if snap.Valid {
			var p utm.Params
			if err := json.Unmarshal([]byte(snap.String), &p); err == nil {
				e.UTMSnapshot = &p
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *Store) ScanCount(ctx context.Context, codeID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scan_events WHERE code_id = ?`, codeID).Scan(&n)
	return n, err
}

func scanArgs(e *ScanEvent) ([]any, error) {
	var snap sql.NullString
	if e.UTMSnapshot != nil && !e.UTMSnapshot.IsEmpty() {
		b, err := json.Marshal(e.UTMSnapshot)
		if err != nil {
			return nil, fmt.Errorf("encode utm snapshot: %w", err)
		}
		snap = sql.NullString{String: string(b), Valid: true}
	}
	return []any{
		e.CodeID, e.ScannedAt.UTC(), e.UserAgent, e.DeviceType, e.OS, e.Browser,
		nullString(e.Referrer), nullString(e.IP), nullString(e.Country), nullString(e.City), snap,
	}, nil
}
