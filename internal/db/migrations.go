package db

import "database/sql"

func Migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS tracked_codes (
    id                       TEXT    PRIMARY KEY,
    owner_id                 TEXT    NOT NULL,
    name                     TEXT    NOT NULL,
    destination_url          TEXT    NOT NULL,
    short_code               TEXT    NOT NULL UNIQUE,
    utm_source               TEXT,
    utm_medium               TEXT,
    utm_campaign             TEXT,
    utm_term                 TEXT,
    utm_content              TEXT,
    qr_color                 TEXT    NOT NULL DEFAULT '#000000',
    landing_page_enabled     INTEGER NOT NULL DEFAULT 0,
    landing_page_title       TEXT,
    landing_page_description TEXT,
    landing_page_logo_url    TEXT,
    landing_page_cta_text    TEXT    NOT NULL DEFAULT 'Visit Site',
    status                   TEXT    NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'inactive')),
    enable_tracking          INTEGER NOT NULL DEFAULT 1,
    expires_at               DATETIME,
    total_scans              INTEGER NOT NULL DEFAULT 0,
    created_at               DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at               DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tracked_codes_owner ON tracked_codes(owner_id);
CREATE INDEX IF NOT EXISTS idx_tracked_codes_active ON tracked_codes(short_code) WHERE status = 'active';

CREATE TABLE IF NOT EXISTS scan_events (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    code_id      TEXT    NOT NULL,
    scanned_at   DATETIME NOT NULL,
    user_agent   TEXT    NOT NULL DEFAULT '',
    device_type  TEXT    NOT NULL,
    os           TEXT    NOT NULL,
    browser      TEXT    NOT NULL,
    referrer     TEXT,
    ip_address   TEXT,
    country      TEXT,
    city         TEXT,
    utm_snapshot TEXT,
    FOREIGN KEY (code_id) REFERENCES tracked_codes(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_scan_events_code_id ON scan_events(code_id);
CREATE INDEX IF NOT EXISTS idx_scan_events_scanned_at ON scan_events(scanned_at);
`
