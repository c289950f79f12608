package models

import (
	"database/sql"
	"errors"
)

// ErrNotFound is returned when a row addressed by id or short code does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence layer for tracked codes and their scan events.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
