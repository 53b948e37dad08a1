package winestore

import (
	"errors"
	"strings"
)

// ErrDuplicateName indicates a write collided with the canonical name
// uniqueness constraint. Ingestion treats this as skip-and-count.
var ErrDuplicateName = errors.New("canonical name already exists")

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// isUniqueViolation reports whether err is a SQLite unique-constraint
// failure. The modernc driver surfaces these as plain errors carrying the
// constraint message.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}
