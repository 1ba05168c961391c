package database

import (
	"errors"

	"github.com/lib/pq"
	"modernc.org/sqlite"
)

// ErrDuplicateMetric indicates an attempt to record a second value for the
// same (run, scope, name). The store rejects it instead of overwriting so the
// historical series stays intact.
var ErrDuplicateMetric = errors.New("database: duplicate metric key")

// SQLite extended result codes for unique constraint violations.
const (
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

// Postgres error class 23505 is unique_violation.
const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqliteConstraintPrimaryKey || code == sqliteConstraintUnique
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}

	return false
}
