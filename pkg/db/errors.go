package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint failure. A
// non-empty constraint narrows the match on postgres; sqlite never reports
// index names, so any sqlite unique failure matches.
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	if code, name, ok := pgCode(err); ok {
		return code == pgUniqueViolation && (constraint == "" || name == constraint)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return constraint == ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return true
	case constraint != "":
		return strings.Contains(msg, constraint)
	default:
		return strings.Contains(msg, "duplicate key value")
	}
}

// pgCode extracts the SQLSTATE and constraint from pgx or lib/pq errors.
func pgCode(err error) (code, constraint string, ok bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code, pgxErr.ConstraintName, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, true
	}
	return "", "", false
}
