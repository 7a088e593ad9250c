package db

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation,
// optionally pinned to one constraint. Postgres errors are matched on the
// SQLSTATE; the message fallback covers drivers without SQLSTATE surfaces.
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code != pqUniqueViolation {
			return false
		}
		return constraint == "" || pqErr.Constraint == constraint
	}

	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") &&
		!strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return constraint == "" || strings.Contains(msg, constraint)
}
