package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgErrUniqueViolation      = "23505"
	pgErrSerializationFailure = "40001"
	pgErrDeadlockDetected     = "40P01"
)

// IsUniqueViolation reports whether err is a Postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	pgErr, ok := maybePgError(err)
	return ok && pgErr.Code == pgErrUniqueViolation
}

// IsConflict reports whether err means a concurrent writer won: unique violation,
// serialization failure, or deadlock.
func IsConflict(err error) bool {
	pgErr, ok := maybePgError(err)
	if !ok {
		return false
	}
	switch pgErr.Code {
	case pgErrUniqueViolation, pgErrSerializationFailure, pgErrDeadlockDetected:
		return true
	}
	return false
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
