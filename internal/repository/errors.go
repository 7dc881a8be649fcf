package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"courier-dispatch/internal/apperr"
)

const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// IsDuplicate - signals that the error is a duplicate key violation.
func IsDuplicate(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

// IsForeignKeyViolation - signals that a referenced row does not exist.
func IsForeignKeyViolation(err error) bool {
	return hasCode(err, codeForeignKeyViolation)
}

// IsNotFound - signals that the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsConflict - signals that a concurrent transaction won the race.
func IsConflict(err error) bool {
	return hasCode(err, codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable, codeUniqueViolation)
}

func hasCode(err error, codes ...string) bool {
	var pgerr *pgconn.PgError
	if !errors.As(err, &pgerr) {
		return false
	}
	for _, c := range codes {
		if pgerr.Code == c {
			return true
		}
	}
	return false
}

// mapConflict converts lost-race database errors into apperr.ErrConflict.
func mapConflict(err error) error {
	if err == nil || errors.Is(err, apperr.ErrConflict) {
		return err
	}
	if IsConflict(err) {
		return fmt.Errorf("%w: %v", apperr.ErrConflict, err)
	}
	return err
}
