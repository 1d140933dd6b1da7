package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"ledgercore/internal/core/apperror"
)

// SQLSTATE codes the store reacts to.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
)

// IsTransient reports whether a failed transaction may succeed when re-run.
func IsTransient(err error) bool {
	if apperror.IsConcurrentModification(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
	}
	return false
}

// MapError turns constraint violations into application errors. Other errors
// are returned unchanged.
func MapError(err error, entity string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return apperror.NewDuplicate(entity, pgErr.ConstraintName, "").WithCause(err)
	case codeForeignKeyViolation:
		return apperror.NewValidation("referenced record does not exist").
			WithDetail("entity", entity).
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	case codeCheckViolation:
		return apperror.NewValidation("value violates constraint").
			WithDetail("entity", entity).
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	}
	return err
}
