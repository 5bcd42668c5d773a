package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes mapped to domain errors.
const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
	pgInvalidText     = "22P02"
)

// Errors holds the domain errors a repository reports for common
// database failures. A nil field leaves the matching failure unmapped.
type Errors struct {
	NotFound  error
	Duplicate error
	Invalid   error
}

// Map translates err to the matching domain error.
// sql.ErrNoRows maps to NotFound, a unique violation to Duplicate, and
// check constraint or text representation failures to Invalid.
// Unmapped errors are returned unchanged.
func (e Errors) Map(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) && e.NotFound != nil {
		return e.NotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		if e.Duplicate != nil {
			return e.Duplicate
		}
	case pgCheckViolation, pgInvalidText:
		if e.Invalid != nil {
			return errors.Join(e.Invalid, errors.New(pgErr.Message))
		}
	}

	return err
}
