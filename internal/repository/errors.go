package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// ConflictError reports a unique constraint violation.
type ConflictError struct {
	Constraint string
	Err        error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("unique constraint %q violated", e.Constraint)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// ReferenceError reports a foreign key violation.
type ReferenceError struct {
	Constraint string
	Err        error
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("foreign key %q violated", e.Constraint)
}

func (e *ReferenceError) Unwrap() error { return e.Err }

// translate maps driver errors onto the repository error vocabulary.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return &ConflictError{Constraint: pgErr.ConstraintName, Err: err}
		case "23503":
			return &ReferenceError{Constraint: pgErr.ConstraintName, Err: err}
		case "22P02":
			// malformed uuid literal: the row cannot exist
			return ErrNotFound
		}
	}
	return err
}

func nullableJSON(raw []byte) []byte {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
