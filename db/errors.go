package db

import (
	"database/sql"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/neocl/ttlstore/errors"
)

// Translate maps driver-level errors onto the engine's failure taxonomy:
// uniqueness violations become ErrDuplicateKey, foreign key violations
// become ErrDanglingReference, busy/locked databases become
// ErrTransactionConflict, and sql.ErrNoRows becomes ErrNotFound.
// Other errors pass through with a stack trace attached.
//
// Write paths check invariants explicitly before inserting; the constraint
// mapping here is the backstop for races the checks cannot see.
func Translate(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(errors.ErrNotFound, err.Error())
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return errors.Wrap(errors.ErrDuplicateKey, err.Error())
		case sqlite3.ErrConstraintForeignKey:
			return errors.Wrap(errors.ErrDanglingReference, err.Error())
		}
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return errors.Wrap(errors.ErrTransactionConflict, err.Error())
		}
	}

	return errors.WithStack(err)
}
