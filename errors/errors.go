// Package errors provides error handling for ttlstore.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrNotFound) {
//	    // handle not found
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// GetStack is an alias for GetReportableStackTrace for convenience.
var GetStack = crdb.GetReportableStackTrace

// Assertions
var AssertionFailedf = crdb.AssertionFailedf

// Sentinel errors for the storage engine's failure taxonomy.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrDuplicateKey indicates a uniqueness violation: a name, a composite
	// link triple, or a metadata (owner, key) pair already exists.
	ErrDuplicateKey = New("duplicate key")

	// ErrDanglingReference indicates a write referenced a parent row
	// (corpus, document, sentence, concept, or token) that does not exist.
	ErrDanglingReference = New("dangling reference")

	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = New("not found")

	// ErrTransactionConflict indicates concurrent structural writers collided
	// (the database reported busy/locked).
	ErrTransactionConflict = New("transaction conflict")
)

// IsDuplicateKey checks if an error is or wraps ErrDuplicateKey.
func IsDuplicateKey(err error) bool {
	return err != nil && Is(err, ErrDuplicateKey)
}

// IsDanglingReference checks if an error is or wraps ErrDanglingReference.
func IsDanglingReference(err error) bool {
	return err != nil && Is(err, ErrDanglingReference)
}

// IsNotFound checks if an error is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsTransactionConflict checks if an error is or wraps ErrTransactionConflict.
func IsTransactionConflict(err error) bool {
	return err != nil && Is(err, ErrTransactionConflict)
}

// NewNotFoundError creates a not-found error with a formatted message.
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewDuplicateKeyError creates a duplicate-key error with a formatted message.
func NewDuplicateKeyError(format string, args ...interface{}) error {
	return Wrap(ErrDuplicateKey, Newf(format, args...).Error())
}

// NewDanglingReferenceError creates a dangling-reference error with a formatted message.
func NewDanglingReferenceError(format string, args ...interface{}) error {
	return Wrap(ErrDanglingReference, Newf(format, args...).Error())
}
