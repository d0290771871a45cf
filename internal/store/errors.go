package store

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes failures surfaced by the reconciliation engine and
// the versioned parameter store.
type ErrorCode string

const (
	// ErrCodeNotFound indicates the requested key or scope has no data.
	// Callers can usually recover (create the version, pick another node...).
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeUnknownVariant indicates an unrecognized family selector.
	ErrCodeUnknownVariant ErrorCode = "UNKNOWN_VARIANT"

	// ErrCodeConstraintViolation indicates a malformed document or a
	// duplicate natural key when duplicates are rejected.
	ErrCodeConstraintViolation ErrorCode = "CONSTRAINT_VIOLATION"

	// ErrCodeTransactionFailure indicates the underlying store failed during
	// begin, commit or a statement. The transaction has been rolled back.
	ErrCodeTransactionFailure ErrorCode = "TRANSACTION_FAILURE"
)

// Error is the structured error returned by every write path.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the operation that failed (e.g. "binary sync").
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound creates an Error with ErrCodeNotFound.
func NotFound(op, format string, args ...any) *Error {
	return &Error{Code: ErrCodeNotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

// UnknownVariant creates an Error with ErrCodeUnknownVariant.
func UnknownVariant(op, selector string) *Error {
	return &Error{
		Code:    ErrCodeUnknownVariant,
		Op:      op,
		Message: fmt.Sprintf("unsupported family selector %q", selector),
	}
}

// ConstraintViolation creates an Error with ErrCodeConstraintViolation.
func ConstraintViolation(op, format string, args ...any) *Error {
	return &Error{Code: ErrCodeConstraintViolation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// TransactionFailure wraps a store error. An existing *Error is returned
// unchanged so that categories assigned deeper in the call stack survive.
func TransactionFailure(op, message string, err error) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Code: ErrCodeTransactionFailure, Op: op, Message: message, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsNotFound returns true if the error is a not-found error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsUnknownVariant returns true if the error is an unknown-variant error.
func IsUnknownVariant(err error) bool {
	return CodeOf(err) == ErrCodeUnknownVariant
}

// IsConstraintViolation returns true if the error is a constraint violation.
func IsConstraintViolation(err error) bool {
	return CodeOf(err) == ErrCodeConstraintViolation
}

// IsTransactionFailure returns true if the error is a store failure.
func IsTransactionFailure(err error) bool {
	return CodeOf(err) == ErrCodeTransactionFailure
}
