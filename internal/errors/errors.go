// Package errors provides the error taxonomy surfaced by the sync core.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies an error for the caller.
type ErrorCode string

const (
	// ErrValidation marks caller-fixable input errors. Surfaced
	// immediately, never retried, nothing queued.
	ErrValidation ErrorCode = "VALIDATION_ERROR"

	// ErrNotFound marks a mutation targeting an id absent from the local
	// store. Surfaced, no retry, no queue entry.
	ErrNotFound ErrorCode = "NOT_FOUND"

	// ErrStorage marks a local persistence failure. Fatal to the
	// operation; nothing is queued since intent cannot be recorded.
	ErrStorage ErrorCode = "STORAGE_ERROR"

	// ErrRemote marks any remote-call failure. Never fatal to a mutation
	// caller; it degrades to enqueue-and-return-optimistic-result.
	ErrRemote ErrorCode = "REMOTE_ERROR"

	// Database lifecycle errors
	ErrDatabase  ErrorCode = "DATABASE_ERROR"
	ErrMigration ErrorCode = "MIGRATION_FAILED"
)

// AppError represents an application error with code and message.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Is checks if an error (anywhere in its chain) carries the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, or "" when err has none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
