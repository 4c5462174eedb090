// Package errors tests for error code definitions and error handling.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestErrorCodeValues verifies all error codes have non-empty values.
func TestErrorCodeValues(t *testing.T) {
	tests := []struct {
		name string
		code ErrorCode
	}{
		{"validation", ErrValidation},
		{"not found", ErrNotFound},
		{"storage", ErrStorage},
		{"remote", ErrRemote},
		{"database", ErrDatabase},
		{"migration", ErrMigration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.code == "" {
				t.Errorf("error code for %s is empty", tt.name)
			}
		})
	}
}

// TestAppErrorError verifies the Error() string format.
func TestAppErrorError(t *testing.T) {
	err := New(ErrNotFound, "item missing")
	if got := err.Error(); !strings.Contains(got, string(ErrNotFound)) || !strings.Contains(got, "item missing") {
		t.Errorf("Error() = %q, want code and message", got)
	}

	wrapped := Wrap(ErrStorage, "write failed", errors.New("disk full"))
	if got := wrapped.Error(); !strings.Contains(got, "disk full") {
		t.Errorf("Error() = %q, want underlying error included", got)
	}
}

// TestUnwrap verifies the error chain is preserved.
func TestUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(ErrStorage, "write failed", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is() should find the wrapped cause")
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap() should return the cause")
	}
}

// TestIs verifies code matching through wrapped chains.
func TestIs(t *testing.T) {
	err := Wrap(ErrRemote, "gateway call failed", errors.New("connection refused"))

	if !Is(err, ErrRemote) {
		t.Error("Is(err, ErrRemote) = false, want true")
	}
	if Is(err, ErrStorage) {
		t.Error("Is(err, ErrStorage) = true, want false")
	}

	// Wrapped one more level with %w, the code must still be found.
	outer := fmt.Errorf("drain: %w", err)
	if !Is(outer, ErrRemote) {
		t.Error("Is() should unwrap nested errors")
	}

	if Is(errors.New("plain"), ErrRemote) {
		t.Error("Is(plain error) = true, want false")
	}
}

// TestCodeOf verifies code extraction.
func TestCodeOf(t *testing.T) {
	if got := CodeOf(New(ErrValidation, "bad input")); got != ErrValidation {
		t.Errorf("CodeOf() = %q, want %q", got, ErrValidation)
	}
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
	if got := CodeOf(nil); got != "" {
		t.Errorf("CodeOf(nil) = %q, want empty", got)
	}
}

// TestNewf verifies formatted construction.
func TestNewf(t *testing.T) {
	err := Newf(ErrNotFound, "item %s not found", "tmp-1-aaaaaaaa")
	if !strings.Contains(err.Error(), "tmp-1-aaaaaaaa") {
		t.Errorf("Newf() message not formatted: %q", err.Error())
	}
}
