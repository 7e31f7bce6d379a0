// Package errors provides structured error types for patchcanvas.
//
// The canvas core never returns errors from gesture handling; failures there
// are logged no-ops. The runtime, configuration, scenario and journal layers
// do return errors, and they use the codes defined here so callers can react
// programmatically:
//
//	err := errors.New(errors.ErrCodeStaleHandle, "unit %s no longer exists", h)
//	if errors.Is(err, errors.ErrCodeStaleHandle) {
//	    // resynchronize
//	}
//
// Codes follow a hierarchical naming convention:
//   - INVALID_*: input, configuration and scenario validation failures
//   - NOT_FOUND / STALE_HANDLE: identities the runtime cannot resolve
//   - BACKEND_BUSY: the runtime lock could not be taken in time
//   - NETWORK_*: transport failures (redis, mongo)
//   - INTERNAL_*: unexpected internal errors
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Validation errors
	ErrCodeInvalidInput      Code = "INVALID_INPUT"
	ErrCodeInvalidConfig     Code = "INVALID_CONFIG"
	ErrCodeInvalidScenario   Code = "INVALID_SCENARIO"
	ErrCodeInvalidConnection Code = "INVALID_CONNECTION"

	// Identity errors
	ErrCodeNotFound    Code = "NOT_FOUND"
	ErrCodeStaleHandle Code = "STALE_HANDLE"

	// Runtime errors
	ErrCodeBackendBusy Code = "BACKEND_BUSY"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message without the code prefix for *Error values,
// and the plain error string otherwise.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
