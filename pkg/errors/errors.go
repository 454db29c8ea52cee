// Package errors provides structured error types for diagramsync.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, TUI and HTTP API
//   - Machine-readable error codes for programmatic handling
//   - User-facing messages that can be shown inline next to a diagram
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The engine distinguishes four failure families:
//   - RENDER_FAILED: the flowchart text could not be laid out
//   - PATCH_NO_MATCH: a label edit found nothing to rewrite (non-blocking)
//   - INVALID_SCHEMA: a shape list was not a parseable array of objects
//   - CONVERSION_FAILED: text to visual conversion failed
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidSchema, "invalid data structure")
//	if errors.Is(err, errors.ErrCodeInvalidSchema) {
//	    // Show blocking alert
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeRender, origErr, "%s", msg)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidSchema Code = "INVALID_SCHEMA"
	ErrCodeInvalidTheme  Code = "INVALID_THEME"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidLabel  Code = "INVALID_LABEL"
	ErrCodeInvalidShape  Code = "INVALID_SHAPE"

	// Engine errors
	ErrCodeRender       Code = "RENDER_FAILED"
	ErrCodePatchNoMatch Code = "PATCH_NO_MATCH"
	ErrCodeConversion   Code = "CONVERSION_FAILED"
	ErrCodeBusy         Code = "BUSY"

	// Resource errors
	ErrCodeNotFound Code = "NOT_FOUND"
	ErrCodeHistory  Code = "HISTORY_FAILED"

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

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Schema returns the error reported when a shape list cannot be ingested.
func Schema(cause error) *Error {
	return Wrap(ErrCodeInvalidSchema, cause, "invalid data structure")
}

// Conversion wraps a text to visual conversion failure. The cause's message
// is kept verbatim and followed by a hint to consult the logs.
func Conversion(cause error) *Error {
	return Wrap(ErrCodeConversion, cause, "%s (check logs for details)", UserMessage(cause))
}
