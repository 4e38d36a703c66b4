// Package errors provides structured error types for eqgraph.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and HTTP API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages that name the offending node or edge
//
// # Error Codes
//
// The reduction distinguishes three fatal data errors:
//   - LOAD_ERROR: the graph document is structurally invalid or lacks the
//     equivalence key declaration
//   - REFERENCE_ERROR: an edge (or a solution cell) points at something that
//     was never declared
//   - FORMAT_ERROR: a value (equivalence tag, color, number) cannot be parsed
//
// None of them are retried; the caller fixes the input and runs again.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeFormat, "node %q: equivalence %q is not an integer", id, v)
//	if errors.Is(err, errors.ErrCodeFormat) {
//	    // Handle bad input
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeLoad, origErr, "decode %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Reduction errors
	ErrCodeLoad      Code = "LOAD_ERROR"
	ErrCodeReference Code = "REFERENCE_ERROR"
	ErrCodeFormat    Code = "FORMAT_ERROR"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"

	// Resource not found errors
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Subject string // Offending node, edge or file (optional)
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

// WithSubject records the node, edge or file the error is about and returns e.
func (e *Error) WithSubject(subject string) *Error {
	e.Subject = subject
	return e
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

// GetSubject extracts the subject from an error, if available.
func GetSubject(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Subject
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

// IsDataError reports whether err is one of the fatal reduction errors
// (load, reference or format).
func IsDataError(err error) bool {
	switch GetCode(err) {
	case ErrCodeLoad, ErrCodeReference, ErrCodeFormat:
		return true
	}
	return false
}
