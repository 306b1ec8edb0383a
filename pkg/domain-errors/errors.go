// Package domainerrors defines the error taxonomy shared by all intake
// modules. Errors carry a discriminated Code so callers can decide
// blocking vs. non-blocking behavior uniformly instead of inspecting
// message text.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for programmatic handling.
type Code string

const (
	// CodeValidation: field-level validation failed; blocks the specific
	// transition and carries per-field errors.
	CodeValidation Code = "validation"
	// CodeGateClosed: a non-schema precondition (documents, payment) is not
	// satisfied.
	CodeGateClosed Code = "gate_closed"
	// CodeBadRequest: malformed or missing request payload.
	CodeBadRequest Code = "bad_request"
	// CodeInvalidInput: a single input value failed a syntax or domain check.
	CodeInvalidInput Code = "invalid_input"
	// CodeNotFound: the referenced entity does not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict: the entity is in a state that forbids the operation,
	// e.g. updating a submitted application.
	CodeConflict Code = "conflict"
	// CodeUnauthorized: missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeUnavailable: a collaborator could not be reached; retryable.
	CodeUnavailable Code = "unavailable"
	// CodeInternal: unexpected server-side failure.
	CodeInternal Code = "internal"
	// CodeInvariantViolation: a programming error surfaced at runtime.
	CodeInvariantViolation Code = "invariant_violation"
)

// FieldError pinpoints a validation failure by field path. Paths may be
// nested for repeated entries, e.g. "qualifications[2].university_college".
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error is the concrete error type carrying a Code, an optional cause and,
// for validation errors, the failing fields.
type Error struct {
	Code    Code
	Message string
	Fields  []FieldError
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates an error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// NewValidation creates a validation error carrying field-level failures.
func NewValidation(fields ...FieldError) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: "validation failed",
		Fields:  fields,
	}
}

// Add appends a field error, creating a validation error if err is nil.
// It returns the (possibly new) error so callers can accumulate failures
// across a rule-set and return a single error at the end.
func Add(err *Error, path, message string) *Error {
	if err == nil {
		err = NewValidation()
	}
	err.Fields = append(err.Fields, FieldError{Path: path, Message: message})
	return err
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a readability alias for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// unclassified errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// FieldsOf returns the field errors attached to err, if any.
func FieldsOf(err error) []FieldError {
	var de *Error
	if errors.As(err, &de) {
		return de.Fields
	}
	return nil
}
