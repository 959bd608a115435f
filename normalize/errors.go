package normalize

import (
	"errors"
	"fmt"
)

// Reason classifies a validation failure.
type Reason string

const (
	ReasonMissingField      Reason = "missing_field"
	ReasonBlankField        Reason = "blank_field"
	ReasonInvalidType       Reason = "invalid_type"
	ReasonOutOfRange        Reason = "out_of_range"
	ReasonInvalidEnum       Reason = "invalid_enum"
	ReasonInsufficientItems Reason = "insufficient_items"
	ReasonNotAnObject       Reason = "not_an_object"
)

// CategoryJSONSyntax is the diagnostic category used for *SyntaxError.
const CategoryJSONSyntax = "json_syntax"

// ValidationError reports model output that parsed as JSON but does not
// match the expected structure.
type ValidationError struct {
	Reason  Reason
	Field   string // Logical field name, e.g. "title"
	Path    string // Location in the document, e.g. "criteria[0].levels[1]"
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed at %s: %s", e.Path, e.Message)
}

func newValidationError(reason Reason, field, path, format string, args ...any) *ValidationError {
	return &ValidationError{
		Reason:  reason,
		Field:   field,
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	}
}

// SyntaxError reports model output that is not valid JSON.
// Line and Column are 1-based and point at the offending byte.
type SyntaxError struct {
	Line   int
	Column int
	Offset int64
	Msg    string
	Err    error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid JSON at line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// IsSyntaxError reports whether err is or wraps a *SyntaxError.
func IsSyntaxError(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Category returns the diagnostic category for a normalization error.
func Category(err error) string {
	var se *SyntaxError
	if errors.As(err, &se) {
		return CategoryJSONSyntax
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return string(ve.Reason)
	}
	return "unknown"
}
