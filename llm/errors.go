package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Error represents a provider-neutral LLM error.
type Error struct {
	Type        ErrorType
	Provider    string
	Message     string
	Retryable   bool
	RetryAfter  *time.Duration
	StatusCode  int
	ProviderErr error // Original provider-specific error
}

// ErrorType represents the category of error.
type ErrorType string

const (
	ErrorTypePromptValidation   ErrorType = "prompt_validation"
	ErrorTypeAuthentication     ErrorType = "authentication"
	ErrorTypeRateLimit          ErrorType = "rate_limit"
	ErrorTypeServiceUnavailable ErrorType = "service_unavailable"
	ErrorTypeRequest            ErrorType = "request"
	ErrorTypeCircuitOpen        ErrorType = "circuit_open"
	ErrorTypeUnknownModel       ErrorType = "unknown_model"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ProviderErr != nil {
		return e.Message + ": " + e.ProviderErr.Error()
	}
	return e.Message
}

// Unwrap returns the underlying provider error.
func (e *Error) Unwrap() error {
	return e.ProviderErr
}

// ErrorTypeOf returns the taxonomy type of err, or "" if err is not an *Error.
func ErrorTypeOf(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ""
}

func isType(err error, t ErrorType) bool {
	return ErrorTypeOf(err) == t
}

// IsPromptValidationError checks if an error is a prompt validation error.
func IsPromptValidationError(err error) bool { return isType(err, ErrorTypePromptValidation) }

// IsAuthenticationError checks if an error is an authentication error.
func IsAuthenticationError(err error) bool { return isType(err, ErrorTypeAuthentication) }

// IsRateLimitError checks if an error is a rate limit error.
func IsRateLimitError(err error) bool { return isType(err, ErrorTypeRateLimit) }

// IsServiceUnavailableError checks if an error is a service unavailable error.
func IsServiceUnavailableError(err error) bool { return isType(err, ErrorTypeServiceUnavailable) }

// IsRequestError checks if an error is an unclassified request error.
func IsRequestError(err error) bool { return isType(err, ErrorTypeRequest) }

// IsCircuitOpenError checks if an error was produced by an open circuit breaker.
func IsCircuitOpenError(err error) bool { return isType(err, ErrorTypeCircuitOpen) }

// IsUnknownModelError checks if an error is an unknown model error.
func IsUnknownModelError(err error) bool { return isType(err, ErrorTypeUnknownModel) }

// IsRetryableError checks if an error is retryable.
func IsRetryableError(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return false
}

// ExtractRetryAfter extracts the retry-after duration from an error.
func ExtractRetryAfter(err error) *time.Duration {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.RetryAfter
	}
	return nil
}

// NewPromptValidationError creates a new prompt validation error.
func NewPromptValidationError(message string) *Error {
	return &Error{
		Type:    ErrorTypePromptValidation,
		Message: message,
	}
}

// NewAuthenticationError creates a new authentication error.
func NewAuthenticationError(provider, message string, providerErr error) *Error {
	return &Error{
		Type:        ErrorTypeAuthentication,
		Provider:    provider,
		Message:     message,
		StatusCode:  http.StatusUnauthorized,
		ProviderErr: providerErr,
	}
}

// NewRateLimitError creates a new rate limit error.
func NewRateLimitError(provider, message string, retryAfter *time.Duration, providerErr error) *Error {
	return &Error{
		Type:        ErrorTypeRateLimit,
		Provider:    provider,
		Message:     message,
		Retryable:   true,
		RetryAfter:  retryAfter,
		StatusCode:  http.StatusTooManyRequests,
		ProviderErr: providerErr,
	}
}

// NewServiceUnavailableError creates a new service unavailable error.
func NewServiceUnavailableError(provider, message string, statusCode int, providerErr error) *Error {
	return &Error{
		Type:        ErrorTypeServiceUnavailable,
		Provider:    provider,
		Message:     message,
		Retryable:   true,
		StatusCode:  statusCode,
		ProviderErr: providerErr,
	}
}

// NewRequestError creates a new generic request error.
func NewRequestError(provider, message string, statusCode int, providerErr error) *Error {
	return &Error{
		Type:        ErrorTypeRequest,
		Provider:    provider,
		Message:     message,
		StatusCode:  statusCode,
		ProviderErr: providerErr,
	}
}

// NewCircuitOpenError creates the error returned when a breaker denies admission.
func NewCircuitOpenError(provider string) *Error {
	return &Error{
		Type:     ErrorTypeCircuitOpen,
		Provider: provider,
		Message:  fmt.Sprintf("%s is temporarily unavailable: circuit open", provider),
	}
}

// NewUnknownModelError creates a new unknown model error.
func NewUnknownModelError(model, detail string) *Error {
	msg := fmt.Sprintf("unknown model %q", model)
	if detail != "" {
		msg += ": " + detail
	}
	return &Error{
		Type:    ErrorTypeUnknownModel,
		Message: msg,
	}
}

// ErrorFromStatus maps an HTTP status code to the error taxonomy. The mapping is
// identical for every provider; only the message text differs.
func ErrorFromStatus(provider string, statusCode int, message string, retryAfter *time.Duration, providerErr error) *Error {
	switch {
	case statusCode == http.StatusUnauthorized:
		return NewAuthenticationError(provider, fmt.Sprintf("%s authentication failed: %s", provider, message), providerErr)
	case statusCode == http.StatusTooManyRequests:
		return NewRateLimitError(provider, fmt.Sprintf("%s rate limit: %s", provider, message), retryAfter, providerErr)
	case statusCode >= http.StatusInternalServerError:
		return NewServiceUnavailableError(provider, fmt.Sprintf("%s server error (%d): %s", provider, statusCode, message), statusCode, providerErr)
	default:
		return NewRequestError(provider, fmt.Sprintf("%s request failed (%d): %s", provider, statusCode, message), statusCode, providerErr)
	}
}

// ErrorFromTransport classifies a failure that happened before an HTTP status was
// received. Timeouts and connection failures are treated as the service being
// unavailable; caller cancellation is not.
func ErrorFromTransport(provider string, err error) *Error {
	if errors.Is(err, context.Canceled) {
		return NewRequestError(provider, fmt.Sprintf("%s request cancelled", provider), 0, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewServiceUnavailableError(provider, fmt.Sprintf("%s request timed out", provider), 0, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewServiceUnavailableError(provider, fmt.Sprintf("%s request timed out", provider), 0, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return NewServiceUnavailableError(provider, fmt.Sprintf("%s connection failed", provider), 0, err)
	}
	return NewServiceUnavailableError(provider, fmt.Sprintf("%s transport error", provider), 0, err)
}

// ParseRetryAfter parses a Retry-After header value (seconds or HTTP date).
// Returns nil when the header is absent or malformed.
func ParseRetryAfter(value string) *time.Duration {
	if value == "" {
		return nil
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		d := time.Duration(seconds) * time.Second
		return &d
	}
	if retryTime, err := http.ParseTime(value); err == nil {
		d := time.Until(retryTime)
		if d < 0 {
			d = 0
		}
		return &d
	}
	return nil
}
