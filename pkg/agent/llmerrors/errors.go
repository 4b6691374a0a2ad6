// Package llmerrors provides structured error classification for LLM backend calls.
package llmerrors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of LLM errors.
type ErrorType int8

const (
	// ErrorTypeRateLimit represents quota or rate limiting errors (429, RESOURCE_EXHAUSTED).
	// These are never retried locally: the rate-limit guard owns the recovery.
	ErrorTypeRateLimit ErrorType = iota
	// ErrorTypeTransient represents transient errors (5xx, EOF, connection reset, timeout).
	ErrorTypeTransient
	// ErrorTypeEmptyResponse represents HTTP 200 but no content errors.
	ErrorTypeEmptyResponse

	// ErrorTypeAuth represents authentication errors (401/403, bad API key).
	ErrorTypeAuth
	// ErrorTypeBadPrompt represents malformed request errors (too long, violates policy).
	ErrorTypeBadPrompt
	// ErrorTypeUnknown represents default for unclassified errors.
	ErrorTypeUnknown

	// ErrorTypeServiceUnavailable represents persistent unavailability, returned
	// after retries are exhausted or while the circuit breaker is open.
	ErrorTypeServiceUnavailable
)

// String returns the string representation of the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeEmptyResponse:
		return "empty_response"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeBadPrompt:
		return "bad_prompt"
	case ErrorTypeUnknown:
		return "unknown"
	case ErrorTypeServiceUnavailable:
		return "service_unavailable"
	default:
		return "invalid"
	}
}

// Error represents a classified LLM error.
type Error struct {
	Err        error     // Wrapped underlying error
	Message    string    // Human-readable error message
	BodyStub   string    // First portion of response body (guards PII)
	Type       ErrorType // Classified error type
	StatusCode int       // HTTP status code if applicable
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("LLM error (%s): %s", e.Type.String(), e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("LLM error (%s): %v", e.Type.String(), e.Err)
	}
	return fmt.Sprintf("LLM error (%s): status %d", e.Type.String(), e.StatusCode)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the retry middleware may try the call again.
// Rate-limit errors are excluded so they reach the guard on the first failure.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeTransient, ErrorTypeEmptyResponse, ErrorTypeUnknown:
		return true
	default:
		return false
	}
}

// Is checks if an error is of a specific type.
func Is(err error, errorType ErrorType) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type == errorType
	}
	return false
}

// TypeOf returns the error type of an error, or ErrorTypeUnknown if not classified.
func TypeOf(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}

// NewError creates a new classified LLM error.
func NewError(errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
	}
}

// NewErrorWithStatus creates a new classified LLM error with HTTP status.
func NewErrorWithStatus(errorType ErrorType, statusCode int, message string) *Error {
	return &Error{
		Type:       errorType,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewErrorWithCause creates a new classified LLM error wrapping another error.
func NewErrorWithCause(errorType ErrorType, cause error, message string) *Error {
	return &Error{
		Type:    errorType,
		Err:     cause,
		Message: message,
	}
}

// NewServiceUnavailableError wraps the last error after retries are exhausted.
func NewServiceUnavailableError(cause error, attempts int) *Error {
	return &Error{
		Type:    ErrorTypeServiceUnavailable,
		Err:     cause,
		Message: fmt.Sprintf("service unavailable after %d attempts", attempts),
	}
}

// IsServiceUnavailable checks if the error indicates persistent service unavailability.
func IsServiceUnavailable(err error) bool {
	return Is(err, ErrorTypeServiceUnavailable)
}

// quotaMarkers are lowercase substrings that identify quota exhaustion in
// provider messages that were not classified at the source.
//
//nolint:gochecknoglobals // Fixed lookup table
var quotaMarkers = []string{
	"quota",
	"rate limit",
	"ratelimit",
	"resource_exhausted",
	"resource exhausted",
	"429",
	"too many requests",
	"exhausted",
}

// IsQuotaExhausted reports whether err signals backend quota exhaustion: either
// a rate-limit classified error anywhere in the chain, or a message containing
// one of the quota markers.
func IsQuotaExhausted(err error) bool {
	if err == nil {
		return false
	}
	if Is(err, ErrorTypeRateLimit) {
		return true
	}
	return ContainsQuotaMarker(err.Error())
}

// ContainsQuotaMarker reports whether msg contains a quota-indicative substring.
func ContainsQuotaMarker(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range quotaMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Classify maps a raw provider error to a classified *Error using its status
// code (0 when unknown) and message. Already classified errors pass through.
func Classify(err error, statusCode int, provider string) *Error {
	if err == nil {
		return nil
	}
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	msg := fmt.Sprintf("%s API call failed: %v", provider, err)
	errType := classifyStatus(statusCode)
	if errType == ErrorTypeUnknown {
		errType = classifyMessage(err)
	}
	return &Error{Type: errType, Err: err, Message: msg, StatusCode: statusCode}
}

func classifyStatus(statusCode int) ErrorType {
	switch {
	case statusCode == 429:
		return ErrorTypeRateLimit
	case statusCode == 401 || statusCode == 403:
		return ErrorTypeAuth
	case statusCode == 400 || statusCode == 413 || statusCode == 422:
		return ErrorTypeBadPrompt
	case statusCode >= 500:
		return ErrorTypeTransient
	default:
		return ErrorTypeUnknown
	}
}

func classifyMessage(err error) ErrorType {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTransient
	}

	msg := strings.ToLower(err.Error())
	switch {
	case ContainsQuotaMarker(msg):
		return ErrorTypeRateLimit
	case strings.Contains(msg, "api key") || strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "permission denied") || strings.Contains(msg, "unauthenticated"):
		return ErrorTypeAuth
	case strings.Contains(msg, "invalid argument") || strings.Contains(msg, "too long") ||
		strings.Contains(msg, "safety"):
		return ErrorTypeBadPrompt
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "eof") || strings.Contains(msg, "unavailable") ||
		strings.Contains(msg, "overloaded"):
		return ErrorTypeTransient
	default:
		return ErrorTypeUnknown
	}
}
