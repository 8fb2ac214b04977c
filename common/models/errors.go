package models

import "fmt"

// ValidationError marks a rejected workflow spec or node input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NewValidationError builds a field-scoped validation error
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// AuthError marks failed signature verification or provider auth. Not retried.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error: %s", e.Message)
}

// TemporaryError marks retryable provider failures (rate limits, network)
type TemporaryError struct {
	Message string
	Cause   error
}

func (e *TemporaryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("temporary error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("temporary error: %s", e.Message)
}

func (e *TemporaryError) Unwrap() error { return e.Cause }

// EngineError marks graph corruption, cycles, and missing runners.
// The whole run fails; no partial output is exposed.
type EngineError struct {
	Message string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine error: %s", e.Message)
}
