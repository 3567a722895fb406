package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested record does not exist for the caller.
var ErrNotFound = errors.New("resource not found")

// ErrUnauthorized is returned when a request carries no valid credential.
var ErrUnauthorized = errors.New("unauthorized")

// ValidationError is a missing or malformed request field, rejected before any remote call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ConfigurationError is a deployment defect, such as a provider without a credential.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// ExternalServiceError is any failure talking to a provider or interpreting its output.
type ExternalServiceError struct {
	Provider Provider
	// StatusCode is the provider HTTP status, zero when no response was received.
	StatusCode int
	// RetryAfter is the provider's Retry-After hint, zero if absent.
	RetryAfter time.Duration
	Message    string
	Err        error
}

func (e *ExternalServiceError) Error() string {
	return e.Message
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsConfigurationError checks if an error is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsExternalServiceError checks if an error is an ExternalServiceError.
func IsExternalServiceError(err error) bool {
	var target *ExternalServiceError
	return errors.As(err, &target)
}
