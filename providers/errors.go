package providers

import (
	"errors"
	"fmt"
)

// Common provider errors.
var (
	// ErrNoAPIKey is returned when the provider has no API key configured.
	ErrNoAPIKey = errors.New("provider API key not configured")

	// ErrRateLimited is returned when the provider rate limits requests.
	ErrRateLimited = errors.New("rate limited by provider")

	// ErrNoChoices is returned when the provider response contains no completion.
	ErrNoChoices = errors.New("no choices in provider response")
)

// ProviderError represents an error returned by a chat provider.
type ProviderError struct {
	// Provider is the provider name.
	Provider string

	// Code is the provider-specific error code or HTTP status.
	Code string

	// Message is a human-readable error message.
	Message string

	// Cause is the underlying error, if any.
	Cause error

	// Retryable indicates whether the request can be retried.
	Retryable bool
}

// NewProviderError creates a new ProviderError.
func NewProviderError(provider, code, message string, cause error, retryable bool) *ProviderError {
	return &ProviderError{
		Provider:  provider,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: retryable,
	}
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s provider error [%s]: %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s provider error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}
