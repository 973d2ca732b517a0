package providers

import (
	"errors"
	"fmt"
	"net/http"

	"forensics/internal/intel/fetch"
)

// ErrorCategory defines the normalized failure taxonomy
type ErrorCategory string

const (
	// ErrorTimeout indicates the provider took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorHTTPStatus indicates a non-2xx response not covered by a narrower category
	ErrorHTTPStatus ErrorCategory = "http_status"

	// ErrorBadData indicates a 2xx response with missing or malformed fields
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorAuthentication indicates credential or permission issues
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorProviderOutage indicates the provider is unreachable or circuit-broken
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorNotFound indicates the provider has no record for the domain
	ErrorNotFound ErrorCategory = "not_found"

	// ErrorRateLimited indicates too many requests
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorStorage indicates a cache read or write failure
	ErrorStorage ErrorCategory = "storage"

	// ErrorInternal indicates an unexpected internal error
	ErrorInternal ErrorCategory = "internal"
)

// ProviderError wraps provider failures with normalized categorization
type ProviderError struct {
	Category   ErrorCategory
	ProviderID string
	Message    string
	Underlying error
	Retryable  bool
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("provider %s [%s]: %s: %v", e.ProviderID, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("provider %s [%s]: %s", e.ProviderID, e.Category, e.Message)
}

// Unwrap supports error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// NewProviderError creates a new normalized provider error
func NewProviderError(category ErrorCategory, providerID, message string, underlying error) *ProviderError {
	retryable := category == ErrorTimeout ||
		category == ErrorProviderOutage ||
		category == ErrorRateLimited

	return &ProviderError{
		Category:   category,
		ProviderID: providerID,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// FromFetchError maps a fetch.Failure onto the taxonomy.
func FromFetchError(providerID string, err error) *ProviderError {
	var f *fetch.Failure
	if !errors.As(err, &f) {
		return NewProviderError(ErrorInternal, providerID, "request failed", err)
	}
	switch f.Kind {
	case fetch.KindTimeout:
		return NewProviderError(ErrorTimeout, providerID, "request timed out", err)
	case fetch.KindTooLarge:
		return NewProviderError(ErrorBadData, providerID, "response too large", err)
	}
	switch f.Status {
	case 0:
		return NewProviderError(ErrorProviderOutage, providerID, "provider unreachable", err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return NewProviderError(ErrorAuthentication, providerID, "provider rejected credentials", err)
	case http.StatusNotFound:
		return NewProviderError(ErrorNotFound, providerID, "no record", err)
	case http.StatusTooManyRequests:
		return NewProviderError(ErrorRateLimited, providerID, "rate limited", err)
	default:
		return NewProviderError(ErrorHTTPStatus, providerID, fmt.Sprintf("http status %d", f.Status), err)
	}
}

// IsRetryable checks if an error is worth retrying
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error
func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}
