package validators

import (
	"errors"
	"fmt"
)

// ErrorCategory defines the normalized failure taxonomy for validator calls.
type ErrorCategory string

const (
	// ErrorTimeout indicates the validator took too long to respond.
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the validator returned invalid/malformed data.
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorAuthentication indicates credential or permission issues.
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorOutage indicates the external authority is unavailable.
	ErrorOutage ErrorCategory = "outage"

	// ErrorRateLimited indicates too many requests against the authority.
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorInternal indicates an unexpected internal error.
	ErrorInternal ErrorCategory = "internal"
)

// ProviderError wraps validator failures with normalized categorization.
// Negative classifications (invalid, flagged, criminal_record) are NOT
// errors; they flow back as ValidationOutcome data.
type ProviderError struct {
	Category   ErrorCategory
	Validator  string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("validator %s [%s]: %s: %v", e.Validator, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("validator %s [%s]: %s", e.Validator, e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// NewProviderError creates a normalized validator error. Timeouts, outages,
// and rate limits are retryable; everything else is final.
func NewProviderError(category ErrorCategory, validator, message string, underlying error) *ProviderError {
	retryable := category == ErrorTimeout ||
		category == ErrorOutage ||
		category == ErrorRateLimited

	return &ProviderError{
		Category:   category,
		Validator:  validator,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error.
func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}

// Sentinel errors for wiring problems.
var (
	ErrValidatorNotFound = errors.New("validator not registered for kind")
)
