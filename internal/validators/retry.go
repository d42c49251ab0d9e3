package validators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	id "confia/pkg/domain"

	"confia/internal/verification/models"
)

// RetryPolicy bounds attempts against a flaky validator. Only retryable
// ProviderErrors are retried; terminal classifications are final.
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first call.
	MaxRetries int

	// Backoff is the initial delay between attempts; it doubles per retry.
	Backoff time.Duration

	// Timeout bounds each individual attempt.
	Timeout time.Duration
}

// DefaultRetryPolicy matches the production defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		Backoff:    250 * time.Millisecond,
		Timeout:    5 * time.Second,
	}
}

// retrying decorates a Validator with per-attempt timeouts and bounded
// backoff retries.
type retrying struct {
	inner  Validator
	policy RetryPolicy
	logger *slog.Logger
}

// WithRetry wraps a validator with the given retry policy. A nil logger
// disables retry logging.
func WithRetry(inner Validator, policy RetryPolicy, logger *slog.Logger) Validator {
	return &retrying{inner: inner, policy: policy, logger: logger}
}

func (r *retrying) Kind() models.OutcomeKind     { return r.inner.Kind() }
func (r *retrying) Source() models.OutcomeSource { return r.inner.Source() }

func (r *retrying) Validate(ctx context.Context, providerID id.ProviderID, subject string) (*models.ValidationOutcome, error) {
	backoff := r.policy.Backoff
	var lastErr error

	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, NewProviderError(ErrorTimeout, string(r.inner.Kind()), "context cancelled during backoff", ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		outcome, err := r.attempt(ctx, providerID, subject)
		if err == nil {
			return outcome, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return nil, err
		}
		if r.logger != nil {
			r.logger.WarnContext(ctx, "validator call failed, retrying",
				"kind", r.inner.Kind(),
				"source", r.inner.Source(),
				"attempt", attempt+1,
				"max_retries", r.policy.MaxRetries,
				"error", err,
			)
		}
	}

	return nil, lastErr
}

// attempt runs one bounded call. The outcome is only surfaced after the call
// definitively resolves; a timeout produces an error, never a partial result.
func (r *retrying) attempt(parent context.Context, providerID id.ProviderID, subject string) (*models.ValidationOutcome, error) {
	ctx := parent
	if r.policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, r.policy.Timeout)
		defer cancel()
	}

	outcome, err := r.inner.Validate(ctx, providerID, subject)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, NewProviderError(ErrorTimeout, string(r.inner.Kind()), "validator call timed out", err)
		}
		return nil, err
	}
	return outcome, nil
}
