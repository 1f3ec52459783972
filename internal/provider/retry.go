package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/sumire/accounts/internal/domain"
)

// RetryPolicy bounds every outbound call to an identity provider.
type RetryPolicy struct {
	// Timeout applies to each attempt separately.
	Timeout         time.Duration
	MaxAttempts     uint
	InitialInterval time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Timeout:         10 * time.Second,
		MaxAttempts:     3,
		InitialInterval: 200 * time.Millisecond,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.Timeout <= 0 {
		p.Timeout = def.Timeout
	}
	if p.MaxAttempts == 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = def.InitialInterval
	}
	return p
}

// retry runs fn until it succeeds, fails with a validation error, or the
// policy is exhausted. Exhaustion is reported as domain.ErrProviderUnavailable.
func retry[T any](ctx context.Context, p RetryPolicy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval

	res, err := backoff.Retry(ctx, func() (T, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
		defer cancel()

		v, err := fn(attemptCtx)
		if err != nil && errors.Is(err, domain.ErrInvalidInput) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(p.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.WarnContext(ctx, "identity provider call failed, retrying",
				"op", op,
				"error", err,
				"retry_in", next,
			)
		}),
	)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return res, err
		}
		return res, fmt.Errorf("%s: %w: %w", op, domain.ErrProviderUnavailable, err)
	}

	return res, nil
}

func retryableStatus(code int) bool {
	return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
}
