package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/careerbridge/careerbridge-api/internal/domain"
)

// Default retry settings.
const (
	DefaultMaxRetries = 2
	DefaultBaseDelay  = 500 * time.Millisecond

	// MaxRetryDelay caps a single backoff, including provider Retry-After hints.
	MaxRetryDelay = 10 * time.Second
)

// RetryGenerator is a decorator that retries transient provider failures
// with exponential backoff and jitter.
type RetryGenerator struct {
	inner      Generator
	maxRetries int
	baseDelay  time.Duration
	budget     time.Duration
	logger     *slog.Logger
}

// RetryOption configures a RetryGenerator.
type RetryOption func(*RetryGenerator)

// WithRetryBudget bounds the whole call, first attempt and retries
// together. Zero means no bound beyond the caller's context.
func WithRetryBudget(d time.Duration) RetryOption {
	return func(r *RetryGenerator) {
		if d > 0 {
			r.budget = d
		}
	}
}

// NewRetryGenerator wraps a Generator with retry logic.
// maxRetries is the number of additional attempts after the first failure.
// baseDelay is doubled on each subsequent retry.
func NewRetryGenerator(inner Generator, maxRetries int, baseDelay time.Duration, logger *slog.Logger, opts ...RetryOption) *RetryGenerator {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	r := &RetryGenerator{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Provider implements Generator.
func (r *RetryGenerator) Provider() domain.Provider {
	return r.inner.Provider()
}

// Generate implements Generator, retrying on transient errors.
func (r *RetryGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if r.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.budget)
		defer cancel()
	}

	text, err := r.inner.Generate(ctx, req)
	if err == nil || !isTransient(err) {
		return text, err
	}

	lastErr := err
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		delay := r.backoffDelay(attempt, lastErr)

		// No point sleeping past the deadline; report the provider error instead.
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= delay {
			r.logger.Warn("retry budget exhausted",
				"provider", string(r.inner.Provider()),
				"attempt", attempt,
				"delay", delay,
				"error", lastErr,
			)
			return "", lastErr
		}

		r.logger.Warn("retrying provider after transient error",
			"provider", string(r.inner.Provider()),
			"attempt", attempt,
			"max_retries", r.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return "", &domain.ExternalServiceError{
				Provider: r.inner.Provider(),
				Message:  fmt.Sprintf("%s API error: retry cancelled: %v", r.inner.Provider().DisplayName(), ctx.Err()),
				Err:      ctx.Err(),
			}
		case <-time.After(delay):
		}

		text, err = r.inner.Generate(ctx, req)
		if err == nil || !isTransient(err) {
			return text, err
		}
		lastErr = err
	}

	return "", lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// A provider Retry-After hint takes precedence. Both are capped at MaxRetryDelay.
func (r *RetryGenerator) backoffDelay(attempt int, err error) time.Duration {
	var extErr *domain.ExternalServiceError
	if errors.As(err, &extErr) && extErr.RetryAfter > 0 {
		return min(extErr.RetryAfter, MaxRetryDelay)
	}

	delay := r.baseDelay
	for i := 1; i < attempt && delay < MaxRetryDelay; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	return min(time.Duration(float64(delay)+(rand.Float64()*2-1)*jitter), MaxRetryDelay)
}

// isTransient reports whether err is a provider failure worth retrying:
// 429, 5xx, or a transport error that is not a context cancellation.
// Malformed or empty replies are not transient.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var extErr *domain.ExternalServiceError
	if errors.As(err, &extErr) && extErr.StatusCode != 0 {
		return extErr.StatusCode == http.StatusTooManyRequests || extErr.StatusCode >= 500
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
