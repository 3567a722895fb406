package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/careerbridge/careerbridge-api/internal/domain"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// BreakerConfig configures the circuit breaker behavior.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive transient failures before the circuit opens.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before going half-open.
	Timeout time.Duration
	// Interval is the cyclic period of the closed state for clearing failure counts.
	Interval time.Duration
	// OnStateChange, if set, is called after the logger records a transition.
	OnStateChange func(provider domain.Provider, from, to gobreaker.State)
}

// BreakerGenerator wraps a Generator with circuit breaker protection.
// Only transient failures count against the circuit; a malformed reply
// or a rejected request leaves it closed.
type BreakerGenerator struct {
	inner   Generator
	breaker *gobreaker.CircuitBreaker[string]
}

// NewBreakerGenerator wraps inner with a circuit breaker. Zero config
// fields take defaults.
func NewBreakerGenerator(inner Generator, cfg BreakerConfig, logger *slog.Logger) *BreakerGenerator {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "llm:" + string(inner.Provider()),
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(inner.Provider(), from, to)
			}
		},
		IsSuccessful: func(err error) bool {
			return !isTransient(err)
		},
	})

	return &BreakerGenerator{inner: inner, breaker: cb}
}

// Provider implements Generator.
func (b *BreakerGenerator) Provider() domain.Provider {
	return b.inner.Provider()
}

// Generate implements Generator. Calls are routed through the circuit breaker.
func (b *BreakerGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	text, err := b.breaker.Execute(func() (string, error) {
		return b.inner.Generate(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", &domain.ExternalServiceError{
			Provider: b.inner.Provider(),
			Message:  fmt.Sprintf("%s API unavailable: circuit open", b.inner.Provider().DisplayName()),
			Err:      err,
		}
	}
	return text, err
}

// State returns the current circuit state for health reporting.
func (b *BreakerGenerator) State() gobreaker.State {
	return b.breaker.State()
}

var (
	_ Generator = (*GeminiAdapter)(nil)
	_ Generator = (*GroqAdapter)(nil)
	_ Generator = (*RetryGenerator)(nil)
	_ Generator = (*BreakerGenerator)(nil)

	_ CareerClient = (*PromptClient)(nil)
)
