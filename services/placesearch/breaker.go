package placesearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	defaultBreakerMaxFailures uint32 = 5
	defaultBreakerTimeout            = 30 * time.Second
	defaultBreakerInterval           = 60 * time.Second
)

// BreakerConfig configures the circuit breaker around a primary backend.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before a half-open probe.
	Timeout time.Duration
	// Interval clears failure counts while closed. Zero keeps them until the circuit opens.
	Interval time.Duration
}

// BreakerBackend wraps a PrimaryBackend with a circuit breaker. While the circuit
// is open calls fail immediately, which the Searcher treats like any other
// primary failure and answers from the secondary backend.
type BreakerBackend struct {
	inner   PrimaryBackend
	breaker *gobreaker.CircuitBreaker[[]Place]
}

// NewBreakerBackend wraps inner. Zero config values fall back to defaults.
func NewBreakerBackend(inner PrimaryBackend, cfg BreakerConfig, logger *zap.Logger) *BreakerBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultBreakerTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultBreakerInterval
	}

	cb := gobreaker.NewCircuitBreaker[[]Place](gobreaker.Settings{
		Name:        "search:" + inner.Name(),
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// A cancelled caller says nothing about backend health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &BreakerBackend{inner: inner, breaker: cb}
}

// Name returns the wrapped backend name
func (b *BreakerBackend) Name() string {
	return b.inner.Name()
}

// SearchPlaces routes the call through the breaker.
func (b *BreakerBackend) SearchPlaces(ctx context.Context, query string) ([]Place, error) {
	places, err := b.breaker.Execute(func() ([]Place, error) {
		return b.inner.SearchPlaces(ctx, query)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &BackendError{Backend: b.inner.Name(), Err: fmt.Errorf("circuit open: %w", err)}
	}
	return places, err
}

// State returns the breaker state for status reporting.
func (b *BreakerBackend) State() gobreaker.State {
	return b.breaker.State()
}
