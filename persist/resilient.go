package persist

import (
	"context"
	"errors"
	"time"

	"github.com/jonwraymond/regenops/resilience"
)

// ResilientConfig configures a ResilientStore.
type ResilientConfig struct {
	// Retry configures retries of failed operations. Zero values take the
	// resilience package defaults, except MaxAttempts which defaults to 2.
	Retry resilience.RetryConfig

	// Breaker configures the circuit breaker guarding the backend.
	Breaker resilience.CircuitBreakerConfig

	// Timeout bounds each attempt. Default: 2s
	Timeout time.Duration
}

// ResilientStore wraps a Store with per-attempt timeouts, retries and a
// circuit breaker. A miss (ErrNotFound) is a successful answer: it is
// neither retried nor counted as a breaker failure.
type ResilientStore struct {
	inner    Store
	breaker  *resilience.CircuitBreaker
	executor *resilience.Executor
}

// NewResilientStore wraps inner.
func NewResilientStore(inner Store, cfg ResilientConfig) *ResilientStore {
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = 2
	}
	if cfg.Retry.RetryIf == nil {
		cfg.Retry.RetryIf = isBackendFailure
	}
	if cfg.Breaker.IsFailure == nil {
		cfg.Breaker.IsFailure = isBackendFailure
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}

	breaker := resilience.NewCircuitBreaker(cfg.Breaker)
	return &ResilientStore{
		inner:   inner,
		breaker: breaker,
		executor: resilience.NewExecutor(
			resilience.WithCircuitBreaker(breaker),
			resilience.WithRetry(resilience.NewRetry(cfg.Retry)),
			resilience.WithTimeout(cfg.Timeout),
		),
	}
}

func isBackendFailure(err error) bool {
	return err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrInvalidKey)
}

func (s *ResilientStore) Load(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.executor.Execute(ctx, func(ctx context.Context) error {
		var err error
		data, err = s.inner.Load(ctx, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *ResilientStore) Save(ctx context.Context, key string, data []byte) error {
	return s.executor.Execute(ctx, func(ctx context.Context) error {
		return s.inner.Save(ctx, key, data)
	})
}

func (s *ResilientStore) Delete(ctx context.Context, key string) error {
	return s.executor.Execute(ctx, func(ctx context.Context) error {
		return s.inner.Delete(ctx, key)
	})
}

// Ping bypasses retries so health checks see the backend's real state.
func (s *ResilientStore) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// BreakerState returns the state of the circuit guarding the backend.
func (s *ResilientStore) BreakerState() resilience.State {
	return s.breaker.State()
}

func (s *ResilientStore) Close() error {
	return s.inner.Close()
}

var _ Store = (*ResilientStore)(nil)
