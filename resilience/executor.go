package resilience

import (
	"context"
	"time"
)

// guard is one layer of an Executor.
type guard interface {
	Execute(ctx context.Context, op func(context.Context) error) error
}

// Executor runs operations through a fixed stack of guards.
type Executor struct {
	rateLimiter    *RateLimiter
	bulkhead       *Bulkhead
	circuitBreaker *CircuitBreaker
	retry          *Retry
	timeout        *Timeout
}

// ExecutorOption configures an Executor. Nil guards are ignored.
type ExecutorOption func(*Executor)

// NewExecutor creates an Executor. With no options it calls op directly.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithCircuitBreaker adds a circuit breaker.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.circuitBreaker = cb }
}

// WithRetry adds retries.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

// WithRateLimiter adds a rate limiter.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) { e.rateLimiter = rl }
}

// WithBulkhead adds a concurrency bound.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) { e.bulkhead = b }
}

// WithTimeout bounds each attempt.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return WithTimeoutConfig(NewTimeout(TimeoutConfig{Timeout: timeout}))
}

// WithTimeoutConfig bounds each attempt with t.
func WithTimeoutConfig(t *Timeout) ExecutorOption {
	return func(e *Executor) { e.timeout = t }
}

// guards lists the configured guards, outermost first.
func (e *Executor) guards() []guard {
	var gs []guard
	if e.rateLimiter != nil {
		gs = append(gs, e.rateLimiter)
	}
	if e.bulkhead != nil {
		gs = append(gs, e.bulkhead)
	}
	if e.circuitBreaker != nil {
		gs = append(gs, e.circuitBreaker)
	}
	if e.retry != nil {
		gs = append(gs, e.retry)
	}
	if e.timeout != nil {
		gs = append(gs, e.timeout)
	}
	return gs
}

// Execute runs op through rate limiter, bulkhead, circuit breaker, retry
// and timeout, skipping those not configured.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	call := op
	gs := e.guards()
	for i := len(gs) - 1; i >= 0; i-- {
		g, next := gs[i], call
		call = func(ctx context.Context) error { return g.Execute(ctx, next) }
	}
	return call(ctx)
}
