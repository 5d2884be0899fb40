package resilience

import "errors"

// Sentinel errors for resilience guards.
var (
	// ErrCircuitOpen is returned without calling the operation while the
	// breaker is open, or half-open with its probe budget spent.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrMaxRetriesExceeded wraps the last failure once every attempt is
	// spent. The failure itself stays reachable through errors.Is and
	// errors.As.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

	// ErrRateLimitExceeded is returned when no token is available in time.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrBulkheadFull is returned when no concurrency slot frees up in time.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout is returned when one attempt exceeds its deadline.
	ErrTimeout = errors.New("resilience: operation timed out")
)
