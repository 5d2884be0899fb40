// Package resilience guards calls to the services the regeneration pipeline
// depends on: the upstream story generator and the shared persistence
// backends.
//
// Each guard wraps a func(context.Context) error:
//
//   - CircuitBreaker stops calling a backend after consecutive failures and
//     probes it again once ResetTimeout has passed.
//   - Retry repeats transient failures with exponential, linear or constant
//     backoff. A RetryAfter hook lets the caller honor server hints.
//   - RateLimiter is a token bucket that bounds outgoing call rate.
//   - Bulkhead bounds concurrent in-flight calls.
//   - Timeout bounds one attempt.
//
// Executor stacks the guards in a fixed order, outermost first: rate
// limiter, bulkhead, circuit breaker, retry, timeout. The breaker therefore
// sees one outcome per logical call, after retries are spent, and each retry
// attempt gets its own timeout.
//
//	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    MaxFailures:  5,
//	    ResetTimeout: time.Minute,
//	})
//	exec := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(breaker),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 3})),
//	    resilience.WithTimeout(30*time.Second),
//	)
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return generator.Call(ctx)
//	})
package resilience
