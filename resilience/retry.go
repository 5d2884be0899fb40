package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy shapes the delay between attempts.
type BackoffStrategy int

const (
	// BackoffExponential multiplies the delay by Multiplier per attempt.
	BackoffExponential BackoffStrategy = iota
	// BackoffLinear grows the delay by InitialDelay per attempt.
	BackoffLinear
	// BackoffConstant waits InitialDelay every time.
	BackoffConstant
)

// RetryConfig configures a Retry.
type RetryConfig struct {
	// MaxAttempts counts the first call. Default: 3
	MaxAttempts int

	// InitialDelay is the delay before the second attempt. Default: 100ms
	InitialDelay time.Duration

	// MaxDelay caps any single delay, hints included. Default: 30s
	MaxDelay time.Duration

	// Multiplier is the exponential growth factor. Default: 2
	Multiplier float64

	Strategy BackoffStrategy

	// Jitter adds up to 25% random delay.
	Jitter bool

	// RetryIf reports whether err is worth another attempt. Default: any
	// non-nil error.
	RetryIf func(err error) bool

	// RetryAfter returns a server-requested delay for err, or zero to use
	// the backoff schedule.
	RetryAfter func(err error) time.Duration

	// OnRetry runs before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry repeats failed operations with backoff.
type Retry struct {
	cfg RetryConfig
}

// NewRetry creates a Retry.
func NewRetry(cfg RetryConfig) *Retry {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = func(err error) bool { return err != nil }
	}
	return &Retry{cfg: cfg}
}

// Config returns the effective configuration.
func (r *Retry) Config() RetryConfig { return r.cfg }

// Execute calls op until it succeeds, fails permanently, or runs out of
// attempts. A permanent failure is returned as is. Exhaustion wraps the
// last failure with ErrMaxRetriesExceeded.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if !r.cfg.RetryIf(err) {
			return err
		}
		if attempt >= r.cfg.MaxAttempts {
			if r.cfg.MaxAttempts == 1 {
				return err
			}
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetriesExceeded, attempt, err)
		}

		delay := r.delay(attempt, err)
		if r.cfg.OnRetry != nil {
			r.cfg.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// delay returns the wait after the given failed attempt.
func (r *Retry) delay(attempt int, err error) time.Duration {
	if r.cfg.RetryAfter != nil {
		if hint := r.cfg.RetryAfter(err); hint > 0 {
			return min(hint, r.cfg.MaxDelay)
		}
	}

	var d time.Duration
	switch r.cfg.Strategy {
	case BackoffConstant:
		d = r.cfg.InitialDelay
	case BackoffLinear:
		d = r.cfg.InitialDelay * time.Duration(attempt)
	default:
		f := float64(r.cfg.InitialDelay) * math.Pow(r.cfg.Multiplier, float64(attempt-1))
		if f >= float64(r.cfg.MaxDelay) {
			f = float64(r.cfg.MaxDelay)
		}
		d = time.Duration(f)
	}
	d = min(d, r.cfg.MaxDelay)

	if r.cfg.Jitter && d >= 4 {
		// #nosec G404 -- jitter is timing variance, not a secret.
		d += time.Duration(rand.Int64N(int64(d / 4)))
	}
	return d
}
