package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiterConfig configures a RateLimiter.
type RateLimiterConfig struct {
	// Rate is the refill rate in tokens per second. Default: 100
	Rate float64

	// Burst is the bucket size. Default: 10
	Burst int

	// WaitOnLimit makes Execute wait for a token instead of failing.
	WaitOnLimit bool

	// MaxWait bounds a wait for tokens. Default: 1s
	MaxWait time.Duration

	// Now is the clock. Default: time.Now
	Now func() time.Time
}

// RateLimiter is a token bucket that starts full.
type RateLimiter struct {
	cfg RateLimiterConfig

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewRateLimiter creates a RateLimiter.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.Rate <= 0 {
		cfg.Rate = 100
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &RateLimiter{cfg: cfg, tokens: float64(cfg.Burst), last: cfg.Now()}
}

// Allow takes one token if available.
func (rl *RateLimiter) Allow() bool { return rl.AllowN(1) }

// AllowN takes n tokens if all are available.
func (rl *RateLimiter) AllowN(n int) bool {
	_, ok := rl.reserve(n)
	return ok
}

// Wait takes one token, waiting up to MaxWait.
func (rl *RateLimiter) Wait(ctx context.Context) error { return rl.WaitN(ctx, 1) }

// WaitN takes n tokens, waiting up to MaxWait for the bucket to refill.
func (rl *RateLimiter) WaitN(ctx context.Context, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline := time.Now().Add(rl.cfg.MaxWait)
	for {
		shortfall, ok := rl.reserve(n)
		if ok {
			return nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrRateLimitExceeded
		}

		wait := time.Duration(shortfall / rl.cfg.Rate * float64(time.Second))
		timer := time.NewTimer(max(min(wait, remaining), time.Millisecond))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Execute runs op once a token is taken.
func (rl *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if rl.cfg.WaitOnLimit {
		if err := rl.Wait(ctx); err != nil {
			return err
		}
	} else if !rl.Allow() {
		return ErrRateLimitExceeded
	}
	return op(ctx)
}

// Tokens returns the tokens currently available.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked()
	return rl.tokens
}

// Reset refills the bucket.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.tokens = float64(rl.cfg.Burst)
	rl.last = rl.cfg.Now()
}

// reserve takes n tokens, or reports how many are missing.
func (rl *RateLimiter) reserve(n int) (shortfall float64, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked()
	if rl.tokens >= float64(n) {
		rl.tokens -= float64(n)
		return 0, true
	}
	return float64(n) - rl.tokens, false
}

func (rl *RateLimiter) refillLocked() {
	now := rl.cfg.Now()
	if elapsed := now.Sub(rl.last); elapsed > 0 {
		rl.tokens = min(rl.tokens+elapsed.Seconds()*rl.cfg.Rate, float64(rl.cfg.Burst))
	}
	rl.last = now
}
