package resilience

import (
	"context"
	"errors"
	"time"
)

// TimeoutConfig configures a Timeout.
type TimeoutConfig struct {
	// Timeout bounds one call. Default: 30s
	Timeout time.Duration
}

// Timeout bounds how long one call may run.
type Timeout struct {
	cfg TimeoutConfig
}

// NewTimeout creates a Timeout.
func NewTimeout(cfg TimeoutConfig) *Timeout {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Timeout{cfg: cfg}
}

// Config returns the effective configuration.
func (t *Timeout) Config() TimeoutConfig { return t.cfg }

// Execute runs op with a derived deadline and returns ErrTimeout once it
// passes, without waiting for op to notice. Cancellation of the parent
// context is returned as the parent's error.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}

// ExecuteWithTimeout runs op under a one-off Timeout.
func ExecuteWithTimeout(ctx context.Context, timeout time.Duration, op func(context.Context) error) error {
	return NewTimeout(TimeoutConfig{Timeout: timeout}).Execute(ctx, op)
}
