package persist

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/regenops/resilience"
)

var errBackendDown = errors.New("backend down")

// flakyStore fails the first failN calls of every operation.
type flakyStore struct {
	*MemoryStore
	failN int32
	calls atomic.Int32
}

func (f *flakyStore) Load(ctx context.Context, key string) ([]byte, error) {
	if f.calls.Add(1) <= f.failN {
		return nil, errBackendDown
	}
	return f.MemoryStore.Load(ctx, key)
}

func (f *flakyStore) Save(ctx context.Context, key string, data []byte) error {
	if f.calls.Add(1) <= f.failN {
		return errBackendDown
	}
	return f.MemoryStore.Save(ctx, key, data)
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestResilientStore_RetriesTransientFailures(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore(), failN: 2}
	s := NewResilientStore(inner, ResilientConfig{Retry: fastRetry()})

	require.NoError(t, s.Save(context.Background(), "k", []byte("v")))
	assert.Equal(t, int32(3), inner.calls.Load())
}

func TestResilientStore_MissIsNotRetried(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore()}
	s := NewResilientStore(inner, ResilientConfig{Retry: fastRetry()})

	_, err := s.Load(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, resilience.StateClosed, s.BreakerState())
}

func TestResilientStore_OpensCircuit(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore(), failN: 1000}
	s := NewResilientStore(inner, ResilientConfig{
		Retry:   resilience.RetryConfig{MaxAttempts: 1},
		Breaker: resilience.CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour},
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, s.Save(ctx, "k", nil), errBackendDown)
	}
	assert.ErrorIs(t, s.Save(ctx, "k", nil), resilience.ErrCircuitOpen)
	assert.Equal(t, resilience.StateOpen, s.BreakerState())
}
