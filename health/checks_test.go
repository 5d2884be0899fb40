package health

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/jonwraymond/regenops/cache"
	"github.com/jonwraymond/regenops/persist"
	"github.com/jonwraymond/regenops/resilience"
	"github.com/jonwraymond/regenops/story"
)

type downStore struct{ persist.NoopStore }

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestStoreChecker(t *testing.T) {
	ctx := context.Background()
	if r := StoreChecker(persist.NewMemoryStore()).Check(ctx); r.Status != StatusHealthy {
		t.Errorf("memory store = %+v", r)
	}
	r := StoreChecker(downStore{}).Check(ctx)
	if r.Status != StatusDegraded || r.Err == nil {
		t.Errorf("down store = %+v", r)
	}
}

func TestCacheChecker(t *testing.T) {
	ctx := context.Background()
	c := cache.New(ctx, cache.Policy{MaxEntries: 2})
	checker := CacheChecker(c, 2)

	if r := checker.Check(ctx); r.Status != StatusHealthy || r.Details["total_entries"] != 0 {
		t.Errorf("empty cache = %+v", r)
	}
	for _, id := range []string{"a", "b"} {
		if err := c.Set(ctx, cache.RequestKey{StoryID: id, Kind: story.KindImages}, &story.Document{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	if r := checker.Check(ctx); r.Status != StatusDegraded {
		t.Errorf("full cache = %+v", r)
	}
}

func TestBreakerChecker(t *testing.T) {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{MaxFailures: 1})

	if r := BreakerChecker("generator", cb.State, false).Check(context.Background()); r.Status != StatusHealthy {
		t.Errorf("closed = %+v", r)
	}

	_ = cb.Execute(context.Background(), func(context.Context) error { return errors.New("upstream 503") })

	if r := BreakerChecker("generator", cb.State, false).Check(context.Background()); r.Status != StatusDegraded {
		t.Errorf("open, not critical = %+v", r)
	}
	r := BreakerChecker("store", cb.State, true).Check(context.Background())
	if r.Status != StatusUnhealthy || !errors.Is(r.Err, resilience.ErrCircuitOpen) {
		t.Errorf("open, critical = %+v", r)
	}
	if r.Details["state"] != "open" {
		t.Errorf("details = %v", r.Details)
	}
}

func TestMemoryChecker(t *testing.T) {
	tests := []struct {
		heap uint64
		want Status
	}{
		{heap: 10, want: StatusHealthy},
		{heap: 85, want: StatusDegraded},
		{heap: 99, want: StatusUnhealthy},
	}
	for _, tt := range tests {
		m := NewMemoryChecker(MemoryCheckerConfig{Limit: 100})
		m.readStat = func(s *runtime.MemStats) { s.HeapAlloc = tt.heap }
		if r := m.Check(context.Background()); r.Status != tt.want {
			t.Errorf("heap %d: %v, want %v", tt.heap, r.Status, tt.want)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if r := NewMemoryChecker(MemoryCheckerConfig{}).Check(ctx); r.Status != StatusUnhealthy {
		t.Errorf("cancelled = %+v", r)
	}
}

func TestNewMemoryChecker_Defaults(t *testing.T) {
	m := NewMemoryChecker(MemoryCheckerConfig{Warning: 0.9, Critical: 0.5})
	if m.cfg.Critical != 0.9 {
		t.Errorf("Critical = %v, want clamped to Warning", m.cfg.Critical)
	}
	m = NewMemoryChecker(MemoryCheckerConfig{Warning: 2})
	if m.cfg.Warning != 0.8 || m.cfg.Critical != 0.95 {
		t.Errorf("defaults = %+v", m.cfg)
	}
}
