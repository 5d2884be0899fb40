package health

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"
)

func fixed(name string, r Result) Checker {
	return NewCheckerFunc(name, func(context.Context) Result { return r })
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		s    Status
		want string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}

	b, err := json.Marshal(map[string]Status{"s": StatusDegraded})
	if err != nil || string(b) != `{"s":"degraded"}` {
		t.Errorf("json = %s, %v", b, err)
	}
}

func TestAggregator_RegisterOrderAndReplace(t *testing.T) {
	agg := NewAggregator(0)
	agg.Register(fixed("store", Healthy("ok")))
	agg.Register(fixed("cache", Healthy("ok")))
	agg.Register(fixed("store", Degraded("replaced")))

	if got := agg.Names(); !slices.Equal(got, []string{"store", "cache"}) {
		t.Errorf("Names() = %v", got)
	}
	r, err := agg.Check(context.Background(), "store")
	if err != nil || r.Status != StatusDegraded {
		t.Errorf("Check(store) = %+v, %v", r, err)
	}
	if _, err := agg.Check(context.Background(), "nope"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check(nope) error = %v", err)
	}
}

func TestAggregator_CheckAllStatus(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		want    Status
	}{
		{"none", nil, StatusHealthy},
		{"all healthy", []Result{Healthy("a"), Healthy("b")}, StatusHealthy},
		{"one degraded", []Result{Healthy("a"), Degraded("b")}, StatusDegraded},
		{"one unhealthy", []Result{Degraded("a"), Unhealthy("b", nil), Healthy("c")}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator(time.Second)
			for i, r := range tt.results {
				agg.Register(fixed(string(rune('a'+i)), r))
			}
			report := agg.CheckAll(context.Background())
			if report.Status != tt.want {
				t.Errorf("Status = %v, want %v", report.Status, tt.want)
			}
			if len(report.Checks) != len(tt.results) {
				t.Errorf("Checks = %d, want %d", len(report.Checks), len(tt.results))
			}
		})
	}
}

func TestAggregator_Timeout(t *testing.T) {
	agg := NewAggregator(20 * time.Millisecond)
	release := make(chan struct{})
	defer close(release)
	agg.Register(NewCheckerFunc("stuck", func(context.Context) Result {
		<-release
		return Healthy("late")
	}))
	agg.Register(fixed("fast", Healthy("ok")))

	start := time.Now()
	report := agg.CheckAll(context.Background())
	if time.Since(start) > time.Second {
		t.Fatal("CheckAll waited for a stuck checker")
	}
	stuck := report.Checks["stuck"]
	if stuck.Status != StatusUnhealthy || !errors.Is(stuck.Err, ErrCheckTimeout) {
		t.Errorf("stuck = %+v", stuck)
	}
	if report.Checks["fast"].Status != StatusHealthy {
		t.Errorf("fast = %+v", report.Checks["fast"])
	}
}
