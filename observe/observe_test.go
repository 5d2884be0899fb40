package observe

import (
	"context"
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name: "minimal",
			cfg:  Config{ServiceName: "regend"},
		},
		{
			name:    "missing service name",
			cfg:     Config{},
			wantErr: ErrMissingServiceName,
		},
		{
			name: "bad tracing exporter",
			cfg: Config{ServiceName: "regend", Tracing: TracingConfig{
				Enabled: true, Exporter: "zipkin", SamplePct: 1,
			}},
			wantErr: ErrInvalidTracingExporter,
		},
		{
			name: "sample pct out of range",
			cfg: Config{ServiceName: "regend", Tracing: TracingConfig{
				Enabled: true, Exporter: "stdout", SamplePct: 1.5,
			}},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name: "bad metrics exporter",
			cfg: Config{ServiceName: "regend", Metrics: MetricsConfig{
				Enabled: true, Exporter: "statsd",
			}},
			wantErr: ErrInvalidMetricsExporter,
		},
		{
			name: "bad log level",
			cfg: Config{ServiceName: "regend", Logging: LoggingConfig{
				Enabled: true, Level: "verbose",
			}},
			wantErr: ErrInvalidLogLevel,
		},
		{
			name: "disabled sections are not checked",
			cfg: Config{ServiceName: "regend",
				Tracing: TracingConfig{Exporter: "zipkin"},
				Logging: LoggingConfig{Level: "verbose"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewObserver_Disabled(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "regend"})
	if err != nil {
		t.Fatalf("NewObserver: %v", err)
	}
	if obs.Tracer() == nil || obs.Meter() == nil || obs.Logger() == nil {
		t.Fatal("expected non-nil providers")
	}
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestNewObserver_InvalidConfig(t *testing.T) {
	if _, err := NewObserver(context.Background(), Config{}); !errors.Is(err, ErrMissingServiceName) {
		t.Fatalf("expected ErrMissingServiceName, got %v", err)
	}
}

func TestNewObserver_NoneExporters(t *testing.T) {
	cfg := Config{
		ServiceName: "regend",
		Version:     "test",
		Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 0.5},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
	}
	obs, err := NewObserver(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewObserver: %v", err)
	}
	mw, err := MiddlewareFromObserver(obs)
	if err != nil {
		t.Fatalf("MiddlewareFromObserver: %v", err)
	}
	err = mw.Observe(context.Background(), OpMeta{Op: "test"}, func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestOpMeta(t *testing.T) {
	m := OpMeta{Op: "cache.get", StoryID: "s1", Kind: "page"}
	if got := m.SpanName(); got != "regen.cache.get" {
		t.Errorf("SpanName() = %q", got)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	if err := (OpMeta{}).Validate(); !errors.Is(err, ErrMissingOp) {
		t.Errorf("Validate() on empty = %v, want ErrMissingOp", err)
	}
	if got := len(m.attributes()); got != 3 {
		t.Errorf("attributes len = %d, want 3", got)
	}
	if got := len(OpMeta{Op: "x"}.fields()); got != 1 {
		t.Errorf("fields len = %d, want 1", got)
	}
}
