package observe

import (
	"context"
	"time"
)

// Middleware wraps regeneration operations with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: the span context is passed to fn.
//   - Errors: errors from fn are recorded and returned unchanged.
//   - Nil: a nil *Middleware runs fn without instrumentation.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NoopTracer()
	}
	if metrics == nil {
		metrics = NoopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// MiddlewareFromObserver builds a Middleware from an Observer's providers.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Metrics returns the middleware's metrics recorder.
func (m *Middleware) Metrics() Metrics {
	if m == nil {
		return NoopMetrics()
	}
	return m.metrics
}

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger {
	if m == nil {
		return NopLogger()
	}
	return m.logger
}

// Observe runs fn inside a span named after meta and records its outcome.
func (m *Middleware) Observe(ctx context.Context, meta OpMeta, fn func(ctx context.Context) error) error {
	if m == nil {
		return fn(ctx)
	}

	ctx, span := m.tracer.StartSpan(ctx, meta)
	start := time.Now()

	err := fn(ctx)

	duration := time.Since(start)
	m.tracer.EndSpan(span, err)
	m.metrics.RecordOperation(ctx, meta, duration, err)

	fields := append(meta.fields(), Field{Key: "duration_ms", Value: float64(duration.Microseconds()) / 1000})
	if err != nil {
		fields = append(fields, Field{Key: "error", Value: err.Error()})
		m.logger.Error(ctx, "operation failed", fields...)
	} else {
		m.logger.Debug(ctx, "operation completed", fields...)
	}
	return err
}
