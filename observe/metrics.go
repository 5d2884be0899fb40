package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records regeneration metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordOperation records one operation with its duration and outcome.
	RecordOperation(ctx context.Context, meta OpMeta, duration time.Duration, err error)

	// RecordCacheLookup records a regeneration cache hit or miss.
	RecordCacheLookup(ctx context.Context, hit bool)

	// RecordValidation records a validation verdict for a regeneration kind.
	RecordValidation(ctx context.Context, kind string, valid bool)
}

type metricsImpl struct {
	opCount      metric.Int64Counter
	opErrors     metric.Int64Counter
	opDuration   metric.Float64Histogram
	cacheLookups metric.Int64Counter
	validations  metric.Int64Counter
}

// NewMetrics creates the regeneration instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	opCount, err := meter.Int64Counter(
		"regen.op.total",
		metric.WithDescription("Total number of regeneration operations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	opErrors, err := meter.Int64Counter(
		"regen.op.errors",
		metric.WithDescription("Total number of failed regeneration operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	opDuration, err := meter.Float64Histogram(
		"regen.op.duration_ms",
		metric.WithDescription("Regeneration operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	cacheLookups, err := meter.Int64Counter(
		"regen.cache.lookups",
		metric.WithDescription("Regeneration cache lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	validations, err := meter.Int64Counter(
		"regen.validation.total",
		metric.WithDescription("Regeneration request validations by verdict"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		opCount:      opCount,
		opErrors:     opErrors,
		opDuration:   opDuration,
		cacheLookups: cacheLookups,
		validations:  validations,
	}, nil
}

func (m *metricsImpl) RecordOperation(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{attribute.String("regen.op", meta.Op)}
	if meta.Kind != "" {
		attrs = append(attrs, attribute.String("regen.kind", meta.Kind))
	}
	opt := metric.WithAttributes(attrs...)

	m.opCount.Add(ctx, 1, opt)
	if err != nil {
		m.opErrors.Add(ctx, 1, opt)
	}
	m.opDuration.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordCacheLookup(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *metricsImpl) RecordValidation(ctx context.Context, kind string, valid bool) {
	m.validations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("regen.kind", kind),
		attribute.Bool("valid", valid),
	))
}

type noopMetrics struct{}

// NoopMetrics returns a Metrics that records nothing.
func NoopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) RecordOperation(context.Context, OpMeta, time.Duration, error) {}
func (noopMetrics) RecordCacheLookup(context.Context, bool)                       {}
func (noopMetrics) RecordValidation(context.Context, string, bool)                {}
