package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// OpMeta describes one regeneration operation for telemetry purposes.
type OpMeta struct {
	Op      string // operation name, e.g. "cache.get" or "regenerate" (required)
	StoryID string // story the operation concerns (optional)
	Kind    string // regeneration kind: story|images|page (optional)
}

// SpanName returns the deterministic span name: regen.<op>.
func (m OpMeta) SpanName() string {
	return "regen." + m.Op
}

// Validate reports whether the metadata is usable.
func (m OpMeta) Validate() error {
	if m.Op == "" {
		return ErrMissingOp
	}
	return nil
}

func (m OpMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("regen.op", m.Op)}
	if m.StoryID != "" {
		attrs = append(attrs, attribute.String("regen.story_id", m.StoryID))
	}
	if m.Kind != "" {
		attrs = append(attrs, attribute.String("regen.kind", m.Kind))
	}
	return attrs
}

func (m OpMeta) fields() []Field {
	fields := []Field{{Key: "op", Value: m.Op}}
	if m.StoryID != "" {
		fields = append(fields, Field{Key: "story_id", Value: m.StoryID})
	}
	if m.Kind != "" {
		fields = append(fields, Field{Key: "kind", Value: m.Kind})
	}
	return fields
}

// Tracer wraps OpenTelemetry tracing with operation-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for the operation.
	StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// NoopTracer returns a Tracer that records nothing.
func NoopTracer() Tracer {
	return &tracerImpl{tracer: tracenoop.NewTracerProvider().Tracer("noop")}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(), attribute.Bool("regen.error", false))
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("regen.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
