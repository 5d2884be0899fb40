// Package observe provides the logging, tracing and metrics primitives used
// by the regeneration components.
//
// It is a pure instrumentation library: components accept a Logger and an
// optional Metrics/Tracer pair, and fall back to no-ops when none is given.
// Logging is backed by zap; tracing and metrics by OpenTelemetry.
package observe
