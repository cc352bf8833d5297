// Package observability provides an OpenTelemetry-based metrics extension
// for tierq. The MetricsExtension implements lifecycle hooks to record
// scheduler-wide counters for request admission, rejection, and terminal
// outcomes, plus wait-time and processing-time distributions per tier.
//
// For per-execution tracing and metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability
