package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/tierq/ext"
	"github.com/xraph/tierq/request"
	"github.com/xraph/tierq/sla"
)

// meterName is the instrumentation scope name for tierq lifecycle metrics.
const meterName = "github.com/xraph/tierq/observability"

// Compile-time interface checks.
var (
	_ ext.Extension        = (*MetricsExtension)(nil)
	_ ext.RequestAdmitted  = (*MetricsExtension)(nil)
	_ ext.RequestRejected  = (*MetricsExtension)(nil)
	_ ext.RequestCompleted = (*MetricsExtension)(nil)
	_ ext.RequestFailed    = (*MetricsExtension)(nil)
	_ ext.RequestTimedOut  = (*MetricsExtension)(nil)
	_ ext.RequestCancelled = (*MetricsExtension)(nil)
)

// MetricsExtension records scheduler-wide lifecycle metrics via OpenTelemetry.
// Register it as a tierq extension to automatically track admission rates,
// rejection reasons, terminal outcomes per tier, and wait/processing time
// distributions.
type MetricsExtension struct {
	admitted  metric.Int64Counter
	rejected  metric.Int64Counter
	completed metric.Int64Counter

	waitTime       metric.Float64Histogram
	processingTime metric.Float64Histogram
}

// NewMetricsExtension creates a MetricsExtension using the global
// MeterProvider. Without a configured provider the instruments are noops.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the provided
// meter. Use this variant to inject a specific MeterProvider in tests.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	m := &MetricsExtension{}

	// The OTel API guarantees noop instruments on creation error, so the
	// extension degrades gracefully rather than failing construction.
	m.admitted, _ = meter.Int64Counter(
		"tierq.request.admitted",
		metric.WithDescription("Requests admitted to the queue"),
		metric.WithUnit("{request}"),
	)
	m.rejected, _ = meter.Int64Counter(
		"tierq.request.rejected",
		metric.WithDescription("Requests rejected at admission"),
		metric.WithUnit("{request}"),
	)
	m.completed, _ = meter.Int64Counter(
		"tierq.request.finished",
		metric.WithDescription("Requests that reached a terminal status"),
		metric.WithUnit("{request}"),
	)
	m.waitTime, _ = meter.Float64Histogram(
		"tierq.request.wait_time",
		metric.WithDescription("Time spent in queue before dispatch in seconds"),
		metric.WithUnit("s"),
	)
	m.processingTime, _ = meter.Float64Histogram(
		"tierq.request.processing_time",
		metric.WithDescription("Handler execution time in seconds"),
		metric.WithUnit("s"),
	)

	return m
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// rejectionReason maps an admission error to a stable metric label.
func rejectionReason(err error) string {
	switch {
	case err == nil:
		return "unknown"
	default:
		return err.Error()
	}
}

// ── Admission hooks ─────────────────────────────────

// OnRequestAdmitted implements ext.RequestAdmitted.
func (m *MetricsExtension) OnRequestAdmitted(ctx context.Context, r *request.Request) error {
	m.admitted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tier", string(r.Tier)),
	))
	return nil
}

// OnRequestRejected implements ext.RequestRejected.
func (m *MetricsExtension) OnRequestRejected(ctx context.Context, _ string, tier sla.Tier, reason error) error {
	m.rejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tier", string(tier)),
		attribute.String("reason", rejectionReason(reason)),
	))
	return nil
}

// ── Terminal hooks ──────────────────────────────────

// OnRequestCompleted implements ext.RequestCompleted.
func (m *MetricsExtension) OnRequestCompleted(ctx context.Context, r *request.Request, elapsed time.Duration) error {
	m.recordTerminal(ctx, r, request.StatusCompleted)
	m.processingTime.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("tier", string(r.Tier)),
		attribute.String("handler", r.Handler),
	))
	return nil
}

// OnRequestFailed implements ext.RequestFailed.
func (m *MetricsExtension) OnRequestFailed(ctx context.Context, r *request.Request, _ error) error {
	m.recordTerminal(ctx, r, request.StatusFailed)
	return nil
}

// OnRequestTimedOut implements ext.RequestTimedOut.
func (m *MetricsExtension) OnRequestTimedOut(ctx context.Context, r *request.Request) error {
	m.recordTerminal(ctx, r, request.StatusTimeout)
	return nil
}

// OnRequestCancelled implements ext.RequestCancelled.
func (m *MetricsExtension) OnRequestCancelled(ctx context.Context, r *request.Request) error {
	m.recordTerminal(ctx, r, request.StatusCancelled)
	return nil
}

func (m *MetricsExtension) recordTerminal(ctx context.Context, r *request.Request, status request.Status) {
	m.completed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tier", string(r.Tier)),
		attribute.String("status", string(status)),
	))
	if r.WaitTime > 0 {
		m.waitTime.Record(ctx, r.WaitTime.Seconds(), metric.WithAttributes(
			attribute.String("tier", string(r.Tier)),
		))
	}
}
