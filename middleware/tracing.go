package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/tierq/request"
)

// tracerName is the instrumentation scope name for tierq tracing.
const tracerName = "github.com/xraph/tierq"

// Tracing returns middleware that wraps request execution in an
// OpenTelemetry span. If no TracerProvider is configured globally, the
// default noop tracer is used and this middleware becomes a pass-through
// with zero overhead.
//
// Span attributes include: tierq.request.id, tierq.handler, tierq.tier,
// tierq.user_id, tierq.priority. On error, the span status is set to
// codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, r *request.Request, next Handler) ([]byte, error) {
		ctx, span := tracer.Start(ctx, "tierq.request.execute",
			trace.WithAttributes(
				attribute.String("tierq.request.id", r.ID.String()),
				attribute.String("tierq.handler", r.Handler),
				attribute.String("tierq.tier", string(r.Tier)),
				attribute.String("tierq.user_id", r.UserID),
				attribute.Int("tierq.priority", r.CurrentPriority),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		result, err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return result, err
	}
}
