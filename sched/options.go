package sched

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/tierq/backoff"
	"github.com/xraph/tierq/ext"
	mw "github.com/xraph/tierq/middleware"
	"github.com/xraph/tierq/quota"
	"github.com/xraph/tierq/sla"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithCatalog replaces the default tier catalog, e.g. to override
// per-tier limits via sla.NewCatalog.
func WithCatalog(c *sla.Catalog) Option {
	return func(s *Scheduler) {
		s.catalog = c
	}
}

// WithExtension registers a lifecycle extension with the scheduler.
func WithExtension(e ext.Extension) Option {
	return func(s *Scheduler) {
		s.pendingExts = append(s.pendingExts, e)
	}
}

// WithMiddleware appends middleware to the execution chain, after the
// default stack (recover, tracing, metrics, logging).
func WithMiddleware(m mw.Middleware) Option {
	return func(s *Scheduler) {
		s.mws = append(s.mws, m)
	}
}

// WithBackoff sets the dispatch-loop idle back-off strategy.
// If not set, backoff.DefaultStrategy() is used.
func WithBackoff(b backoff.Strategy) Option {
	return func(s *Scheduler) {
		s.bo = b
	}
}

// WithWindowFactory replaces the in-memory per-user rate window, e.g.
// with rediswindow.Factory for admission state shared across instances.
func WithWindowFactory(f quota.WindowFactory) Option {
	return func(s *Scheduler) {
		s.windowFactory = f
	}
}

// WithClock overrides the wall-clock source. Used by tests to exercise
// aging and daily rollover deterministically.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithTracerProvider sets a custom OTel TracerProvider. When set, the
// tracing middleware uses this provider instead of the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Scheduler) {
		s.tracerProvider = tp
	}
}

// WithMeterProvider sets a custom OTel MeterProvider. When set, both the
// metrics middleware and the observability extension use this provider
// instead of the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Scheduler) {
		s.meterProvider = mp
	}
}
