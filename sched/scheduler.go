package sched

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/xraph/tierq"
	"github.com/xraph/tierq/backoff"
	"github.com/xraph/tierq/ext"
	"github.com/xraph/tierq/id"
	mw "github.com/xraph/tierq/middleware"
	"github.com/xraph/tierq/observability"
	"github.com/xraph/tierq/queue"
	"github.com/xraph/tierq/quota"
	"github.com/xraph/tierq/request"
	"github.com/xraph/tierq/sla"
)

// entry pairs a registered request with the channel closed on its
// terminal transition. Result waiters block on done.
type entry struct {
	req  *request.Request
	done chan struct{}
}

// Scheduler is the SLA-aware request scheduler. It admits submissions
// against per-user quotas, ages queued priorities so lower tiers cannot
// starve, and dispatches to handlers under a global worker bound.
//
// All queue and registry state is guarded by a single mutex; handlers
// themselves run outside the lock.
type Scheduler struct {
	cfg        tierq.Config
	catalog    *sla.Catalog
	handlers   *request.Registry
	tracker    *quota.Tracker
	extensions *ext.Registry
	chain      mw.Middleware
	bo         backoff.Strategy
	logger     *slog.Logger
	sem        *semaphore.Weighted
	now        func() time.Time

	mu       sync.Mutex
	heap     *queue.Heap
	requests map[string]*entry
	seq      uint64
	started  bool
	stopped  bool

	active int64 // guarded by mu

	wake    chan struct{}
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// Construction-time state consumed by New; see options.go.
	mws            []mw.Middleware
	pendingExts    []ext.Extension
	windowFactory  quota.WindowFactory
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// New creates a Scheduler from the given configuration. Zero-valued
// Config fields fall back to DefaultConfig values.
func New(cfg tierq.Config, opts ...Option) *Scheduler {
	def := tierq.DefaultConfig()
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = def.MaxWorkers
	}
	if cfg.AgingInterval <= 0 {
		cfg.AgingInterval = def.AgingInterval
	}
	if cfg.OverduePenalty <= 0 {
		cfg.OverduePenalty = def.OverduePenalty
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = def.RateWindow
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}

	s := &Scheduler{
		cfg:      cfg,
		handlers: request.NewRegistry(),
		heap:     queue.NewHeap(),
		requests: make(map[string]*entry),
		sem:      semaphore.NewWeighted(int64(cfg.MaxWorkers)),
		wake:     make(chan struct{}, 1),
		logger:   slog.Default(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.catalog == nil {
		s.catalog = sla.DefaultCatalog()
	}
	if s.bo == nil {
		s.bo = backoff.DefaultStrategy()
	}

	trackerOpts := []quota.TrackerOption{quota.WithClock(s.now)}
	if s.windowFactory != nil {
		trackerOpts = append(trackerOpts, quota.WithWindowFactory(s.windowFactory))
	}
	s.tracker = quota.NewTracker(s.catalog, cfg.RateWindow, trackerOpts...)

	s.extensions = ext.NewRegistry(s.logger)

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if s.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(s.tracerProvider.Tracer("github.com/xraph/tierq"))
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware (custom provider or global).
	var metricsMw mw.Middleware
	if s.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(s.meterProvider.Meter("github.com/xraph/tierq"))
	} else {
		metricsMw = mw.Metrics()
	}

	// Register the observability metrics extension.
	var obsExt *observability.MetricsExtension
	if s.meterProvider != nil {
		obsExt = observability.NewMetricsExtensionWithMeter(
			s.meterProvider.Meter("github.com/xraph/tierq/observability"))
	} else {
		obsExt = observability.NewMetricsExtension()
	}
	s.extensions.Register(obsExt)

	for _, e := range s.pendingExts {
		s.extensions.Register(e)
	}
	s.pendingExts = nil

	// Default middleware stack: recover → tracing → metrics → logging.
	allMws := make([]mw.Middleware, 0, 4+len(s.mws))
	allMws = append(allMws,
		mw.Recover(s.logger),
		tracingMw,
		metricsMw,
		mw.Logging(s.logger),
	)
	allMws = append(allMws, s.mws...)
	s.chain = mw.Chain(allMws...)
	s.mws = nil

	return s
}

// RegisterHandler registers a raw byte-payload handler under the given
// operation name.
func (s *Scheduler) RegisterHandler(name string, h request.HandlerFunc) {
	s.handlers.Register(name, h)
}

// Register registers a typed handler definition with the scheduler.
func Register[T, R any](s *Scheduler, def *request.Definition[T, R]) {
	request.RegisterDefinition(s.handlers, def)
}

// Start launches the dispatch and aging loops. It returns an error if
// the scheduler was already started or already stopped.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return tierq.ErrSchedulerStopped
	}
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("tierq: scheduler already started")
	}
	s.started = true
	s.mu.Unlock()

	s.runCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))

	s.wg.Add(2)
	go s.dispatchLoop()
	go s.agingLoop()

	s.logger.Info("scheduler started",
		slog.Int("max_workers", s.cfg.MaxWorkers),
		slog.Duration("aging_interval", s.cfg.AgingInterval),
	)
	return nil
}

// Stop gracefully shuts down the scheduler. New submissions are refused
// immediately; the dispatch loop stops picking up queued work; in-flight
// handlers run to completion or their own deadline. Stop waits for them
// up to ctx's deadline or Config.ShutdownTimeout, whichever is sooner.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	wasStarted := s.started
	s.mu.Unlock()

	if wasStarted {
		s.cancel()
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-waitCtx.Done():
		err = fmt.Errorf("tierq: shutdown wait: %w", waitCtx.Err())
	}

	s.extensions.EmitShutdown(ctx)
	s.logger.Info("scheduler stopped")
	return err
}

// Extensions returns the extension registry.
func (s *Scheduler) Extensions() *ext.Registry { return s.extensions }

// Handlers returns the handler registry.
func (s *Scheduler) Handlers() *request.Registry { return s.handlers }

// HandlerNames returns all registered operation names, sorted.
func (s *Scheduler) HandlerNames() []string { return s.handlers.Names() }

// Catalog returns the tier catalog.
func (s *Scheduler) Catalog() *sla.Catalog { return s.catalog }

// Tiers returns every tier's configuration in urgency order.
func (s *Scheduler) Tiers() []sla.Config { return s.catalog.All() }

// SetUserTier updates a user's tier for subsequent admissions.
func (s *Scheduler) SetUserTier(userID string, tier sla.Tier) error {
	if !tier.Valid() {
		return fmt.Errorf("%w: %q", tierq.ErrInvalidTier, tier)
	}
	s.tracker.SetUserTier(userID, tier)
	return nil
}

// UserUsage returns the user's current quota accounting. The second
// return is false if the user has never submitted.
func (s *Scheduler) UserUsage(ctx context.Context, userID string) (quota.Usage, bool) {
	return s.tracker.UserUsage(ctx, userID)
}

// lookup returns the entry for rid, or nil.
// Caller must hold s.mu.
func (s *Scheduler) lookup(rid id.RequestID) *entry {
	return s.requests[rid.String()]
}
