package sched

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/tierq"
	"github.com/xraph/tierq/request"
)

// dispatchLoop is the single consumer of the priority queue. It acquires
// a worker permit before popping so a request is only removed from the
// queue when a worker can actually take it; a popped request is never
// re-queued.
func (s *Scheduler) dispatchLoop() {
	defer s.wg.Done()

	idle := 0
	for {
		if err := s.sem.Acquire(s.runCtx, 1); err != nil {
			return
		}

		r := s.popNext()
		if r == nil {
			s.sem.Release(1)
			idle++
			if !s.idleWait(s.bo.Next(idle)) {
				return
			}
			continue
		}
		idle = 0

		s.extensions.EmitRequestStarted(s.runCtx, r)

		s.mu.Lock()
		s.active++
		s.mu.Unlock()

		s.wg.Add(1)
		go s.execute(r)
	}
}

// popNext removes and claims the most urgent queued request, marking it
// processing and stamping its wait time. Returns nil if the queue is
// empty.
func (s *Scheduler) popNext() *request.Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		r := s.heap.PopMin()
		if r == nil {
			return nil
		}
		// Cancelled requests are removed from the heap eagerly, so a
		// non-queued entry here is unexpected; skip it defensively.
		if r.Status != request.StatusQueued {
			continue
		}
		now := s.now().UTC()
		r.Status = request.StatusProcessing
		r.StartedAt = &now
		r.WaitTime = now.Sub(r.CreatedAt)
		return r
	}
}

// idleWait sleeps for d, returning early on a submission nudge.
// Returns false when the scheduler is stopping.
func (s *Scheduler) idleWait(d time.Duration) bool {
	if d <= 0 {
		d = time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-s.runCtx.Done():
		return false
	case <-s.wake:
		return true
	case <-t.C:
		return true
	}
}

// execute runs a claimed request through the middleware chain and
// finalizes its terminal status. The handler runs in its own goroutine
// so a hard deadline can be enforced even against a handler that ignores
// context cancellation.
func (s *Scheduler) execute(r *request.Request) {
	defer s.wg.Done()
	defer s.sem.Release(1)
	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}()

	ctx := context.Background()
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	handler, ok := s.handlers.Get(r.Handler)
	if !ok {
		// Registration is checked at submission; handlers are never
		// removed, so this indicates a misused registry.
		s.finish(ctx, r, nil, fmt.Errorf("%w: %q", tierq.ErrUnknownHandler, r.Handler), false)
		return
	}

	type outcome struct {
		result []byte
		err    error
	}
	resCh := make(chan outcome, 1)
	go func() {
		result, err := s.chain(ctx, r, func(c context.Context) ([]byte, error) {
			return handler(c, r.Payload)
		})
		resCh <- outcome{result, err}
	}()

	select {
	case out := <-resCh:
		s.finish(ctx, r, out.result, out.err, false)
	case <-ctx.Done():
		// Hard deadline. The handler goroutine keeps running until it
		// observes cancellation, but the request is finalized now.
		s.finish(ctx, r, nil, ctx.Err(), true)
	}
}

// finish records the terminal status, releases the user's in-flight
// slot, unblocks Result waiters, and notifies extensions.
func (s *Scheduler) finish(ctx context.Context, r *request.Request, result []byte, err error, timedOut bool) {
	now := s.now().UTC()

	s.mu.Lock()
	r.CompletedAt = &now
	if r.StartedAt != nil {
		r.ProcessingTime = now.Sub(*r.StartedAt)
	}
	switch {
	case timedOut || errors.Is(err, context.DeadlineExceeded):
		r.Status = request.StatusTimeout
		r.Error = "execution deadline exceeded"
	case err != nil:
		r.Status = request.StatusFailed
		r.Error = err.Error()
	default:
		r.Status = request.StatusCompleted
		r.Result = result
	}
	ent := s.lookup(r.ID)
	s.mu.Unlock()

	s.tracker.Release(r.UserID)
	if ent != nil {
		close(ent.done)
	}

	// The execution context may already be expired; hooks get a live one.
	hookCtx := context.WithoutCancel(ctx)
	switch r.Status {
	case request.StatusTimeout:
		s.logger.Warn("request timed out",
			slog.String("request_id", r.ID.String()),
			slog.String("handler", r.Handler),
			slog.Duration("timeout", r.Timeout),
		)
		s.extensions.EmitRequestTimedOut(hookCtx, r)
	case request.StatusFailed:
		s.extensions.EmitRequestFailed(hookCtx, r, err)
	default:
		s.extensions.EmitRequestCompleted(hookCtx, r, r.ProcessingTime)
	}
}

// agingLoop periodically rescores every queued request's priority from
// its accumulated wait time.
func (s *Scheduler) agingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.AgingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.runCtx.Done():
			return
		case <-ticker.C:
			s.rescore()
		}
	}
}

// rescore recomputes queued priorities and restores heap order.
func (s *Scheduler) rescore() {
	s.mu.Lock()
	s.heap.Rescore(s.catalog, s.now().UTC(), s.cfg.OverduePenalty)
	s.mu.Unlock()
}
