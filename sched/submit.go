package sched

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/xraph/tierq"
	"github.com/xraph/tierq/id"
	"github.com/xraph/tierq/request"
)

// Submit marshals a typed payload and submits it for execution under the
// named handler. It returns a snapshot of the admitted request, or the
// admission error if a quota refused it.
func Submit[T any](ctx context.Context, s *Scheduler, handler, userID string, payload T, opts ...request.Option) (*request.Request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload for handler %q: %w", handler, err)
	}
	return s.SubmitRaw(ctx, handler, userID, data, opts...)
}

// SubmitRaw submits a pre-serialized payload for execution.
//
// Admission runs the quota checks in order (daily quota, concurrency,
// rate window); the first violated limit's sentinel error is returned and
// nothing is charged or registered. An admitted request is charged
// immediately and enters the queue at its tier's base priority.
func (s *Scheduler) SubmitRaw(ctx context.Context, handler, userID string, payload []byte, opts ...request.Option) (*request.Request, error) {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return nil, tierq.ErrSchedulerStopped
	}

	if _, ok := s.handlers.Get(handler); !ok {
		return nil, fmt.Errorf("%w: %q", tierq.ErrUnknownHandler, handler)
	}

	o := request.DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if !o.Tier.Valid() {
		return nil, fmt.Errorf("%w: %q", tierq.ErrInvalidTier, o.Tier)
	}

	// Check and charge atomically: a concurrent submission for the same
	// user must not slip past a limit with one slot left.
	if err := s.tracker.Admit(ctx, userID, o.Tier); err != nil {
		s.extensions.EmitRequestRejected(ctx, userID, o.Tier, err)
		s.logger.Info("request rejected",
			slog.String("handler", handler),
			slog.String("user_id", userID),
			slog.String("tier", string(o.Tier)),
			slog.String("reason", err.Error()),
		)
		return nil, err
	}

	cfg := s.catalog.Config(o.Tier)
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = cfg.Timeout
	}

	now := s.now().UTC()
	base := o.Tier.BasePriority()
	r := &request.Request{
		ID:              id.NewRequestID(),
		UserID:          userID,
		Handler:         handler,
		Category:        o.Category,
		Tier:            o.Tier,
		Payload:         payload,
		Status:          request.StatusQueued,
		BasePriority:    base,
		CurrentPriority: base,
		Timeout:         timeout,
		CreatedAt:       now,
		Metadata:        o.Metadata,
	}

	if err := s.enqueue(r); err != nil {
		s.tracker.Release(userID)
		return nil, err
	}

	s.extensions.EmitRequestAdmitted(ctx, r)
	s.wakeDispatch()

	snap := r.Snapshot()
	return &snap, nil
}

// enqueue registers r and pushes it onto the heap. stopped is re-checked
// under the lock: a Stop landing between SubmitRaw's entry check and the
// push must not strand a request in the queue forever.
func (s *Scheduler) enqueue(r *request.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return tierq.ErrSchedulerStopped
	}
	s.seq++
	r.Seq = s.seq
	s.heap.Push(r)
	s.requests[r.ID.String()] = &entry{req: r, done: make(chan struct{})}
	return nil
}

// wakeDispatch nudges the dispatch loop out of its idle sleep. The
// channel has capacity one; a pending nudge is enough.
func (s *Scheduler) wakeDispatch() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
