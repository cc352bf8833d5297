package sched

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/tierq"
	"github.com/xraph/tierq/id"
	"github.com/xraph/tierq/request"
	"github.com/xraph/tierq/sla"
)

// Status returns a snapshot of the request's current state.
func (s *Scheduler) Status(rid id.RequestID) (*request.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent := s.lookup(rid)
	if ent == nil {
		return nil, tierq.ErrRequestNotFound
	}
	snap := ent.req.Snapshot()
	return &snap, nil
}

// Result returns the request once it has reached a terminal status.
//
// If the request is still pending, Result blocks up to wait for the
// terminal transition; wait <= 0 returns the current snapshot without
// blocking, status and timings included. A caller that gives up waiting
// gets ErrWaitTimeout — the request itself is unaffected and may still
// complete later.
func (s *Scheduler) Result(ctx context.Context, rid id.RequestID, wait time.Duration) (*request.Request, error) {
	s.mu.Lock()
	ent := s.lookup(rid)
	if ent == nil {
		s.mu.Unlock()
		return nil, tierq.ErrRequestNotFound
	}
	if ent.req.Status.Terminal() {
		snap := ent.req.Snapshot()
		s.mu.Unlock()
		return &snap, nil
	}
	if wait <= 0 {
		snap := ent.req.Snapshot()
		s.mu.Unlock()
		return &snap, nil
	}
	done := ent.done
	s.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-done:
		return s.Status(rid)
	case <-timer.C:
		return nil, tierq.ErrWaitTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel cancels a still-queued request. The request leaves the queue,
// its in-flight slot is released, and Result waiters are unblocked.
// A request that is already processing or terminal is not cancellable.
func (s *Scheduler) Cancel(ctx context.Context, rid id.RequestID) error {
	s.mu.Lock()
	ent := s.lookup(rid)
	if ent == nil {
		s.mu.Unlock()
		return tierq.ErrRequestNotFound
	}
	if ent.req.Status != request.StatusQueued {
		status := ent.req.Status
		s.mu.Unlock()
		return fmt.Errorf("%w: status %q", tierq.ErrNotCancellable, status)
	}

	s.heap.Remove(rid.String())
	now := s.now().UTC()
	ent.req.Status = request.StatusCancelled
	ent.req.CompletedAt = &now
	ent.req.WaitTime = now.Sub(ent.req.CreatedAt)
	userID := ent.req.UserID
	s.mu.Unlock()

	s.tracker.Release(userID)
	close(ent.done)
	s.extensions.EmitRequestCancelled(ctx, ent.req)

	s.logger.Info("request cancelled",
		slog.String("request_id", rid.String()),
		slog.String("user_id", userID),
	)
	return nil
}

// Stats is a point-in-time view of scheduler load.
type Stats struct {
	ByStatus      map[request.Status]int `json:"by_status"`
	ByTier        map[sla.Tier]int       `json:"by_tier"`
	QueueDepth    int                    `json:"queue_depth"`
	ActiveWorkers int                    `json:"active_workers"`
	MaxWorkers    int                    `json:"max_workers"`
	TrackedUsers  int                    `json:"tracked_users"`
}

// Stats returns counts of all registered requests by status and tier,
// plus current queue depth and worker utilization.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	st := Stats{
		ByStatus:      make(map[request.Status]int),
		ByTier:        make(map[sla.Tier]int),
		QueueDepth:    s.heap.Len(),
		ActiveWorkers: int(s.active),
		MaxWorkers:    s.cfg.MaxWorkers,
	}
	for _, ent := range s.requests {
		st.ByStatus[ent.req.Status]++
		st.ByTier[ent.req.Tier]++
	}
	s.mu.Unlock()

	st.TrackedUsers = s.tracker.Users()
	return st
}

// ClearCompleted removes terminal requests whose completion is older
// than olderThan and returns how many were removed. olderThan <= 0
// clears every terminal request.
func (s *Scheduler) ClearCompleted(olderThan time.Duration) int {
	cutoff := s.now().UTC().Add(-olderThan)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, ent := range s.requests {
		if !ent.req.Status.Terminal() {
			continue
		}
		if olderThan > 0 && (ent.req.CompletedAt == nil || ent.req.CompletedAt.After(cutoff)) {
			continue
		}
		delete(s.requests, key)
		removed++
	}
	return removed
}
