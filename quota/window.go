package quota

import (
	"context"
	"time"
)

// RateWindow counts a user's recent admissions inside a sliding window.
// The default implementation is in-memory; a Redis-backed implementation
// lives in quota/rediswindow for deployments that share admission state
// across scheduler instances.
type RateWindow interface {
	// Count returns the number of admissions younger than the window span.
	Count(ctx context.Context, now time.Time) (int, error)
	// Record appends an admission timestamp to the window.
	Record(ctx context.Context, now time.Time) error
}

// WindowFactory builds a RateWindow for a user on first submission.
type WindowFactory func(userID string, span time.Duration) RateWindow

// memoryWindow is the default in-process sliding window. Not safe for
// concurrent use on its own; the Tracker's mutex guards it.
type memoryWindow struct {
	span   time.Duration
	stamps []time.Time
}

func newMemoryWindow(_ string, span time.Duration) RateWindow {
	return &memoryWindow{span: span}
}

func (w *memoryWindow) Count(_ context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-w.span)
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
	return len(w.stamps), nil
}

func (w *memoryWindow) Record(_ context.Context, now time.Time) error {
	w.stamps = append(w.stamps, now)
	return nil
}
