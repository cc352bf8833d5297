// Package ext defines the extension system for tierq.
// Extensions are notified of request lifecycle events (admitted, rejected,
// started, completed, etc.) and can react to them — logging, metrics,
// audit trails, etc.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"
	"time"

	"github.com/xraph/tierq/request"
	"github.com/xraph/tierq/sla"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Admission hooks
// ──────────────────────────────────────────────────

// RequestAdmitted is called after a submission passes quota checks and
// enters the queue.
type RequestAdmitted interface {
	OnRequestAdmitted(ctx context.Context, r *request.Request) error
}

// RequestRejected is called when admission is denied. The request never
// entered the queue; reason is one of the admission sentinel errors.
type RequestRejected interface {
	OnRequestRejected(ctx context.Context, userID string, tier sla.Tier, reason error) error
}

// ──────────────────────────────────────────────────
// Execution hooks
// ──────────────────────────────────────────────────

// RequestStarted is called when the dispatch loop hands a request to a
// worker.
type RequestStarted interface {
	OnRequestStarted(ctx context.Context, r *request.Request) error
}

// RequestCompleted is called after a handler finishes successfully.
type RequestCompleted interface {
	OnRequestCompleted(ctx context.Context, r *request.Request, elapsed time.Duration) error
}

// RequestFailed is called when a handler returns an error.
type RequestFailed interface {
	OnRequestFailed(ctx context.Context, r *request.Request, err error) error
}

// RequestTimedOut is called when a handler exceeds its execution deadline.
type RequestTimedOut interface {
	OnRequestTimedOut(ctx context.Context, r *request.Request) error
}

// RequestCancelled is called when a still-queued request is cancelled.
type RequestCancelled interface {
	OnRequestCancelled(ctx context.Context, r *request.Request) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
