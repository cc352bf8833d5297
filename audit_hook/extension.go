package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/tierq/ext"
	"github.com/xraph/tierq/request"
	"github.com/xraph/tierq/sla"
)

// Compile-time interface checks.
var (
	_ ext.Extension        = (*Extension)(nil)
	_ ext.RequestAdmitted  = (*Extension)(nil)
	_ ext.RequestRejected  = (*Extension)(nil)
	_ ext.RequestStarted   = (*Extension)(nil)
	_ ext.RequestCompleted = (*Extension)(nil)
	_ ext.RequestFailed    = (*Extension)(nil)
	_ ext.RequestTimedOut  = (*Extension)(nil)
	_ ext.RequestCancelled = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement. It is
// defined locally so this package carries no backend dependency —
// callers inject the concrete writer at wiring time.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges tierq lifecycle events to an audit trail backend.
// Each lifecycle hook emits a structured audit event through the [Recorder].
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit-hook" }

// ── Admission hooks ─────────────────────────────────

// OnRequestAdmitted implements ext.RequestAdmitted.
func (e *Extension) OnRequestAdmitted(ctx context.Context, r *request.Request) error {
	return e.record(ctx, ActionRequestAdmitted, SeverityInfo, OutcomeSuccess,
		r.ID.String(), nil,
		"handler", r.Handler,
		"user_id", r.UserID,
		"tier", string(r.Tier),
		"base_priority", r.BasePriority,
	)
}

// OnRequestRejected implements ext.RequestRejected.
func (e *Extension) OnRequestRejected(ctx context.Context, userID string, tier sla.Tier, reason error) error {
	return e.record(ctx, ActionRequestRejected, SeverityWarning, OutcomeFailure,
		"", reason,
		"user_id", userID,
		"tier", string(tier),
	)
}

// ── Execution hooks ─────────────────────────────────

// OnRequestStarted implements ext.RequestStarted.
func (e *Extension) OnRequestStarted(ctx context.Context, r *request.Request) error {
	return e.record(ctx, ActionRequestStarted, SeverityInfo, OutcomeSuccess,
		r.ID.String(), nil,
		"handler", r.Handler,
		"user_id", r.UserID,
		"tier", string(r.Tier),
		"wait_ms", r.WaitTime.Milliseconds(),
	)
}

// OnRequestCompleted implements ext.RequestCompleted.
func (e *Extension) OnRequestCompleted(ctx context.Context, r *request.Request, elapsed time.Duration) error {
	return e.record(ctx, ActionRequestCompleted, SeverityInfo, OutcomeSuccess,
		r.ID.String(), nil,
		"handler", r.Handler,
		"user_id", r.UserID,
		"tier", string(r.Tier),
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnRequestFailed implements ext.RequestFailed.
func (e *Extension) OnRequestFailed(ctx context.Context, r *request.Request, reqErr error) error {
	return e.record(ctx, ActionRequestFailed, SeverityCritical, OutcomeFailure,
		r.ID.String(), reqErr,
		"handler", r.Handler,
		"user_id", r.UserID,
		"tier", string(r.Tier),
	)
}

// OnRequestTimedOut implements ext.RequestTimedOut.
func (e *Extension) OnRequestTimedOut(ctx context.Context, r *request.Request) error {
	return e.record(ctx, ActionRequestTimedOut, SeverityWarning, OutcomeFailure,
		r.ID.String(), nil,
		"handler", r.Handler,
		"user_id", r.UserID,
		"tier", string(r.Tier),
		"timeout_ms", r.Timeout.Milliseconds(),
	)
}

// OnRequestCancelled implements ext.RequestCancelled.
func (e *Extension) OnRequestCancelled(ctx context.Context, r *request.Request) error {
	return e.record(ctx, ActionRequestCancelled, SeverityInfo, OutcomeSuccess,
		r.ID.String(), nil,
		"handler", r.Handler,
		"user_id", r.UserID,
		"tier", string(r.Tier),
	)
}

// ── Internal helpers ────────────────────────────────

// record builds and sends an audit event if the action is enabled.
// The kvPairs argument is a list of key-value pairs added to Metadata.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resourceID string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   ResourceRequest,
		Category:   CategoryRequest,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
