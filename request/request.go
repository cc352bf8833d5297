package request

import (
	"time"

	"github.com/xraph/tierq/id"
	"github.com/xraph/tierq/sla"
)

// Status represents the lifecycle state of a request.
type Status string

const (
	// StatusQueued means the request was admitted and is waiting for dispatch.
	StatusQueued Status = "queued"
	// StatusProcessing means a worker is currently executing the request.
	StatusProcessing Status = "processing"
	// StatusCompleted means the handler finished successfully.
	StatusCompleted Status = "completed"
	// StatusFailed means the handler returned an error.
	StatusFailed Status = "failed"
	// StatusTimeout means the handler exceeded its execution deadline.
	StatusTimeout Status = "timeout"
	// StatusCancelled means the request was cancelled while still queued.
	StatusCancelled Status = "cancelled"
	// StatusRejected means admission was denied; the request never queued.
	StatusRejected Status = "rejected"
)

// Terminal reports whether the status is a final state.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimeout, StatusCancelled, StatusRejected:
		return true
	default:
		return false
	}
}

// Request represents a unit of work submitted to the scheduler.
//
// BasePriority is fixed at creation from the tier's rank. CurrentPriority
// is rescored by the aging updater while the request waits; it only ever
// moves toward greater urgency (numerically downward) and is floored at
// zero unless the overdue penalty applies. Seq is a monotonically
// increasing submission counter used to break priority ties FIFO.
type Request struct {
	ID       id.RequestID `json:"id"`
	UserID   string       `json:"user_id"`
	Handler  string       `json:"handler"`
	Category string       `json:"category,omitempty"`
	Tier     sla.Tier     `json:"tier"`
	Payload  []byte       `json:"payload,omitempty"`
	Status   Status       `json:"status"`

	BasePriority    int    `json:"base_priority"`
	CurrentPriority int    `json:"current_priority"`
	Seq             uint64 `json:"seq"`

	// Timeout is the effective execution deadline, resolved at submission
	// from the per-submission override or the tier default. Zero means none.
	Timeout time.Duration `json:"timeout,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	WaitTime       time.Duration `json:"wait_time"`
	ProcessingTime time.Duration `json:"processing_time"`

	// Result and Error are mutually exclusive; exactly one is set on a
	// request that reached StatusCompleted or StatusFailed.
	Result []byte `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// Snapshot returns a value copy of the request safe to hand outside the
// scheduler lock. Byte slices and the metadata map are cloned.
func (r *Request) Snapshot() Request {
	cp := *r

	if r.Payload != nil {
		cp.Payload = append([]byte(nil), r.Payload...)
	}
	if r.Result != nil {
		cp.Result = append([]byte(nil), r.Result...)
	}
	if r.Metadata != nil {
		cp.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			cp.Metadata[k] = v
		}
	}
	if r.StartedAt != nil {
		t := *r.StartedAt
		cp.StartedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		cp.CompletedAt = &t
	}

	return cp
}
