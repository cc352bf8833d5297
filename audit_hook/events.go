package audithook

// Audit event actions. Each constant corresponds to one ext lifecycle hook
// and becomes the Action field of the audit event.
const (
	ActionRequestAdmitted  = "request.admitted"
	ActionRequestRejected  = "request.rejected"
	ActionRequestStarted   = "request.started"
	ActionRequestCompleted = "request.completed"
	ActionRequestFailed    = "request.failed"
	ActionRequestTimedOut  = "request.timed_out"
	ActionRequestCancelled = "request.cancelled"
)

// CategoryRequest groups all request lifecycle actions.
const CategoryRequest = "tierq.request"

// ResourceRequest is the Resource field used in audit events.
const ResourceRequest = "request"
