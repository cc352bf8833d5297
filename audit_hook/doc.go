// Package audithook is a tierq extension that bridges request lifecycle
// events to an immutable audit trail backend.
//
// Every admission, rejection, and terminal transition emits a structured
// audit event through the [Recorder] interface. The extension assigns
// appropriate severity levels (info for normal operations, warning for
// rejections and timeouts, critical for failures) and rich metadata
// (handler, tier, user, wait and processing times).
//
// # Usage
//
//	audithook.New(audithook.RecorderFunc(func(ctx context.Context, evt *audithook.AuditEvent) error {
//	    return trail.Write(ctx, evt.Action, evt.ResourceID, evt.Metadata)
//	}))
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionRequestRejected,
//	        audithook.ActionRequestFailed,
//	        audithook.ActionRequestTimedOut,
//	    ),
//	)
package audithook
