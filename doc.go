// Package tierq provides an SLA-aware request scheduler for Go. Callers
// submit units of work tagged with a service tier; tierq gates admission
// against per-user quotas, holds admitted requests in an aging priority
// queue, and dispatches them to a bounded pool of workers.
//
// tierq is designed as a library first. Import it, register handlers as
// ordinary Go functions, and submit work:
//
//	s := sched.New(tierq.DefaultConfig())
//	s.RegisterHandler("resize", resizeImage)
//	_ = s.Start(ctx)
//	r, err := s.SubmitRaw(ctx, "resize", userID, payload,
//	    request.WithTier(sla.TierGold))
//
// The cmd/tierqd binary serves the same scheduler over HTTP.
//
// # Architecture
//
// The scheduler is an explicit object constructed once and handed to the
// serving layer; there is no package-level singleton. It owns four pieces
// of state: the SLA catalog (tier → scheduling parameters), the per-user
// quota tracker, the aging priority queue, and the request registry.
// Two background loops keep it moving: an aging updater that rescales
// queued priorities on a fixed tick, and a dispatch loop gated by a
// counting permit pool.
//
// All request IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based
// identifiers ("req_...").
//
// Request state is process-lifetime only. Durability, automatic retry,
// and authentication are deliberately out of scope.
package tierq
