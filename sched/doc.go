// Package sched wires all tierq subsystems together. It creates the
// extension registry, handler registry, quota tracker, middleware chain,
// priority queue, and runs the dispatch and aging loops.
//
// This package exists to break the import cycle: the root tierq package
// defines Config and the sentinel errors (imported by quota, sla, etc.)
// and so cannot import those packages back. The sched package sits above
// all subsystem packages and below the application layer.
//
// Lifecycle of a submission:
//
//	Submit → quota check → queue (aging rescores priority each tick)
//	       → dispatch (bounded by MaxWorkers) → handler → terminal status
//
// A rejected submission never enters the queue and is never charged
// against the user's quotas. A queued request can be cancelled; once a
// worker picks it up it runs to completion, failure, or its deadline.
package sched
