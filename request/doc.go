// Package request defines the unit of work accepted by the scheduler —
// the Request entity and its lifecycle states — plus the handler registry
// mapping operation names to typed handler functions.
package request
