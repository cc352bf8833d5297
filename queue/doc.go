// Package queue implements the aging priority queue of admitted requests.
//
// The queue is a min-heap keyed on (current priority, submission sequence):
// lower priority values are more urgent, and the sequence number breaks
// ties FIFO so equal-priority requests dispatch in submission order. The
// aging pass rescores every queued request so that long waits raise
// effective urgency, with a large penalty once a request overstays its
// tier's maximum wait.
//
// The queue is not safe for concurrent use on its own; the scheduler
// guards every structural mutation with its coordinating mutex.
package queue
