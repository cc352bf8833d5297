// Package quota implements per-user admission accounting: daily usage
// counters, a sliding rate-limit window, and in-flight concurrency, all
// checked before a submission may enter the queue.
//
// A rejected submission is never charged against the window or the daily
// counter; only admitted work consumes quota.
package quota
