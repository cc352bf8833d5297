package tierq

import "errors"

var (
	// Admission errors, returned synchronously by Submit. A rejected
	// submission never enters the queue and is not charged against the
	// user's rate window or daily counter.
	ErrDailyQuotaExceeded = errors.New("tierq: daily quota exceeded")
	ErrRateLimited        = errors.New("tierq: rate limit exceeded")
	ErrConcurrencyLimit   = errors.New("tierq: concurrency limit reached")

	// Not found errors.
	ErrRequestNotFound = errors.New("tierq: request not found")
	ErrUnknownHandler  = errors.New("tierq: no handler registered")

	// Caller-side wait timeout on Result. Distinct from a request's own
	// terminal StatusTimeout.
	ErrWaitTimeout = errors.New("tierq: wait timeout")

	// State errors.
	ErrInvalidTier      = errors.New("tierq: invalid SLA tier")
	ErrNotCancellable   = errors.New("tierq: request not cancellable")
	ErrSchedulerStopped = errors.New("tierq: scheduler stopped")
)

// IsAdmissionError reports whether err is one of the synchronous admission
// rejections (quota, rate, or concurrency).
func IsAdmissionError(err error) bool {
	return errors.Is(err, ErrDailyQuotaExceeded) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrConcurrencyLimit)
}
