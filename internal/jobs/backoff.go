package jobs

import "time"

const maxBackoff = 10 * time.Minute

// RetryPolicy bounds how often a failing job is retried.
type RetryPolicy struct {
	MaxAttempts int
	BackoffBase time.Duration
}

var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, BackoffBase: 2 * time.Second}

// Backoff returns the delay before retry number attempt (1-based):
// base, 2*base, 4*base, ... capped at ten minutes.
func Backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = DefaultRetryPolicy.BackoffBase
	}
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
