package jobs

import "time"

// EnqueueOption configures a single Enqueue call.
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	delay    time.Duration
	runAt    *time.Time
	priority int
	retry    RetryPolicy
}

// WithDelay makes the job runnable after d. Non-positive delays run immediately.
func WithDelay(d time.Duration) EnqueueOption {
	return func(o *enqueueOptions) {
		if d > 0 {
			o.delay = d
		}
	}
}

// WithRunAt sets an absolute run time and takes precedence over WithDelay.
func WithRunAt(t time.Time) EnqueueOption {
	return func(o *enqueueOptions) {
		o.runAt = &t
	}
}

// WithPriority sets the claim priority; higher runs first among due jobs.
func WithPriority(p int) EnqueueOption {
	return func(o *enqueueOptions) {
		o.priority = p
	}
}

func WithRetry(p RetryPolicy) EnqueueOption {
	return func(o *enqueueOptions) {
		if p.MaxAttempts > 0 {
			o.retry.MaxAttempts = p.MaxAttempts
		}
		if p.BackoffBase > 0 {
			o.retry.BackoffBase = p.BackoffBase
		}
	}
}
