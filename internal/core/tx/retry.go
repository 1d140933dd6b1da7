package tx

import (
	"context"
	"time"
)

// RetryPolicy bounds how often a transaction that failed on a transient
// storage race (serialization failure, deadlock, version conflict) is re-run.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy returns the policy used for ledger writes.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    500 * time.Millisecond,
	}
}

// Delay returns the pause before the given retry (1-based), doubling each time.
func (p RetryPolicy) Delay(retry int) time.Duration {
	if retry < 1 || p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < retry; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Retry runs fn until it succeeds, returns an error isTransient rejects,
// or the attempt budget is spent. The last error is returned unchanged.
// onRetry, if set, is called before each pause.
func Retry(
	ctx context.Context,
	policy RetryPolicy,
	isTransient func(error) bool,
	onRetry func(attempt int, err error),
	fn func(ctx context.Context) error,
) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil || !isTransient(err) || attempt == attempts {
			return err
		}

		if onRetry != nil {
			onRetry(attempt, err)
		}

		timer := time.NewTimer(policy.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}
