package quotes

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy describes how a failed lookup call is retried. A call is
// attempted once and then retried up to MaxRetries more times, sleeping
// BaseDelay × Multiplier^attempt between attempts.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Multiplier float64
}

// Delay returns the backoff before retry number attempt (0-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	mult := p.Multiplier
	if mult <= 0 {
		mult = 2
	}
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d = time.Duration(float64(d) * mult)
	}
	return d
}

// retryable reports whether an error is worth retrying. Rate limiting and
// transient failures may clear up; anything else will not change on retry.
func retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient)
}

// retryCall runs fn under the policy. It returns nil on the first success,
// the last error once retries are exhausted, and stops early on
// non-retryable errors or context cancellation during backoff.
func retryCall(ctx context.Context, policy RetryPolicy, fn func() error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt >= policy.MaxRetries {
			return lastErr
		}

		timer := time.NewTimer(policy.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
}
