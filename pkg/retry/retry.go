// Package retry runs non-financial operations with a bounded number of
// attempts. Ledger-writing paths are idempotent and are not retried here.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy bounds retries. Backoff returns the wait before attempt n+1 given
// the 1-based attempt n that just failed.
type Policy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// NoDelay retries immediately.
func NoDelay(int) time.Duration { return 0 }

// Exponential doubles base on every attempt up to limit.
func Exponential(base, limit time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		d := base << (attempt - 1)
		if d <= 0 || d > limit {
			return limit
		}
		return d
	}
}

// Default is used by the reconciliation sweep and the task worker.
var Default = Policy{MaxAttempts: 3, Backoff: Exponential(200*time.Millisecond, 2*time.Second)}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls fn until it succeeds, returns a Permanent error, the attempts run
// out, or ctx is done. The last error is returned unwrapped.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := max(p.MaxAttempts, 1)
	backoff := p.Backoff
	if backoff == nil {
		backoff = NoDelay
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt == attempts {
			break
		}
		if d := backoff(attempt); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}
