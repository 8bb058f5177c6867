package billing

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// RetryPolicy bounds how ledger writes are retried on ErrStoreUnavailable.
type RetryPolicy struct {
	Attempts       int
	InitialBackoff time.Duration
}

// DefaultRetryPolicy makes three attempts with 1s then 2s backoff.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, InitialBackoff: time.Second}

// withRetry runs fn until it succeeds, returns a non-transient error, the
// attempts are used up, or ctx is done.
func withRetry[T any](ctx context.Context, p RetryPolicy, op string, fn func(context.Context) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := p.InitialBackoff

	var zero T
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var out T
		out, err = fn(ctx)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, ErrStoreUnavailable) || attempt == attempts {
			return zero, err
		}

		log.Warnf("[Billing] %s: store unavailable (attempt %d/%d), retrying in %s: %v", op, attempt, attempts, backoff, err)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, errors.Join(err, ctx.Err())
		case <-timer.C:
		}
		backoff *= 2
	}
	return zero, err
}
