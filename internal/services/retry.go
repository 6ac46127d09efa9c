package services

import (
	"context"
	"time"
)

// RetryPolicy bounds a retried operation. Zero Attempts means a single try.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// Retry runs op until it succeeds, the attempt budget is exhausted, or the
// context is canceled. The last error is returned on exhaustion.
func Retry(ctx context.Context, policy RetryPolicy, op func(context.Context) error) error {
	attempts := policy.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		select {
		case <-time.After(policy.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
