package statuspoll

import (
	"context"
	"time"
)

// withRetries runs fn up to attempts+1 times, sleeping delay*n before
// retry n (linear backoff). No sleep follows the final attempt. The
// attempt number passed to fn is zero-based.
//
// Returns nil on the first success, the last attempt's error after
// exhaustion, or ctx.Err() if the context is cancelled while waiting
// between attempts.
func withRetries(ctx context.Context, attempts int, delay time.Duration, fn func(attempt int) error) error {
	var err error
	for attempt := 0; attempt <= attempts; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		backoff := delay * time.Duration(attempt+1)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
