package wordpress

import (
	"context"
	"time"
)

// DefaultRetryDelays returns the backoff delays between attempts: 1s, 2s, 4s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

// attemptFunc performs one attempt. retry reports whether a failed attempt
// may succeed if repeated.
type attemptFunc func(ctx context.Context) (retry bool, err error)

// withRetry calls attempt until it succeeds, returns a permanent error, or
// the delays are exhausted. onRetry, if set, is called before each wait.
func withRetry(ctx context.Context, delays []time.Duration, attempt attemptFunc, onRetry func(n int, err error)) error {
	var lastErr error
	for i := 0; i <= len(delays); i++ {
		retry, err := attempt(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || i == len(delays) {
			break
		}

		if onRetry != nil {
			onRetry(i+2, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delays[i]):
		}
	}
	return lastErr
}
