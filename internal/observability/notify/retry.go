package notify

import (
	"context"
	"time"
)

// RetryStep is the linear backoff unit between delivery attempts.
const RetryStep = 200 * time.Millisecond

// Deliver calls send up to retryLimit+1 times, waiting attempt*RetryStep between
// failures. It returns the last error, or ctx.Err() if the context ends while waiting.
func Deliver(ctx context.Context, retryLimit int, send func(context.Context) error) error {
	attempts := max(retryLimit, 0) + 1
	var lastErr error
	for attempt := range attempts {
		if lastErr = send(ctx); lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * RetryStep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
