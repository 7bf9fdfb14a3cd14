package coordinator

import (
	"context"
	"time"

	"github.com/chronicle-dev/chronicle/internal/errors"
	"github.com/chronicle-dev/chronicle/internal/logging"
)

// retryTransient runs fn, retrying transient failures up to maxRetries times
// with exponential backoff. Non-transient errors return immediately; retry
// attempts are reported through the returned count even on success.
func retryTransient(ctx context.Context, maxRetries int, backoff time.Duration, fn func() error) (int, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}

	attempts := 0
	delay := backoff
	for {
		err := fn()
		if err == nil {
			return attempts, nil
		}
		if !errors.IsTransient(err) {
			return attempts, err
		}
		if attempts >= maxRetries {
			return attempts, err
		}

		attempts++
		logging.Warn("transient failure, retrying", "attempt", attempts, "backoff", delay, "error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return attempts, err
		}
		delay *= 2
	}
}
