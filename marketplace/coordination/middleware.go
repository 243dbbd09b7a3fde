package coordination

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"
)

// Handler decorators. By default the coordinator applies none of them, so a
// failing step fails once and terminally, matching the documented error
// model. Wrapping a handler in retry, timeout, or breaker behavior is an
// explicit per-action choice.

// WithTimeout bounds each invocation of handler with a context deadline.
func WithTimeout(timeout time.Duration, handler ActionHandler) ActionHandler {
	return func(ctx context.Context, parameters map[string]any) (map[string]any, error) {
		if timeout <= 0 {
			return handler(ctx, parameters)
		}

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, parameters)
	}
}

// WithRetry retries handler up to maxAttempts times, waiting a jittered
// exponential backoff between attempts. Context cancellation aborts the
// wait and returns the last error.
func WithRetry(maxAttempts int, base time.Duration, handler ActionHandler) ActionHandler {
	return func(ctx context.Context, parameters map[string]any) (map[string]any, error) {
		if maxAttempts < 1 {
			maxAttempts = 1
		}

		var lastErr error

		for attempt := 0; attempt < maxAttempts; attempt++ {
			result, err := handler(ctx, parameters)
			if err == nil {
				return result, nil
			}

			lastErr = fmt.Errorf("attempt %d/%d: %w", attempt+1, maxAttempts, err)

			if attempt == maxAttempts-1 {
				break
			}

			if waitErr := sleepContext(ctx, exponentialWithJitter(base, attempt)); waitErr != nil {
				return nil, fmt.Errorf("retry wait interrupted: %w", waitErr)
			}
		}

		return nil, lastErr
	}
}

// WithBreaker guards handler with a circuit breaker. While the breaker is
// open, invocations fail immediately with gobreaker.ErrOpenState.
func WithBreaker(name string, settings gobreaker.Settings, handler ActionHandler) ActionHandler {
	if settings.Name == "" {
		settings.Name = name
	}

	breaker := gobreaker.NewCircuitBreaker(settings)

	return func(ctx context.Context, parameters map[string]any) (map[string]any, error) {
		result, err := breaker.Execute(func() (any, error) {
			return handler(ctx, parameters)
		})
		if err != nil {
			return nil, err
		}

		mapping, ok := result.(map[string]any)
		if !ok && result != nil {
			return nil, fmt.Errorf("action %q returned unexpected result type %T", name, result)
		}

		return mapping, nil
	}
}

const maxBackoffShift = 32

// exponentialWithJitter returns a random duration in [0, base*2^attempt),
// capped against overflow.
func exponentialWithJitter(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}

	if attempt < 0 {
		attempt = 0
	} else if attempt > maxBackoffShift {
		attempt = maxBackoffShift
	}

	multiplier := int64(1) << attempt

	delay := int64(base)
	if delay > math.MaxInt64/multiplier {
		delay = math.MaxInt64
	} else {
		delay *= multiplier
	}

	return time.Duration(rand.Int63n(delay))
}

// sleepContext sleeps for duration but returns early if ctx is done.
func sleepContext(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return nil
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context done: %w", ctx.Err())
	}
}
