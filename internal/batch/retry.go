package batch

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"
)

// RetryPolicy configures RetryWithBackoff. The base delay before retry n
// is min(initial_delay * factor^(n-1), max_delay); calcBackoff then adds
// +/-25% jitter, so a delay can exceed MaxDelay by up to 25%. A
// RetryAfter hint on the previous error replaces the computed delay.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Factor       float64
	// Retryable decides whether a given error should be retried.
	// Defaults to "always retry" when nil.
	Retryable func(error) bool
	Logger    *slog.Logger
	// Sleep waits between attempts; defaults to a context-aware timer.
	// Tests substitute a no-op to avoid real delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 5
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 60 * time.Second
	}
	if p.Factor <= 0 {
		p.Factor = 2.0
	}
	if p.Retryable == nil {
		p.Retryable = func(error) bool { return true }
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.Sleep == nil {
		p.Sleep = sleep
	}
	return p
}

// retryAfterer is implemented by errors that carry a server-provided
// retry delay (e.g. a 429's Retry-After header), overriding the
// computed exponential backoff for that attempt.
type retryAfterer interface {
	RetryAfter() time.Duration
}

// RetryWithBackoff calls fn until it succeeds, the error is not
// retryable, or MaxAttempts is exhausted. Grounded directly on the
// teacher's graph.Client.calcBackoff/doRetry retry loop.
func RetryWithBackoff(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	policy = policy.withDefaults()

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := calcBackoff(policy, attempt-1)
			if ra, ok := lastErr.(retryAfterer); ok {
				if hint := ra.RetryAfter(); hint > 0 {
					delay = hint
				}
			}
			policy.Logger.Warn("retrying after error",
				slog.Int("attempt", attempt+1), slog.Duration("delay", delay), slog.String("error", lastErr.Error()))
			if err := policy.Sleep(ctx, delay); err != nil {
				return err
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !policy.Retryable(err) {
			return err
		}
	}

	return fmt.Errorf("batch: exhausted %d attempts: %w", policy.MaxAttempts, lastErr)
}

// calcBackoff computes exponential backoff with +/-25% jitter, attempt
// is zero-indexed (attempt 0 is the delay before the second try).
func calcBackoff(policy RetryPolicy, attempt int) time.Duration {
	d := float64(policy.InitialDelay) * math.Pow(policy.Factor, float64(attempt))
	if d > float64(policy.MaxDelay) {
		d = float64(policy.MaxDelay)
	}
	jitter := d * 0.25 * (rand.Float64()*2 - 1)
	d += jitter
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
