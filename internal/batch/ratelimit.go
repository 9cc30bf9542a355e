package batch

import (
	"context"
	"time"
)

// ProcessWithRateLimit calls fn once per item in items, spacing calls
// so that no more than ratePerSecond calls happen per second. Used
// when the remote store enforces a request-rate ceiling rather than a
// concurrency ceiling.
func ProcessWithRateLimit[T any](ctx context.Context, items []T, ratePerSecond int, fn func(ctx context.Context, item T) error) error {
	if ratePerSecond < 1 {
		ratePerSecond = 1
	}
	interval := time.Duration((1000+ratePerSecond-1)/ratePerSecond) * time.Millisecond

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i, item := range items {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
		if err := fn(ctx, item); err != nil {
			return err
		}
	}
	return nil
}
