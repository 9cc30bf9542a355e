// Package batch implements the Batch/Retry/Compression layer (C8):
// bounded-concurrency batch processing, a sequential rate limiter,
// gzip compression above a size threshold, and retry with exponential
// backoff.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

const maxRecordedErrors = 1000

// Options configures Process.
type Options struct {
	// GroupSize is how many items go into each call to proc. Use
	// AutoSize to derive this from a byte budget.
	GroupSize int
	// Concurrency bounds how many groups run at once. Defaults to 4.
	Concurrency int
	Logger      *slog.Logger
}

// Report summarizes a Process run, mirroring the teacher's
// WorkerPool success/failure/dropped-error accounting.
type Report struct {
	Succeeded     int
	Failed        int
	Errors        []error
	DroppedErrors int64
}

// Process splits items into fixed-size groups and runs up to
// opts.Concurrency groups concurrently via errgroup, calling proc once
// per group. Results are returned in group order regardless of which
// goroutine finishes first. A panic inside proc is recovered and
// reported as a failure for that group rather than crashing the run,
// mirroring the teacher's WorkerPool.safeExecuteAction.
func Process[T, R any](ctx context.Context, items []T, proc func(ctx context.Context, group []T) ([]R, error), opts Options) ([]R, Report) {
	if opts.GroupSize < 1 {
		opts.GroupSize = 1
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 4
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	groups := chunk(items, opts.GroupSize)
	results := make([][]R, len(groups))

	var (
		succeeded, failed int64
		dropped           int64
		errs              []error
		errsMu            = atomicErrorSlice{mu: make(chan struct{}, 1)}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i, group := range groups {
		i, group := i, group
		g.Go(func() error {
			out, err := safeProc(gctx, group, proc, logger)
			if err != nil {
				atomic.AddInt64(&failed, 1)
				errsMu.add(err, &dropped)
				return nil // one group's failure doesn't cancel the others
			}
			atomic.AddInt64(&succeeded, 1)
			results[i] = out
			return nil
		})
	}
	_ = g.Wait() // proc errors are captured per-group above, never propagated here

	errs = errsMu.snapshot()

	flat := make([]R, 0, len(items))
	for _, r := range results {
		flat = append(flat, r...)
	}

	return flat, Report{
		Succeeded:     int(succeeded),
		Failed:        int(failed),
		Errors:        errs,
		DroppedErrors: dropped,
	}
}

func safeProc[T, R any](ctx context.Context, group []T, proc func(context.Context, []T) ([]R, error), logger *slog.Logger) (out []R, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in batch group execution", slog.Any("panic", r))
			err = fmt.Errorf("batch: panic: %v", r)
		}
	}()
	return proc(ctx, group)
}

func chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}

// AutoSize derives a batch size from a target byte budget and an
// estimated per-item byte size.
func AutoSize(targetBytes, perItemBytes int64) int {
	if perItemBytes <= 0 {
		return 1
	}
	n := targetBytes / perItemBytes
	if n < 1 {
		return 1
	}
	return int(n)
}

type atomicErrorSlice struct {
	mu   chan struct{} // 1-buffered channel used as a cheap mutex, must be created before use
	errs []error
}

func (s *atomicErrorSlice) lock() { s.mu <- struct{}{} }

func (s *atomicErrorSlice) unlock() { <-s.mu }

func (s *atomicErrorSlice) add(err error, dropped *int64) {
	s.lock()
	defer s.unlock()
	if len(s.errs) >= maxRecordedErrors {
		atomic.AddInt64(dropped, 1)
		return
	}
	s.errs = append(s.errs, err)
}

func (s *atomicErrorSlice) snapshot() []error {
	s.lock()
	defer s.unlock()
	out := make([]error, len(s.errs))
	copy(out, s.errs)
	return out
}
