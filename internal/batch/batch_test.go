package batch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcess_PreservesOrderAcrossConcurrentGroups(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	out, report := Process(context.Background(), items, func(ctx context.Context, g []int) ([]int, error) {
		doubled := make([]int, len(g))
		for i, v := range g {
			doubled[i] = v * 2
		}
		return doubled, nil
	}, Options{GroupSize: 3, Concurrency: 4})

	require.Equal(t, 0, report.Failed)
	require.Len(t, out, 10)
	for i, v := range items {
		assert.Equal(t, v*2, out[i])
	}
}

func TestProcess_RecoversPanicAsGroupFailure(t *testing.T) {
	items := []int{1, 2, 3}
	_, report := Process(context.Background(), items, func(ctx context.Context, g []int) ([]int, error) {
		panic("boom")
	}, Options{GroupSize: 1})

	assert.Equal(t, 3, report.Failed)
	assert.Len(t, report.Errors, 3)
}

func TestAutoSize(t *testing.T) {
	assert.Equal(t, 10, AutoSize(1000, 100))
	assert.Equal(t, 1, AutoSize(0, 100))
	assert.Equal(t, 1, AutoSize(1000, 0))
}

func TestRetryWithBackoff_SucceedsAfterTransientFailures(t *testing.T) {
	var attempts int
	err := RetryWithBackoff(context.Background(), RetryPolicy{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
	}, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_StopsOnNonRetryable(t *testing.T) {
	var attempts int
	err := RetryWithBackoff(context.Background(), RetryPolicy{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		Retryable:    func(error) bool { return false },
	}, func(ctx context.Context) error {
		attempts++
		return errors.New("permanent")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_ExhaustsMaxAttempts(t *testing.T) {
	var attempts int
	err := RetryWithBackoff(context.Background(), RetryPolicy{
		MaxAttempts:  4,
		InitialDelay: time.Millisecond,
	}, func(ctx context.Context) error {
		attempts++
		return errors.New("always fails")
	})
	require.Error(t, err)
	assert.Equal(t, 4, attempts)
}

func TestEncodeAndCompress_ThresholdGating(t *testing.T) {
	small := map[string]string{"a": "b"}
	raw, compressed, err := EncodeAndCompress(small, 1000)
	require.NoError(t, err)
	assert.False(t, compressed)

	big := map[string]string{"data": strings.Repeat("x", 2000)}
	out, compressed, err := EncodeAndCompress(big, 100)
	require.NoError(t, err)
	assert.True(t, compressed)
	assert.NotEqual(t, raw, out)
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	big := map[string]string{"data": strings.Repeat("y", 5000)}
	out, compressed, err := EncodeAndCompress(big, 10)
	require.NoError(t, err)
	require.True(t, compressed)

	decoded, err := Decompress(out)
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "yyyy")
}

func TestDecompress_PassesThroughUncompressed(t *testing.T) {
	raw := []byte(`{"a":1}`)
	out, err := Decompress(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestProcessWithRateLimit_RunsAllItems(t *testing.T) {
	var seen []int
	err := ProcessWithRateLimit(context.Background(), []int{1, 2, 3}, 1000, func(ctx context.Context, item int) error {
		seen = append(seen, item)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seen)
}
