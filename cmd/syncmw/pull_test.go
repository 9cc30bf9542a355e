package main

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftbase/syncmw/internal/engine"
)

func TestPrintPullJSON(t *testing.T) {
	result := engine.PullResult{
		TablesRefreshed: 3,
		RowsPulled:      400,
		Duration:        1200 * time.Millisecond,
	}

	out := captureStdout(t, func() {
		require.NoError(t, printPullJSON(result))
	})

	var got pullJSONOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 3, got.TablesRefreshed)
	assert.Equal(t, 400, got.RowsPulled)
	assert.Equal(t, int64(1200), got.DurationMs)
}

func TestPrintPullText(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	old := os.Stderr
	os.Stderr = w
	t.Cleanup(func() { os.Stderr = old })

	printPullText(engine.PullResult{TablesRefreshed: 2, RowsPulled: 50, Duration: 5 * time.Millisecond})
	w.Close()

	buf := make([]byte, 256)
	n, _ := r.Read(buf)
	out := string(buf[:n])

	assert.Contains(t, out, "Pulled 50 rows")
	assert.Contains(t, out, "2 tables")
}
