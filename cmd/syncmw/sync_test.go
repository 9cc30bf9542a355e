package main

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftbase/syncmw/internal/conflict"
	"github.com/driftbase/syncmw/internal/engine"
)

func TestPrintSyncJSON(t *testing.T) {
	result := engine.SyncResult{
		Push:     engine.PushResult{Pushed: 5},
		Pull:     engine.PullResult{TablesRefreshed: 2, RowsPulled: 30},
		Duration: 800 * time.Millisecond,
	}

	out := captureStdout(t, func() {
		require.NoError(t, printSyncJSON(result))
	})

	var got syncJSONOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 5, got.Pushed)
	assert.Equal(t, 2, got.TablesRefreshed)
	assert.Equal(t, 30, got.RowsPulled)
	assert.Equal(t, 0, got.Conflicts)
	assert.Equal(t, int64(800), got.DurationMs)
}

func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	old := os.Stderr
	os.Stderr = w
	t.Cleanup(func() { os.Stderr = old })

	fn()
	w.Close()

	buf := make([]byte, 4096)
	n, _ := r.Read(buf)
	return string(buf[:n])
}

func TestPrintSyncTextPaused(t *testing.T) {
	out := captureStderr(t, func() {
		printSyncText(engine.SyncResult{
			Conflicts: []conflict.Conflict{{Table: "orders", Key: "ord-1"}},
			Duration:  10 * time.Millisecond,
		})
	})
	assert.Contains(t, out, "Sync paused: 1 conflicts")
}

func TestPrintSyncTextAlreadyInSync(t *testing.T) {
	out := captureStderr(t, func() {
		printSyncText(engine.SyncResult{Duration: 5 * time.Millisecond})
	})
	assert.Contains(t, out, "Already in sync")
}

func TestPrintSyncTextComplete(t *testing.T) {
	out := captureStderr(t, func() {
		printSyncText(engine.SyncResult{
			Push:     engine.PushResult{Pushed: 4},
			Pull:     engine.PullResult{TablesRefreshed: 1, RowsPulled: 20},
			Duration: 300 * time.Millisecond,
		})
	})
	assert.Contains(t, out, "Sync complete")
	assert.Contains(t, out, "Pushed: 4")
	assert.Contains(t, out, "Pulled: 20 rows across 1 tables")
}
