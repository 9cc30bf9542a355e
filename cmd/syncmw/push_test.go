package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftbase/syncmw/internal/conflict"
	"github.com/driftbase/syncmw/internal/engine"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	old := os.Stdout
	os.Stdout = w
	t.Cleanup(func() { os.Stdout = old })

	fn()
	w.Close()

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestPrintPushJSON(t *testing.T) {
	result := engine.PushResult{
		Pushed:    12,
		Conflicts: []conflict.Conflict{{Table: "orders", Key: "ord-1"}},
		Duration:  250 * time.Millisecond,
	}

	out := captureStdout(t, func() {
		require.NoError(t, printPushJSON(result))
	})

	var got pushJSONOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 12, got.Pushed)
	assert.Equal(t, 1, got.Conflicts)
	assert.Equal(t, int64(250), got.DurationMs)
}

func TestPrintPushTextNothingToPush(t *testing.T) {
	var buf bytes.Buffer
	old := os.Stderr
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stderr = w
	t.Cleanup(func() { os.Stderr = old })

	printPushText(engine.PushResult{})
	w.Close()
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "Nothing to push")
}

func TestPrintPushTextWithConflicts(t *testing.T) {
	var buf bytes.Buffer
	old := os.Stderr
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stderr = w
	t.Cleanup(func() { os.Stderr = old })

	printPushText(engine.PushResult{
		Pushed:    3,
		Conflicts: []conflict.Conflict{{Table: "orders", Key: "ord-1"}},
		Duration:  10 * time.Millisecond,
	})
	w.Close()
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Pushed 3 changes")
	assert.Contains(t, out, "Conflicts: 1")
}
