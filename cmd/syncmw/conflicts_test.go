package main

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftbase/syncmw/internal/conflict"
)

func TestConflictKindString(t *testing.T) {
	assert.Equal(t, "update_update", conflictKindString(conflict.KindUpdateUpdate))
	assert.Equal(t, "update_delete", conflictKindString(conflict.KindUpdateDelete))
	assert.Equal(t, "unknown", conflictKindString(conflict.Kind(99)))
}

func TestPrintConflictsJSON(t *testing.T) {
	conflicts := []conflict.Conflict{
		{Table: "orders", Key: "ord-1", Kind: conflict.KindUpdateUpdate},
		{Table: "customers", Key: "cus-1", Kind: conflict.KindUpdateDelete},
	}

	r, w, err := os.Pipe()
	require.NoError(t, err)
	oldStdout := os.Stdout
	os.Stdout = w
	t.Cleanup(func() { os.Stdout = oldStdout })

	require.NoError(t, printConflictsJSON(conflicts))
	w.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)

	var items []conflictJSON
	require.NoError(t, json.Unmarshal(buf.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "orders", items[0].Table)
	assert.Equal(t, "update_update", items[0].Kind)
	assert.Equal(t, "update_delete", items[1].Kind)
}

func TestPrintConflictsTableTruncatesKey(t *testing.T) {
	conflicts := []conflict.Conflict{
		{Table: "orders", Key: "order-0000000000123456", Kind: conflict.KindUpdateUpdate},
	}

	r, w, err := os.Pipe()
	require.NoError(t, err)
	oldStdout := os.Stdout
	os.Stdout = w
	t.Cleanup(func() { os.Stdout = oldStdout })

	printConflictsTable(conflicts)
	w.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)
	out := buf.String()

	assert.Contains(t, out, "order-00")
	assert.NotContains(t, out, "order-0000000000123456")
}
