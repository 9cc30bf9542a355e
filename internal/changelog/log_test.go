package changelog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// logFactories runs the shared conformance suite against both Log
// implementations so behavior can't drift between them.
func logFactories(t *testing.T) map[string]func() Log {
	return map[string]func() Log{
		"memory": func() Log { return NewMemoryLog() },
		"sqlite": func() Log {
			dir := t.TempDir()
			l, err := NewSQLiteLog(context.Background(), filepath.Join(dir, "changelog.db"), nil)
			require.NoError(t, err)
			t.Cleanup(func() { l.Close() })
			return l
		},
	}
}

func TestLog_RecordAssignsMonotonicTimestamps(t *testing.T) {
	for name, factory := range logFactories(t) {
		t.Run(name, func(t *testing.T) {
			log := factory()
			ctx := context.Background()

			var last int64
			for i := 0; i < 5; i++ {
				c, err := log.Record(ctx, ChangeDescriptor{
					Table: "widgets",
					Op:    OpInsert,
					Data:  Row{"name": TextValue("a")},
				})
				require.NoError(t, err)
				assert.Greater(t, c.Timestamp, last)
				last = c.Timestamp
			}
		})
	}
}

func TestLog_UnsyncedFiltersAndOrders(t *testing.T) {
	for name, factory := range logFactories(t) {
		t.Run(name, func(t *testing.T) {
			log := factory()
			ctx := context.Background()

			var ids []string
			for i := 0; i < 3; i++ {
				c, err := log.Record(ctx, ChangeDescriptor{
					Table: "widgets",
					Op:    OpInsert,
					Data:  Row{"n": IntValue(int64(i))},
				})
				require.NoError(t, err)
				ids = append(ids, c.ID)
			}

			require.NoError(t, log.MarkSynced(ctx, ids[:1]))

			got, err := log.Unsynced(ctx, 0)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Less(t, got[0].Timestamp, got[1].Timestamp)
			for _, c := range got {
				assert.NotEqual(t, ids[0], c.ID)
			}
		})
	}
}

func TestLog_ClearBeforeNeverRemovesUnsynced(t *testing.T) {
	for name, factory := range logFactories(t) {
		t.Run(name, func(t *testing.T) {
			log := factory()
			ctx := context.Background()

			c1, err := log.Record(ctx, ChangeDescriptor{Table: "t", Op: OpInsert, Data: Row{}})
			require.NoError(t, err)
			c2, err := log.Record(ctx, ChangeDescriptor{Table: "t", Op: OpInsert, Data: Row{}})
			require.NoError(t, err)

			require.NoError(t, log.MarkSynced(ctx, []string{c1.ID}))

			n, err := log.ClearBefore(ctx, c2.Timestamp+1)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			remaining, err := log.Unsynced(ctx, 0)
			require.NoError(t, err)
			require.Len(t, remaining, 1)
			assert.Equal(t, c2.ID, remaining[0].ID)
		})
	}
}

func TestLog_RoundTripsByteAndInstantValues(t *testing.T) {
	for name, factory := range logFactories(t) {
		t.Run(name, func(t *testing.T) {
			log := factory()
			ctx := context.Background()

			c, err := log.Record(ctx, ChangeDescriptor{
				Table: "blobs",
				Op:    OpInsert,
				Data: Row{
					"payload": BytesValue([]byte{0xde, 0xad, 0xbe, 0xef}),
					"name":    TextValue("widget"),
					"active":  BoolValue(true),
				},
			})
			require.NoError(t, err)

			got, err := log.Unsynced(ctx, 0)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, c.ID, got[0].ID)
			assert.True(t, got[0].Data["payload"].Equal(BytesValue([]byte{0xde, 0xad, 0xbe, 0xef})))
			assert.True(t, got[0].Data["active"].Equal(BoolValue(true)))
		})
	}
}

func TestLog_RecordRejectsEmptyTable(t *testing.T) {
	for name, factory := range logFactories(t) {
		t.Run(name, func(t *testing.T) {
			log := factory()
			_, err := log.Record(context.Background(), ChangeDescriptor{Op: OpInsert, Data: Row{}})
			assert.Error(t, err)
		})
	}
}

func TestSQLiteLog_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "changelog.db")
	ctx := context.Background()

	l1, err := NewSQLiteLog(ctx, path, nil)
	require.NoError(t, err)
	_, err = l1.Record(ctx, ChangeDescriptor{Table: "t", Op: OpInsert, Data: Row{"a": IntValue(1)}})
	require.NoError(t, err)
	require.NoError(t, l1.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	l2, err := NewSQLiteLog(ctx, path, nil)
	require.NoError(t, err)
	defer l2.Close()

	got, err := l2.Unsynced(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
}
