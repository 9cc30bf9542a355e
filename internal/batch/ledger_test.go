package batch

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func newLedger(t *testing.T) *Ledger {
	db, err := sql.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	l := NewLedger(db, nil)
	require.NoError(t, l.EnsureSchema(context.Background()))
	return l
}

func TestLedger_WriteClaimComplete(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	require.NoError(t, l.WriteBatch(ctx, "cycle-1", []string{"c1", "c2"}))

	pending, err := l.LoadPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	require.NoError(t, l.Claim(ctx, pending[0].ID))
	require.NoError(t, l.Complete(ctx, pending[0].ID))

	remaining, err := l.LoadPending(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "c2", remaining[0].ChangeID)
}

func TestLedger_ClaimTwiceFails(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	require.NoError(t, l.WriteBatch(ctx, "cycle-1", []string{"c1"}))

	pending, err := l.LoadPending(ctx)
	require.NoError(t, err)

	require.NoError(t, l.Claim(ctx, pending[0].ID))
	assert.Error(t, l.Claim(ctx, pending[0].ID))
}

func TestLedger_ReclaimStale(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	require.NoError(t, l.WriteBatch(ctx, "cycle-1", []string{"c1"}))

	pending, err := l.LoadPending(ctx)
	require.NoError(t, err)
	require.NoError(t, l.Claim(ctx, pending[0].ID))

	n, err := l.ReclaimStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := l.LoadPending(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, StatusPending, got[0].Status)
}

func TestLedger_Fail(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	require.NoError(t, l.WriteBatch(ctx, "cycle-1", []string{"c1"}))

	pending, err := l.LoadPending(ctx)
	require.NoError(t, err)
	require.NoError(t, l.Claim(ctx, pending[0].ID))
	require.NoError(t, l.Fail(ctx, pending[0].ID, "boom"))

	got, err := l.LoadPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}
