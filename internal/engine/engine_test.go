package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftbase/syncmw/internal/changelog"
	"github.com/driftbase/syncmw/internal/conflict"
	"github.com/driftbase/syncmw/internal/filter"
	"github.com/driftbase/syncmw/internal/netmon"
)

func testEngine(t *testing.T, r *fakeRemote, f *filter.TableFilter) (*Engine, changelog.Log) {
	t.Helper()
	log := changelog.NewMemoryLog()
	eng := New(Config{
		Log:      log,
		Remote:   r,
		Filter:   f,
		Detector: conflict.NewDetector(conflict.Tolerance{}),
		Resolver: conflict.NewResolver(nil),
		Policy:   conflict.PolicyLatestWins,
		Tables:   []string{"widgets"},
	})
	require.NoError(t, eng.Initialize(context.Background()))
	return eng, log
}

func TestPush_UploadsTwoInsertsAndMarksSynced(t *testing.T) {
	r := newFakeRemote()
	eng, log := testEngine(t, r, nil)
	ctx := context.Background()

	_, err := eng.RecordChange(ctx, changelog.ChangeDescriptor{
		Table: "widgets", Op: changelog.OpInsert,
		Data: changelog.Row{"id": changelog.TextValue("1"), "name": changelog.TextValue("a")},
	})
	require.NoError(t, err)
	_, err = eng.RecordChange(ctx, changelog.ChangeDescriptor{
		Table: "widgets", Op: changelog.OpInsert,
		Data: changelog.Row{"id": changelog.TextValue("2"), "name": changelog.TextValue("b")},
	})
	require.NoError(t, err)

	res, err := eng.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pushed)
	assert.Empty(t, res.Conflicts)
	assert.Len(t, r.uploaded["widgets"], 2)

	unsynced, err := log.Unsynced(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, unsynced)
}

// Under the default latest-wins policy, a conflict is resolved rather
// than halting the push: the winning row (here, the remote's, since
// it was observed after the local write and so carries the later
// timestamp) is pushed in place of the raw local change.
func TestPush_AutoResolvesConflictAndUploadsWinner(t *testing.T) {
	r := newFakeRemote()
	r.tableRows["widgets"] = []changelog.Row{
		{"id": changelog.TextValue("1"), "name": changelog.TextValue("remote-name")},
	}
	eng, _ := testEngine(t, r, nil)
	ctx := context.Background()

	_, err := eng.RecordChange(ctx, changelog.ChangeDescriptor{
		Table: "widgets", Op: changelog.OpInsert,
		Data: changelog.Row{"id": changelog.TextValue("1"), "name": changelog.TextValue("local-name")},
	})
	require.NoError(t, err)

	res, err := eng.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pushed)
	assert.Equal(t, PhaseIdle, eng.Phase())
	require.Len(t, r.uploaded["widgets"], 1)
	assert.Equal(t, "remote-name", r.uploaded["widgets"][0]["name"].Text)
}

// PolicyManual is the one policy that still halts the push for
// operator review rather than auto-resolving.
func TestPush_ManualPolicyHaltsOnConflictWithoutUploading(t *testing.T) {
	r := newFakeRemote()
	r.tableRows["widgets"] = []changelog.Row{
		{"id": changelog.TextValue("1"), "name": changelog.TextValue("remote-name")},
	}
	log := changelog.NewMemoryLog()
	eng := New(Config{
		Log:      log,
		Remote:   r,
		Detector: conflict.NewDetector(conflict.Tolerance{}),
		Resolver: conflict.NewResolver(nil),
		Policy:   conflict.PolicyManual,
		Tables:   []string{"widgets"},
	})
	require.NoError(t, eng.Initialize(context.Background()))
	ctx := context.Background()

	_, err := eng.RecordChange(ctx, changelog.ChangeDescriptor{
		Table: "widgets", Op: changelog.OpInsert,
		Data: changelog.Row{"id": changelog.TextValue("1"), "name": changelog.TextValue("local-name")},
	})
	require.NoError(t, err)

	res, err := eng.Push(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Conflicts)
	assert.Equal(t, PhaseConflict, eng.Phase())
	assert.Empty(t, r.uploaded["widgets"])
}

func TestPush_EmptyRemoteNeverFabricatesConflict(t *testing.T) {
	r := newFakeRemote() // no tableRows seeded: a genuinely empty remote table
	eng, _ := testEngine(t, r, nil)
	ctx := context.Background()

	_, err := eng.RecordChange(ctx, changelog.ChangeDescriptor{
		Table: "widgets", Op: changelog.OpInsert,
		Data: changelog.Row{"id": changelog.TextValue("1"), "name": changelog.TextValue("a")},
	})
	require.NoError(t, err)

	res, err := eng.Push(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Conflicts)
	assert.Equal(t, 1, res.Pushed)
}

func TestRecordChange_RejectsExcludedTable(t *testing.T) {
	f, err := filter.New(filter.Config{Exclude: []string{"logs"}}, nil)
	require.NoError(t, err)
	r := newFakeRemote()
	eng, _ := testEngine(t, r, f)

	_, err = eng.RecordChange(context.Background(), changelog.ChangeDescriptor{
		Table: "logs", Op: changelog.OpInsert,
		Data: changelog.Row{"id": changelog.TextValue("1")},
	})
	require.Error(t, err)
}

func TestPush_FilterExcludesTableFromBatch(t *testing.T) {
	f, err := filter.New(filter.Config{Exclude: []string{"logs"}}, nil)
	require.NoError(t, err)
	r := newFakeRemote()
	log := changelog.NewMemoryLog()
	eng := New(Config{
		Log: log, Remote: r, Filter: f,
		Detector: conflict.NewDetector(conflict.Tolerance{}),
		Resolver: conflict.NewResolver(nil),
		Tables:   []string{"widgets"},
	})
	require.NoError(t, eng.Initialize(context.Background()))

	// Record directly against the log, bypassing RecordChange's filter
	// gate, to simulate a change that slipped in before the filter was
	// configured.
	_, err = log.Record(context.Background(), changelog.ChangeDescriptor{
		Table: "logs", Op: changelog.OpInsert,
		Data: changelog.Row{"id": changelog.TextValue("1")},
	})
	require.NoError(t, err)

	res, err := eng.Push(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Pushed)
	assert.Empty(t, r.uploaded["logs"])
}

func TestObserve_EmitsSyncingThenIdleTransitions(t *testing.T) {
	r := newFakeRemote()
	eng, _ := testEngine(t, r, nil)
	ctx := context.Background()

	_, err := eng.RecordChange(ctx, changelog.ChangeDescriptor{
		Table: "widgets", Op: changelog.OpInsert,
		Data: changelog.Row{"id": changelog.TextValue("1")},
	})
	require.NoError(t, err)

	states := eng.Observe()
	done := make(chan []SyncState, 1)
	go func() {
		var seen []SyncState
		for i := 0; i < 5; i++ {
			select {
			case s := <-states:
				seen = append(seen, s)
			case <-time.After(2 * time.Second):
				done <- seen
				return
			}
		}
		done <- seen
	}()

	_, err = eng.Push(ctx)
	require.NoError(t, err)

	seen := <-done
	require.NotEmpty(t, seen)
	last := seen[len(seen)-1]
	assert.Equal(t, PhaseIdle, last.Phase)
}

func TestAutoTick_SkipsSyncWhenOffline(t *testing.T) {
	r := newFakeRemote()
	eng, _ := testEngine(t, r, nil)

	// A freshly constructed Monitor reports offline until its first
	// probe; autoTick must check Current() before ever calling Sync.
	m := netmon.New("http://127.0.0.1:0", time.Hour, nil, nil)
	eng.autoTick(context.Background(), m)

	assert.Equal(t, 0, r.downloadCalls)
	assert.Equal(t, 0, r.uploadCalls)
}
