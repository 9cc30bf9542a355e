package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftbase/syncmw/internal/changelog"
)

func change(table string, op changelog.Operation, ts int64, data changelog.Row) changelog.Change {
	return changelog.Change{ID: "x", Table: table, Op: op, Timestamp: ts, Data: data}
}

func TestDetect_NoConflictWhenValuesMatch(t *testing.T) {
	d := NewDetector(Tolerance{})
	local := []changelog.Change{change("widgets", changelog.OpUpdate, 1, changelog.Row{"id": changelog.TextValue("1"), "name": changelog.TextValue("a")})}
	remote := []changelog.Change{change("widgets", changelog.OpUpdate, 2, changelog.Row{"id": changelog.TextValue("1"), "name": changelog.TextValue("a")})}

	got := d.Detect(local, remote)
	assert.Empty(t, got)
}

func TestDetect_ReportsUpdateUpdateConflict(t *testing.T) {
	d := NewDetector(Tolerance{})
	local := []changelog.Change{change("widgets", changelog.OpUpdate, 5, changelog.Row{"id": changelog.TextValue("1"), "name": changelog.TextValue("local")})}
	remote := []changelog.Change{change("widgets", changelog.OpUpdate, 10, changelog.Row{"id": changelog.TextValue("1"), "name": changelog.TextValue("remote")})}

	got := d.Detect(local, remote)
	require.Len(t, got, 1)
	assert.Equal(t, KindUpdateUpdate, got[0].Kind)
	assert.Equal(t, int64(5), got[0].LocalTS)
	assert.Equal(t, int64(10), got[0].RemoteTS)
}

func TestDetect_EmptyRemoteNeverFabricatesConflicts(t *testing.T) {
	d := NewDetector(Tolerance{})
	local := []changelog.Change{change("widgets", changelog.OpUpdate, 5, changelog.Row{"id": changelog.TextValue("1"), "name": changelog.TextValue("local")})}

	got := d.Detect(local, nil)
	assert.Empty(t, got, "detecting against a genuinely empty remote change set must report zero conflicts")
}

func TestDetect_UpdateDeleteAsymmetry(t *testing.T) {
	d := NewDetector(Tolerance{})
	local := []changelog.Change{change("widgets", changelog.OpDelete, 5, changelog.Row{"id": changelog.TextValue("1")})}
	remote := []changelog.Change{change("widgets", changelog.OpUpdate, 10, changelog.Row{"id": changelog.TextValue("1"), "name": changelog.TextValue("remote")})}
	local[0].OldData = changelog.Row{"id": changelog.TextValue("1")}

	got := d.Detect(local, remote)
	require.Len(t, got, 1)
	assert.Equal(t, KindUpdateDelete, got[0].Kind)
}

func TestResolver_LatestWinsTiesFavorRemote(t *testing.T) {
	r := NewResolver(nil)
	c := Conflict{
		Local:    changelog.Row{"name": changelog.TextValue("local")},
		Remote:   changelog.Row{"name": changelog.TextValue("remote")},
		LocalTS:  100,
		RemoteTS: 100,
	}
	got, err := r.Resolve(c, PolicyLatestWins)
	require.NoError(t, err)
	assert.Equal(t, "remote", got["name"].Text)
}

func TestResolver_LatestWinsStrictlyNewer(t *testing.T) {
	r := NewResolver(nil)
	c := Conflict{
		Local:    changelog.Row{"name": changelog.TextValue("local")},
		Remote:   changelog.Row{"name": changelog.TextValue("remote")},
		LocalTS:  200,
		RemoteTS: 100,
	}
	got, err := r.Resolve(c, PolicyLatestWins)
	require.NoError(t, err)
	assert.Equal(t, "local", got["name"].Text)
}

func TestResolver_ManualReturnsSentinel(t *testing.T) {
	r := NewResolver(nil)
	_, err := r.Resolve(Conflict{}, PolicyManual)
	assert.ErrorIs(t, err, ErrRequiresManual)
}

func TestResolver_LocalAndRemoteWins(t *testing.T) {
	r := NewResolver(nil)
	c := Conflict{
		Local:  changelog.Row{"name": changelog.TextValue("local")},
		Remote: changelog.Row{"name": changelog.TextValue("remote")},
	}
	got, err := r.Resolve(c, PolicyLocalWins)
	require.NoError(t, err)
	assert.Equal(t, "local", got["name"].Text)

	got, err = r.Resolve(c, PolicyRemoteWins)
	require.NoError(t, err)
	assert.Equal(t, "remote", got["name"].Text)
}

func TestPreferNonNullMerge(t *testing.T) {
	local := changelog.Row{"a": changelog.TextValue("local-a"), "b": changelog.Null()}
	remote := changelog.Row{"a": changelog.TextValue("remote-a"), "b": changelog.TextValue("remote-b"), "c": changelog.IntValue(1)}

	got := PreferNonNullMerge(local, remote)
	assert.Equal(t, "local-a", got["a"].Text)
	assert.Equal(t, "remote-b", got["b"].Text)
	assert.Equal(t, int64(1), got["c"].Int)
}

func TestUnionMerge(t *testing.T) {
	local := changelog.Row{"tags": changelog.TextValue("a,b")}
	remote := changelog.Row{"tags": changelog.TextValue("b,c")}

	got := UnionMerge(",")(local, remote)
	assert.Equal(t, "a,b,c", got["tags"].Text)
}

func TestResolveAll_StopsAtFirstError(t *testing.T) {
	r := NewResolver(nil)
	conflicts := []Conflict{
		{Local: changelog.Row{"a": changelog.TextValue("1")}},
		{},
	}
	_, err := r.ResolveAll(conflicts, PolicyManual)
	assert.ErrorIs(t, err, ErrRequiresManual)
}
