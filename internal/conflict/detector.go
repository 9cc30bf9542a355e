package conflict

import (
	"strings"
	"time"

	"github.com/driftbase/syncmw/internal/changelog"
)

// Kind tags how the two sides of a Conflict relate to each other.
type Kind int

const (
	KindUpdateUpdate Kind = iota // both sides changed the same key
	KindUpdateDelete             // one side updated, the other deleted
)

// Conflict is one divergent record pair.
type Conflict struct {
	Table      string
	Key        string
	Kind       Kind
	Local      changelog.Row // empty when Kind is update-delete and local deleted
	Remote     changelog.Row // empty when Kind is update-delete and remote deleted
	LocalTS    int64
	RemoteTS   int64
}

// Tolerance holds timestamp-comparison settings for a Detector.
type Tolerance struct {
	// TimestampSlack is stored on the Detector but Detect does not
	// consult it: rows are compared column by column whatever their
	// _sync_timestamp values, and "_sync_"-prefixed columns are always
	// ignored.
	TimestampSlack time.Duration
}

// Detector is the Conflict Detector contract (C5).
type Detector struct {
	tolerance Tolerance
}

func NewDetector(tolerance Tolerance) *Detector {
	return &Detector{tolerance: tolerance}
}

// Detect indexes both change sets by (table, key), keeping only the
// latest change per key (timestamp, then arrival order as tie-break),
// then reports every key present on both sides whose values diverge.
//
// The detector is always called with the caller's actual remote
// change set for the cycle - never an empty slice substituted for
// "no remote changes yet" - so a cycle with zero remote changes
// correctly reports zero conflicts rather than silently masking
// divergence that would show up once the remote side is fetched.
func (d *Detector) Detect(local, remote []changelog.Change) []Conflict {
	localIdx := indexLatest(local)
	remoteIdx := indexLatest(remote)

	var out []Conflict
	for key, lc := range localIdx {
		rc, ok := remoteIdx[key]
		if !ok {
			continue
		}
		if c, diverges := d.compare(key, lc, rc); diverges {
			out = append(out, c)
		}
	}
	return out
}

func indexLatest(changes []changelog.Change) map[RecordKey]changelog.Change {
	idx := make(map[RecordKey]changelog.Change, len(changes))
	for _, c := range changes {
		row := c.Data
		if c.Op == changelog.OpDelete {
			row = c.OldData
		}
		key := projectKey(c.Table, row)
		existing, ok := idx[key]
		if !ok || c.Timestamp >= existing.Timestamp {
			idx[key] = c
		}
	}
	return idx
}

func (d *Detector) compare(key RecordKey, lc, rc changelog.Change) (Conflict, bool) {
	lDeleted := lc.Op == changelog.OpDelete
	rDeleted := rc.Op == changelog.OpDelete

	if lDeleted != rDeleted {
		return Conflict{
			Table:    key.Table,
			Key:      key.Key,
			Kind:     KindUpdateDelete,
			Local:    nonDeletedRow(lc),
			Remote:   nonDeletedRow(rc),
			LocalTS:  lc.Timestamp,
			RemoteTS: rc.Timestamp,
		}, true
	}
	if lDeleted && rDeleted {
		return Conflict{}, false // both deleted: no conflict
	}

	if rowsEqual(lc.Data, rc.Data) {
		return Conflict{}, false
	}

	return Conflict{
		Table:    key.Table,
		Key:      key.Key,
		Kind:     KindUpdateUpdate,
		Local:    lc.Data,
		Remote:   rc.Data,
		LocalTS:  lc.Timestamp,
		RemoteTS: rc.Timestamp,
	}, true
}

func nonDeletedRow(c changelog.Change) changelog.Row {
	if c.Op == changelog.OpDelete {
		return nil
	}
	return c.Data
}

// rowsEqual compares two rows ignoring "_sync_"-prefixed metadata
// columns.
func rowsEqual(a, b changelog.Row) bool {
	ac := stripMeta(a)
	bc := stripMeta(b)
	if len(ac) != len(bc) {
		return false
	}
	for k, av := range ac {
		bv, ok := bc[k]
		if !ok || !av.Equal(bv) {
			return false
		}
	}
	return true
}

func stripMeta(r changelog.Row) changelog.Row {
	out := make(changelog.Row, len(r))
	for k, v := range r {
		if strings.HasPrefix(k, "_sync_") {
			continue
		}
		out[k] = v
	}
	return out
}
