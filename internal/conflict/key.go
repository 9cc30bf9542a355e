// Package conflict implements the Conflict Detector (C5) and Conflict
// Resolver (C6): pairing local and remote changes by record key,
// diffing their values, and resolving divergence under a configurable
// policy.
package conflict

import (
	"encoding/json"

	"github.com/driftbase/syncmw/internal/changelog"
)

// RecordKey identifies a row across local and remote change sets.
// Comparable, so it can key a map directly - generalized from the
// teacher's (DriveID, ItemID) composite key to (Table, Key).
type RecordKey struct {
	Table string
	Key   string
}

// keyColumns are tried in order when projecting a row's identity;
// the first present, non-null column wins. Falls back to a row-wide
// projection when none are present.
var keyColumns = []string{"id", "_id", "uuid", "key"}

// projectKey extracts the identity of row within table.
func projectKey(table string, row changelog.Row) RecordKey {
	for _, col := range keyColumns {
		if v, ok := row[col]; ok && !v.IsNull() {
			return RecordKey{Table: table, Key: v.String()}
		}
	}
	return RecordKey{Table: table, Key: wholeRowKey(row)}
}

// ProjectKey exposes projectKey to callers outside the package (the
// engine, to match a pushed change back to the Conflict it resolved).
func ProjectKey(table string, row changelog.Row) RecordKey {
	return projectKey(table, row)
}

// wholeRowKey derives a stable key from the entire row when no
// identity column is present. Column order is irrelevant since Row's
// JSON marshaling already sorts keys.
func wholeRowKey(row changelog.Row) string {
	b, _ := json.Marshal(row)
	return string(b)
}
