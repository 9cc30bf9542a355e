package changelog

import "context"

// Log is the Change Log contract (C2): record, unsynced, mark_synced,
// clear_before, implemented identically by SQLiteLog and MemoryLog.
type Log interface {
	// Record appends a new Change, assigning it an ID and a timestamp
	// monotonically increasing relative to every Change this Log has
	// previously recorded for the same table.
	Record(ctx context.Context, d ChangeDescriptor) (Change, error)

	// Unsynced returns all unsynced changes with timestamp > since,
	// ordered by timestamp ascending then by ID for ties.
	Unsynced(ctx context.Context, since int64) ([]Change, error)

	// MarkSynced flags the given change IDs as synced. Unknown IDs are
	// ignored.
	MarkSynced(ctx context.Context, ids []string) error

	// ClearBefore deletes synced changes with timestamp < before. It
	// never removes an unsynced change, regardless of age.
	ClearBefore(ctx context.Context, before int64) (int, error)

	Close() error
}
