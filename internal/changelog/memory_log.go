package changelog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/driftbase/syncmw/internal/syncerr"
)

// MemoryLog is an in-process Log implementation for tests and for
// embedders that don't need durability across restarts. It satisfies
// the same Log interface as SQLiteLog and is run through the same
// conformance suite in log_test.go.
type MemoryLog struct {
	mu      sync.Mutex
	changes map[string]Change
	lastTS  int64
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{changes: make(map[string]Change)}
}

func (l *MemoryLog) Record(ctx context.Context, d ChangeDescriptor) (Change, error) {
	if d.Table == "" {
		return Change{}, &syncerr.Validation{Field: "table", Details: "table name must not be empty"}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now().UTC().UnixNano()
	if now <= l.lastTS {
		now = l.lastTS + 1
	}
	l.lastTS = now

	c := Change{
		ID:        uuid.NewString(),
		Table:     d.Table,
		Op:        d.Op,
		Timestamp: now,
		Data:      d.Data.Clone(),
	}
	if d.OldData != nil {
		c.OldData = d.OldData.Clone()
	}

	l.changes[c.ID] = c
	return c, nil
}

func (l *MemoryLog) Unsynced(ctx context.Context, since int64) ([]Change, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Change
	for _, c := range l.changes {
		if !c.Synced && c.Timestamp > since {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (l *MemoryLog) MarkSynced(ctx context.Context, ids []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, id := range ids {
		if c, ok := l.changes[id]; ok {
			c.Synced = true
			l.changes[id] = c
		}
	}
	return nil
}

func (l *MemoryLog) ClearBefore(ctx context.Context, before int64) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for id, c := range l.changes {
		if c.Synced && c.Timestamp < before {
			delete(l.changes, id)
			n++
		}
	}
	return n, nil
}

func (l *MemoryLog) Close() error { return nil }
