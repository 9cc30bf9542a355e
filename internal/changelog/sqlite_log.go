package changelog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"

	"github.com/driftbase/syncmw/internal/syncerr"
)

// SQL statements for the _sync_changes relation. All parameterized;
// there is no path in this package that builds SQL by string
// concatenation of caller-supplied values.
const (
	sqlInsertChange = `INSERT INTO _sync_changes
		(id, table_name, op, timestamp, data, old_data, synced)
		VALUES (?, ?, ?, ?, ?, ?, 0)`

	sqlSelectUnsynced = `SELECT id, table_name, op, timestamp, data, old_data, synced
		FROM _sync_changes
		WHERE synced = 0 AND timestamp > ?
		ORDER BY timestamp ASC, id ASC`

	sqlMarkSyncedPrefix = `UPDATE _sync_changes SET synced = 1 WHERE id IN (`

	sqlClearBefore = `DELETE FROM _sync_changes WHERE synced = 1 AND timestamp < ?`
)

// SQLiteLog is the production Log implementation: a dedicated SQLite
// database distinct from the embedder's own local store, single
// writer, WAL mode, goose-managed schema.
type SQLiteLog struct {
	db     *sql.DB
	logger *slog.Logger

	mu       sync.Mutex // serializes timestamp assignment per producer
	lastTS   int64
}

// NewSQLiteLog opens (creating if needed) the change log database at
// dbPath and brings its schema up to date.
func NewSQLiteLog(ctx context.Context, dbPath string, logger *slog.Logger) (*SQLiteLog, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"+
			"&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"+
			"&_pragma=journal_size_limit(67108864)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("changelog: opening database: %w", err)
	}
	// Sole writer: one physical connection avoids SQLITE_BUSY under WAL.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteLog{db: db, logger: logger}, nil
}

func (l *SQLiteLog) nextTimestamp() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now().UTC().UnixNano()
	if now <= l.lastTS {
		now = l.lastTS + 1
	}
	l.lastTS = now
	return now
}

func (l *SQLiteLog) Record(ctx context.Context, d ChangeDescriptor) (Change, error) {
	if d.Table == "" {
		return Change{}, &syncerr.Validation{Field: "table", Details: "table name must not be empty"}
	}

	data, err := encodeRow(d.Data)
	if err != nil {
		return Change{}, &syncerr.Validation{Field: "data", Details: err.Error()}
	}
	oldData, err := encodeRow(d.OldData)
	if err != nil {
		return Change{}, &syncerr.Validation{Field: "old_data", Details: err.Error()}
	}

	c := Change{
		ID:        uuid.NewString(),
		Table:     d.Table,
		Op:        d.Op,
		Timestamp: l.nextTimestamp(),
		Data:      d.Data,
		OldData:   d.OldData,
	}

	var oldDataArg any
	if d.OldData != nil {
		oldDataArg = oldData
	}

	if _, err := l.db.ExecContext(ctx, sqlInsertChange,
		c.ID, c.Table, string(c.Op), c.Timestamp, data, oldDataArg,
	); err != nil {
		return Change{}, fmt.Errorf("changelog: recording change: %w", err)
	}

	return c, nil
}

func (l *SQLiteLog) Unsynced(ctx context.Context, since int64) ([]Change, error) {
	rows, err := l.db.QueryContext(ctx, sqlSelectUnsynced, since)
	if err != nil {
		return nil, fmt.Errorf("changelog: querying unsynced changes: %w", err)
	}
	defer rows.Close()

	var out []Change
	for rows.Next() {
		var (
			c       Change
			op      string
			data    string
			oldData sql.NullString
			synced  int
		)
		if err := rows.Scan(&c.ID, &c.Table, &op, &c.Timestamp, &data, &oldData, &synced); err != nil {
			return nil, fmt.Errorf("changelog: scanning change row: %w", err)
		}
		c.Op = Operation(op)
		c.Synced = synced != 0

		if c.Data, err = decodeRow(data); err != nil {
			return nil, fmt.Errorf("changelog: decoding data for change %s: %w", c.ID, err)
		}
		if oldData.Valid {
			if c.OldData, err = decodeRow(oldData.String); err != nil {
				return nil, fmt.Errorf("changelog: decoding old_data for change %s: %w", c.ID, err)
			}
		}

		out = append(out, c)
	}
	return out, rows.Err()
}

func (l *SQLiteLog) MarkSynced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := sqlMarkSyncedPrefix + placeholders(len(ids)) + ")"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("changelog: marking changes synced: %w", err)
	}
	return nil
}

func (l *SQLiteLog) ClearBefore(ctx context.Context, before int64) (int, error) {
	res, err := l.db.ExecContext(ctx, sqlClearBefore, before)
	if err != nil {
		return 0, fmt.Errorf("changelog: clearing old changes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("changelog: counting cleared changes: %w", err)
	}
	return int(n), nil
}

func (l *SQLiteLog) Close() error {
	return l.db.Close()
}

// placeholders builds "?, ?, ..., ?" for n parameters. Used only to
// vary the *shape* of an IN clause by count; every value still flows
// through the driver's parameter binding, never string interpolation.
func placeholders(n int) string {
	b := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',', ' ')
		}
		b = append(b, '?')
	}
	return string(b)
}
