package batch

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// Ledger status constants for the batch_queue table's status column.
// All transitions are enforced: Claim requires "pending", Complete and
// Fail require "claimed".
const (
	StatusPending  = "pending"
	StatusClaimed  = "claimed"
	StatusDone     = "done"
	StatusFailed   = "failed"
	StatusCanceled = "canceled"
)

// Row is a single tracked batch, returned by LoadPending for crash
// recovery.
type Row struct {
	ID       int64
	CycleID  string
	ChangeID string
	Status   string
	ErrorMsg string
}

// Ledger provides crash-recoverable persistence for in-flight push
// batches, adapted from the teacher's action_queue (internal/sync/
// ledger.go) from file actions to change-log batch IDs. Lifecycle:
//
//	WriteBatch -> Claim -> Complete/Fail/Cancel
//
// Shares a *sql.DB with the embedder's own sole-writer connection (the
// caller is responsible for SetMaxOpenConns(1) on that handle).
type Ledger struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewLedger(db *sql.DB, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{db: db, logger: logger}
}

// EnsureSchema creates the batch_queue table if it does not exist.
// Kept separate from goose migrations since this table is optional
// ambient infrastructure, not part of the bit-exact _sync_changes
// schema.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS batch_queue (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cycle_id TEXT NOT NULL,
		change_id TEXT NOT NULL,
		status TEXT NOT NULL,
		error_msg TEXT
	)`)
	if err != nil {
		return fmt.Errorf("batch: creating batch_queue table: %w", err)
	}
	return nil
}

// WriteBatch inserts one pending row per change ID atomically.
func (l *Ledger) WriteBatch(ctx context.Context, cycleID string, changeIDs []string) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("batch: beginning ledger transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, id := range changeIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO batch_queue (cycle_id, change_id, status) VALUES (?, ?, ?)`,
			cycleID, id, StatusPending,
		); err != nil {
			return fmt.Errorf("batch: writing ledger row for change %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// Claim transitions a pending row to claimed.
func (l *Ledger) Claim(ctx context.Context, id int64) error {
	return l.transition(ctx, id, StatusPending, StatusClaimed)
}

// Complete transitions a claimed row to done.
func (l *Ledger) Complete(ctx context.Context, id int64) error {
	return l.transition(ctx, id, StatusClaimed, StatusDone)
}

// Fail transitions a claimed row to failed, recording errMsg.
func (l *Ledger) Fail(ctx context.Context, id int64, errMsg string) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE batch_queue SET status = ?, error_msg = ? WHERE id = ? AND status = ?`,
		StatusFailed, errMsg, id, StatusClaimed,
	)
	if err != nil {
		return fmt.Errorf("batch: failing ledger row %d: %w", id, err)
	}
	return checkSingleRowAffected(res, id)
}

// Cancel transitions a row from any status to canceled.
func (l *Ledger) Cancel(ctx context.Context, id int64) error {
	_, err := l.db.ExecContext(ctx, `UPDATE batch_queue SET status = ? WHERE id = ?`, StatusCanceled, id)
	if err != nil {
		return fmt.Errorf("batch: canceling ledger row %d: %w", id, err)
	}
	return nil
}

func (l *Ledger) transition(ctx context.Context, id int64, from, to string) error {
	res, err := l.db.ExecContext(ctx, `UPDATE batch_queue SET status = ? WHERE id = ? AND status = ?`, to, id, from)
	if err != nil {
		return fmt.Errorf("batch: transitioning ledger row %d from %s to %s: %w", id, from, to, err)
	}
	return checkSingleRowAffected(res, id)
}

func checkSingleRowAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("batch: checking rows affected for ledger row %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("batch: ledger row %d not in expected status for this transition", id)
	}
	return nil
}

// LoadPending returns every pending or claimed row, across all
// cycles, for crash recovery at startup.
func (l *Ledger) LoadPending(ctx context.Context) ([]Row, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, cycle_id, change_id, status, error_msg FROM batch_queue
		 WHERE status IN (?, ?) ORDER BY id`,
		StatusPending, StatusClaimed,
	)
	if err != nil {
		return nil, fmt.Errorf("batch: loading pending ledger rows: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var errMsg sql.NullString
		if err := rows.Scan(&r.ID, &r.CycleID, &r.ChangeID, &r.Status, &errMsg); err != nil {
			return nil, fmt.Errorf("batch: scanning ledger row: %w", err)
		}
		r.ErrorMsg = errMsg.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReclaimStale resets any "claimed" row back to "pending", for use at
// startup after an unclean shutdown left rows claimed by a worker that
// no longer exists.
func (l *Ledger) ReclaimStale(ctx context.Context) (int, error) {
	res, err := l.db.ExecContext(ctx, `UPDATE batch_queue SET status = ? WHERE status = ?`, StatusPending, StatusClaimed)
	if err != nil {
		return 0, fmt.Errorf("batch: reclaiming stale ledger rows: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("batch: counting reclaimed ledger rows: %w", err)
	}
	return int(n), nil
}
