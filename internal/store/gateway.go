// Package store implements the Local Store Gateway (C3): a thin,
// driver-agnostic wrapper around database/sql that gives the rest of
// the sync middleware a single, parameterized way to read and write
// the embedder's local relational store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/driftbase/syncmw/internal/changelog"
	"github.com/driftbase/syncmw/internal/syncerr"
)

// Gateway is the Local Store Gateway contract.
type Gateway interface {
	// Query runs a parameterized read and returns the result rows.
	Query(ctx context.Context, query string, args ...any) ([]changelog.Row, error)

	// Execute runs a parameterized write and reports rows affected.
	Execute(ctx context.Context, query string, args ...any) (int64, error)

	// Transaction runs fn inside a single local-store transaction.
	// Transactions do not nest: calling Transaction from within fn's
	// callback fails with syncerr.Storage.
	Transaction(ctx context.Context, fn func(ctx context.Context, tx Gateway) error) error
}

// SQLGateway adapts any *sql.DB (or *sql.Tx, via the unexported
// execer interface) to Gateway. It never builds SQL by concatenating
// caller values: every argument is bound through database/sql's own
// parameter passing.
type SQLGateway struct {
	db execer

	mu       sync.Mutex
	inTxn    bool
}

type execer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// NewSQLGateway wraps an existing *sql.DB. The caller owns the
// connection's lifecycle (pragmas, pool sizing, Close).
func NewSQLGateway(db *sql.DB) *SQLGateway {
	return &SQLGateway{db: db}
}

func (g *SQLGateway) Query(ctx context.Context, query string, args ...any) ([]changelog.Row, error) {
	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyExecError(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &syncerr.Storage{Err: err}
	}

	var out []changelog.Row
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &syncerr.Storage{Err: err}
		}

		row := make(changelog.Row, len(cols))
		for i, col := range cols {
			row[col] = toValue(raw[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &syncerr.Storage{Err: err}
	}
	return out, nil
}

func (g *SQLGateway) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := g.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classifyExecError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &syncerr.Storage{Err: err}
	}
	return n, nil
}

func (g *SQLGateway) Transaction(ctx context.Context, fn func(ctx context.Context, tx Gateway) error) error {
	db, ok := g.db.(*sql.DB)
	if !ok {
		return &syncerr.Storage{Err: fmt.Errorf("store: transactions do not nest")}
	}

	g.mu.Lock()
	if g.inTxn {
		g.mu.Unlock()
		return &syncerr.Storage{Err: fmt.Errorf("store: transactions do not nest")}
	}
	g.inTxn = true
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.inTxn = false
		g.mu.Unlock()
	}()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return &syncerr.Storage{Err: err}
	}

	txGateway := &SQLGateway{db: tx}
	if err := fn(ctx, txGateway); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return &syncerr.Storage{Err: err}
	}
	return nil
}

func toValue(v any) changelog.Value {
	switch t := v.(type) {
	case nil:
		return changelog.Null()
	case int64:
		return changelog.IntValue(t)
	case float64:
		return changelog.FloatValue(t)
	case bool:
		return changelog.BoolValue(t)
	case []byte:
		return changelog.BytesValue(t)
	case string:
		return changelog.TextValue(t)
	default:
		return changelog.TextValue(fmt.Sprintf("%v", t))
	}
}

// classifyExecError maps a driver-level error to the syncerr taxonomy.
// Local store errors are always Storage: there is no network involved.
func classifyExecError(err error) error {
	if err == nil {
		return nil
	}
	return &syncerr.Storage{Err: err}
}
