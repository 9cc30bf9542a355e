// Package engine implements the Sync Engine (C9): the state machine
// driving push, pull, and full-sync cycles over the Change Log, Local
// Store Gateway, Remote Store Client, Table Filter, Conflict
// Detector/Resolver, and Batch layer.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/driftbase/syncmw/internal/batch"
	"github.com/driftbase/syncmw/internal/changelog"
	"github.com/driftbase/syncmw/internal/conflict"
	"github.com/driftbase/syncmw/internal/filter"
	"github.com/driftbase/syncmw/internal/remote"
	"github.com/driftbase/syncmw/internal/store"
	"github.com/driftbase/syncmw/internal/syncerr"
)

// Config bundles the Sync Engine's collaborators and policy.
type Config struct {
	Log      changelog.Log
	Local    store.Gateway
	Remote   remote.Client
	Filter   *filter.TableFilter
	Detector *conflict.Detector
	Resolver *conflict.Resolver
	Policy   conflict.Policy

	Tables                    []string // tables participating in sync, in pull/push order
	BatchSize                 int
	BatchConcurrency          int
	CompressionThresholdBytes int
	// RateLimitPerSecond caps table downloads per second during Pull.
	// 0 means unlimited, bounded only by sequential iteration.
	RateLimitPerSecond int

	Logger  *slog.Logger
	Metrics *Metrics
}

// PushResult reports the outcome of a Push cycle.
type PushResult struct {
	Pushed    int
	Conflicts []conflict.Conflict
	Duration  time.Duration
}

// PullResult reports the outcome of a Pull cycle.
type PullResult struct {
	TablesRefreshed int
	RowsPulled      int
	Duration        time.Duration
}

// SyncResult reports the outcome of a full bidirectional Sync cycle.
type SyncResult struct {
	Push      PushResult
	Pull      PullResult
	Conflicts []conflict.Conflict
	Duration  time.Duration
}

// Engine is the Sync Engine (C9) state machine.
type Engine struct {
	cfg Config

	mu        sync.Mutex
	phase     Phase
	lastSince int64

	subsMu sync.Mutex
	subs   []chan SyncState

	scheduler *scheduler
}

// New constructs an Engine in PhaseUninitialized.
func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 100
	}
	if cfg.BatchConcurrency < 1 {
		cfg.BatchConcurrency = 4
	}
	if cfg.Policy == "" {
		cfg.Policy = conflict.PolicyLatestWins
	}
	return &Engine{cfg: cfg, phase: PhaseUninitialized}
}

// Initialize brings the engine from Uninitialized to Idle, validating
// the remote credential. It is the only operation valid in
// PhaseUninitialized.
func (e *Engine) Initialize(ctx context.Context) error {
	if err := e.cfg.Remote.Authenticate(ctx); err != nil {
		e.transition(ErrorState("auth", err.Error()))
		return err
	}
	e.setPhase(PhaseIdle)
	e.transition(Idle())
	return nil
}

// RecordChange appends a descriptor to the change log, filtered
// through the Table Filter (a change to an excluded table is rejected
// rather than silently dropped, so callers notice misconfiguration).
func (e *Engine) RecordChange(ctx context.Context, d changelog.ChangeDescriptor) (changelog.Change, error) {
	if e.cfg.Filter != nil {
		if r := e.cfg.Filter.Accept(d.Table); !r.Included {
			return changelog.Change{}, &syncerr.Validation{Field: "table", Details: r.Reason}
		}
	}
	return e.cfg.Log.Record(ctx, d)
}

// Push uploads every unsynced change since the last push, in table
// batches. A conflict under PolicyManual halts the push for operator
// review; under any other policy the conflict is resolved and its
// winner is pushed in place of the raw local change.
func (e *Engine) Push(ctx context.Context) (PushResult, error) {
	start := time.Now()
	e.setPhase(PhaseSyncing)
	e.transition(Syncing(10))

	changes, err := e.cfg.Log.Unsynced(ctx, 0)
	if err != nil {
		return e.failPush(err)
	}
	e.transition(Syncing(30))

	if e.cfg.Filter != nil {
		changes = e.cfg.Filter.FilterChanges(changes)
	}
	if len(changes) == 0 {
		e.setPhase(PhaseIdle)
		e.transition(Idle())
		return PushResult{Duration: time.Since(start)}, nil
	}

	remoteChanges, err := e.downloadAllForConflictCheck(ctx)
	if err != nil {
		return e.failPush(err)
	}
	e.transition(Syncing(40))

	var conflicts []conflict.Conflict
	if e.cfg.Detector != nil {
		// detect_conflicts is always called with the actual remote
		// change set fetched above, never an empty placeholder, so a
		// push correctly reports zero conflicts only when there truly
		// are none.
		conflicts = e.cfg.Detector.Detect(changes, remoteChanges)
	}
	if len(conflicts) > 0 {
		if e.cfg.Metrics != nil {
			e.cfg.Metrics.ObserveConflicts(len(conflicts))
		}

		if e.cfg.Policy == conflict.PolicyManual || e.cfg.Resolver == nil {
			e.setPhase(PhaseConflict)
			e.transition(ConflictState(conflicts))
			return PushResult{Conflicts: conflicts, Duration: time.Since(start)}, nil
		}

		winners, err := e.cfg.Resolver.ResolveAll(conflicts, e.cfg.Policy)
		if err != nil {
			if errors.Is(err, conflict.ErrRequiresManual) {
				e.setPhase(PhaseConflict)
				e.transition(ConflictState(conflicts))
				return PushResult{Conflicts: conflicts, Duration: time.Since(start)}, nil
			}
			return e.failPush(err)
		}

		changes = applyResolutions(changes, conflicts, winners)
	}
	e.transition(Syncing(60))

	byTable := groupByTable(changes)
	var pushed int
	for table, tableChanges := range byTable {
		rows := make([]changelog.Row, 0, len(tableChanges))
		ids := make([]string, 0, len(tableChanges))
		for _, c := range tableChanges {
			if c.Op != changelog.OpDelete {
				rows = append(rows, c.Data)
			}
			ids = append(ids, c.ID)
		}

		_, report := batch.Process(ctx, rows, func(ctx context.Context, group []changelog.Row) ([]struct{}, error) {
			if e.cfg.Logger != nil && len(group) > 0 {
				e.cfg.Logger.Debug("pushing batch",
					slog.String("table", table), slog.Int("rows", len(group)),
					slog.Any("preview", previewRow(group[0])))
			}

			body, compressed, err := batch.EncodeAndCompress(group, e.cfg.CompressionThresholdBytes)
			if err != nil {
				return nil, &syncerr.Validation{Field: "rows", Details: err.Error()}
			}
			if err := e.cfg.Remote.Upload(ctx, table, body, compressed); err != nil {
				return nil, err
			}
			return make([]struct{}, len(group)), nil
		}, batch.Options{GroupSize: e.cfg.BatchSize, Concurrency: e.cfg.BatchConcurrency, Logger: e.cfg.Logger})

		if report.Failed > 0 {
			err := fmt.Errorf("engine: push to table %s: %d of %d batches failed", table, report.Failed, report.Failed+report.Succeeded)
			return e.failPush(&syncerr.Network{Retryable: true, Err: err})
		}

		if err := e.cfg.Log.MarkSynced(ctx, ids); err != nil {
			return e.failPush(err)
		}
		pushed += len(tableChanges)
	}

	if e.cfg.Metrics != nil {
		e.cfg.Metrics.ObservePush(pushed, time.Since(start))
	}

	e.setPhase(PhaseIdle)
	e.transition(Idle())
	return PushResult{Pushed: pushed, Duration: time.Since(start)}, nil
}

func (e *Engine) failPush(err error) (PushResult, error) {
	e.setPhase(PhaseError)
	e.transition(ErrorState(classifyKind(err), err.Error()))
	return PushResult{}, err
}

// applyResolutions substitutes each change whose key resolved to a
// conflict with its winning row. A winner that is empty (the winning
// side was a delete) turns the change into a delete; a winner that
// carries data is pushed as an update of that row even when the local
// change itself was a delete - the resolution overrides the local op.
func applyResolutions(changes []changelog.Change, conflicts []conflict.Conflict, winners []changelog.Row) []changelog.Change {
	resolved := make(map[conflict.RecordKey]changelog.Row, len(conflicts))
	for i, c := range conflicts {
		resolved[conflict.RecordKey{Table: c.Table, Key: c.Key}] = winners[i]
	}

	out := make([]changelog.Change, 0, len(changes))
	for _, c := range changes {
		keyRow := c.Data
		if c.Op == changelog.OpDelete {
			keyRow = c.OldData
		}
		winner, wasConflict := resolved[conflict.ProjectKey(c.Table, keyRow)]
		if !wasConflict {
			out = append(out, c)
			continue
		}
		if len(winner) == 0 {
			c.Op = changelog.OpDelete
		} else {
			c.Op = changelog.OpUpdate
			c.Data = winner
		}
		out = append(out, c)
	}
	return out
}

// downloadAllForConflictCheck fetches the current remote content of
// every configured table, translated into synthetic Update changes so
// the conflict detector can compare against it uniformly.
func (e *Engine) downloadAllForConflictCheck(ctx context.Context) ([]changelog.Change, error) {
	var out []changelog.Change
	for _, table := range e.cfg.Tables {
		rows, err := e.cfg.Remote.Download(ctx, table, nil)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			ts, ok := remoteRowTimestamp(row)
			if !ok {
				ts = nowApprox()
			}
			out = append(out, changelog.Change{Table: table, Op: changelog.OpUpdate, Data: row, Timestamp: ts})
		}
	}
	return out, nil
}

// remoteRowTimestamp extracts a row's _sync_timestamp metadata
// column, when present, so latest-wins resolution compares against
// the remote write's own time rather than the instant this process
// happened to observe it.
func remoteRowTimestamp(row changelog.Row) (int64, bool) {
	v, ok := row["_sync_timestamp"]
	if !ok || v.IsNull() {
		return 0, false
	}
	switch v.Kind {
	case changelog.KindInt:
		return v.Int, true
	case changelog.KindInstant:
		return v.Instant.UnixNano(), true
	default:
		return 0, false
	}
}

// Pull refreshes every configured table's local content from the
// remote store. This is a coarse delete-then-reinsert of the
// entire table rather than an incremental merge.
//
// TODO: replace the delete-then-reinsert refresh with an incremental
// diff once the remote store exposes row-level change timestamps for
// pull, instead of only full-table snapshots.
func (e *Engine) Pull(ctx context.Context) (PullResult, error) {
	e.setPhase(PhaseSyncing)
	e.transition(Syncing(10))

	res, err := e.pull(ctx, 20, 60)
	if err != nil {
		e.setPhase(PhaseError)
		e.transition(ErrorState(classifyKind(err), err.Error()))
		return PullResult{}, err
	}

	e.setPhase(PhaseIdle)
	e.transition(Idle())
	return res, nil
}

// pull does the actual table-refresh work and progress interpolation,
// reporting Syncing(loopBase..loopBase+loopSpan) as tables complete.
// Shared by Pull and Sync so each can wrap it in its own phase/error
// handling without the 80 -> 10 progress regression a second top-level
// Syncing(10) emission would cause mid-Sync.
func (e *Engine) pull(ctx context.Context, loopBase, loopSpan int) (PullResult, error) {
	start := time.Now()

	tables := make([]string, 0, len(e.cfg.Tables))
	for _, table := range e.cfg.Tables {
		if e.cfg.Filter != nil && !e.cfg.Filter.Accept(table).Included {
			continue
		}
		tables = append(tables, table)
	}

	var refreshed, rowCount int
	refreshTable := func(ctx context.Context, table string) error {
		rows, err := e.cfg.Remote.Download(ctx, table, nil)
		if err != nil {
			return err
		}

		err = e.cfg.Local.Transaction(ctx, func(ctx context.Context, tx store.Gateway) error {
			if _, err := tx.Execute(ctx, `DELETE FROM `+table); err != nil {
				return err
			}
			for _, row := range rows {
				if err := insertRow(ctx, tx, table, row); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		refreshed++
		rowCount += len(rows)
		progress := loopBase + (loopSpan * refreshed / max1(len(tables)))
		e.transition(Syncing(progress))
		return nil
	}

	var err error
	if e.cfg.RateLimitPerSecond > 0 {
		err = batch.ProcessWithRateLimit(ctx, tables, e.cfg.RateLimitPerSecond, refreshTable)
	} else {
		for _, table := range tables {
			if err = refreshTable(ctx, table); err != nil {
				break
			}
		}
	}
	if err != nil {
		return PullResult{}, err
	}

	if e.cfg.Metrics != nil {
		e.cfg.Metrics.ObservePull(rowCount, time.Since(start))
	}

	return PullResult{TablesRefreshed: refreshed, RowsPulled: rowCount, Duration: time.Since(start)}, nil
}

// Sync runs Push then Pull as one observed cycle, reporting progress
// through a fixed sequence (10/30/40/60/80/100).
func (e *Engine) Sync(ctx context.Context) (SyncResult, error) {
	start := time.Now()

	pushRes, err := e.Push(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	if len(pushRes.Conflicts) > 0 {
		return SyncResult{Push: pushRes, Conflicts: pushRes.Conflicts, Duration: time.Since(start)}, nil
	}

	e.setPhase(PhaseSyncing)
	e.transition(Syncing(80))
	pullRes, err := e.pull(ctx, 80, 20)
	if err != nil {
		e.setPhase(PhaseError)
		e.transition(ErrorState(classifyKind(err), err.Error()))
		return SyncResult{Push: pushRes}, err
	}

	e.transition(Syncing(100))
	e.setPhase(PhaseIdle)
	e.transition(Idle())

	if e.cfg.Metrics != nil {
		e.cfg.Metrics.ObserveSync(time.Since(start))
	}

	return SyncResult{Push: pushRes, Pull: pullRes, Duration: time.Since(start)}, nil
}

// Observe returns a channel of state transitions. Never coalesced: a
// slow consumer blocks this goroutine rather than missing a
// transition.
func (e *Engine) Observe() <-chan SyncState {
	ch := make(chan SyncState)
	e.subsMu.Lock()
	e.subs = append(e.subs, ch)
	e.subsMu.Unlock()
	return ch
}

func (e *Engine) transition(s SyncState) {
	e.subsMu.Lock()
	subs := append([]chan SyncState(nil), e.subs...)
	e.subsMu.Unlock()

	for _, ch := range subs {
		ch <- s
	}
}

func (e *Engine) setPhase(p Phase) {
	e.mu.Lock()
	e.phase = p
	e.mu.Unlock()
}

func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

func groupByTable(changes []changelog.Change) map[string][]changelog.Change {
	out := make(map[string][]changelog.Change)
	for _, c := range changes {
		out[c.Table] = append(out[c.Table], c)
	}
	return out
}

// previewRow renders a row as SQL literals for debug logging only,
// never for a query that is actually executed.
func previewRow(row changelog.Row) map[string]string {
	out := make(map[string]string, len(row))
	for col, v := range row {
		out[col] = store.PreviewLiteral(v)
	}
	return out
}

func insertRow(ctx context.Context, tx store.Gateway, table string, row changelog.Row) error {
	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}

	var colList, placeholders strings.Builder
	args := make([]any, 0, len(cols))
	for i, col := range cols {
		if i > 0 {
			colList.WriteString(", ")
			placeholders.WriteString(", ")
		}
		colList.WriteString(col)
		fmt.Fprintf(&placeholders, "$%d", i+1)
		args = append(args, valueArg(row[col]))
	}

	query, args, err := store.RewritePositional(
		fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, colList.String(), placeholders.String()),
		args...,
	)
	if err != nil {
		return err
	}

	_, err = tx.Execute(ctx, query, args...)
	return err
}

func valueArg(v changelog.Value) any {
	switch v.Kind {
	case changelog.KindNull:
		return nil
	case changelog.KindText:
		return v.Text
	case changelog.KindInt:
		return v.Int
	case changelog.KindFloat:
		return v.Float
	case changelog.KindBool:
		return v.Bool
	case changelog.KindInstant:
		return v.Instant
	case changelog.KindBytes:
		return v.Bytes
	default:
		return nil
	}
}

func classifyKind(err error) ErrorKind {
	switch err.(type) {
	case *syncerr.Network:
		return "network"
	case *syncerr.Auth:
		return "auth"
	case *syncerr.Quota:
		return "quota"
	case *syncerr.Validation:
		return "validation"
	case *syncerr.Storage:
		return "storage"
	default:
		return "unknown"
	}
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func nowApprox() int64 {
	return time.Now().UTC().UnixNano()
}
