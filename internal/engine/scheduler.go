package engine

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/driftbase/syncmw/internal/netmon"
)

// scheduler drives periodic auto-sync via robfig/cron, checking the
// Network Monitor before each tick so an offline tick never calls the
// remote store client - it emits Idle and skips the tick instead.
type scheduler struct {
	cron    *cron.Cron
	entryID cron.EntryID
}

// StartAutoSync schedules periodic Sync calls at the given cron spec
// (with seconds field, e.g. "@every 30s") while the Network Monitor
// reports online. Calling StartAutoSync while already running stops
// the previous schedule and replaces it with the new one.
func (e *Engine) StartAutoSync(ctx context.Context, spec string, monitor *netmon.Monitor) error {
	e.StopAutoSync()

	c := cron.New(cron.WithSeconds())
	id, err := c.AddFunc(spec, func() {
		e.autoTick(ctx, monitor)
	})
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.scheduler = &scheduler{cron: c, entryID: id}
	e.mu.Unlock()

	c.Start()
	return nil
}

func (e *Engine) autoTick(ctx context.Context, monitor *netmon.Monitor) {
	if monitor != nil && !monitor.Current().Online {
		e.transition(SyncState{Phase: PhaseIdle, Auto: true})
		return
	}

	if _, err := e.Sync(ctx); err != nil {
		e.cfg.Logger.Warn("auto-sync cycle failed", slog.String("error", err.Error()))
	}
}

// StopAutoSync halts the scheduled auto-sync, if any.
func (e *Engine) StopAutoSync() {
	e.mu.Lock()
	s := e.scheduler
	e.scheduler = nil
	e.mu.Unlock()

	if s != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
}
