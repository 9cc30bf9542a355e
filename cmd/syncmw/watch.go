package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftbase/syncmw/internal/config"
	"github.com/driftbase/syncmw/internal/engine"
	"github.com/driftbase/syncmw/internal/netmon"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run continuous auto-sync on a schedule, skipping cycles while offline",
		Long: `Start the Network Monitor and the sync scheduler together. Every
sync.auto_sync_cron tick attempts a full sync cycle, but a tick
observed while offline is skipped rather than attempted and retried.
Runs until interrupted (Ctrl-C).`,
		RunE: runWatch,
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := shutdownContext(cmd.Context(), cc.Logger)

	pidPath := config.ProfilePIDPath(cc.Profile.Name)
	releasePID, err := writePIDFile(pidPath)
	if err != nil {
		return err
	}
	defer releasePID()

	bundle, err := buildEngine(ctx, cc.Profile, cc.Logger)
	if err != nil {
		return err
	}
	defer bundle.Close()

	if err := bundle.Engine.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing engine: %w", err)
	}

	monitor := netmon.New(cc.Profile.Network.ProbeURL, parseDurationOrDefault(cc.Profile.Network.DataTimeout, 30*time.Second), &http.Client{}, cc.Logger)
	monitor.Start(ctx)
	defer monitor.Stop()

	if cc.Profile.Network.BeaconURL != "" {
		monitor.SubscribeBeacon(ctx, cc.Profile.Network.BeaconURL)
	}

	autoSyncRunning := false
	if !cc.Profile.Paused {
		if err := bundle.Engine.StartAutoSync(ctx, cc.Profile.Sync.AutoSyncCron, monitor); err != nil {
			return fmt.Errorf("starting auto-sync: %w", err)
		}
		autoSyncRunning = true
	} else {
		statusf(flagQuiet, "Profile %q starts paused; run 'syncmw resume' to enable auto-sync.\n", cc.Profile.Name)
	}
	defer func() {
		if autoSyncRunning {
			bundle.Engine.StopAutoSync()
		}
	}()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	statusf(flagQuiet, "Watching profile %q (schedule %q). Press Ctrl-C to stop.\n", cc.Profile.Name, cc.Profile.Sync.AutoSyncCron)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			autoSyncRunning = reloadAutoSync(ctx, cc, bundle, monitor, autoSyncRunning)
		case s := <-bundle.Engine.Observe():
			printWatchTransition(s)
		}
	}
}

// reloadAutoSync re-reads the profile's paused flag from disk and
// starts or stops the scheduler to match, in response to a SIGHUP sent
// by 'syncmw pause'/'syncmw resume'. Returns the new running state.
func reloadAutoSync(ctx context.Context, cc *CLIContext, bundle *engineBundle, monitor *netmon.Monitor, running bool) bool {
	cfgPath := config.ResolveConfigPath(config.ReadEnvOverrides(), flagConfigPath, cc.Logger)

	cfg, err := config.LoadOrDefault(cfgPath, cc.Logger)
	if err != nil {
		statusf(flagQuiet, "Reload failed: %v\n", err)
		return running
	}

	rp, err := config.ResolveProfile(cfg, cc.Profile.Name)
	if err != nil {
		statusf(flagQuiet, "Reload failed: %v\n", err)
		return running
	}
	cc.Profile = rp

	paused := rp.Paused
	if paused && rp.PausedUntil != "" {
		if until, err := time.Parse(time.RFC3339, rp.PausedUntil); err == nil && time.Now().After(until) {
			paused = false
		}
	}

	switch {
	case paused && running:
		bundle.Engine.StopAutoSync()
		statusf(flagQuiet, "Auto-sync paused\n")
		return false
	case !paused && !running:
		if err := bundle.Engine.StartAutoSync(ctx, rp.Sync.AutoSyncCron, monitor); err != nil {
			statusf(flagQuiet, "Failed to resume auto-sync: %v\n", err)
			return running
		}
		statusf(flagQuiet, "Auto-sync resumed\n")
		return true
	default:
		return running
	}
}

func printWatchTransition(s engine.SyncState) {
	switch s.Phase {
	case engine.PhaseIdle:
		if s.Auto {
			statusf(flagQuiet, "idle (auto-sync skipped: offline)\n")
		}
	case engine.PhaseSyncing:
		statusf(flagQuiet, "syncing… %d%%\n", s.Progress)
	case engine.PhaseConflict:
		statusf(flagQuiet, "conflicts: %d (see 'syncmw conflicts')\n", len(s.Conflicts))
	case engine.PhaseError:
		statusf(flagQuiet, "error (%s): %s\n", s.ErrKind, s.ErrMsg)
	}
}
