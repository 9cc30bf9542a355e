package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/driftbase/syncmw/internal/engine"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one full bidirectional sync cycle (push then pull)",
		Long: `Run push followed by pull as one observed cycle. If push reports
conflicts, pull is skipped until the conflicts are resolved.`,
		RunE: runFullSync,
	}
}

func runFullSync(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	bundle, err := buildEngine(ctx, cc.Profile, cc.Logger)
	if err != nil {
		return err
	}
	defer bundle.Close()

	if err := bundle.Engine.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing engine: %w", err)
	}

	result, err := bundle.Engine.Sync(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if flagJSON {
		if err := printSyncJSON(result); err != nil {
			return err
		}
	} else {
		printSyncText(result)
	}

	if len(result.Conflicts) > 0 {
		return fmt.Errorf("sync stopped: %d conflicts require resolution (see 'syncmw conflicts')", len(result.Conflicts))
	}
	return nil
}

type syncJSONOutput struct {
	Pushed          int   `json:"pushed"`
	TablesRefreshed int   `json:"tables_refreshed"`
	RowsPulled      int   `json:"rows_pulled"`
	Conflicts       int   `json:"conflicts"`
	DurationMs      int64 `json:"duration_ms"`
}

func printSyncJSON(r engine.SyncResult) error {
	out := syncJSONOutput{
		Pushed:          r.Push.Pushed,
		TablesRefreshed: r.Pull.TablesRefreshed,
		RowsPulled:      r.Pull.RowsPulled,
		Conflicts:       len(r.Conflicts),
		DurationMs:      r.Duration.Milliseconds(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printSyncText(r engine.SyncResult) {
	if len(r.Conflicts) > 0 {
		statusf(flagQuiet, "Sync paused: %d conflicts (%dms)\n", len(r.Conflicts), r.Duration.Milliseconds())
		return
	}

	if r.Push.Pushed == 0 && r.Pull.RowsPulled == 0 {
		statusf(flagQuiet, "Already in sync (%dms)\n", r.Duration.Milliseconds())
		return
	}

	statusf(flagQuiet, "Sync complete (%dms)\n", r.Duration.Milliseconds())
	statusf(flagQuiet, "  Pushed: %d\n", r.Push.Pushed)
	statusf(flagQuiet, "  Pulled: %d rows across %d tables\n", r.Pull.RowsPulled, r.Pull.TablesRefreshed)
}
