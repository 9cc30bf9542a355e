package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/driftbase/syncmw/internal/engine"
)

func newPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Upload unsynced local changes to the remote store",
		Long: `Run one push cycle: upload every unsynced change recorded since the
last push, in table batches, checking for conflicts against the
current remote content before uploading.`,
		RunE: runPush,
	}
}

func runPush(cmd *cobra.Command, _ []string) error {
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

	result, err := bundle.Engine.Push(ctx)
	if err != nil {
		return fmt.Errorf("push failed: %w", err)
	}

	if flagJSON {
		return printPushJSON(result)
	}
	printPushText(result)

	if len(result.Conflicts) > 0 {
		return fmt.Errorf("push stopped: %d conflicts require resolution (see 'syncmw conflicts')", len(result.Conflicts))
	}
	return nil
}

type pushJSONOutput struct {
	Pushed     int   `json:"pushed"`
	Conflicts  int   `json:"conflicts"`
	DurationMs int64 `json:"duration_ms"`
}

func printPushJSON(r engine.PushResult) error {
	out := pushJSONOutput{
		Pushed:     r.Pushed,
		Conflicts:  len(r.Conflicts),
		DurationMs: r.Duration.Milliseconds(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printPushText(r engine.PushResult) {
	if r.Pushed == 0 && len(r.Conflicts) == 0 {
		statusf(flagQuiet, "Nothing to push.\n")
		return
	}
	statusf(flagQuiet, "Pushed %d changes (%dms)\n", r.Pushed, r.Duration.Milliseconds())
	if len(r.Conflicts) > 0 {
		statusf(flagQuiet, "  Conflicts: %d\n", len(r.Conflicts))
	}
}
