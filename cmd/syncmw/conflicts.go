package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/driftbase/syncmw/internal/conflict"
)

// conflictKeyPrefixLen is the number of characters shown for a
// conflict's record key in table output.
const conflictKeyPrefixLen = 8

func newConflictsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts",
		Short: "List unresolved conflicts from the last push",
		Long: `Conflicts are not persisted between runs: they are the set detected
during the most recent push or sync cycle in this process. Run
'syncmw push' or 'syncmw sync' first, then inspect its non-zero exit
and use 'syncmw resolve' to apply a policy.`,
		RunE: runConflicts,
	}
}

func runConflicts(cmd *cobra.Command, _ []string) error {
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
		return fmt.Errorf("checking for conflicts: %w", err)
	}

	if len(result.Conflicts) == 0 {
		fmt.Println("No unresolved conflicts.")
		return nil
	}

	if flagJSON {
		return printConflictsJSON(result.Conflicts)
	}
	printConflictsTable(result.Conflicts)
	return nil
}

type conflictJSON struct {
	Table string `json:"table"`
	Key   string `json:"key"`
	Kind  string `json:"kind"`
}

func printConflictsJSON(conflicts []conflict.Conflict) error {
	items := make([]conflictJSON, len(conflicts))
	for i, c := range conflicts {
		items[i] = conflictJSON{Table: c.Table, Key: c.Key, Kind: conflictKindString(c.Kind)}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

func printConflictsTable(conflicts []conflict.Conflict) {
	headers := []string{"TABLE", "KEY", "KIND"}
	rows := make([][]string, len(conflicts))

	for i, c := range conflicts {
		key := c.Key
		if len(key) > conflictKeyPrefixLen {
			key = key[:conflictKeyPrefixLen]
		}
		rows[i] = []string{c.Table, key, conflictKindString(c.Kind)}
	}

	printTable(os.Stdout, headers, rows)
}

func conflictKindString(k conflict.Kind) string {
	switch k {
	case conflict.KindUpdateUpdate:
		return "update_update"
	case conflict.KindUpdateDelete:
		return "update_delete"
	default:
		return "unknown"
	}
}
