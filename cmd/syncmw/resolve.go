package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftbase/syncmw/internal/batch"
	"github.com/driftbase/syncmw/internal/changelog"
	"github.com/driftbase/syncmw/internal/conflict"
)

func newResolveCmd() *cobra.Command {
	var policyFlag string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the conflicts from the last push and upload the winners",
		Long: `Re-detect conflicts (same check 'push' performs), apply a resolution
policy to each, and upload the winning row to the remote store. Run
'syncmw pull' afterward to bring the local store back in line.

Policies: local_wins, remote_wins, latest_wins, merge. manual is not
accepted here — a manually resolved row must be pushed with the
normal 'push' command after editing it directly.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runResolve(cmd, policyFlag)
		},
	}

	cmd.Flags().StringVar(&policyFlag, "policy", "", "resolution policy (default: sync.conflict_strategy from config)")

	return cmd
}

func runResolve(cmd *cobra.Command, policyFlag string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	policy := conflict.Policy(cc.Profile.Sync.ConflictStrategy)
	if policyFlag != "" {
		policy = conflict.Policy(policyFlag)
	}
	if policy == conflict.PolicyManual {
		return fmt.Errorf("resolve: manual policy must be applied by hand, then pushed with 'syncmw push'")
	}

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
		return fmt.Errorf("detecting conflicts: %w", err)
	}

	if len(result.Conflicts) == 0 {
		fmt.Println("No unresolved conflicts.")
		return nil
	}

	byTable := make(map[string][]changelog.Row)
	for _, c := range result.Conflicts {
		row, err := bundle.Resolver.Resolve(c, policy)
		if err != nil {
			if errors.Is(err, conflict.ErrRequiresManual) {
				return fmt.Errorf("resolve: conflict on %s/%s requires manual resolution", c.Table, c.Key)
			}
			return err
		}
		byTable[c.Table] = append(byTable[c.Table], row)
	}

	var resolved int
	for table, rows := range byTable {
		body, compressed, err := batch.EncodeAndCompress(rows, bundle.CompressionThresholdBytes)
		if err != nil {
			return fmt.Errorf("encoding resolved rows for table %s: %w", table, err)
		}
		if err := bundle.Remote.Upload(ctx, table, body, compressed); err != nil {
			return fmt.Errorf("uploading resolved rows for table %s: %w", table, err)
		}
		resolved += len(rows)
	}

	statusf(flagQuiet, "Resolved %d conflicts using policy %q. Run 'syncmw pull' to refresh the local store.\n", resolved, policy)
	return nil
}
