package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftbase/syncmw/internal/config"
)

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume auto-sync for the active profile",
		Long: `Clear the paused/paused_until keys for the active profile. If
'syncmw watch' is running for this profile, it receives a SIGHUP to
pick up the change immediately.`,
		RunE: runResume,
	}
}

func runResume(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if !cc.Profile.Paused {
		statusf(flagQuiet, "Profile %s is not paused\n", cc.Profile.Name)
		return nil
	}

	cfgPath := config.ResolveConfigPath(config.ReadEnvOverrides(), flagConfigPath, cc.Logger)

	if err := config.SetProfileKey(cfgPath, cc.Profile.Name, "paused", "false"); err != nil {
		return fmt.Errorf("clearing paused flag: %w", err)
	}
	if err := config.SetProfileKey(cfgPath, cc.Profile.Name, "paused_until", ""); err != nil {
		return fmt.Errorf("clearing paused_until: %w", err)
	}

	statusf(flagQuiet, "Profile %s resumed\n", cc.Profile.Name)
	notifyWatchDaemon(cc.Profile.Name, flagQuiet)
	return nil
}
