package main

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftbase/syncmw/internal/config"
)

func newPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause [duration]",
		Short: "Pause auto-sync for the active profile",
		Long: `Pause auto-sync for the active profile. An optional duration argument
(e.g., "2h", "30m", "1d") records a paused_until time. A running
'syncmw watch' treats the profile as resumed once that time has passed,
but only when it next reloads its configuration (on SIGHUP); it does not
resume by itself when the time arrives, and a watch started while the
profile is paused starts with auto-sync stopped whatever paused_until says.

Without a duration, the profile stays paused until 'syncmw resume' is
run. If 'syncmw watch' is running for this profile, it receives a
SIGHUP and picks up the change immediately.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runPause,
	}
}

func runPause(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	cfgPath := config.ResolveConfigPath(config.ReadEnvOverrides(), flagConfigPath, cc.Logger)

	if err := config.SetProfileKey(cfgPath, cc.Profile.Name, "paused", "true"); err != nil {
		return fmt.Errorf("setting paused flag: %w", err)
	}

	if len(args) > 0 {
		d, err := parseDuration(args[0])
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", args[0], err)
		}

		until := time.Now().Add(d).Format(time.RFC3339)
		if err := config.SetProfileKey(cfgPath, cc.Profile.Name, "paused_until", until); err != nil {
			return fmt.Errorf("setting paused_until: %w", err)
		}

		statusf(flagQuiet, "Profile %s paused until %s\n", cc.Profile.Name, until)
	} else {
		statusf(flagQuiet, "Profile %s paused\n", cc.Profile.Name)
	}

	notifyWatchDaemon(cc.Profile.Name, flagQuiet)
	return nil
}

// notifyWatchDaemon attempts to SIGHUP a running 'syncmw watch' for
// profileName. Non-fatal: if none is running, this is just informational.
func notifyWatchDaemon(profileName string, quiet bool) {
	pidPath := config.ProfilePIDPath(profileName)
	if pidPath == "" {
		return
	}

	if err := sendSIGHUP(pidPath); err != nil {
		statusf(quiet, "Note: %v — change takes effect next time 'syncmw watch' starts\n", err)
	} else {
		statusf(quiet, "Notified running watch daemon to reload\n")
	}
}

const hoursPerDay = 24

var durationPattern = regexp.MustCompile(`^(\d+d)?(\d+h)?(\d+m)?(\d+s)?$`)

// parseDuration parses a human-friendly duration string: Go duration
// syntax (e.g., "2h30m") plus a "d" suffix for days (24h each).
func parseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("duration must be positive")
		}
		return d, nil
	}

	if s == "" || !durationPattern.MatchString(s) {
		return 0, fmt.Errorf("expected format like 30m, 2h, 1d, or 1h30m")
	}

	var total time.Duration
	re := regexp.MustCompile(`(\d+)([dhms])`)
	for _, match := range re.FindAllStringSubmatch(s, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil {
			return 0, fmt.Errorf("invalid number %q: %w", match[1], err)
		}

		switch match[2] {
		case "d":
			total += time.Duration(n) * hoursPerDay * time.Hour
		case "h":
			total += time.Duration(n) * time.Hour
		case "m":
			total += time.Duration(n) * time.Minute
		case "s":
			total += time.Duration(n) * time.Second
		}
	}

	if total <= 0 {
		return 0, fmt.Errorf("duration must be positive")
	}

	return total, nil
}
