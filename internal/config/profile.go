package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Default profile name when --profile is omitted.
const defaultProfileName = "default"

// Profile represents a single sync target configuration within a TOML
// config file: where the local store lives, which tables participate,
// and section overrides that completely replace the corresponding
// global section (individual fields are not merged).
type Profile struct {
	LocalStorePath string   `toml:"local_store_path"`
	Tables         []string `toml:"tables"`

	// Paused suspends auto-sync for this profile; watch skips every
	// tick while true. PausedUntil, if set, is an RFC3339 timestamp; a
	// running watch treats the profile as resumed once it has passed,
	// checked only when watch reloads the config on SIGHUP. Watch does
	// not resume by itself when the time arrives.
	Paused      bool   `toml:"paused"`
	PausedUntil string `toml:"paused_until"`

	// Per-profile section overrides (completely replace global sections).
	Filter  *FilterConfig  `toml:"filter,omitempty"`
	Batch   *BatchConfig   `toml:"batch,omitempty"`
	Safety  *SafetyConfig  `toml:"safety,omitempty"`
	Sync    *SyncConfig    `toml:"sync,omitempty"`
	Logging *LoggingConfig `toml:"logging,omitempty"`
	Network *NetworkConfig `toml:"network,omitempty"`
}

// ResolvedProfile contains profile fields plus effective config sections
// after merging global defaults with per-profile overrides. This is the
// final product consumed by the CLI and sync engine.
type ResolvedProfile struct {
	Name           string
	LocalStorePath string
	Tables         []string
	Paused         bool
	PausedUntil    string

	Filter  FilterConfig
	Batch   BatchConfig
	Safety  SafetyConfig
	Sync    SyncConfig
	Logging LoggingConfig
	Network NetworkConfig
}

// ResolveProfile merges global defaults with profile-specific overrides.
// If profileName is empty, the default profile is selected. Section-level
// override semantics are "replace, not merge" — if a profile defines
// [profile.work.filter], that entire FilterConfig replaces the global one.
func ResolveProfile(cfg *Config, profileName string) (*ResolvedProfile, error) {
	name, err := resolveProfileName(cfg, profileName)
	if err != nil {
		return nil, err
	}

	profile := cfg.Profiles[name]

	resolved := &ResolvedProfile{
		Name:           name,
		LocalStorePath: expandTilde(profile.LocalStorePath),
		Tables:         profile.Tables,
		Paused:         profile.Paused,
		PausedUntil:    profile.PausedUntil,
	}

	resolveProfileSections(resolved, &profile, cfg)

	return resolved, nil
}

// resolveProfileSections fills effective config sections on the resolved profile.
func resolveProfileSections(resolved *ResolvedProfile, profile *Profile, cfg *Config) {
	resolved.Filter = resolveSection(profile.Filter, cfg.Filter)
	resolved.Batch = resolveSection(profile.Batch, cfg.Batch)
	resolved.Safety = resolveSection(profile.Safety, cfg.Safety)
	resolved.Sync = resolveSection(profile.Sync, cfg.Sync)
	resolved.Logging = resolveSection(profile.Logging, cfg.Logging)
	resolved.Network = resolveSection(profile.Network, cfg.Network)
}

// resolveSection returns the profile override if present, otherwise the global value.
func resolveSection[T any](profileOverride *T, global T) T {
	if profileOverride != nil {
		return *profileOverride
	}

	return global
}

// resolveProfileName determines which profile to use.
func resolveProfileName(cfg *Config, profileName string) (string, error) {
	if len(cfg.Profiles) == 0 {
		return "", fmt.Errorf("no profiles defined in config")
	}

	if profileName != "" {
		return lookupExplicitProfile(cfg, profileName)
	}

	return lookupDefaultProfile(cfg)
}

// lookupExplicitProfile validates that the named profile exists.
func lookupExplicitProfile(cfg *Config, name string) (string, error) {
	if _, ok := cfg.Profiles[name]; !ok {
		return "", fmt.Errorf("profile %q not found in config", name)
	}

	return name, nil
}

// lookupDefaultProfile finds the default profile when no name is given.
func lookupDefaultProfile(cfg *Config) (string, error) {
	if _, ok := cfg.Profiles[defaultProfileName]; ok {
		return defaultProfileName, nil
	}

	if len(cfg.Profiles) == 1 {
		for name := range cfg.Profiles {
			return name, nil
		}
	}

	return "", fmt.Errorf(
		"multiple profiles defined but none named %q; use --profile to select one",
		defaultProfileName)
}

// expandTilde replaces a leading "~/" with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[2:])
}

// ProfileDBPath returns the change-log database path for a profile.
// Format: {dataDir}/state/{profile}.db
func ProfileDBPath(profileName string) string {
	dataDir := DefaultDataDir()
	if dataDir == "" {
		return ""
	}

	return filepath.Join(dataDir, "state", profileName+".db")
}
