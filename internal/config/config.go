// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for the sync middleware.
package config

// Config is the top-level configuration structure. It contains named
// sync profiles plus the global sections every profile falls back to.
// Per-profile section overrides completely replace the corresponding
// global section (they do not merge field by field).
type Config struct {
	Profiles map[string]Profile `toml:"profile"`
	Filter   FilterConfig       `toml:"filter"`
	Batch    BatchConfig        `toml:"batch"`
	Safety   SafetyConfig       `toml:"safety"`
	Sync     SyncConfig         `toml:"sync"`
	Logging  LoggingConfig      `toml:"logging"`
	Network  NetworkConfig      `toml:"network"`
}

// FilterConfig controls which tables participate in sync (C7).
type FilterConfig struct {
	Exclude         []string `toml:"exclude"`
	ExcludePatterns []string `toml:"exclude_patterns"`
	Include         []string `toml:"include"`
	IncludePatterns []string `toml:"include_patterns"`
	MinRowCount     int64    `toml:"min_row_count"`
	MaxRowCount     int64    `toml:"max_row_count"`
	WatchFile       string   `toml:"watch_file"`
}

// BatchConfig controls the batch/retry/compression layer (C8).
type BatchConfig struct {
	GroupSize                 int     `toml:"group_size"`
	Concurrency               int     `toml:"concurrency"`
	CompressionThreshold      string  `toml:"compression_threshold"`
	MaxRetries                int     `toml:"max_retries"`
	InitialBackoff            string  `toml:"initial_backoff"`
	MaxBackoff                string  `toml:"max_backoff"`
	BackoffFactor             float64 `toml:"backoff_factor"`
	// RateLimitPerSecond caps download requests per second during Pull.
	// 0 (the default) means unlimited, bounded only by Concurrency.
	RateLimitPerSecond int `toml:"rate_limit_per_second"`
}

// SafetyConfig controls protective thresholds around Pull's coarse
// delete-then-reinsert table refresh, generalized from the teacher's
// big-delete guard against file-tree wipes.
type SafetyConfig struct {
	BigRefreshThreshold  int  `toml:"big_refresh_threshold"`
	BigRefreshPercentage int  `toml:"big_refresh_percentage"`
	RequireConfirmation  bool `toml:"require_confirmation"`
}

// SyncConfig controls the Sync Engine (C9).
type SyncConfig struct {
	PollInterval     string `toml:"poll_interval"`
	AutoSyncCron     string `toml:"auto_sync_cron"`
	ConflictStrategy string `toml:"conflict_strategy"`
	MergeSeparator   string `toml:"merge_separator"`
	DryRun           bool   `toml:"dry_run"`
	ShutdownTimeout  string `toml:"shutdown_timeout"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel         string `toml:"log_level"`
	LogFile          string `toml:"log_file"`
	LogFormat        string `toml:"log_format"`
	LogRetentionDays int    `toml:"log_retention_days"`
}

// NetworkConfig controls the Remote Store Client's HTTP behavior and
// the Network Monitor's probe/beacon endpoints.
type NetworkConfig struct {
	BaseURL        string `toml:"base_url"`
	CredentialEnv  string `toml:"credential_env"`
	ConnectTimeout string `toml:"connect_timeout"`
	DataTimeout    string `toml:"data_timeout"`
	ProbeURL       string `toml:"probe_url"`
	BeaconURL      string `toml:"beacon_url"`
	UserAgent      string `toml:"user_agent"`
}
