package config

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/driftbase/syncmw/internal/conflict"
)

// Validation range constants.
const (
	minConcurrency     = 1
	maxConcurrency     = 64
	minGroupSize       = 1
	maxGroupSize       = 10_000
	minRetries         = 0
	maxRetries         = 20
	minPercentage      = 1
	maxPercentage      = 100
	minBigRefresh      = 1
	minLogRetention    = 1
	minPollInterval    = 1 * time.Second
	minShutdownTimeout = 1 * time.Second
	minConnectTimeout  = 1 * time.Second
	minDataTimeout     = 5 * time.Second
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateProfiles(cfg.Profiles)...)
	errs = append(errs, validateFilter(&cfg.Filter)...)
	errs = append(errs, validateBatch(&cfg.Batch)...)
	errs = append(errs, validateSafety(&cfg.Safety)...)
	errs = append(errs, validateSync(&cfg.Sync)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateNetwork(&cfg.Network)...)

	return errors.Join(errs...)
}

// ValidateResolved checks cross-field constraints on a fully resolved
// profile, after the four-layer override chain (defaults -> file ->
// env -> CLI) has been applied.
func ValidateResolved(rp *ResolvedProfile) error {
	var errs []error

	if rp.LocalStorePath == "" {
		errs = append(errs, errors.New("local_store_path: must not be empty"))
	}

	if len(rp.Tables) == 0 {
		errs = append(errs, errors.New("tables: at least one table must be configured"))
	}

	return errors.Join(errs...)
}

func validateFilter(f *FilterConfig) []error {
	var errs []error

	for _, p := range f.ExcludePatterns {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("exclude_patterns: invalid regexp %q: %w", p, err))
		}
	}

	for _, p := range f.IncludePatterns {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("include_patterns: invalid regexp %q: %w", p, err))
		}
	}

	if f.MinRowCount < 0 {
		errs = append(errs, fmt.Errorf("min_row_count: must be >= 0, got %d", f.MinRowCount))
	}

	if f.MaxRowCount < 0 {
		errs = append(errs, fmt.Errorf("max_row_count: must be >= 0, got %d", f.MaxRowCount))
	}

	if f.MaxRowCount > 0 && f.MinRowCount > f.MaxRowCount {
		errs = append(errs, fmt.Errorf("min_row_count (%d) must not exceed max_row_count (%d)",
			f.MinRowCount, f.MaxRowCount))
	}

	return errs
}

func validateBatch(b *BatchConfig) []error {
	var errs []error

	if b.GroupSize < minGroupSize || b.GroupSize > maxGroupSize {
		errs = append(errs, fmt.Errorf("group_size: must be between %d and %d, got %d",
			minGroupSize, maxGroupSize, b.GroupSize))
	}

	if b.Concurrency < minConcurrency || b.Concurrency > maxConcurrency {
		errs = append(errs, fmt.Errorf("concurrency: must be between %d and %d, got %d",
			minConcurrency, maxConcurrency, b.Concurrency))
	}

	if b.MaxRetries < minRetries || b.MaxRetries > maxRetries {
		errs = append(errs, fmt.Errorf("max_retries: must be between %d and %d, got %d",
			minRetries, maxRetries, b.MaxRetries))
	}

	if b.BackoffFactor <= 1.0 {
		errs = append(errs, fmt.Errorf("backoff_factor: must be > 1.0, got %v", b.BackoffFactor))
	}

	if _, err := ParseSize(b.CompressionThreshold); err != nil {
		errs = append(errs, fmt.Errorf("compression_threshold: %w", err))
	}

	errs = append(errs, validateDurationMin("initial_backoff", b.InitialBackoff, 0)...)
	errs = append(errs, validateDurationMin("max_backoff", b.MaxBackoff, 0)...)

	if b.RateLimitPerSecond < 0 {
		errs = append(errs, fmt.Errorf("rate_limit_per_second: must be >= 0, got %d", b.RateLimitPerSecond))
	}

	return errs
}

func validateSafety(s *SafetyConfig) []error {
	var errs []error

	if s.BigRefreshThreshold < minBigRefresh {
		errs = append(errs, fmt.Errorf("big_refresh_threshold: must be >= %d, got %d",
			minBigRefresh, s.BigRefreshThreshold))
	}

	if s.BigRefreshPercentage < minPercentage || s.BigRefreshPercentage > maxPercentage {
		errs = append(errs, fmt.Errorf("big_refresh_percentage: must be between %d and %d, got %d",
			minPercentage, maxPercentage, s.BigRefreshPercentage))
	}

	return errs
}

var validConflictStrategies = map[conflict.Policy]bool{
	conflict.PolicyLocalWins:  true,
	conflict.PolicyRemoteWins: true,
	conflict.PolicyLatestWins: true,
	conflict.PolicyMerge:      true,
	conflict.PolicyManual:     true,
}

func validateSync(s *SyncConfig) []error {
	var errs []error

	errs = append(errs, validateDurationMin("poll_interval", s.PollInterval, minPollInterval)...)
	errs = append(errs, validateConflictStrategy(s.ConflictStrategy)...)
	errs = append(errs, validateDurationMin("shutdown_timeout", s.ShutdownTimeout, minShutdownTimeout)...)

	return errs
}

func validateConflictStrategy(s string) []error {
	if !validConflictStrategies[conflict.Policy(s)] {
		return []error{fmt.Errorf(
			"conflict_strategy: must be one of local_wins, remote_wins, latest_wins, merge, manual; got %q", s)}
	}

	return nil
}

// validateDuration checks that a duration string is valid and meets a minimum.
func validateDuration(field, value string, minimum time.Duration) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, value, err)
	}

	if d < minimum {
		return fmt.Errorf("%s: must be >= %s, got %s", field, minimum, d)
	}

	return nil
}

func validateDurationMin(field, value string, minimum time.Duration) []error {
	if err := validateDuration(field, value, minimum); err != nil {
		return []error{err}
	}

	return nil
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	errs = append(errs, validateLogLevel(l.LogLevel)...)
	errs = append(errs, validateLogFormat(l.LogFormat)...)

	if l.LogRetentionDays < minLogRetention {
		errs = append(errs, fmt.Errorf("log_retention_days: must be >= %d, got %d",
			minLogRetention, l.LogRetentionDays))
	}

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateLogLevel(level string) []error {
	if !validLogLevels[level] {
		return []error{fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", level)}
	}

	return nil
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

func validateLogFormat(format string) []error {
	if !validLogFormats[format] {
		return []error{fmt.Errorf("log_format: must be one of auto, text, json; got %q", format)}
	}

	return nil
}

func validateNetwork(n *NetworkConfig) []error {
	var errs []error

	errs = append(errs, validateDurationMin("connect_timeout", n.ConnectTimeout, minConnectTimeout)...)
	errs = append(errs, validateDurationMin("data_timeout", n.DataTimeout, minDataTimeout)...)

	return errs
}

// WarnUnimplemented logs a warning for each config field that is set to a
// non-default value but is not yet wired into the engine. This prevents
// callers from thinking a setting takes effect when it silently doesn't.
func WarnUnimplemented(rp *ResolvedProfile, logger *slog.Logger) {
	if rp.Sync.DryRun {
		logger.Warn("config field not yet implemented; value will be ignored",
			slog.String("field", "dry_run"))
	}
}
