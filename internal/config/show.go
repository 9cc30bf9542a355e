package config

import (
	"fmt"
	"io"
	"strings"
)

// RenderEffective writes the resolved configuration as a human-readable
// annotated summary to w. This powers the "config show" command, giving
// operators visibility into the effective values after all four override
// layers (defaults -> file -> env -> CLI) have been applied.
func RenderEffective(rp *ResolvedProfile, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration for profile %q\n\n", rp.Name)

	renderProfileSection(ew, rp)
	renderFilterSection(ew, &rp.Filter)
	renderBatchSection(ew, &rp.Batch)
	renderSafetySection(ew, &rp.Safety)
	renderSyncSection(ew, &rp.Sync)
	renderLoggingSection(ew, &rp.Logging)
	renderNetworkSection(ew, &rp.Network)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops, so callers can chain
// printf calls without checking each one individually.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func renderProfileSection(ew *errWriter, rp *ResolvedProfile) {
	ew.printf("[profile]\n")
	ew.printf("  name             = %q\n", rp.Name)
	ew.printf("  local_store_path = %q\n", rp.LocalStorePath)

	if len(rp.Tables) > 0 {
		ew.printf("  tables           = [%s]\n", joinQuoted(rp.Tables))
	}

	ew.printf("\n")
}

func renderFilterSection(ew *errWriter, f *FilterConfig) {
	ew.printf("[filter]\n")

	if len(f.Exclude) > 0 {
		ew.printf("  exclude          = [%s]\n", joinQuoted(f.Exclude))
	}

	if len(f.ExcludePatterns) > 0 {
		ew.printf("  exclude_patterns = [%s]\n", joinQuoted(f.ExcludePatterns))
	}

	if len(f.Include) > 0 {
		ew.printf("  include          = [%s]\n", joinQuoted(f.Include))
	}

	if len(f.IncludePatterns) > 0 {
		ew.printf("  include_patterns = [%s]\n", joinQuoted(f.IncludePatterns))
	}

	ew.printf("  min_row_count    = %d\n", f.MinRowCount)
	ew.printf("  max_row_count    = %d\n", f.MaxRowCount)
	ew.printf("\n")
}

func renderBatchSection(ew *errWriter, b *BatchConfig) {
	ew.printf("[batch]\n")
	ew.printf("  group_size             = %d\n", b.GroupSize)
	ew.printf("  concurrency            = %d\n", b.Concurrency)
	ew.printf("  compression_threshold  = %q\n", b.CompressionThreshold)
	ew.printf("  max_retries            = %d\n", b.MaxRetries)
	ew.printf("  initial_backoff        = %q\n", b.InitialBackoff)
	ew.printf("  max_backoff            = %q\n", b.MaxBackoff)
	ew.printf("  backoff_factor         = %v\n", b.BackoffFactor)
	ew.printf("  rate_limit_per_second  = %d\n", b.RateLimitPerSecond)
	ew.printf("\n")
}

func renderSafetySection(ew *errWriter, s *SafetyConfig) {
	ew.printf("[safety]\n")
	ew.printf("  big_refresh_threshold  = %d\n", s.BigRefreshThreshold)
	ew.printf("  big_refresh_percentage = %d\n", s.BigRefreshPercentage)
	ew.printf("  require_confirmation   = %t\n", s.RequireConfirmation)
	ew.printf("\n")
}

func renderSyncSection(ew *errWriter, s *SyncConfig) {
	ew.printf("[sync]\n")
	ew.printf("  poll_interval     = %q\n", s.PollInterval)
	ew.printf("  auto_sync_cron    = %q\n", s.AutoSyncCron)
	ew.printf("  conflict_strategy = %q\n", s.ConflictStrategy)
	ew.printf("  merge_separator   = %q\n", s.MergeSeparator)
	ew.printf("  dry_run           = %t\n", s.DryRun)
	ew.printf("  shutdown_timeout  = %q\n", s.ShutdownTimeout)
	ew.printf("\n")
}

func renderLoggingSection(ew *errWriter, l *LoggingConfig) {
	ew.printf("[logging]\n")
	ew.printf("  log_level          = %q\n", l.LogLevel)

	if l.LogFile != "" {
		ew.printf("  log_file           = %q\n", l.LogFile)
	}

	ew.printf("  log_format         = %q\n", l.LogFormat)
	ew.printf("  log_retention_days = %d\n", l.LogRetentionDays)
	ew.printf("\n")
}

func renderNetworkSection(ew *errWriter, n *NetworkConfig) {
	ew.printf("[network]\n")
	ew.printf("  base_url        = %q\n", n.BaseURL)
	ew.printf("  credential_env  = %q\n", n.CredentialEnv)
	ew.printf("  connect_timeout = %q\n", n.ConnectTimeout)
	ew.printf("  data_timeout    = %q\n", n.DataTimeout)

	if n.ProbeURL != "" {
		ew.printf("  probe_url       = %q\n", n.ProbeURL)
	}

	if n.BeaconURL != "" {
		ew.printf("  beacon_url      = %q\n", n.BeaconURL)
	}

	if n.UserAgent != "" {
		ew.printf("  user_agent      = %q\n", n.UserAgent)
	}
}

// joinQuoted formats a string slice as comma-separated quoted values.
func joinQuoted(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}

	return strings.Join(quoted, ", ")
}
