package config

import "github.com/driftbase/syncmw/internal/batch"

// Default values for configuration options. These represent the "layer 0"
// of the four-layer override chain and are chosen to be safe, reasonable
// starting points that work without any config file.
const (
	// defaultGroupSizeTargetBytes and defaultGroupSizeRowBytes feed
	// batch.AutoSize to derive defaultGroupSize below: 100KiB of row
	// data at an estimated 1KiB/row comes out to the historical
	// default of 100 rows per batch.
	defaultGroupSizeTargetBytes int64 = 100 * 1024
	defaultGroupSizeRowBytes    int64 = 1024
	defaultConcurrency                = 4
	defaultCompressionThreshold       = "8KiB"
	defaultMaxRetries                 = 5
	defaultInitialBackoff             = "1s"
	defaultMaxBackoff                 = "60s"
	defaultBackoffFactor              = 2.0
	defaultRateLimitPerSecond         = 0 // 0 = unlimited
	defaultBigRefreshThreshold        = 1000
	defaultBigRefreshPercentage       = 50
	defaultPollInterval               = "5m"
	defaultAutoSyncCron               = "@every 5m"
	defaultConflictStrategy           = "latest_wins"
	defaultMergeSeparator             = ","
	defaultShutdownTimeout            = "30s"
	defaultLogLevel                   = "info"
	defaultLogFormat                  = "auto"
	defaultLogRetentionDays           = 30
	defaultConnectTimeout             = "10s"
	defaultDataTimeout                = "60s"
)

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Profiles: make(map[string]Profile),
		Filter:   defaultFilterConfig(),
		Batch:    defaultBatchConfig(),
		Safety:   defaultSafetyConfig(),
		Sync:     defaultSyncConfig(),
		Logging:  defaultLoggingConfig(),
		Network:  defaultNetworkConfig(),
	}
}

func defaultFilterConfig() FilterConfig {
	return FilterConfig{}
}

func defaultBatchConfig() BatchConfig {
	return BatchConfig{
		GroupSize:            batch.AutoSize(defaultGroupSizeTargetBytes, defaultGroupSizeRowBytes),
		Concurrency:          defaultConcurrency,
		CompressionThreshold: defaultCompressionThreshold,
		MaxRetries:           defaultMaxRetries,
		InitialBackoff:       defaultInitialBackoff,
		MaxBackoff:           defaultMaxBackoff,
		BackoffFactor:        defaultBackoffFactor,
		RateLimitPerSecond:   defaultRateLimitPerSecond,
	}
}

func defaultSafetyConfig() SafetyConfig {
	return SafetyConfig{
		BigRefreshThreshold:  defaultBigRefreshThreshold,
		BigRefreshPercentage: defaultBigRefreshPercentage,
	}
}

func defaultSyncConfig() SyncConfig {
	return SyncConfig{
		PollInterval:     defaultPollInterval,
		AutoSyncCron:     defaultAutoSyncCron,
		ConflictStrategy: defaultConflictStrategy,
		MergeSeparator:   defaultMergeSeparator,
		ShutdownTimeout:  defaultShutdownTimeout,
	}
}

func defaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		LogLevel:         defaultLogLevel,
		LogFormat:        defaultLogFormat,
		LogRetentionDays: defaultLogRetentionDays,
	}
}

func defaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		ConnectTimeout: defaultConnectTimeout,
		DataTimeout:    defaultDataTimeout,
	}
}
