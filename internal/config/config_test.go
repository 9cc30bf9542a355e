package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_AllFieldsPopulated(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.Empty(t, cfg.Filter.Exclude)
	assert.Empty(t, cfg.Filter.Include)

	assert.Equal(t, 100, cfg.Batch.GroupSize)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Equal(t, "8KiB", cfg.Batch.CompressionThreshold)
	assert.Equal(t, 5, cfg.Batch.MaxRetries)
	assert.Equal(t, "1s", cfg.Batch.InitialBackoff)
	assert.Equal(t, "60s", cfg.Batch.MaxBackoff)
	assert.Equal(t, 2.0, cfg.Batch.BackoffFactor)

	assert.Equal(t, 1000, cfg.Safety.BigRefreshThreshold)
	assert.Equal(t, 50, cfg.Safety.BigRefreshPercentage)
	assert.False(t, cfg.Safety.RequireConfirmation)

	assert.Equal(t, "5m", cfg.Sync.PollInterval)
	assert.Equal(t, "@every 5m", cfg.Sync.AutoSyncCron)
	assert.Equal(t, "latest_wins", cfg.Sync.ConflictStrategy)
	assert.Equal(t, ",", cfg.Sync.MergeSeparator)
	assert.False(t, cfg.Sync.DryRun)
	assert.Equal(t, "30s", cfg.Sync.ShutdownTimeout)

	assert.Equal(t, "info", cfg.Logging.LogLevel)
	assert.Equal(t, "", cfg.Logging.LogFile)
	assert.Equal(t, "auto", cfg.Logging.LogFormat)
	assert.Equal(t, 30, cfg.Logging.LogRetentionDays)

	assert.Equal(t, "10s", cfg.Network.ConnectTimeout)
	assert.Equal(t, "60s", cfg.Network.DataTimeout)
	assert.Equal(t, "", cfg.Network.UserAgent)

	require.NotNil(t, cfg.Profiles)
	assert.Empty(t, cfg.Profiles)
}

func TestDefaultConfig_PassesValidation(t *testing.T) {
	cfg := DefaultConfig()
	err := Validate(cfg)
	assert.NoError(t, err)
}
