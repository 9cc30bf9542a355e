package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/driftbase/syncmw/internal/config"
)

func resetFlags(t *testing.T) {
	t.Helper()
	oldV, oldD, oldQ := flagVerbose, flagDebug, flagQuiet
	flagVerbose, flagDebug, flagQuiet = false, false, false
	t.Cleanup(func() {
		flagVerbose, flagDebug, flagQuiet = oldV, oldD, oldQ
	})
}

func TestBuildLoggerProfileLevel(t *testing.T) {
	resetFlags(t)

	rp := &config.ResolvedProfile{}
	rp.Logging.LogLevel = "debug"

	logger := buildLogger(rp)
	assert.True(t, logger.Enabled(nil, slog.LevelDebug))
}

func TestBuildLoggerFlagsOverrideProfile(t *testing.T) {
	resetFlags(t)

	rp := &config.ResolvedProfile{}
	rp.Logging.LogLevel = "error"

	flagDebug = true
	logger := buildLogger(rp)
	assert.True(t, logger.Enabled(nil, slog.LevelDebug))
}

func TestBuildLoggerQuietForcesErrorLevel(t *testing.T) {
	resetFlags(t)

	flagQuiet = true
	logger := buildLogger(nil)
	assert.False(t, logger.Enabled(nil, slog.LevelWarn))
	assert.True(t, logger.Enabled(nil, slog.LevelError))
}

func TestParseDurationOrDefault(t *testing.T) {
	assert.Equal(t, 5*time.Second, parseDurationOrDefault("5s", 10*time.Second))
	assert.Equal(t, 10*time.Second, parseDurationOrDefault("not-a-duration", 10*time.Second))
	assert.Equal(t, 10*time.Second, parseDurationOrDefault("", 10*time.Second))
}

func TestCliContextFromMissing(t *testing.T) {
	assert.Nil(t, cliContextFrom(context.Background()))
}

func TestMustCLIContextPanicsWhenMissing(t *testing.T) {
	assert.Panics(t, func() {
		mustCLIContext(context.Background())
	})
}
