package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftbase/syncmw/internal/config"
)

func contextWithProfile(rp *config.ResolvedProfile) context.Context {
	cc := &CLIContext{Profile: rp, Logger: slog.Default()}
	return context.WithValue(context.Background(), cliContextKey{}, cc)
}

func TestRunResolveRejectsManualPolicy(t *testing.T) {
	rp := &config.ResolvedProfile{
		Name:   "default",
		Tables: []string{"orders"},
	}
	rp.Sync.ConflictStrategy = "manual"

	cmd := newResolveCmd()
	cmd.SetContext(contextWithProfile(rp))

	err := runResolve(cmd, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manual")
}

func TestRunResolveFlagOverridesProfileDefault(t *testing.T) {
	rp := &config.ResolvedProfile{Name: "default"}
	rp.Sync.ConflictStrategy = "local_wins"

	cmd := newResolveCmd()
	cmd.SetContext(contextWithProfile(rp))

	err := runResolve(cmd, "manual")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manual")
}
