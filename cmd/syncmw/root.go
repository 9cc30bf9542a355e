package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/driftbase/syncmw/internal/changelog"
	"github.com/driftbase/syncmw/internal/conflict"
	"github.com/driftbase/syncmw/internal/config"
	"github.com/driftbase/syncmw/internal/engine"
	"github.com/driftbase/syncmw/internal/filter"
	"github.com/driftbase/syncmw/internal/remote"
	"github.com/driftbase/syncmw/internal/store"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagProfile    string
	flagJSON       bool
	flagVerbose    bool
	flagDebug      bool
	flagQuiet      bool
)

// skipConfigAnnotation marks commands that handle config loading
// themselves (init, which may be run before a config file exists).
const skipConfigAnnotation = "skipConfig"

// CLIContext bundles the resolved profile and logger. Built once in
// PersistentPreRunE so RunE handlers never re-resolve config.
type CLIContext struct {
	Profile *config.ResolvedProfile
	Logger  *slog.Logger
}

type cliContextKey struct{}

func cliContextFrom(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		return nil
	}
	return cc
}

// mustCLIContext extracts the CLIContext or panics. Panics are always
// a programmer error — every command that reaches RunE without
// skipConfigAnnotation is guaranteed a populated context.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc := cliContextFrom(ctx)
	if cc == nil {
		panic("BUG: CLIContext not found in context — command is missing skipConfigAnnotation or PersistentPreRunE did not run")
	}
	return cc
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "syncmw",
		Short:   "Offline-first bidirectional sync middleware",
		Long:    "syncmw keeps a local relational store and a remote columnar store in sync, offline-first, with conflict detection and resolution.",
		Version: version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipConfigAnnotation] == "true" {
				return nil
			}
			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagProfile, "profile", "", "profile name (default: the config's default profile)")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "show detailed output")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.MarkFlagsMutuallyExclusive("verbose", "debug", "quiet")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newPushCmd())
	cmd.AddCommand(newPullCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newPauseCmd())
	cmd.AddCommand(newResumeCmd())
	cmd.AddCommand(newConflictsCmd())
	cmd.AddCommand(newResolveCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// loadConfig resolves the effective profile from the four-layer
// override chain and stores it in the command's context.
func loadConfig(cmd *cobra.Command) error {
	logger := buildLogger(nil)

	env := config.ReadEnvOverrides()
	cfgPath := config.ResolveConfigPath(env, flagConfigPath, logger)

	cfg, err := config.LoadOrDefault(cfgPath, logger)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	profileName := flagProfile
	if profileName == "" {
		profileName = env.Profile
	}

	rp, err := config.ResolveProfile(cfg, profileName)
	if err != nil {
		return fmt.Errorf("resolving profile: %w", err)
	}

	if err := config.ValidateResolved(rp); err != nil {
		return fmt.Errorf("invalid profile %q: %w", rp.Name, err)
	}

	finalLogger := buildLogger(rp)
	cc := &CLIContext{Profile: rp, Logger: finalLogger}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))

	config.WarnUnimplemented(rp, finalLogger)

	return nil
}

// buildLogger builds a logger from the resolved profile's log level,
// overridden by CLI flags (which always win). Pass nil for the
// pre-config bootstrap logger.
func buildLogger(rp *config.ResolvedProfile) *slog.Logger {
	level := slog.LevelWarn

	if rp != nil {
		switch rp.Logging.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelInfo
	}
	if flagDebug {
		level = slog.LevelDebug
	}
	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// exitOnError prints a user-friendly error message and exits non-zero.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// engineBundle holds an Engine plus the resources it owns, so callers
// can Close everything in one place once a command finishes.
type engineBundle struct {
	Engine                    *engine.Engine
	Remote                    remote.Client
	Local                     store.Gateway
	Resolver                  *conflict.Resolver
	CompressionThresholdBytes int
	db                        *sql.DB
	log                       *changelog.SQLiteLog
}

func (b *engineBundle) Close() error {
	var err error
	if b.log != nil {
		err = b.log.Close()
	}
	if b.db != nil {
		if e := b.db.Close(); err == nil {
			err = e
		}
	}
	return err
}

// buildEngine wires the Local Store Gateway, Remote Store Client,
// Change Log, Table Filter, and Conflict Detector/Resolver for rp into
// a ready-to-use Engine, per the command layer's single responsibility
// of assembling collaborators and delegating everything else to
// internal/engine.
func buildEngine(ctx context.Context, rp *config.ResolvedProfile, logger *slog.Logger) (*engineBundle, error) {
	db, err := sql.Open("sqlite", "file:"+rp.LocalStorePath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}

	dbPath := config.ProfileDBPath(rp.Name)
	if dbPath == "" {
		db.Close()
		return nil, fmt.Errorf("cannot determine change log path for profile %q", rp.Name)
	}

	log, err := changelog.NewSQLiteLog(ctx, dbPath, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening change log: %w", err)
	}

	tokenSrc, err := remote.NewTokenSourceFromEnv(ctx, rp.Network.CredentialEnv)
	if err != nil {
		log.Close()
		db.Close()
		return nil, fmt.Errorf("resolving credential: %w", err)
	}

	httpClient := &http.Client{Timeout: parseDurationOrDefault(rp.Network.ConnectTimeout, 10*time.Second)}
	remoteClient := remote.NewHTTPClient(rp.Network.BaseURL, httpClient, tokenSrc, logger)

	tf, err := filter.New(filter.Config{
		Exclude:         rp.Filter.Exclude,
		ExcludePatterns: rp.Filter.ExcludePatterns,
		Include:         rp.Filter.Include,
		IncludePatterns: rp.Filter.IncludePatterns,
		MinRowCount:     rp.Filter.MinRowCount,
		MaxRowCount:     rp.Filter.MaxRowCount,
	}, logger)
	if err != nil {
		log.Close()
		db.Close()
		return nil, fmt.Errorf("configuring table filter: %w", err)
	}

	compressionThreshold, err := config.ParseSize(rp.Batch.CompressionThreshold)
	if err != nil {
		log.Close()
		db.Close()
		return nil, fmt.Errorf("parsing compression_threshold: %w", err)
	}

	detector := conflict.NewDetector(conflict.Tolerance{})
	resolver := conflict.NewResolver(conflict.UnionMerge(rp.Sync.MergeSeparator))
	localGateway := store.NewSQLGateway(db)

	eng := engine.New(engine.Config{
		Log:                       log,
		Local:                     localGateway,
		Remote:                    remoteClient,
		Filter:                    tf,
		Detector:                  detector,
		Resolver:                  resolver,
		Policy:                    conflict.Policy(rp.Sync.ConflictStrategy),
		Tables:                    rp.Tables,
		BatchSize:                 rp.Batch.GroupSize,
		BatchConcurrency:          rp.Batch.Concurrency,
		CompressionThresholdBytes: int(compressionThreshold),
		RateLimitPerSecond:        rp.Batch.RateLimitPerSecond,
		Logger:                    logger,
	})

	return &engineBundle{
		Engine:                    eng,
		Remote:                    remoteClient,
		Local:                     localGateway,
		Resolver:                  resolver,
		CompressionThresholdBytes: int(compressionThreshold),
		db:                        db,
		log:                       log,
	}, nil
}

func parseDurationOrDefault(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
