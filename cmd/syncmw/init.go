package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/driftbase/syncmw/internal/config"
)

func newInitCmd() *cobra.Command {
	var name, localStorePath, tablesCSV string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create or extend a config file with a profile",
		Long: `Create a new config file with a profile, or append a profile to an
existing config file. The config path is resolved the same way every
other command resolves it (--config, then SYNCMW_CONFIG, then the
platform default).`,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, name, localStorePath, tablesCSV)
		},
	}

	cmd.Flags().StringVar(&name, "name", "default", "profile name")
	cmd.Flags().StringVar(&localStorePath, "local-store-path", "", "path to the local relational store (required)")
	cmd.Flags().StringVar(&tablesCSV, "tables", "", "comma-separated list of tables to sync (required)")
	cmd.MarkFlagRequired("local-store-path")
	cmd.MarkFlagRequired("tables")

	return cmd
}

func runInit(cmd *cobra.Command, name, localStorePath, tablesCSV string) error {
	logger := buildLogger(nil)

	env := config.ReadEnvOverrides()
	path := config.ResolveConfigPath(env, flagConfigPath, logger)

	tables := splitCSV(tablesCSV)

	if _, err := os.Stat(path); err == nil {
		if err := config.AppendProfileSection(path, name, localStorePath, tables); err != nil {
			return fmt.Errorf("appending profile: %w", err)
		}
		fmt.Printf("Added profile %q to %s\n", name, path)
		return nil
	}

	if err := config.CreateConfigWithProfile(path, name, localStorePath, tables); err != nil {
		return fmt.Errorf("creating config: %w", err)
	}
	fmt.Printf("Created %s with profile %q\n", path, name)
	return nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
