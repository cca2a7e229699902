// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/bruth/bruth/internal/config"
	"github.com/bruth/bruth/internal/xdg"
)

// Global flags available to all subcommands.
var (
	configFile string
	envFiles   []string
)

// NewRootCmd creates the root command for the Bruth CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bruth",
		Short: "Bruth - a minimal authentication service",
		Long: `Bruth registers users, verifies passwords and issues session tokens
over a small JSON/HTTP API.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML, default $XDG_CONFIG_HOME/bruth/config.yaml)")
	cmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files to read (missing files are skipped)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewUserCmd())

	return cmd
}

// loadConfig reads and validates the configuration for cmd. Without --config
// the XDG config file is used when present.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configFile
	if path == "" {
		found, err := xdg.FindConfigFile()
		if err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "find config file").Wrap(err)
		}
		path = found
	}

	cfg, err := config.Load(config.Options{
		ConfigFile: path,
		Flags:      cmd.Flags(),
		EnvFiles:   envFiles,
	})
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "validate configuration").Wrap(err)
	}
	return cfg, nil
}
