// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/bruth/bruth/internal/config"
	"github.com/bruth/bruth/internal/store"
)

// schemaMigrator is the part of store.Migrator the migrate commands use.
type schemaMigrator interface {
	Up() error
	Down() error
	Version() (uint, bool, error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	AppliedMigrations() ([]uint, error)
	Close() error
}

// newSchemaMigrator is replaced in tests.
var newSchemaMigrator = func(driver, dsn string) (schemaMigrator, error) {
	return store.NewMigrator(driver, dsn)
}

// NewMigrateCmd creates the migrate command group. Without a subcommand it
// applies all pending migrations.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply, inspect or repair the credential store schema for the configured driver.`,
		RunE:  runMigrateUp,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  runMigrateUp,
	})

	var confirm bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration (drops all users)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return oops.Code("CONFIRMATION_REQUIRED").Errorf("down drops all data; re-run with --yes")
			}
			return withMigrator(cmd, func(_ *config.Config, m schemaMigrator) error {
				if err := m.Down(); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "roll back").Wrap(err)
				}
				cmd.Println("All migrations rolled back")
				return nil
			})
		},
	}
	down.Flags().BoolVar(&confirm, "yes", false, "confirm dropping all data")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, printMigrationStatus(cmd))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Long: `Mark the schema as being at VERSION and clear the dirty flag. Use only
after repairing a failed migration by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return withMigrator(cmd, func(_ *config.Config, m schemaMigrator) error {
				if err := m.Force(version); err != nil {
					return oops.Code("MIGRATION_FAILED").With("operation", "force version").Wrap(err)
				}
				cmd.Printf("Schema version forced to %d\n", version)
				return nil
			})
		},
	})

	return cmd
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	return withMigrator(cmd, func(cfg *config.Config, m schemaMigrator) error {
		cmd.Println("Running migrations...")
		if err := m.Up(); err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
		}
		version, _, err := m.Version()
		if err != nil {
			return err
		}
		cmd.Printf("Migrations completed successfully (%s at version %d)\n", cfg.Storage.Driver, version)
		return nil
	})
}

// withMigrator loads the configuration, opens a migrator for it and always
// closes the migrator after fn.
func withMigrator(cmd *cobra.Command, fn func(cfg *config.Config, m schemaMigrator) error) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	m, err := newSchemaMigrator(cfg.Storage.Driver, storageDSN(cfg))
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return fn(cfg, m)
}

func printMigrationStatus(cmd *cobra.Command) func(*config.Config, schemaMigrator) error {
	return func(cfg *config.Config, m schemaMigrator) error {
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		applied, err := m.AppliedMigrations()
		if err != nil {
			return err
		}
		pending, err := m.PendingMigrations()
		if err != nil {
			return err
		}

		cmd.Printf("Driver:  %s\n", cfg.Storage.Driver)
		state := "clean"
		if dirty {
			state = "DIRTY (repair, then run 'migrate force')"
		}
		cmd.Printf("Version: %d (%s)\n", version, state)
		cmd.Println(formatMigrations(cfg.Storage.Driver, "Applied", applied))
		cmd.Println(formatMigrations(cfg.Storage.Driver, "Pending", pending))
		return nil
	}
}

func formatMigrations(driver, title string, versions []uint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d):", title, len(versions))
	if len(versions) == 0 {
		b.WriteString(" none")
	}
	for _, v := range versions {
		name, err := store.MigrationName(driver, v)
		if err != nil || name == "" {
			name = fmt.Sprintf("%06d_unknown", v)
		}
		fmt.Fprintf(&b, "\n  %s", name)
	}
	return b.String()
}

// parseForceVersion reads a migration version argument.
func parseForceVersion(s string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(s, "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Wrap(err)
	}
	return version, nil
}
