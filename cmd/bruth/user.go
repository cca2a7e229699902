// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/bruth/bruth/internal/config"
	"github.com/bruth/bruth/internal/logging"
)

// NewUserCmd creates the user administration command group.
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Administer user accounts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "verify LOGIN",
		Short: "Mark a user's email address as verified",
		Long:  `Mark the user identified by LOGIN (username or email) as verified.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runUserVerifyWithDeps(cmd.Context(), cfg, cmd, nil, args[0])
		},
	})

	return cmd
}

// runUserVerifyWithDeps marks login as verified. Only storage is opened; the
// token strategy is not needed.
func runUserVerifyWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps, login string) error {
	deps = deps.withDefaults()
	if ctx == nil {
		ctx = context.Background()
	}

	// Command output goes to stdout; logs stay on stderr at warn and above.
	logger := logging.Setup(logging.Options{
		Service: "bruth",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   slog.LevelWarn,
	}, cmd.ErrOrStderr())

	backend, err := deps.BackendFactory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	credentials, err := newCredentialStore(cfg, backend.Users, logger)
	if err != nil {
		return oops.Code("USER_CMD_INIT_FAILED").With("component", "credential store").Wrap(err)
	}

	user, err := credentials.FindByLogin(ctx, login)
	if err != nil {
		return err
	}
	if err := credentials.MarkVerified(ctx, user.ID); err != nil {
		return err
	}
	cmd.Printf("User %s <%s> verified (id %s)\n", user.Username, user.Email, user.ID)
	return nil
}
