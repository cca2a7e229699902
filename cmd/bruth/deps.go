// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/bruth/bruth/internal/api"
	"github.com/bruth/bruth/internal/auth"
	"github.com/bruth/bruth/internal/config"
	"github.com/bruth/bruth/internal/observability"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// MigratorFactory creates a migrator for the configured driver.
	// Default: store.NewMigrator
	MigratorFactory func(driver, dsn string) (AutoMigrator, error)

	// BackendFactory opens the user repository.
	// Default: openBackend
	BackendFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error)

	// TokenAuthorityFactory builds the configured token strategy.
	// Default: newTokenAuthority
	TokenAuthorityFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (auth.TokenAuthority, func() error, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// APIServerFactory creates the API server.
	// Default: api.NewServer
	APIServerFactory func(cfg api.ServerConfig, handler http.Handler, logger *slog.Logger) APIServer

	// Started is called with the API address once serving begins.
	Started func(apiAddr string)
}

// AutoMigrator is the part of store.Migrator startup needs.
type AutoMigrator interface {
	Up() error
	Close() error
}

// Backend is an opened user repository with its health check.
type Backend struct {
	Users auth.UserRepository
	Ping  func(ctx context.Context) error
	Close func()
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// APIServer interface wraps the methods used from api.Server.
type APIServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}
