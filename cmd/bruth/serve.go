// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/bruth/bruth/internal/api"
	"github.com/bruth/bruth/internal/auth"
	"github.com/bruth/bruth/internal/config"
	"github.com/bruth/bruth/internal/observability"
)

// shutdownTimeout bounds graceful shutdown of both servers.
const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the auth API server",
		Long: `Start the JSON/HTTP auth API (register, login, verify, logout) and,
when metrics.addr is set, the metrics and health probe server.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}
}

func (deps *ServeDeps) withDefaults() *ServeDeps {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = defaultMigratorFactory
	}
	if deps.BackendFactory == nil {
		deps.BackendFactory = openBackend
	}
	if deps.TokenAuthorityFactory == nil {
		deps.TokenAuthorityFactory = newTokenAuthority
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, ready, logger)
		}
	}
	if deps.APIServerFactory == nil {
		deps.APIServerFactory = func(cfg api.ServerConfig, handler http.Handler, logger *slog.Logger) APIServer {
			return api.NewServer(cfg, handler, logger)
		}
	}
	return deps
}

// runServeWithDeps starts the servers with injectable dependencies and
// blocks until a signal, a server failure or ctx cancellation.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()
	if ctx == nil {
		ctx = context.Background()
	}

	logger := setupLogging(cfg)
	logger.Info("starting bruth",
		"version", version,
		"api_addr", cfg.Server.Addr,
		"storage", cfg.Storage.Driver,
		"token_strategy", cfg.Token.Strategy)

	if cfg.Storage.AutoMigrate {
		if err := runAutoMigrate(cfg, deps.MigratorFactory, logger); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stack, err := buildService(ctx, cfg, deps, logger)
	if err != nil {
		return err
	}
	defer stack.cleanup()

	handler, err := api.NewHandler(stack.svc, logger)
	if err != nil {
		return oops.Code("SERVE_INIT_FAILED").With("component", "api handler").Wrap(err)
	}

	routerOpts := api.RouterOptions{Logger: logger, RequestTimeout: cfg.Server.RequestTimeout}

	var obsServer ObservabilityServer
	var obsErrChan <-chan error
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, stack.ping, logger)
		obsErrChan, err = obsServer.Start()
		if err != nil {
			return oops.Code("SERVE_INIT_FAILED").With("component", "observability server").Wrap(err)
		}
		routerOpts.Metrics = obsServer.Metrics()
	}

	apiServer := deps.APIServerFactory(api.ServerConfig{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, api.NewRouter(handler, routerOpts), logger)

	apiErrChan, err := apiServer.Start()
	if err != nil {
		stopServer(obsServer, logger, "observability")
		return oops.Code("SERVE_INIT_FAILED").With("component", "api server").Wrap(err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Bruth started on " + apiServer.Addr())
	if deps.Started != nil {
		deps.Started(apiServer.Addr())
	}

	var serveErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case err, ok := <-apiErrChan:
		if ok && err != nil {
			serveErr = oops.Code("SERVE_FAILED").With("server", "api").Wrap(err)
		}
	case err, ok := <-obsErrChan:
		if ok && err != nil {
			serveErr = oops.Code("SERVE_FAILED").With("server", "observability").Wrap(err)
		}
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	stopServer(apiServer, logger, "api")
	stopServer(obsServer, logger, "observability")
	logger.Info("shutdown complete")

	return serveErr
}

// serviceStack is an assembled auth.Service and the resources behind it.
type serviceStack struct {
	svc     *auth.Service
	ping    observability.ReadinessChecker
	cleanup func()
}

// buildService opens storage and the token strategy and assembles the auth
// service. cleanup releases everything in reverse order.
func buildService(ctx context.Context, cfg *config.Config, deps *ServeDeps, logger *slog.Logger) (*serviceStack, error) {
	backend, err := deps.BackendFactory(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	credentials, err := newCredentialStore(cfg, backend.Users, logger)
	if err != nil {
		backend.Close()
		return nil, oops.Code("SERVE_INIT_FAILED").With("component", "credential store").Wrap(err)
	}

	tokens, closeTokens, err := deps.TokenAuthorityFactory(ctx, cfg, logger)
	if err != nil {
		backend.Close()
		return nil, oops.Code("SERVE_INIT_FAILED").With("component", "token authority").Wrap(err)
	}

	cleanup := func() {
		if closeErr := closeTokens(); closeErr != nil {
			logger.Warn("failed to close token table", "error", closeErr)
		}
		backend.Close()
	}

	svc, err := auth.NewServiceWithLogger(credentials, tokens, logger)
	if err != nil {
		cleanup()
		return nil, oops.Code("SERVE_INIT_FAILED").With("component", "auth service").Wrap(err)
	}
	return &serviceStack{svc: svc, ping: backend.Ping, cleanup: cleanup}, nil
}

type stopper interface {
	Stop(ctx context.Context) error
}

func stopServer(s stopper, logger *slog.Logger, name string) {
	if s == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping server", "server", name, "error", err)
	}
}
