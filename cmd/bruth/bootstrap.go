// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/bruth/bruth/internal/auth"
	"github.com/bruth/bruth/internal/auth/memory"
	"github.com/bruth/bruth/internal/auth/postgres"
	"github.com/bruth/bruth/internal/auth/redis"
	"github.com/bruth/bruth/internal/auth/sqlite"
	"github.com/bruth/bruth/internal/config"
	"github.com/bruth/bruth/internal/logging"
	"github.com/bruth/bruth/internal/store"
)

// setupLogging configures the default slog logger from cfg.
func setupLogging(cfg *config.Config) *slog.Logger {
	return logging.SetDefault(logging.Options{
		Service: "bruth",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.LogLevel(),
	})
}

// storageDSN returns the migrate/open target for the configured driver.
func storageDSN(cfg *config.Config) string {
	if cfg.Storage.Driver == store.DriverPostgres {
		return cfg.Storage.URL
	}
	return cfg.Storage.Path
}

func defaultMigratorFactory(driver, dsn string) (AutoMigrator, error) {
	return store.NewMigrator(driver, dsn)
}

// runAutoMigrate applies pending migrations and always closes the migrator.
func runAutoMigrate(cfg *config.Config, factory func(driver, dsn string) (AutoMigrator, error), logger *slog.Logger) (err error) {
	migrator, err := factory(cfg.Storage.Driver, storageDSN(cfg))
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	logger.Info("migrations applied", "driver", cfg.Storage.Driver)
	return nil
}

// openBackend opens the configured user repository.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	switch cfg.Storage.Driver {
	case store.DriverPostgres:
		pool, err := store.ConnectPostgres(ctx, cfg.Storage.URL, logger)
		if err != nil {
			return nil, oops.Code("DB_CONNECT_FAILED").With("driver", cfg.Storage.Driver).Wrap(err)
		}
		return &Backend{
			Users: postgres.NewUserRepository(pool),
			Ping:  pool.Ping,
			Close: pool.Close,
		}, nil
	default:
		db, err := store.OpenSQLite(ctx, cfg.Storage.Path)
		if err != nil {
			return nil, oops.Code("DB_CONNECT_FAILED").With("driver", cfg.Storage.Driver).Wrap(err)
		}
		logger.Info("opened sqlite database", "path", cfg.Storage.Path)
		return &Backend{
			Users: sqlite.NewUserRepository(db),
			Ping:  db.PingContext,
			Close: func() {
				if err := db.Close(); err != nil {
					logger.Warn("failed to close sqlite database", "error", err)
				}
			},
		}, nil
	}
}

// newTokenAuthority builds the configured strategy. For the memory table the
// expiry sweeper runs until ctx is cancelled. The returned close function
// releases any connection and is never nil.
func newTokenAuthority(ctx context.Context, cfg *config.Config, logger *slog.Logger) (auth.TokenAuthority, func() error, error) {
	noop := func() error { return nil }

	if cfg.Token.Strategy == auth.StrategySigned {
		authority, err := auth.NewSignedTokenAuthority([]byte(cfg.Token.Secret), cfg.Token.Duration)
		if err != nil {
			return nil, nil, err
		}
		return authority, noop, nil
	}

	var (
		table   auth.TokenTable
		closeFn = noop
	)
	switch cfg.Token.Table {
	case config.TableRedis:
		redisTable, closeRedis, err := redis.Connect(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		table, closeFn = redisTable, closeRedis
	default:
		memTable := memory.NewTokenTable()
		go memTable.RunSweeper(ctx, cfg.Token.SweepInterval, logger)
		table = memTable
	}

	authority, err := auth.NewOpaqueTokenAuthority(table, cfg.Token.TTL)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return authority, closeFn, nil
}

// newCredentialStore pairs the repository with the configured hasher.
func newCredentialStore(cfg *config.Config, users auth.UserRepository, logger *slog.Logger) (*auth.CredentialStore, error) {
	hasher, err := auth.NewPasswordHasher(cfg.Hash.Algorithm, cfg.Hash.Cost)
	if err != nil {
		return nil, err
	}
	return auth.NewCredentialStoreWithLogger(users, hasher, logger)
}
