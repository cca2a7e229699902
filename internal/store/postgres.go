// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connection retry defaults for ConnectPostgres.
const (
	DefaultConnectRetries = 5
	DefaultConnectBackoff = 200 * time.Millisecond
)

// pinger is the part of pgxpool.Pool that connection checks need.
type pinger interface {
	Ping(ctx context.Context) error
}

// ConnectPostgres opens a pgx pool and waits for the server to answer a ping,
// retrying with exponential backoff. The database commonly starts alongside
// the service, so the first attempts may be refused.
func ConnectPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("STORE_INVALID_DSN").
			With("operation", "parse postgres dsn").
			Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("STORE_CONNECT_FAILED").
			With("operation", "create pool").
			Wrap(err)
	}

	backoff := retry.WithMaxRetries(DefaultConnectRetries, retry.NewExponential(DefaultConnectBackoff))
	if err := waitForPing(ctx, pool, backoff, logger); err != nil {
		pool.Close()
		return nil, err
	}

	logger.InfoContext(ctx, "connected to postgres",
		"host", cfg.ConnConfig.Host,
		"database", cfg.ConnConfig.Database)
	return pool, nil
}

func waitForPing(ctx context.Context, p pinger, backoff retry.Backoff, logger *slog.Logger) error {
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := p.Ping(ctx); err != nil {
			logger.WarnContext(ctx, "database not ready",
				"attempt", attempt,
				"error", err.Error())
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("STORE_CONNECT_FAILED").
			With("operation", "ping").
			With("attempts", attempt).
			Wrap(err)
	}
	return nil
}
