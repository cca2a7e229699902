// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

// Package redis provides an auth.TokenTable backed by Redis so that several
// service instances can share opaque sessions.
package redis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/bruth/bruth/internal/auth"
)

// DefaultKeyPrefix namespaces token keys.
const DefaultKeyPrefix = "bruth:token:"

// Startup connection retry policy.
const (
	DefaultConnectRetries = 5
	DefaultConnectBackoff = 200 * time.Millisecond
)

// client is the subset of the go-redis API used by TokenTable.
// *goredis.Client satisfies it.
type client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.BoolCmd
	Get(ctx context.Context, key string) *goredis.StringCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
	Ping(ctx context.Context) *goredis.StatusCmd
}

// Options configures the connection made by Connect.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// TokenTable implements auth.TokenTable on Redis. Expiry is delegated to
// key TTLs; Redis removes expired keys itself.
type TokenTable struct {
	client client
	prefix string
}

// NewTokenTable wraps an existing client. An empty prefix uses DefaultKeyPrefix.
func NewTokenTable(c client, prefix string) *TokenTable {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &TokenTable{client: c, prefix: prefix}
}

// Connect creates a client for opts and waits for Redis to answer a ping.
// The returned close function releases the connection pool.
func Connect(ctx context.Context, opts Options, logger *slog.Logger) (*TokenTable, func() error, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	table := NewTokenTable(rdb, opts.Prefix)
	backoff := retry.WithMaxRetries(DefaultConnectRetries, retry.NewExponential(DefaultConnectBackoff))
	if err := table.WaitReady(ctx, backoff, logger); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}

	logger.InfoContext(ctx, "connected to redis", "addr", opts.Addr, "db", opts.DB)
	return table, rdb.Close, nil
}

// WaitReady pings until Redis answers or backoff gives up.
func (t *TokenTable) WaitReady(ctx context.Context, backoff retry.Backoff, logger *slog.Logger) error {
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := t.Ping(ctx); err != nil {
			logger.WarnContext(ctx, "redis not ready",
				"attempt", attempt,
				"error", err.Error())
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("REDIS_UNAVAILABLE").
			With("operation", "wait ready").
			With("attempts", attempt).
			Wrap(err)
	}
	return nil
}

// Ping verifies Redis connectivity.
func (t *TokenTable) Ping(ctx context.Context) error {
	if err := t.client.Ping(ctx).Err(); err != nil {
		return oops.Code("REDIS_UNAVAILABLE").
			With("operation", "ping").
			Wrap(err)
	}
	return nil
}

func (t *TokenTable) key(digest string) string {
	return t.prefix + digest
}

// Put implements auth.TokenTable using SET NX.
func (t *TokenTable) Put(ctx context.Context, digest string, userID ulid.ULID, ttl time.Duration) error {
	ok, err := t.client.SetNX(ctx, t.key(digest), userID.String(), ttl).Result()
	if err != nil {
		return oops.Code("TOKEN_STORE_FAILED").
			With("operation", "setnx").
			Wrap(err)
	}
	if !ok {
		return oops.Code("TOKEN_DUPLICATE").Wrap(auth.ErrConflict)
	}
	return nil
}

// Get implements auth.TokenTable.
func (t *TokenTable) Get(ctx context.Context, digest string) (ulid.ULID, error) {
	val, err := t.client.Get(ctx, t.key(digest)).Result()
	if errors.Is(err, goredis.Nil) {
		return ulid.ULID{}, auth.ErrNotFound
	}
	if err != nil {
		return ulid.ULID{}, oops.Code("TOKEN_LOOKUP_FAILED").
			With("operation", "get").
			Wrap(err)
	}

	userID, err := ulid.Parse(val)
	if err != nil {
		return ulid.ULID{}, oops.Code("TOKEN_CORRUPT").
			With("operation", "parse user id").
			Wrap(err)
	}
	return userID, nil
}

// Delete implements auth.TokenTable. DEL reports how many keys it removed,
// so concurrent deletes of one digest see exactly one success.
func (t *TokenTable) Delete(ctx context.Context, digest string) error {
	n, err := t.client.Del(ctx, t.key(digest)).Result()
	if err != nil {
		return oops.Code("TOKEN_DELETE_FAILED").
			With("operation", "del").
			Wrap(err)
	}
	if n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// Compile-time interface checks.
var (
	_ auth.TokenTable = (*TokenTable)(nil)
	_ client          = (*goredis.Client)(nil)
)
