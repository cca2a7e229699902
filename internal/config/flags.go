// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

package config

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/bruth/bruth/internal/auth"
	"github.com/bruth/bruth/internal/auth/redis"
	"github.com/bruth/bruth/internal/logging"
	"github.com/bruth/bruth/internal/store"
)

// Default values for configuration keys.
const (
	DefaultServerAddr     = "127.0.0.1:8080"
	DefaultMetricsAddr    = "127.0.0.1:9100"
	DefaultSQLitePath     = "bruth.db"
	DefaultTokenDuration  = time.Hour
	DefaultTokenTTL       = 24 * time.Hour
	DefaultSweepInterval  = time.Minute
	DefaultRequestTimeout = 5 * time.Second
	DefaultIOTimeout      = 10 * time.Second

	TableMemory = "memory"
	TableRedis  = "redis"
)

// NewFlagSet returns a flag set carrying every configuration key with its
// default. Flag names are the koanf keys.
func NewFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("bruth", pflag.ContinueOnError)
	RegisterFlags(fs)
	return fs
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("server.addr", DefaultServerAddr, "API listen address")
	fs.Duration("server.read_timeout", DefaultIOTimeout, "HTTP read timeout")
	fs.Duration("server.write_timeout", DefaultIOTimeout, "HTTP write timeout")
	fs.Duration("server.request_timeout", DefaultRequestTimeout, "per-request handler timeout")

	fs.String("metrics.addr", DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")

	fs.String("log.format", logging.FormatJSON, "log format (json or text)")
	fs.String("log.level", "info", "log level (debug, info, warn, error)")

	fs.String("storage.driver", store.DriverSQLite, "credential store driver (sqlite or postgres)")
	fs.String("storage.path", DefaultSQLitePath, "sqlite database file")
	fs.String("storage.url", "", "postgres connection URL (or DATABASE_URL)")
	fs.Bool("storage.auto_migrate", true, "apply pending migrations on startup")

	fs.String("token.strategy", auth.StrategyOpaque, "token strategy (opaque or signed)")
	fs.String("token.secret", "", "signing secret for signed tokens (or BRUTH_TOKEN_SECRET)")
	fs.Duration("token.duration", DefaultTokenDuration, "signed token lifetime")
	fs.Duration("token.ttl", DefaultTokenTTL, "opaque token lifetime (0 = until logout)")
	fs.String("token.table", TableMemory, "opaque token table (memory or redis)")
	fs.Duration("token.sweep_interval", DefaultSweepInterval, "memory table expiry sweep interval")

	fs.String("redis.addr", "127.0.0.1:6379", "redis address")
	fs.String("redis.password", "", "redis password")
	fs.Int("redis.db", 0, "redis database number")
	fs.String("redis.prefix", redis.DefaultKeyPrefix, "redis key prefix")

	fs.String("hash.algorithm", auth.AlgorithmArgon2id, "password hash algorithm (argon2id or bcrypt)")
	fs.Int("hash.cost", 0, "hash cost (0 = algorithm default)")
}
