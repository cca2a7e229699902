// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

package config

import (
	"log/slog"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"

	"github.com/bruth/bruth/internal/auth"
	"github.com/bruth/bruth/internal/logging"
	"github.com/bruth/bruth/internal/store"
)

func invalid(key string, value any, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").
		With("key", key).
		With("value", value).
		Errorf(format, args...)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return invalid("server.addr", c.Server.Addr, "server address is required")
	}
	if c.Server.RequestTimeout < 0 {
		return invalid("server.request_timeout", c.Server.RequestTimeout.String(), "request timeout cannot be negative")
	}

	if err := logging.ValidateFormat(c.Log.Format); err != nil {
		return oops.Code("CONFIG_INVALID").With("key", "log.format").Wrap(err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.Code("CONFIG_INVALID").With("key", "log.level").Wrap(err)
	}

	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateToken(); err != nil {
		return err
	}
	return c.validateHash()
}

func (c *Config) validateStorage() error {
	switch c.Storage.Driver {
	case store.DriverSQLite:
		if c.Storage.Path == "" {
			return invalid("storage.path", c.Storage.Path, "sqlite storage requires a path")
		}
	case store.DriverPostgres:
		if c.Storage.URL == "" {
			return invalid("storage.url", "", "postgres storage requires a url (set %s)", EnvDatabaseURL)
		}
	default:
		return invalid("storage.driver", c.Storage.Driver,
			"storage driver must be %q or %q", store.DriverSQLite, store.DriverPostgres)
	}
	return nil
}

func (c *Config) validateToken() error {
	switch c.Token.Strategy {
	case auth.StrategySigned:
		if len(c.Token.Secret) < auth.MinSigningSecretLength {
			// never echo the secret
			return invalid("token.secret", len(c.Token.Secret),
				"signed tokens require a secret of at least %d bytes (set %s)",
				auth.MinSigningSecretLength, EnvTokenSecret)
		}
		if c.Token.Duration <= 0 {
			return invalid("token.duration", c.Token.Duration.String(), "token duration must be positive")
		}
	case auth.StrategyOpaque:
		if c.Token.TTL < 0 {
			return invalid("token.ttl", c.Token.TTL.String(), "token ttl cannot be negative")
		}
		switch c.Token.Table {
		case TableMemory:
			if c.Token.SweepInterval <= 0 {
				return invalid("token.sweep_interval", c.Token.SweepInterval.String(), "sweep interval must be positive")
			}
		case TableRedis:
			if c.Redis.Addr == "" {
				return invalid("redis.addr", "", "redis token table requires an address")
			}
		default:
			return invalid("token.table", c.Token.Table, "token table must be %q or %q", TableMemory, TableRedis)
		}
	default:
		return invalid("token.strategy", c.Token.Strategy,
			"token strategy must be %q or %q", auth.StrategyOpaque, auth.StrategySigned)
	}
	return nil
}

func (c *Config) validateHash() error {
	switch c.Hash.Algorithm {
	case auth.AlgorithmArgon2id:
		if c.Hash.Cost < 0 || c.Hash.Cost > auth.MaxArgon2idTime {
			return invalid("hash.cost", c.Hash.Cost, "argon2id cost must be between 0 and %d", auth.MaxArgon2idTime)
		}
	case auth.AlgorithmBcrypt:
		if c.Hash.Cost != 0 && (c.Hash.Cost < bcrypt.MinCost || c.Hash.Cost > bcrypt.MaxCost) {
			return invalid("hash.cost", c.Hash.Cost, "bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
		}
	default:
		return invalid("hash.algorithm", c.Hash.Algorithm,
			"hash algorithm must be %q or %q", auth.AlgorithmArgon2id, auth.AlgorithmBcrypt)
	}
	return nil
}

// LogLevel returns the parsed log level. Call after Validate.
func (c *Config) LogLevel() slog.Level {
	level, _ := logging.ParseLevel(c.Log.Level)
	return level
}
