// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

// Package config loads service configuration from flags, a YAML file,
// .env files and the environment.
package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config is the complete service configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
	Storage StorageConfig `koanf:"storage"`
	Token   TokenConfig   `koanf:"token"`
	Redis   RedisConfig   `koanf:"redis"`
	Hash    HashConfig    `koanf:"hash"`
}

// ServerConfig configures the API listener.
type ServerConfig struct {
	Addr           string        `koanf:"addr"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// MetricsConfig configures the observability listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// StorageConfig selects the credential store backend.
type StorageConfig struct {
	Driver      string `koanf:"driver"`
	Path        string `koanf:"path"`
	URL         string `koanf:"url"`
	AutoMigrate bool   `koanf:"auto_migrate"`
}

// TokenConfig selects and tunes the token strategy.
type TokenConfig struct {
	Strategy      string        `koanf:"strategy"`
	Secret        string        `koanf:"secret"`
	Duration      time.Duration `koanf:"duration"`
	TTL           time.Duration `koanf:"ttl"`
	Table         string        `koanf:"table"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// RedisConfig configures the Redis token table.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

// HashConfig selects the password hashing algorithm. Zero cost means the
// algorithm default.
type HashConfig struct {
	Algorithm string `koanf:"algorithm"`
	Cost      int    `koanf:"cost"`
}

// Environment variables that override file values.
const (
	EnvDatabaseURL   = "DATABASE_URL"
	EnvTokenSecret   = "BRUTH_TOKEN_SECRET"
	EnvRedisAddr     = "BRUTH_REDIS_ADDR"
	EnvRedisPassword = "BRUTH_REDIS_PASSWORD"
)

var envKeys = map[string]string{
	EnvDatabaseURL:   "storage.url",
	EnvTokenSecret:   "token.secret",
	EnvRedisAddr:     "redis.addr",
	EnvRedisPassword: "redis.password",
}

// Options controls where Load reads from.
type Options struct {
	// ConfigFile is an optional YAML file. Empty skips it.
	ConfigFile string
	// Flags carries defaults and command-line overrides. Nil uses a fresh
	// set from NewFlagSet.
	Flags *pflag.FlagSet
	// EnvFiles are .env files read with godotenv. Missing files are ignored.
	EnvFiles []string
	// LookupEnv reads the process environment. Nil uses os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load assembles the configuration. Precedence, lowest first: flag
// defaults, the YAML file, .env files, the environment, explicitly set flags.
func Load(opts Options) (*Config, error) {
	if opts.Flags == nil {
		opts.Flags = NewFlagSet()
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}

	k := koanf.New(".")

	if opts.ConfigFile != "" {
		if err := k.Load(file.Provider(opts.ConfigFile), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("file", opts.ConfigFile).
				Wrap(err)
		}
	}

	env, err := readEnvFiles(opts.EnvFiles)
	if err != nil {
		return nil, err
	}
	for name, key := range envKeys {
		value, ok := opts.LookupEnv(name)
		if !ok {
			value, ok = env[name]
		}
		if !ok || value == "" {
			continue
		}
		if err := k.Set(key, value); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("env", name).Wrap(err)
		}
	}

	// Unchanged flags only fill keys the file and environment left unset.
	if err := k.Load(posflag.Provider(opts.Flags, ".", k), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal").Wrap(err)
	}
	return &cfg, nil
}

func readEnvFiles(paths []string) (map[string]string, error) {
	merged := map[string]string{}
	for _, path := range paths {
		values, err := godotenv.Read(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("env_file", path).Wrap(err)
		}
		for name, value := range values {
			merged[name] = value
		}
	}
	return merged, nil
}
