package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/beatpage/internal/adapters/blob"
	repository "github.com/okian/beatpage/internal/adapters/repository"
)

// Environment variables read outside the BEATPAGE_ key space.
const (
	EnvPrefix  = "BEATPAGE_"
	EnvConfig  = "BEATPAGE_CONFIG"
	EnvDotFile = "BEATPAGE_ENV_FILE"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if BEATPAGE_CONFIG is set
//  3. env (prefix BEATPAGE_), after merging a .env file into the process env
func Load(_ context.Context) (*Config, error) {
	base := New()

	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if path := os.Getenv(EnvConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// BEATPAGE_REDIS_ADDR -> redis_addr. Keys are flat, so underscores stay.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv merges a .env file into the process environment without
// overriding variables that are already set. A missing file is fine.
func loadDotEnv() error {
	path := os.Getenv(EnvDotFile)
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
	}
	return nil
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}

	switch strings.ToLower(c.StoreDriver) {
	case "", repository.DriverMemory:
	case repository.DriverRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr is required for the redis store", ErrInvalidConfig)
		}
	case repository.DriverMySQL:
		if c.MySQLDSN == "" {
			return fmt.Errorf("%w: mysql_dsn is required for the mysql store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}

	switch strings.ToLower(c.BlobDriver) {
	case "", blob.DriverNone, blob.DriverMemory:
	case blob.DriverMinio:
		if c.MinioEndpoint == "" || c.MinioBucket == "" {
			return fmt.Errorf("%w: minio_endpoint and minio_bucket are required for the minio archive", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown blob_driver %q", ErrInvalidConfig, c.BlobDriver)
	}

	switch strings.ToLower(c.AddPolicy) {
	case "", "optimistic", "confirmed":
	default:
		return fmt.Errorf("%w: unknown add_policy %q", ErrInvalidConfig, c.AddPolicy)
	}

	if c.MaxPages <= 0 {
		return fmt.Errorf("%w: max_pages must be positive", ErrInvalidConfig)
	}
	return nil
}
