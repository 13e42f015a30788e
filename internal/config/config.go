// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loading and validation errors wrap this package's sentinel errors.
package config

import (
	"github.com/okian/beatpage/internal/adapters/blob"
	repository "github.com/okian/beatpage/internal/adapters/repository"
	"github.com/okian/beatpage/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFile additionally writes rotated JSON logs to this path.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the document store: memory, redis or mysql.
	StoreDriver string `koanf:"store_driver"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisPrefix   string `koanf:"redis_prefix"`

	// MySQLDSN is a go-sql-driver DSN, e.g. "user:pass@tcp(host:3306)/beatpage?parseTime=true".
	MySQLDSN string `koanf:"mysql_dsn"`

	// BlobDriver selects where uploaded audio is archived: none, memory or minio.
	BlobDriver string `koanf:"blob_driver"`

	MinioEndpoint  string `koanf:"minio_endpoint"`
	MinioAccessKey string `koanf:"minio_access_key"`
	MinioSecretKey string `koanf:"minio_secret_key"`
	MinioBucket    string `koanf:"minio_bucket"`
	MinioUseSSL    bool   `koanf:"minio_use_ssl"`
	MinioRegion    string `koanf:"minio_region"`

	// PlaceholderImage is attached to every uploaded track.
	PlaceholderImage string `koanf:"placeholder_image"`

	// AddPolicy is optimistic (echo the caller's fields) or confirmed
	// (re-read after write).
	AddPolicy string `koanf:"add_policy"`

	// MaxPages caps how many profile pages stay mounted at once.
	MaxPages int `koanf:"max_pages"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":8080",
		StoreDriver:      repository.DriverMemory,
		RedisAddr:        "127.0.0.1:6379",
		RedisPrefix:      "beatpage",
		BlobDriver:       blob.DriverNone,
		MinioBucket:      "beatpage",
		PlaceholderImage: model.PlaceholderImage,
		AddPolicy:        "optimistic",
		MaxPages:         10000,
	}
}

// StoreSettings selects the document store backend.
func (c *Config) StoreSettings() repository.Settings {
	return repository.Settings{
		Driver:        c.StoreDriver,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		RedisPrefix:   c.RedisPrefix,
		MySQLDSN:      c.MySQLDSN,
	}
}

// BlobSettings selects the upload archive backend.
func (c *Config) BlobSettings() blob.Settings {
	return blob.Settings{
		Driver:    c.BlobDriver,
		Endpoint:  c.MinioEndpoint,
		AccessKey: c.MinioAccessKey,
		SecretKey: c.MinioSecretKey,
		Bucket:    c.MinioBucket,
		Region:    c.MinioRegion,
		UseSSL:    c.MinioUseSSL,
	}
}
