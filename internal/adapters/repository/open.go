package repository

import (
	"context"
	"fmt"
	"strings"
)

// Supported store drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverMySQL  = "mysql"
)

// Settings selects and configures a backend.
type Settings struct {
	Driver        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	MySQLDSN      string
}

// Open connects the backend named by settings.Driver.
func Open(ctx context.Context, settings Settings) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(settings.Driver)) {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverRedis:
		s, err := ConnectRedis(ctx, settings.RedisAddr, settings.RedisPassword, settings.RedisDB,
			WithRedisPrefix(settings.RedisPrefix))
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverMySQL:
		s, err := ConnectMySQL(settings.MySQLDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, settings.Driver)
	}
}
