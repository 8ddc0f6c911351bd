// Package redis keeps the position, trade ledger and last signal in Redis.
// Multi-key transitions run as Lua scripts so they apply all-or-nothing.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ClientConfig holds connection parameters for the Redis client.
type ClientConfig struct {
	Addr       string `json:"addr" yaml:"addr" toml:"addr"`
	Password   string `json:"password" yaml:"password" toml:"password"`
	DB         int    `json:"db" yaml:"db" toml:"db"`
	PoolSize   int    `json:"pool_size" yaml:"pool_size" toml:"pool_size"`
	MaxRetries int    `json:"max_retries" yaml:"max_retries" toml:"max_retries"`
	TLSEnabled bool   `json:"tls" yaml:"tls" toml:"tls"`
	// Prefix namespaces every key, default "signalbot".
	Prefix string `json:"prefix" yaml:"prefix" toml:"prefix"`
}

// Dial creates a client and pings it.
func Dial(ctx context.Context, cfg ClientConfig) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return rdb, nil
}
