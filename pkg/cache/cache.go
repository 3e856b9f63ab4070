package cache

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/authwatch/authwatch/pkg/config"
	"github.com/go-redis/redis/v8"
)

// NewClient connects to Redis and verifies the connection before the engine
// starts taking traffic.
func NewClient(cfg config.RedisConfig) (*redis.Client, error) {
	options := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		options.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}
	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}
