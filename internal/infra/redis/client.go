// Package redis owns the connection to the attempt-log store used for
// login throttling.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/juanjice29/PortalCapacitaciones/internal/infra/config"
)

const connectTimeout = 5 * time.Second

// Client wraps the go-redis pool so the app layer controls its lifecycle.
type Client struct {
	client *redis.Client
	logger *zap.Logger
}

// NewClient opens the pool and verifies connectivity with a ping before
// handing the client out.
func NewClient(cfg config.RedisSettings, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     16,
		MinIdleConns: 4,
		MaxRetries:   3,

		DialTimeout:  connectTimeout,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolTimeout:  4 * time.Second,

		ConnMaxIdleTime: 10 * time.Minute,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	logger.Info("redis connected",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.Int("db", cfg.DB),
		zap.Bool("tls", cfg.TLSEnabled))

	return &Client{client: client, logger: logger}, nil
}

// Client exposes the underlying pool for the repositories.
func (c *Client) Client() *redis.Client {
	return c.client
}

// Close drains the pool during shutdown.
func (c *Client) Close() error {
	c.logger.Info("closing redis pool")
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("close redis pool: %w", err)
	}
	return nil
}
