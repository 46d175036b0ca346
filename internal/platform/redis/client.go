// Package redis opens the go-redis client backing the governance store.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"aegis/internal/platform/config"
	"aegis/pkg/platform/sentinel"
)

// clientName tags governance connections in CLIENT LIST.
const clientName = "aegis-governance"

// Client is a pinged go-redis client.
type Client struct {
	*redis.Client
}

// New dials the server named by cfg.URL and verifies it answers PING.
// An empty URL yields a nil client so callers fall back to memory.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.ClientName = clientName
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	c := &Client{Client: redis.NewClient(opts)}
	if err := c.Health(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// Health reports sentinel.ErrUnavailable when the server does not answer PING.
func (c *Client) Health(ctx context.Context) error {
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
