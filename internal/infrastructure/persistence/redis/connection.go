package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/yuzvak/checkout-service/internal/config"
	"github.com/yuzvak/checkout-service/internal/infrastructure/monitoring"
)

type Connection struct {
	client *redis.Client
}

func NewConnection(ctx context.Context, cfg config.RedisConfig) (*Connection, error) {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 20
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: poolSize,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewConnectionFromClient(client), nil
}

// NewConnectionFromClient wraps an existing client and instruments it.
func NewConnectionFromClient(client *redis.Client) *Connection {
	return &Connection{
		client: monitoring.InstrumentRedisClient(client),
	}
}

func (c *Connection) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Connection) Close() error {
	return c.client.Close()
}

func (c *Connection) GetClient() *redis.Client {
	return c.client
}
