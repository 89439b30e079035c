package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"pong-arena/internal/config"
)

// RedisPublisher mirrors events onto Redis pub/sub channels so that
// other processes (or a future multi-node deployment) can observe the
// tournament feed and user notifications.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher connects to Redis and verifies the connection.
func NewRedisPublisher(ctx context.Context, cfg config.RedisConfig) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr, err)
	}
	return &RedisPublisher{client: client}, nil
}

// Publish sends the event as JSON on the named channel.
func (p *RedisPublisher) Publish(ctx context.Context, channel string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, channel, data).Err()
}

// Close releases the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
