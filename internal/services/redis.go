package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisProvider owns the Redis client used for generator drafts
type RedisProvider struct {
	BaseProvider
	client *redis.Client
}

// NewRedisProvider creates a new Redis provider
func NewRedisProvider(ctx context.Context, address, password string, db int) (*RedisProvider, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("redis connected", "address", address, "db", db)

	return &RedisProvider{
		BaseProvider: BaseProvider{serviceType: "redis"},
		client:       client,
	}, nil
}

// Client returns the underlying client
func (p *RedisProvider) Client() *redis.Client {
	return p.client
}

// Purge removes every key under prefix and returns how many were deleted
func (p *RedisProvider) Purge(ctx context.Context, prefix string) (int, error) {
	return purge(ctx, p.client, prefix)
}

func purge(ctx context.Context, client redis.Cmdable, prefix string) (int, error) {
	pattern := prefix + "*"
	var cursor uint64
	var keysDeleted int

	for {
		keys, nextCursor, err := client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return keysDeleted, fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			if err := client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("failed to delete some keys", "error", err)
			} else {
				keysDeleted += len(keys)
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	slog.Info("redis keys purged", "prefix", prefix, "keys_deleted", keysDeleted)
	return keysDeleted, nil
}

// HealthCheck verifies Redis connectivity
func (p *RedisProvider) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (p *RedisProvider) Close() error {
	return p.client.Close()
}
