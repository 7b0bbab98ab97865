package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vitalform/backend-api/internal/config"
	"github.com/vitalform/backend-api/internal/logging"
	"go.uber.org/zap"
)

// RedisClient wraps a Redis client. The service treats Redis as optional:
// it backs the OTP-request rate limiter, which falls back to a local map.
type RedisClient struct {
	Client *redis.Client
	logger *zap.Logger
}

// NewRedisConnection creates and pings a Redis connection.
func NewRedisConnection(cfg config.RedisConfig) (*RedisClient, error) {
	logger := logging.Default().WithComponent("redis")

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis")

	return &RedisClient{Client: rdb, logger: logger}, nil
}

// Close closes the connection, logging rather than returning errors.
func (r *RedisClient) Close() {
	if r == nil || r.Client == nil {
		return
	}
	if err := r.Client.Close(); err != nil {
		r.logger.Error("Error closing Redis client", zap.Error(err))
		return
	}
	r.logger.Info("Redis connection closed")
}

// HealthCheck verifies the connection.
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return r.Client.Ping(ctx).Err()
}

// Set stores a key with a TTL.
func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if r == nil || r.Client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return r.Client.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value by key.
func (r *RedisClient) Get(ctx context.Context, key string) (string, error) {
	if r == nil || r.Client == nil {
		return "", fmt.Errorf("redis client is nil")
	}
	return r.Client.Get(ctx, key).Result()
}

// Delete removes keys.
func (r *RedisClient) Delete(ctx context.Context, keys ...string) error {
	if r == nil || r.Client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return r.Client.Del(ctx, keys...).Err()
}

// Exists reports how many of the given keys exist.
func (r *RedisClient) Exists(ctx context.Context, keys ...string) (int64, error) {
	if r == nil || r.Client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	return r.Client.Exists(ctx, keys...).Result()
}
