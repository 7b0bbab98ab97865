package database

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalform/backend-api/internal/config"
)

func newTestRedis(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	host, portStr, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	client, err := NewRedisConnection(config.RedisConfig{Host: host, Port: port})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client, mr
}

func TestNewRedisConnection_Unreachable(t *testing.T) {
	_, err := NewRedisConnection(config.RedisConfig{Host: "127.0.0.1", Port: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}

func TestRedisSetGet(t *testing.T) {
	client, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "otp:alice", "123456", time.Minute))

	value, err := client.Get(ctx, "otp:alice")
	require.NoError(t, err)
	assert.Equal(t, "123456", value)

	_, err = client.Get(ctx, "missing")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestRedisExpiry(t *testing.T) {
	client, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "k", "v", time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := client.Get(ctx, "k")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestRedisDeleteAndExists(t *testing.T) {
	client, _ := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "a", "1", 0))
	require.NoError(t, client.Set(ctx, "b", "2", 0))

	count, err := client.Exists(ctx, "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, client.Delete(ctx, "a", "b"))

	count, err = client.Exists(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestRedisNilClient(t *testing.T) {
	var client *RedisClient

	assert.Error(t, client.HealthCheck(context.Background()))
	assert.Error(t, client.Set(context.Background(), "k", "v", 0))
	_, err := client.Get(context.Background(), "k")
	assert.Error(t, err)
	client.Close()
}

func TestRedisHealthCheck(t *testing.T) {
	client, mr := newTestRedis(t)
	assert.NoError(t, client.HealthCheck(context.Background()))

	mr.Close()
	assert.Error(t, client.HealthCheck(context.Background()))
}
