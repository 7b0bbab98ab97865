// Package middleware provides the HTTP middleware for the VitalForm API.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	RateLimitHeader          = "X-RateLimit-Limit"
	RateLimitRemainingHeader = "X-RateLimit-Remaining"
	RateLimitResetHeader     = "X-RateLimit-Reset"
)

// RateLimitConfig controls request throttling for an endpoint group.
type RateLimitConfig struct {
	// Requests allowed per window.
	Requests int
	// Window duration.
	Window time.Duration
	// KeyFunc extracts the throttling key from the request.
	KeyFunc func(*gin.Context) string
	// SkipFunc bypasses limiting for matching requests.
	SkipFunc func(*gin.Context) bool
}

// OTPRateLimitConfig throttles code issuance per client IP. The window is
// deliberately tight: a legitimate user needs one code, not dozens.
func OTPRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Requests: 5,
		Window:   time.Minute,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	}
}

// RateLimiter throttles requests using Redis when available and an in-process
// map otherwise. Limit checks that error out fail open.
type RateLimiter struct {
	config RateLimitConfig
	redis  *redis.Client
	logger *zap.Logger

	mu       sync.Mutex
	localMap map[string]*rateLimitEntry
}

type rateLimitEntry struct {
	count     int
	resetTime time.Time
}

func NewRateLimiter(config RateLimitConfig, redisClient *redis.Client, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		config:   config,
		redis:    redisClient,
		logger:   logger,
		localMap: make(map[string]*rateLimitEntry),
	}
}

// Middleware returns the gin handler enforcing the limit.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.config.SkipFunc != nil && rl.config.SkipFunc(c) {
			c.Next()
			return
		}

		key := rl.config.KeyFunc(c)
		allowed, remaining, resetTime, err := rl.checkAndUpdate(c.Request.Context(), key)
		if err != nil {
			rl.logger.Error("rate limit check failed", zap.Error(err), zap.String("key", key))
			c.Next()
			return
		}

		c.Header(RateLimitHeader, strconv.Itoa(rl.config.Requests))
		c.Header(RateLimitRemainingHeader, strconv.Itoa(remaining))
		c.Header(RateLimitResetHeader, strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests. Try again shortly.",
				"retry_after": resetTime.Unix() - time.Now().Unix(),
			})
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) checkAndUpdate(ctx context.Context, key string) (bool, int, time.Time, error) {
	if rl.redis != nil {
		return rl.checkAndUpdateRedis(ctx, key)
	}
	return rl.checkAndUpdateLocal(key)
}

// checkAndUpdateRedis increments atomically via a Lua script so concurrent
// instances share one counter.
func (rl *RateLimiter) checkAndUpdateRedis(ctx context.Context, key string) (bool, int, time.Time, error) {
	redisKey := "ratelimit:" + key
	windowSeconds := int(rl.config.Window.Seconds())

	script := `
		local key = KEYS[1]
		local limit = tonumber(ARGV[1])
		local window = tonumber(ARGV[2])

		local current = redis.call("GET", key)
		if current == false then
			current = 0
		else
			current = tonumber(current)
		end

		if current >= limit then
			local ttl = redis.call("TTL", key)
			return {0, limit - current, ttl}
		end

		current = redis.call("INCR", key)
		if current == 1 then
			redis.call("EXPIRE", key, window)
		end

		local ttl = redis.call("TTL", key)
		return {1, limit - current, ttl}
	`

	result, err := rl.redis.Eval(ctx, script, []string{redisKey}, rl.config.Requests, windowSeconds).Result()
	if err != nil {
		return false, 0, time.Time{}, err
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 3 {
		return false, 0, time.Time{}, fmt.Errorf("unexpected redis response format")
	}

	allowed, ok := values[0].(int64)
	if !ok {
		return false, 0, time.Time{}, fmt.Errorf("unexpected type for allowed value")
	}
	remaining, ok := values[1].(int64)
	if !ok {
		return false, 0, time.Time{}, fmt.Errorf("unexpected type for remaining value")
	}
	ttl, ok := values[2].(int64)
	if !ok {
		return false, 0, time.Time{}, fmt.Errorf("unexpected type for ttl value")
	}

	resetTime := time.Now().Add(time.Duration(ttl) * time.Second)
	return allowed == 1, int(remaining), resetTime, nil
}

func (rl *RateLimiter) checkAndUpdateLocal(key string) (bool, int, time.Time, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	// Opportunistic cleanup once the map grows.
	if len(rl.localMap) > 100 {
		for k, entry := range rl.localMap {
			if now.After(entry.resetTime) {
				delete(rl.localMap, k)
			}
		}
	}

	entry, exists := rl.localMap[key]
	if !exists || now.After(entry.resetTime) {
		rl.localMap[key] = &rateLimitEntry{
			count:     1,
			resetTime: now.Add(rl.config.Window),
		}
		return true, rl.config.Requests - 1, now.Add(rl.config.Window), nil
	}

	if entry.count >= rl.config.Requests {
		return false, 0, entry.resetTime, nil
	}

	entry.count++
	return true, rl.config.Requests - entry.count, entry.resetTime, nil
}

// Reset clears the counter for a key.
func (rl *RateLimiter) Reset(ctx context.Context, key string) error {
	if rl.redis != nil {
		return rl.redis.Del(ctx, "ratelimit:"+key).Err()
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.localMap, key)
	return nil
}
