package services

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/Wikid82/warden/internal/config"
)

// SubmissionLimiter caps how many submissions a key (client address) may
// make in a fixed window.
type SubmissionLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// NewSubmissionLimiter picks the Redis limiter when a URL is configured and
// the in-process one otherwise. A zero limit disables throttling.
func NewSubmissionLimiter(cfg config.ThrottleConfig) (SubmissionLimiter, error) {
	if cfg.Limit <= 0 {
		return nil, nil
	}
	if cfg.RedisURL == "" {
		return NewMemoryLimiter(cfg.Limit, cfg.Window), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisLimiter(client, cfg.Limit, cfg.Window), nil
}

// MemoryLimiter counts submissions in process memory.
type MemoryLimiter struct {
	cache  *cache.Cache
	limit  int
	window time.Duration
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		cache:  cache.New(window, 2*window),
		limit:  limit,
		window: window,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	// Add only succeeds for the first hit of a window, fixing its expiry.
	_ = l.cache.Add(key, 0, l.window)
	n, err := l.cache.IncrementInt(key, 1)
	if err != nil {
		// The window expired between Add and Increment; start a new one.
		l.cache.Set(key, 1, l.window)
		n = 1
	}
	return n <= l.limit, nil
}

// RedisLimiter shares submission counts between replicas.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := "warden:submissions:" + key
	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("increment submission counter: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return false, fmt.Errorf("set submission window: %w", err)
		}
	}
	return n <= int64(l.limit), nil
}
