// Package cache implements the idempotency cache on Redis and in memory.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/config"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache stores entries as JSON strings with a native TTL. Expiry is
// also re-checked against the entry on read.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

var _ application.IdempotencyCache = (*RedisCache)(nil)

func NewRedisCache(client redis.UniversalClient, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "orch"
	}
	return &RedisCache{client: client, prefix: prefix, now: time.Now}
}

// Connect opens a Redis client and verifies it with a ping.
func Connect(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info("redis connection established", "addr", cfg.Addr, "db", cfg.DB)
	return client, nil
}

func (c *RedisCache) redisKey(key string) string {
	return c.prefix + ":" + key
}

func (c *RedisCache) Get(ctx context.Context, key string) (*domain.IdempotencyEntry, error) {
	raw, err := c.client.Get(ctx, c.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, application.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", application.ErrCacheUnavailable, key, err)
	}

	var entry domain.IdempotencyEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", application.ErrCacheUnavailable, key, err)
	}
	if entry.Expired(c.now()) {
		return nil, application.ErrCacheMiss
	}
	return &entry, nil
}

func (c *RedisCache) Put(ctx context.Context, key string, entry *domain.IdempotencyEntry, ttl time.Duration) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, c.redisKey(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", application.ErrCacheUnavailable, key, err)
	}
	return nil
}

func (c *RedisCache) Reserve(ctx context.Context, key string, entry *domain.IdempotencyEntry, ttl time.Duration) (bool, error) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return false, fmt.Errorf("encode %s: %w", key, err)
	}
	ok, err := c.client.SetNX(ctx, c.redisKey(key), raw, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: setnx %s: %v", application.ErrCacheUnavailable, key, err)
	}
	return ok, nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("%w: del %s: %v", application.ErrCacheUnavailable, key, err)
	}
	return nil
}
