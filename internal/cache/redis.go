package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"RateSentinel/internal/model"
)

// DefaultRedisPrefix scopes every key this service writes.
const DefaultRedisPrefix = "ratesentinel:"

// RedisCache stores entries in Redis under a common prefix.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection.
// A zero ttl keeps entries until the next invalidation.
func NewRedisCache(addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisCacheFromClient(client, DefaultRedisPrefix, ttl), nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) redisKey(ns Namespace, cur model.Currency) string {
	return c.prefix + key(ns, cur)
}

func (c *RedisCache) Get(ctx context.Context, ns Namespace, cur model.Currency) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.redisKey(ns, cur)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, ns Namespace, cur model.Currency, val []byte) error {
	if err := c.client.Set(ctx, c.redisKey(ns, cur), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// InvalidateAll deletes every key under each namespace of this cache's prefix.
func (c *RedisCache) InvalidateAll(ctx context.Context) error {
	for _, ns := range Namespaces {
		pattern := c.prefix + string(ns) + ":*"
		var keys []string
		iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("redis scan %s: %w", pattern, err)
		}
		if len(keys) == 0 {
			continue
		}
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("redis del %s: %w", ns, err)
		}
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
