package gdapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCacheConfig configures the Redis cache.
type RedisCacheConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// Prefix is prepended to every key; Clear only removes prefixed keys.
	Prefix string `mapstructure:"prefix"`
}

// DefaultRedisPrefix is used when RedisCacheConfig.Prefix is empty.
const DefaultRedisPrefix = "gdapi:"

// RedisCache stores schema documents in Redis.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed cache.
func NewRedisCache(config *RedisCacheConfig, options *CacheOptions) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Username: config.Username,
		Password: config.Password,
		DB:       config.DB,
	})

	return NewRedisCacheFromClient(client, config.Prefix, options)
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client redis.UniversalClient, prefix string, options *CacheOptions) *RedisCache {
	if options == nil {
		options = DefaultCacheOptions()
	}

	if prefix == "" {
		prefix = DefaultRedisPrefix
	}

	return &RedisCache{client: client, prefix: prefix, ttl: options.TTL}
}

// Get retrieves a live entry.
func (c *RedisCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	payload, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}

		return nil, fmt.Errorf("reading %s from redis: %w", key, err)
	}

	var entry CacheEntry

	err = json.Unmarshal(payload, &entry)
	if err != nil {
		return nil, fmt.Errorf("decoding cache entry %s: %w", key, err)
	}

	if entry.Expired(time.Now()) {
		return nil, fmt.Errorf("%w: %s", ErrEntryExpired, key)
	}

	return &entry, nil
}

// Set stores an entry. The Redis expiry follows the entry, or the cache TTL
// when the entry has none.
func (c *RedisCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry %s: %w", key, err)
	}

	ttl := c.ttl
	if !entry.ExpiresAt.IsZero() {
		ttl = time.Until(entry.ExpiresAt)
		if ttl <= 0 {
			return nil
		}
	}

	err = c.client.Set(ctx, c.prefix+key, payload, ttl).Err()
	if err != nil {
		return fmt.Errorf("writing %s to redis: %w", key, err)
	}

	return nil
}

// Delete removes an entry.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	err := c.client.Del(ctx, c.prefix+key).Err()
	if err != nil {
		return fmt.Errorf("deleting %s from redis: %w", key, err)
	}

	return nil
}

// Clear removes every key under the prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		err := c.client.Del(ctx, iter.Val()).Err()
		if err != nil {
			return fmt.Errorf("deleting %s from redis: %w", iter.Val(), err)
		}
	}

	err := iter.Err()
	if err != nil {
		return fmt.Errorf("scanning redis keys: %w", err)
	}

	return nil
}

// Has reports whether a live entry exists.
func (c *RedisCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	err := c.client.Close()
	if err != nil {
		return fmt.Errorf("closing redis client: %w", err)
	}

	return nil
}
