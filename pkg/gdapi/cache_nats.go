package gdapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSKVConfig configures the NATS JetStream key-value cache.
type NATSKVConfig struct {
	// URL of the NATS server, e.g. nats://127.0.0.1:4222.
	URL string `mapstructure:"url"`
	// Bucket is created when missing.
	Bucket string `mapstructure:"bucket"`
	// Credentials is an optional path to a .creds file.
	Credentials string `mapstructure:"credentials"`
	// Replicas of the bucket stream. Zero uses the server default.
	Replicas int `mapstructure:"replicas"`
}

// DefaultNATSBucket is used when NATSKVConfig.Bucket is empty.
const DefaultNATSBucket = "gdapi_schemas"

// NATSKVCache stores schema documents in a JetStream KV bucket so several
// processes share one bootstrap.
type NATSKVCache struct {
	conn *nats.Conn
	kv   jetstream.KeyValue
	ttl  time.Duration
}

// NewNATSKVCache connects to NATS and opens (or creates) the bucket.
func NewNATSKVCache(ctx context.Context, config *NATSKVConfig, options *CacheOptions) (*NATSKVCache, error) {
	if options == nil {
		options = DefaultCacheOptions()
	}

	natsOpts := []nats.Option{nats.Name("gdapi-schema-cache")}
	if config.Credentials != "" {
		natsOpts = append(natsOpts, nats.UserCredentials(config.Credentials))
	}

	conn, err := nats.Connect(config.URL, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	bucket := config.Bucket
	if bucket == "" {
		bucket = DefaultNATSBucket
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:   bucket,
		TTL:      options.TTL,
		Replicas: config.Replicas,
	})
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("opening KV bucket %s: %w", bucket, err)
	}

	return NewNATSKVCacheFromKeyValue(conn, kv, options.TTL), nil
}

// NewNATSKVCacheFromKeyValue wraps an already opened bucket. conn may be nil
// when the caller owns the connection.
func NewNATSKVCacheFromKeyValue(conn *nats.Conn, kv jetstream.KeyValue, ttl time.Duration) *NATSKVCache {
	return &NATSKVCache{conn: conn, kv: kv, ttl: ttl}
}

// Get retrieves a live entry.
func (c *NATSKVCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	kve, err := c.kv.Get(ctx, natsKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}

		return nil, fmt.Errorf("reading %s from NATS KV: %w", key, err)
	}

	var entry CacheEntry

	err = json.Unmarshal(kve.Value(), &entry)
	if err != nil {
		return nil, fmt.Errorf("decoding cache entry %s: %w", key, err)
	}

	if entry.Expired(time.Now()) {
		_ = c.kv.Delete(ctx, natsKey(key))

		return nil, fmt.Errorf("%w: %s", ErrEntryExpired, key)
	}

	return &entry, nil
}

// Set stores an entry.
func (c *NATSKVCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry %s: %w", key, err)
	}

	_, err = c.kv.Put(ctx, natsKey(key), payload)
	if err != nil {
		return fmt.Errorf("writing %s to NATS KV: %w", key, err)
	}

	return nil
}

// Delete removes an entry.
func (c *NATSKVCache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(ctx, natsKey(key))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("deleting %s from NATS KV: %w", key, err)
	}

	return nil
}

// Clear purges every key in the bucket.
func (c *NATSKVCache) Clear(ctx context.Context) error {
	lister, err := c.kv.ListKeys(ctx)
	if err != nil {
		return fmt.Errorf("listing NATS KV keys: %w", err)
	}

	defer func() { _ = lister.Stop() }()

	for key := range lister.Keys() {
		err := c.kv.Purge(ctx, key)
		if err != nil {
			return fmt.Errorf("purging %s from NATS KV: %w", key, err)
		}
	}

	return nil
}

// Has reports whether a live entry exists.
func (c *NATSKVCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Close drains the connection when the cache owns it.
func (c *NATSKVCache) Close() error {
	if c.conn == nil {
		return nil
	}

	err := c.conn.Drain()
	if err != nil {
		return fmt.Errorf("draining NATS connection: %w", err)
	}

	return nil
}

// natsKey maps arbitrary cache keys, which contain URL paths, onto the KV
// key alphabet.
func natsKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}
