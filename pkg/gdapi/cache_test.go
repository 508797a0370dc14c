package gdapi_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/gdapi/pkg/gdapi"
)

func TestMemoryCache_SetAndGet(t *testing.T) {
	t.Parallel()

	cache := gdapi.NewMemoryCache(10)
	ctx := context.Background()

	entry := &gdapi.CacheEntry{
		Data:      []byte(`{"type":"collection"}`),
		ExpiresAt: time.Now().Add(1 * time.Hour),
		ETag:      "abc123",
	}

	err := cache.Set(ctx, "key1", entry)
	require.NoError(t, err)

	retrieved, err := cache.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, entry.Data, retrieved.Data)
	assert.Equal(t, entry.ETag, retrieved.ETag)
}

func TestMemoryCache_GetNonExistent(t *testing.T) {
	t.Parallel()

	cache := gdapi.NewMemoryCache(10)

	_, err := cache.Get(context.Background(), "nonexistent")
	require.ErrorIs(t, err, gdapi.ErrKeyNotFound)
	assert.Contains(t, err.Error(), "key not found")
}

func TestMemoryCache_GetExpired(t *testing.T) {
	t.Parallel()

	cache := gdapi.NewMemoryCache(10)
	ctx := context.Background()

	entry := &gdapi.CacheEntry{
		Data:      []byte("test data"),
		ExpiresAt: time.Now().Add(-1 * time.Hour), // Already expired
	}

	err := cache.Set(ctx, "key1", entry)
	require.NoError(t, err)

	_, err = cache.Get(ctx, "key1")
	require.ErrorIs(t, err, gdapi.ErrEntryExpired)
	assert.Equal(t, 0, cache.Len())
}

func TestMemoryCache_NoExpiry(t *testing.T) {
	t.Parallel()

	cache := gdapi.NewMemoryCache(10)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key1", &gdapi.CacheEntry{Data: []byte("x")}))
	assert.True(t, cache.Has(ctx, "key1"))
}

func TestMemoryCache_Delete(t *testing.T) {
	t.Parallel()

	cache := gdapi.NewMemoryCache(10)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key1", &gdapi.CacheEntry{Data: []byte("x")}))
	assert.True(t, cache.Has(ctx, "key1"))

	require.NoError(t, cache.Delete(ctx, "key1"))
	assert.False(t, cache.Has(ctx, "key1"))

	// Deleting a missing key is not an error
	require.NoError(t, cache.Delete(ctx, "key1"))
}

func TestMemoryCache_Clear(t *testing.T) {
	t.Parallel()

	cache := gdapi.NewMemoryCache(10)
	ctx := context.Background()

	for i := range 5 {
		require.NoError(t, cache.Set(ctx, fmt.Sprintf("key%d", i), &gdapi.CacheEntry{Data: []byte("x")}))
	}

	assert.Equal(t, 5, cache.Len())
	require.NoError(t, cache.Clear(ctx))
	assert.Equal(t, 0, cache.Len())
}

func TestMemoryCache_LRUEviction(t *testing.T) {
	t.Parallel()

	cache := gdapi.NewMemoryCache(3)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, cache.Set(ctx, key, &gdapi.CacheEntry{Data: []byte(key)}))
	}

	// Touch "a" so "b" becomes least recently used
	_, err := cache.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, cache.Set(ctx, "d", &gdapi.CacheEntry{Data: []byte("d")}))

	assert.Equal(t, 3, cache.Len())
	assert.True(t, cache.Has(ctx, "a"))
	assert.False(t, cache.Has(ctx, "b"))
	assert.True(t, cache.Has(ctx, "c"))
	assert.True(t, cache.Has(ctx, "d"))
}

func TestMemoryCache_Overwrite(t *testing.T) {
	t.Parallel()

	cache := gdapi.NewMemoryCache(2)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", &gdapi.CacheEntry{Data: []byte("1")}))
	require.NoError(t, cache.Set(ctx, "a", &gdapi.CacheEntry{Data: []byte("2")}))

	entry, err := cache.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), entry.Data)
	assert.Equal(t, 1, cache.Len())
}

func TestMemoryCache_Cleanup(t *testing.T) {
	t.Parallel()

	cache := gdapi.NewMemoryCache(10)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "live", &gdapi.CacheEntry{Data: []byte("x"), ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, cache.Set(ctx, "dead", &gdapi.CacheEntry{Data: []byte("x"), ExpiresAt: time.Now().Add(-time.Hour)}))

	cache.Cleanup()

	assert.Equal(t, 1, cache.Len())
	assert.True(t, cache.Has(ctx, "live"))
}

func TestMemoryCache_TTL(t *testing.T) {
	t.Parallel()

	cache := gdapi.NewMemoryCacheWithOptions(10, &gdapi.CacheOptions{TTL: 10 * time.Millisecond})
	ctx := context.Background()

	entry := &gdapi.CacheEntry{Data: []byte("schema")}
	require.NoError(t, cache.Set(ctx, "k", entry))
	assert.True(t, entry.ExpiresAt.IsZero(), "caller's entry is not modified")

	stored, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, stored.ExpiresAt.IsZero())

	explicit := time.Now().Add(time.Hour)
	require.NoError(t, cache.Set(ctx, "explicit", &gdapi.CacheEntry{Data: []byte("x"), ExpiresAt: explicit}))

	time.Sleep(50 * time.Millisecond)

	assert.False(t, cache.Has(ctx, "k"))
	assert.True(t, cache.Has(ctx, "explicit"))
}

func TestMemoryCache_EvictsExpiredFirst(t *testing.T) {
	t.Parallel()

	cache := gdapi.NewMemoryCache(2)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "live", &gdapi.CacheEntry{Data: []byte("1")}))
	require.NoError(t, cache.Set(ctx, "dead", &gdapi.CacheEntry{Data: []byte("2"), ExpiresAt: time.Now().Add(-time.Hour)}))
	require.NoError(t, cache.Set(ctx, "new", &gdapi.CacheEntry{Data: []byte("3")}))

	assert.Equal(t, 2, cache.Len())
	assert.True(t, cache.Has(ctx, "live"))
	assert.True(t, cache.Has(ctx, "new"))
}

func TestCacheFactory(t *testing.T) {
	t.Parallel()

	t.Run("memory", func(t *testing.T) {
		t.Parallel()

		cache, err := gdapi.NewCacheFromConfig(context.Background(), &gdapi.CacheConfig{
			Type:   gdapi.CacheTypeMemory,
			Memory: &gdapi.MemoryCacheConfig{MaxSize: 5},
		})
		require.NoError(t, err)
		assert.IsType(t, &gdapi.MemoryCache{}, cache)
	})

	t.Run("memory honours ttl", func(t *testing.T) {
		t.Parallel()

		cache, err := gdapi.NewCacheFromConfig(context.Background(), &gdapi.CacheConfig{
			Type:    gdapi.CacheTypeMemory,
			Options: &gdapi.CacheOptions{TTL: 10 * time.Millisecond},
		})
		require.NoError(t, err)

		ctx := context.Background()
		require.NoError(t, cache.Set(ctx, "k", &gdapi.CacheEntry{Data: []byte("x")}))
		assert.True(t, cache.Has(ctx, "k"))

		time.Sleep(50 * time.Millisecond)

		assert.False(t, cache.Has(ctx, "k"))
	})

	t.Run("default config", func(t *testing.T) {
		t.Parallel()

		cache, err := gdapi.NewCacheFromConfig(context.Background(), nil)
		require.NoError(t, err)
		assert.IsType(t, &gdapi.MemoryCache{}, cache)
	})

	t.Run("none", func(t *testing.T) {
		t.Parallel()

		cache, err := gdapi.NewCacheFromConfig(context.Background(), &gdapi.CacheConfig{Type: gdapi.CacheTypeNone})
		require.NoError(t, err)

		ctx := context.Background()
		require.NoError(t, cache.Set(ctx, "k", &gdapi.CacheEntry{Data: []byte("x")}))
		assert.False(t, cache.Has(ctx, "k"))

		_, err = cache.Get(ctx, "k")
		require.ErrorIs(t, err, gdapi.ErrCacheDisabled)
	})

	t.Run("nats requires config", func(t *testing.T) {
		t.Parallel()

		_, err := gdapi.NewCacheFromConfig(context.Background(), &gdapi.CacheConfig{Type: gdapi.CacheTypeNATS})
		require.ErrorIs(t, err, gdapi.ErrNATSConfigRequired)
	})

	t.Run("redis requires config", func(t *testing.T) {
		t.Parallel()

		_, err := gdapi.NewCacheFromConfig(context.Background(), &gdapi.CacheConfig{Type: gdapi.CacheTypeRedis})
		require.ErrorIs(t, err, gdapi.ErrRedisConfigRequired)
	})

	t.Run("unsupported", func(t *testing.T) {
		t.Parallel()

		_, err := gdapi.NewCacheFromConfig(context.Background(), &gdapi.CacheConfig{Type: "memcached"})
		require.ErrorIs(t, err, gdapi.ErrUnsupportedCacheType)
	})
}

func TestCacheChain(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l1 := gdapi.NewMemoryCache(10)
	l2 := gdapi.NewMemoryCache(10)
	chain := gdapi.NewCacheChain(l1, l2)

	require.NoError(t, l2.Set(ctx, "k", &gdapi.CacheEntry{Data: []byte("from-l2")}))

	entry, err := chain.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("from-l2"), entry.Data)
	assert.True(t, l1.Has(ctx, "k"), "hit should populate earlier caches")

	require.NoError(t, chain.Delete(ctx, "k"))
	assert.False(t, chain.Has(ctx, "k"))

	_, err = chain.Get(ctx, "k")
	require.ErrorIs(t, err, gdapi.ErrKeyNotFoundInAnyCache)

	require.NoError(t, chain.Set(ctx, "a", &gdapi.CacheEntry{Data: []byte("x")}))
	assert.True(t, l1.Has(ctx, "a"))
	assert.True(t, l2.Has(ctx, "a"))

	require.NoError(t, chain.Clear(ctx))
	assert.Equal(t, 0, l1.Len()+l2.Len())
}

// The backend tests below need a live server and are skipped otherwise.

func TestRedisCache(t *testing.T) {
	t.Parallel()

	addr := os.Getenv("GDAPI_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("GDAPI_TEST_REDIS_ADDR not set")
	}

	cache := gdapi.NewRedisCache(&gdapi.RedisCacheConfig{Addr: addr, Prefix: "gdapi-test:"}, nil)
	defer func() { _ = cache.Close() }()

	exerciseCache(t, cache)
}

func TestNATSKVCache(t *testing.T) {
	t.Parallel()

	url := os.Getenv("GDAPI_TEST_NATS_URL")
	if url == "" {
		t.Skip("GDAPI_TEST_NATS_URL not set")
	}

	cache, err := gdapi.NewNATSKVCache(context.Background(), &gdapi.NATSKVConfig{URL: url, Bucket: "gdapi_test"}, nil)
	require.NoError(t, err)

	defer func() { _ = cache.Close() }()

	exerciseCache(t, cache)
}

func exerciseCache(t *testing.T, cache gdapi.Cache) {
	t.Helper()

	ctx := context.Background()
	key := "restclient_ns_id_https://api.example.com/v1/schemas"

	require.NoError(t, cache.Clear(ctx))

	_, err := cache.Get(ctx, key)
	require.ErrorIs(t, err, gdapi.ErrKeyNotFound)

	require.NoError(t, cache.Set(ctx, key, &gdapi.CacheEntry{Data: []byte(`{"a":1}`)}))

	entry, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(entry.Data))
	assert.True(t, cache.Has(ctx, key))

	require.NoError(t, cache.Delete(ctx, key))
	assert.False(t, cache.Has(ctx, key))
}
