package gdapi

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/gdapi/internal/constants"
)

// Cache stores schema documents so repeated bootstraps of the same identity
// and path skip the network.
type Cache interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Set(ctx context.Context, key string, entry *CacheEntry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) bool
}

// CacheEntry is one cached document. A zero ExpiresAt never expires.
type CacheEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
	ETag      string    `json:"etag,omitempty"`
}

// Expired reports whether the entry is past its expiry.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// CacheOptions are applied to any backend.
type CacheOptions struct {
	// TTL is the lifetime given to entries stored without an expiry. Zero
	// keeps them until evicted.
	TTL time.Duration
}

// DefaultCacheOptions returns the default cache options.
func DefaultCacheOptions() *CacheOptions {
	return &CacheOptions{
		TTL: constants.DefaultSchemaTTL,
	}
}

// Static errors for err113 compliance.
var (
	ErrKeyNotFound  = constants.ErrKeyNotFound
	ErrEntryExpired = constants.ErrEntryExpired
)

// MemoryCache is a size-bounded LRU cache.
type MemoryCache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	order   *list.List
}

type memoryItem struct {
	key   string
	entry *CacheEntry
}

// NewMemoryCache creates a memory cache holding at most maxSize entries.
// Entries stored without an expiry are kept until evicted.
func NewMemoryCache(maxSize int) *MemoryCache {
	return NewMemoryCacheWithOptions(maxSize, &CacheOptions{})
}

// NewMemoryCacheWithOptions creates a memory cache that gives entries stored
// without an expiry the lifetime options.TTL.
func NewMemoryCacheWithOptions(maxSize int, options *CacheOptions) *MemoryCache {
	if maxSize <= 0 {
		maxSize = constants.DefaultCacheSize
	}

	if options == nil {
		options = DefaultCacheOptions()
	}

	return &MemoryCache{
		maxSize: maxSize,
		ttl:     options.TTL,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get returns a live entry.
func (c *MemoryCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	item, _ := elem.Value.(*memoryItem)
	if item.entry.Expired(time.Now()) {
		c.removeElement(elem)

		return nil, fmt.Errorf("%w: %s", ErrEntryExpired, key)
	}

	c.order.MoveToFront(elem)

	return item.entry, nil
}

// Set stores an entry, evicting the least recently used one when full.
// Expired entries are dropped before anything live is evicted.
func (c *MemoryCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()

	if entry.ExpiresAt.IsZero() && c.ttl > 0 {
		stored := *entry
		stored.ExpiresAt = now.Add(c.ttl)
		entry = &stored
	}

	if elem, ok := c.items[key]; ok {
		item, _ := elem.Value.(*memoryItem)
		item.entry = entry
		c.order.MoveToFront(elem)

		return nil
	}

	c.items[key] = c.order.PushFront(&memoryItem{key: key, entry: entry})

	if c.order.Len() > c.maxSize {
		c.dropExpired(now)
	}

	for c.order.Len() > c.maxSize {
		c.removeElement(c.order.Back())
	}

	return nil
}

// Delete removes an entry.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}

	return nil
}

// Clear removes every entry.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()

	return nil
}

// Has reports whether a live entry exists.
func (c *MemoryCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}

// Cleanup drops expired entries.
func (c *MemoryCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dropExpired(time.Now())
}

func (c *MemoryCache) dropExpired(now time.Time) {
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()

		item, _ := elem.Value.(*memoryItem)
		if item.entry.Expired(now) {
			c.removeElement(elem)
		}

		elem = next
	}
}

func (c *MemoryCache) removeElement(elem *list.Element) {
	item, _ := elem.Value.(*memoryItem)
	delete(c.items, item.key)
	c.order.Remove(elem)
}
