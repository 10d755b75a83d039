package explorer

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hello-xone/xone-explorer-sub000/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrKeyNotFound  = errors.New("key not found")
	ErrEntryExpired = errors.New("entry expired")
)

// CacheEntry is one cached query result.
type CacheEntry struct {
	Data      []byte    `json:"data"`
	FetchedAt time.Time `json:"fetched_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	ETag      string    `json:"etag,omitempty"`

	// Pinned entries are forward pages of a paginated listing. They stay
	// fresh until their family is invalidated.
	Pinned bool `json:"pinned,omitempty"`
}

// IsExpired reports whether the backend should drop the entry. A zero
// ExpiresAt never expires.
func (e *CacheEntry) IsExpired() bool {
	return !e.ExpiresAt.IsZero() && time.Now().After(e.ExpiresAt)
}

// IsFresh reports whether the entry can be served without refetching.
// Unpinned entries are fresh only while younger than staleTime.
func (e *CacheEntry) IsFresh(staleTime time.Duration) bool {
	if e.Pinned {
		return true
	}

	return staleTime > 0 && time.Since(e.FetchedAt) < staleTime
}

// Cache is a query cache backend.
type Cache interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Set(ctx context.Context, key string, entry *CacheEntry) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) bool
}

// CacheOptions are the options common to every backend.
type CacheOptions struct {
	// TTL bounds how long a backend keeps unpinned entries. Zero keeps them
	// until evicted.
	TTL time.Duration `yaml:"ttl"`

	// PinnedTTL bounds how long a backend keeps forward pages.
	PinnedTTL time.Duration `yaml:"pinned_ttl"`
}

// DefaultCacheOptions returns the default cache options.
func DefaultCacheOptions() *CacheOptions {
	return &CacheOptions{
		TTL:       constants.DefaultCacheTTL,
		PinnedTTL: constants.DefaultCacheTTL,
	}
}

type memoryItem struct {
	key   string
	entry *CacheEntry
}

// MemoryCache is a bounded in-memory cache with LRU eviction.
type MemoryCache struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	order   *list.List
}

// NewMemoryCache creates a memory cache holding at most maxSize entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = constants.DefaultCacheSize
	}

	return &MemoryCache{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get retrieves an entry.
func (c *MemoryCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	item, _ := elem.Value.(*memoryItem)
	if item.entry.IsExpired() {
		c.removeElement(elem)

		return nil, fmt.Errorf("%w: %s", ErrEntryExpired, key)
	}

	c.order.MoveToFront(elem)

	return item.entry, nil
}

// Set stores an entry, evicting the least recently used one when full.
func (c *MemoryCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		item, _ := elem.Value.(*memoryItem)
		item.entry = entry
		c.order.MoveToFront(elem)

		return nil
	}

	for c.order.Len() >= c.maxSize {
		c.removeElement(c.order.Back())
	}

	c.items[key] = c.order.PushFront(&memoryItem{key: key, entry: entry})

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

// DeletePrefix removes every entry whose key starts with prefix.
func (c *MemoryCache) DeletePrefix(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, elem := range c.items {
		if strings.HasPrefix(key, prefix) {
			c.removeElement(elem)
		}
	}

	return nil
}

// Clear removes all entries.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()

	return nil
}

// Has reports whether an unexpired entry exists for key.
func (c *MemoryCache) Has(ctx context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return false
	}

	item, _ := elem.Value.(*memoryItem)

	return !item.entry.IsExpired()
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}

// Cleanup removes expired entries.
func (c *MemoryCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, elem := range c.items {
		item, _ := elem.Value.(*memoryItem)
		if item.entry.IsExpired() {
			c.removeElement(elem)
		}
	}
}

// StartCleanup runs Cleanup every interval until the returned function is
// called.
func (c *MemoryCache) StartCleanup(interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = constants.DefaultCleanupInterval
	}

	done := make(chan struct{})
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.Cleanup()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once

	return func() {
		once.Do(func() { close(done) })
	}
}

func (c *MemoryCache) removeElement(elem *list.Element) {
	item, _ := elem.Value.(*memoryItem)
	delete(c.items, item.key)
	c.order.Remove(elem)
}

// CacheStats counts cache activity.
type CacheStats struct {
	Hits          int64 `json:"hits"          yaml:"hits"`
	Misses        int64 `json:"misses"        yaml:"misses"`
	Sets          int64 `json:"sets"          yaml:"sets"`
	Invalidations int64 `json:"invalidations" yaml:"invalidations"`
}

// GetHitRate returns the fraction of lookups that hit.
func (s *CacheStats) GetHitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

// CacheManager wraps a backend with TTL handling and statistics.
type CacheManager struct {
	cache   Cache
	options *CacheOptions

	hits          atomic.Int64
	misses        atomic.Int64
	sets          atomic.Int64
	invalidations atomic.Int64
}

// NewCacheManager creates a cache manager. A nil cache disables caching.
func NewCacheManager(cache Cache, options *CacheOptions) *CacheManager {
	if cache == nil {
		cache = NewNoOpCache()
	}

	if options == nil {
		options = DefaultCacheOptions()
	}

	return &CacheManager{
		cache:   cache,
		options: options,
	}
}

// Backend returns the wrapped cache.
func (m *CacheManager) Backend() Cache {
	return m.cache
}

// Lookup returns the entry stored under key. Misses and backend errors
// both report false.
func (m *CacheManager) Lookup(ctx context.Context, key string) (*CacheEntry, bool) {
	entry, err := m.cache.Get(ctx, key)
	if err != nil || entry == nil {
		m.misses.Add(1)

		return nil, false
	}

	m.hits.Add(1)

	return entry, true
}

// Get returns the data stored under key.
func (m *CacheManager) Get(ctx context.Context, key string) ([]byte, error) {
	entry, ok := m.Lookup(ctx, key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	return entry.Data, nil
}

// Set stores data under key for ttl.
func (m *CacheManager) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return m.SetWithETag(ctx, key, data, "", ttl)
}

// SetWithETag stores data and its ETag under key for ttl.
func (m *CacheManager) SetWithETag(ctx context.Context, key string, data []byte, etag string, ttl time.Duration) error {
	return m.store(ctx, key, &CacheEntry{
		Data:      data,
		FetchedAt: time.Now(),
		ETag:      etag,
		ExpiresAt: expiry(ttl),
	})
}

// Put stores a query result. Pinned entries use the pinned TTL.
func (m *CacheManager) Put(ctx context.Context, key string, data []byte, pinned bool) (*CacheEntry, error) {
	ttl := m.options.TTL
	if pinned {
		ttl = m.options.PinnedTTL
	}

	entry := &CacheEntry{
		Data:      data,
		FetchedAt: time.Now(),
		ExpiresAt: expiry(ttl),
		Pinned:    pinned,
	}

	return entry, m.store(ctx, key, entry)
}

func (m *CacheManager) store(ctx context.Context, key string, entry *CacheEntry) error {
	err := m.cache.Set(ctx, key, entry)
	if err != nil {
		return fmt.Errorf("storing cache entry: %w", err)
	}

	m.sets.Add(1)

	return nil
}

// Delete removes one key.
func (m *CacheManager) Delete(ctx context.Context, key string) error {
	return m.cache.Delete(ctx, key)
}

// DeletePrefix removes every key starting with prefix.
func (m *CacheManager) DeletePrefix(ctx context.Context, prefix string) error {
	m.invalidations.Add(1)

	err := m.cache.DeletePrefix(ctx, prefix)
	if err != nil {
		return fmt.Errorf("invalidating %q: %w", prefix, err)
	}

	return nil
}

// Clear removes everything.
func (m *CacheManager) Clear(ctx context.Context) error {
	m.invalidations.Add(1)

	return m.cache.Clear(ctx)
}

// GetStats returns a snapshot of the statistics.
func (m *CacheManager) GetStats() CacheStats {
	return CacheStats{
		Hits:          m.hits.Load(),
		Misses:        m.misses.Load(),
		Sets:          m.sets.Load(),
		Invalidations: m.invalidations.Load(),
	}
}

func expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}

	return time.Now().Add(ttl)
}
