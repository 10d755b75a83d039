package explorer_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hello-xone/xone-explorer-sub000/pkg/explorer"
)

func entry(data string) *explorer.CacheEntry {
	return &explorer.CacheEntry{Data: []byte(data), FetchedAt: time.Now()}
}

func TestCacheEntry_IsFresh(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		entry     explorer.CacheEntry
		staleTime time.Duration
		expected  bool
	}{
		{"pinned without stale time", explorer.CacheEntry{Pinned: true}, 0, true},
		{"pinned and old", explorer.CacheEntry{Pinned: true, FetchedAt: time.Now().Add(-time.Hour)}, time.Second, true},
		{"zero stale time", explorer.CacheEntry{FetchedAt: time.Now()}, 0, false},
		{"young", explorer.CacheEntry{FetchedAt: time.Now()}, time.Minute, true},
		{"old", explorer.CacheEntry{FetchedAt: time.Now().Add(-time.Hour)}, time.Minute, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, tt.entry.IsFresh(tt.staleTime))
		})
	}
}

func TestCacheEntry_IsExpired(t *testing.T) {
	t.Parallel()

	assert.False(t, (&explorer.CacheEntry{}).IsExpired())
	assert.False(t, (&explorer.CacheEntry{ExpiresAt: time.Now().Add(time.Hour)}).IsExpired())
	assert.True(t, (&explorer.CacheEntry{ExpiresAt: time.Now().Add(-time.Second)}).IsExpired())
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestMemoryCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("evicts least recently used", func(t *testing.T) {
		t.Parallel()

		cache := explorer.NewMemoryCache(2)

		require.NoError(t, cache.Set(ctx, "a", entry("1")))
		require.NoError(t, cache.Set(ctx, "b", entry("2")))

		_, err := cache.Get(ctx, "a")
		require.NoError(t, err)

		require.NoError(t, cache.Set(ctx, "c", entry("3")))

		assert.Equal(t, 2, cache.Len())
		assert.True(t, cache.Has(ctx, "a"))
		assert.False(t, cache.Has(ctx, "b"))
		assert.True(t, cache.Has(ctx, "c"))
	})

	t.Run("overwrites existing key", func(t *testing.T) {
		t.Parallel()

		cache := explorer.NewMemoryCache(2)

		require.NoError(t, cache.Set(ctx, "a", entry("1")))
		require.NoError(t, cache.Set(ctx, "a", entry("2")))

		got, err := cache.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "2", string(got.Data))
		assert.Equal(t, 1, cache.Len())
	})

	t.Run("missing key", func(t *testing.T) {
		t.Parallel()

		_, err := explorer.NewMemoryCache(0).Get(ctx, "missing")
		require.ErrorIs(t, err, explorer.ErrKeyNotFound)
	})

	t.Run("expired entry is removed", func(t *testing.T) {
		t.Parallel()

		cache := explorer.NewMemoryCache(0)
		require.NoError(t, cache.Set(ctx, "old", &explorer.CacheEntry{ExpiresAt: time.Now().Add(-time.Second)}))

		assert.False(t, cache.Has(ctx, "old"))

		_, err := cache.Get(ctx, "old")
		require.ErrorIs(t, err, explorer.ErrEntryExpired)
		assert.Zero(t, cache.Len())
	})

	t.Run("delete prefix", func(t *testing.T) {
		t.Parallel()

		cache := explorer.NewMemoryCache(0)
		for _, key := range []string{"tokens@?|", `tokens@?|{"p":2}`, "tokens_x@?|", "blocks@?|"} {
			require.NoError(t, cache.Set(ctx, key, entry("x")))
		}

		require.NoError(t, cache.DeletePrefix(ctx, "tokens@?|{"))
		assert.Equal(t, 3, cache.Len())
		assert.True(t, cache.Has(ctx, "tokens@?|"))

		require.NoError(t, cache.DeletePrefix(ctx, "tokens@"))
		assert.Equal(t, 2, cache.Len())

		require.NoError(t, cache.Delete(ctx, "blocks@?|"))
		require.NoError(t, cache.Delete(ctx, "blocks@?|"))
		assert.Equal(t, 1, cache.Len())

		require.NoError(t, cache.Clear(ctx))
		assert.Zero(t, cache.Len())
	})

	t.Run("cleanup", func(t *testing.T) {
		t.Parallel()

		cache := explorer.NewMemoryCache(0)
		require.NoError(t, cache.Set(ctx, "old", &explorer.CacheEntry{ExpiresAt: time.Now().Add(-time.Second)}))
		require.NoError(t, cache.Set(ctx, "new", entry("x")))

		cache.Cleanup()
		assert.Equal(t, 1, cache.Len())

		require.NoError(t, cache.Set(ctx, "soon", &explorer.CacheEntry{ExpiresAt: time.Now().Add(10 * time.Millisecond)}))

		stop := cache.StartCleanup(5 * time.Millisecond)
		defer stop()

		assert.Eventually(t, func() bool { return cache.Len() == 1 }, time.Second, 5*time.Millisecond)

		stop()
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestCacheManager(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	manager := explorer.NewCacheManager(explorer.NewMemoryCache(0), &explorer.CacheOptions{TTL: time.Hour})

	_, found := manager.Lookup(ctx, "a")
	assert.False(t, found)

	_, err := manager.Get(ctx, "a")
	require.ErrorIs(t, err, explorer.ErrKeyNotFound)

	stored, err := manager.Put(ctx, "a", []byte("1"), false)
	require.NoError(t, err)
	assert.False(t, stored.Pinned)
	assert.False(t, stored.ExpiresAt.IsZero())

	pinned, err := manager.Put(ctx, "b", []byte("2"), true)
	require.NoError(t, err)
	assert.True(t, pinned.Pinned)
	assert.True(t, pinned.ExpiresAt.IsZero())

	data, err := manager.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", string(data))

	require.NoError(t, manager.SetWithETag(ctx, "c", []byte("3"), "etag-1", 0))

	got, found := manager.Lookup(ctx, "c")
	require.True(t, found)
	assert.Equal(t, "etag-1", got.ETag)

	require.NoError(t, manager.Set(ctx, "d", []byte("4"), time.Minute))
	require.NoError(t, manager.Delete(ctx, "d"))
	require.NoError(t, manager.DeletePrefix(ctx, "a"))
	require.NoError(t, manager.Clear(ctx))

	stats := manager.GetStats()
	assert.Equal(t, explorer.CacheStats{Hits: 2, Misses: 2, Sets: 4, Invalidations: 2}, stats)
	assert.InDelta(t, 0.5, stats.GetHitRate(), 0.0001)
	assert.Zero(t, (&explorer.CacheStats{}).GetHitRate())
}

func TestCacheManager_Disabled(t *testing.T) {
	t.Parallel()

	manager := explorer.NewCacheManager(nil, nil)
	assert.IsType(t, &explorer.NoOpCache{}, manager.Backend())

	_, err := manager.Put(context.Background(), "a", []byte("1"), true)
	require.NoError(t, err)

	_, found := manager.Lookup(context.Background(), "a")
	assert.False(t, found)
}

func TestNoOpCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cache := explorer.NewNoOpCache()

	require.NoError(t, cache.Set(ctx, "a", entry("1")))

	_, err := cache.Get(ctx, "a")
	require.ErrorIs(t, err, explorer.ErrCacheDisabled)
	assert.False(t, cache.Has(ctx, "a"))
	require.NoError(t, cache.Delete(ctx, "a"))
	require.NoError(t, cache.DeletePrefix(ctx, "a"))
	require.NoError(t, cache.Clear(ctx))
}

func TestCacheChain(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	l1 := explorer.NewMemoryCache(0)
	l2 := explorer.NewMemoryCache(0)
	chain := explorer.NewCacheChain(l1, l2)

	require.NoError(t, l2.Set(ctx, "k", entry("v")))

	got, err := chain.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got.Data))
	assert.True(t, l1.Has(ctx, "k"))

	_, err = chain.Get(ctx, "missing")
	require.ErrorIs(t, err, explorer.ErrKeyNotFoundInAnyCache)

	require.NoError(t, chain.Set(ctx, "p1", entry("1")))
	assert.True(t, l1.Has(ctx, "p1"))
	assert.True(t, l2.Has(ctx, "p1"))
	assert.True(t, chain.Has(ctx, "p1"))

	require.NoError(t, chain.DeletePrefix(ctx, "p"))
	assert.False(t, chain.Has(ctx, "p1"))

	require.NoError(t, chain.Delete(ctx, "k"))
	assert.False(t, l2.Has(ctx, "k"))

	require.NoError(t, chain.Clear(ctx))
	require.NoError(t, chain.Close())
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestNewCacheFromConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		config   *explorer.CacheConfig
		wantErr  error
		closer   bool
		wantType interface{}
	}{
		{name: "default", config: nil, closer: true},
		{name: "memory", config: &explorer.CacheConfig{Type: explorer.CacheTypeMemory}, wantType: &explorer.MemoryCache{}},
		{name: "empty type", config: &explorer.CacheConfig{}, wantType: &explorer.MemoryCache{}},
		{name: "none", config: &explorer.CacheConfig{Type: explorer.CacheTypeNone}, wantType: &explorer.NoOpCache{}},
		{name: "nats without config", config: &explorer.CacheConfig{Type: explorer.CacheTypeNATS}, wantErr: explorer.ErrNATSConfigRequired},
		{name: "redis without config", config: &explorer.CacheConfig{Type: explorer.CacheTypeRedis}, wantErr: explorer.ErrRedisConfigRequired},
		{
			name:    "nats without url",
			config:  &explorer.CacheConfig{Type: explorer.CacheTypeNATS, NATS: &explorer.NATSKVConfig{}},
			wantErr: explorer.ErrNATSURLRequired,
		},
		{
			name:    "redis without address",
			config:  &explorer.CacheConfig{Type: explorer.CacheTypeRedis, Redis: &explorer.RedisCacheConfig{}},
			wantErr: explorer.ErrRedisAddrRequired,
		},
		{
			name:     "redis",
			config:   &explorer.CacheConfig{Type: explorer.CacheTypeRedis, Redis: &explorer.RedisCacheConfig{Addr: "127.0.0.1:0"}},
			closer:   true,
			wantType: &explorer.RedisCache{},
		},
		{
			name: "redis with l1",
			config: &explorer.CacheConfig{
				Type:  explorer.CacheTypeRedis,
				Redis: &explorer.RedisCacheConfig{Addr: "127.0.0.1:0"},
				L1:    true,
			},
			closer:   true,
			wantType: &explorer.CacheChain{},
		},
		{name: "unsupported", config: &explorer.CacheConfig{Type: "disk"}, wantErr: explorer.ErrUnsupportedCacheType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cache, err := explorer.NewCacheFromConfig(tt.config)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)

			if tt.wantType != nil {
				assert.IsType(t, tt.wantType, cache)
			}

			_, isCloser := cache.(io.Closer)
			assert.Equal(t, tt.closer, isCloser)
			require.NoError(t, explorer.CloseCache(cache))
		})
	}
}

func TestNewNATSKVCache_Unreachable(t *testing.T) {
	t.Parallel()

	_, err := explorer.NewNATSKVCache(&explorer.NATSKVConfig{URL: "nats://127.0.0.1:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connecting to NATS")
}

func TestRedisCache_SharedClient(t *testing.T) {
	t.Parallel()

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})

	defer func() { _ = client.Close() }()

	cache, err := explorer.NewRedisCache(&explorer.RedisCacheConfig{Client: client})
	require.NoError(t, err)
	require.NoError(t, cache.Close())

	assert.NoError(t, client.Close())
}

func TestCacheBuilder(t *testing.T) {
	t.Parallel()

	config := explorer.NewCacheBuilder().
		WithType(explorer.CacheTypeRedis).
		WithRedisConfig(&explorer.RedisCacheConfig{Addr: "127.0.0.1:0", KeyPrefix: "test:"}).
		WithMemoryConfig(10, 0).
		WithL1(true).
		WithOptions(&explorer.CacheOptions{TTL: time.Minute}).
		Config()

	assert.Equal(t, explorer.CacheTypeRedis, config.Type)
	assert.Equal(t, 10, config.Memory.MaxSize)
	assert.True(t, config.L1)
	assert.Equal(t, time.Minute, config.Options.TTL)

	cache, err := explorer.NewCacheBuilder().WithType(explorer.CacheTypeNone).Build()
	require.NoError(t, err)
	assert.IsType(t, &explorer.NoOpCache{}, cache)
}
