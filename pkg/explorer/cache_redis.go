package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hello-xone/xone-explorer-sub000/internal/constants"
)

// ErrRedisAddrRequired is returned when neither an address nor a client is set.
var ErrRedisAddrRequired = errors.New("redis address or client is required")

// RedisCacheConfig configures the redis cache.
type RedisCacheConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	KeyPrefix    string        `yaml:"key_prefix"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// Client reuses an existing client. The cache does not close it.
	Client redis.UniversalClient `yaml:"-"`
}

// RedisCache stores query results in redis.
type RedisCache struct {
	client     redis.UniversalClient
	prefix     string
	ownsClient bool
}

// NewRedisCache creates a redis cache.
func NewRedisCache(config *RedisCacheConfig) (*RedisCache, error) {
	if config.Client == nil && config.Addr == "" {
		return nil, ErrRedisAddrRequired
	}

	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = constants.DefaultRedisKeyPrefix
	}

	if config.Client != nil {
		return &RedisCache{client: config.Client, prefix: prefix}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	return &RedisCache{client: client, prefix: prefix, ownsClient: true}, nil
}

func (c *RedisCache) fullKey(key string) string {
	return c.prefix + key
}

// Get retrieves an entry.
func (c *RedisCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	data, err := c.client.Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	if err != nil {
		return nil, fmt.Errorf("reading %s from redis: %w", key, err)
	}

	var entry CacheEntry

	err = json.Unmarshal(data, &entry)
	if err != nil {
		c.client.Del(ctx, c.fullKey(key))

		return nil, fmt.Errorf("decoding cache entry %s: %w", key, err)
	}

	if entry.IsExpired() {
		return nil, fmt.Errorf("%w: %s", ErrEntryExpired, key)
	}

	return &entry, nil
}

// Set stores an entry with a redis TTL matching its expiry.
func (c *RedisCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	var ttl time.Duration
	if !entry.ExpiresAt.IsZero() {
		ttl = time.Until(entry.ExpiresAt)
		if ttl <= 0 {
			return nil
		}
	}

	err = c.client.Set(ctx, c.fullKey(key), data, ttl).Err()
	if err != nil {
		return fmt.Errorf("writing %s to redis: %w", key, err)
	}

	return nil
}

// Delete removes an entry.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	err := c.client.Del(ctx, c.fullKey(key)).Err()
	if err != nil {
		return fmt.Errorf("deleting %s from redis: %w", key, err)
	}

	return nil
}

// DeletePrefix removes every entry whose key starts with prefix.
func (c *RedisCache) DeletePrefix(ctx context.Context, prefix string) error {
	pattern := escapeGlob(c.fullKey(prefix)) + "*"
	iter := c.client.Scan(ctx, 0, pattern, constants.RedisScanCount).Iterator()

	var batch []string

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())

		if len(batch) >= constants.RedisScanCount {
			err := c.client.Del(ctx, batch...).Err()
			if err != nil {
				return fmt.Errorf("deleting redis keys: %w", err)
			}

			batch = batch[:0]
		}
	}

	err := iter.Err()
	if err != nil {
		return fmt.Errorf("scanning redis keys: %w", err)
	}

	if len(batch) > 0 {
		err = c.client.Del(ctx, batch...).Err()
		if err != nil {
			return fmt.Errorf("deleting redis keys: %w", err)
		}
	}

	return nil
}

// Clear removes every entry under the cache prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	return c.DeletePrefix(ctx, "")
}

// Has reports whether an unexpired entry exists for key.
func (c *RedisCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Ping checks the connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the client when the cache created it.
func (c *RedisCache) Close() error {
	if !c.ownsClient {
		return nil
	}

	return c.client.Close()
}

// escapeGlob escapes the characters redis MATCH patterns treat specially.
func escapeGlob(s string) string {
	var b strings.Builder

	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '^', '-', '\\':
			b.WriteByte('\\')
		}

		b.WriteRune(r)
	}

	return b.String()
}
