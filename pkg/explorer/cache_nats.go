package explorer

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/hello-xone/xone-explorer-sub000/internal/constants"
)

// ErrNATSURLRequired is returned when neither a URL nor a connection is set.
var ErrNATSURLRequired = errors.New("NATS URL or connection is required")

// NATSKVConfig configures the NATS JetStream key-value cache.
type NATSKVConfig struct {
	// URL of the NATS server. Ignored when Conn is set.
	URL string `yaml:"url"`

	// Bucket is the key-value bucket name, created when missing.
	Bucket string `yaml:"bucket"`

	// TTL is the bucket-level maximum age of entries.
	TTL time.Duration `yaml:"ttl"`

	// Replicas is the bucket replication factor.
	Replicas int `yaml:"replicas"`

	// Conn reuses an existing connection. The cache does not close it.
	Conn *nats.Conn `yaml:"-"`
}

// NATSKVCache stores query results in a JetStream key-value bucket. Keys are
// hex encoded because query keys contain characters NATS subjects reject;
// hex encoding keeps prefixes, so prefix deletes still work.
type NATSKVCache struct {
	conn     *nats.Conn
	kv       nats.KeyValue
	ownsConn bool
}

// NewNATSKVCache connects to NATS and opens (or creates) the bucket.
func NewNATSKVCache(config *NATSKVConfig) (*NATSKVCache, error) {
	if config.Conn == nil && config.URL == "" {
		return nil, ErrNATSURLRequired
	}

	conn := config.Conn
	ownsConn := false

	if conn == nil {
		var err error

		conn, err = nats.Connect(config.URL, nats.Name("xexplorer-query-cache"))
		if err != nil {
			return nil, fmt.Errorf("connecting to NATS: %w", err)
		}

		ownsConn = true
	}

	js, err := conn.JetStream()
	if err != nil {
		closeIfOwned(conn, ownsConn)

		return nil, fmt.Errorf("opening JetStream context: %w", err)
	}

	bucket := config.Bucket
	if bucket == "" {
		bucket = constants.DefaultNATSBucket
	}

	kv, err := js.KeyValue(bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		replicas := config.Replicas
		if replicas <= 0 {
			replicas = 1
		}

		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      bucket,
			Description: "xexplorer query cache",
			TTL:         config.TTL,
			Replicas:    replicas,
		})
	}

	if err != nil {
		closeIfOwned(conn, ownsConn)

		return nil, fmt.Errorf("opening key-value bucket %q: %w", bucket, err)
	}

	return &NATSKVCache{
		conn:     conn,
		kv:       kv,
		ownsConn: ownsConn,
	}, nil
}

func closeIfOwned(conn *nats.Conn, owned bool) {
	if owned {
		conn.Close()
	}
}

func natsKey(key string) string {
	return hex.EncodeToString([]byte(key))
}

// Get retrieves an entry.
func (c *NATSKVCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	kve, err := c.kv.Get(natsKey(key))
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	if err != nil {
		return nil, fmt.Errorf("reading %s from NATS: %w", key, err)
	}

	var entry CacheEntry

	err = json.Unmarshal(kve.Value(), &entry)
	if err != nil {
		_ = c.kv.Delete(natsKey(key))

		return nil, fmt.Errorf("decoding cache entry %s: %w", key, err)
	}

	if entry.IsExpired() {
		_ = c.kv.Delete(natsKey(key))

		return nil, fmt.Errorf("%w: %s", ErrEntryExpired, key)
	}

	return &entry, nil
}

// Set stores an entry.
func (c *NATSKVCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	_, err = c.kv.Put(natsKey(key), data)
	if err != nil {
		return fmt.Errorf("writing %s to NATS: %w", key, err)
	}

	return nil
}

// Delete removes an entry.
func (c *NATSKVCache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(natsKey(key))
	if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("deleting %s from NATS: %w", key, err)
	}

	return nil
}

// DeletePrefix removes every entry whose key starts with prefix.
func (c *NATSKVCache) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := c.kv.Keys(nats.Context(ctx))
	if errors.Is(err, nats.ErrNoKeysFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("listing NATS keys: %w", err)
	}

	encoded := natsKey(prefix)

	for _, k := range keys {
		if !strings.HasPrefix(k, encoded) {
			continue
		}

		err := c.kv.Delete(k)
		if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
			return fmt.Errorf("deleting NATS key: %w", err)
		}
	}

	return nil
}

// Clear removes all entries.
func (c *NATSKVCache) Clear(ctx context.Context) error {
	return c.DeletePrefix(ctx, "")
}

// Has reports whether an unexpired entry exists for key.
func (c *NATSKVCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Close closes the connection when the cache opened it.
func (c *NATSKVCache) Close() error {
	closeIfOwned(c.conn, c.ownsConn)

	return nil
}
