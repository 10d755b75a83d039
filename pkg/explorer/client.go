package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Querier runs queries by resource name.
type Querier interface {
	Query(ctx context.Context, name string, pathParams map[string]string, query url.Values, opts ...FetchOption) (*QueryResult, error)
}

// Paginator opens pagination sessions by resource name.
type Paginator interface {
	Paginate(name string, pathParams map[string]string, query url.Values, opts ...FetchOption) (*PaginationSession, error)
}

// QueryClients provides the name-based query surface.
type QueryClients interface {
	Querier
	Paginator
	ResumePagination(name string, pathParams map[string]string, query url.Values, token string, page int, opts ...FetchOption) (*PaginationSession, error)
	Invalidate(ctx context.Context, name string) error
	Registry() *Registry
	CacheStats() CacheStats
}

// ChainDataClient provides typed access to blocks, transactions and
// addresses.
type ChainDataClient interface {
	Stats(ctx context.Context) (*HomeStats, error)
	TxsChart(ctx context.Context, resolution string) (*TxsChart, error)
	Block(ctx context.Context, heightOrHash string) (*Block, error)
	Blocks(query url.Values) (*Pager[Block], error)
	BlockTransactions(heightOrHash string, query url.Values) (*Pager[Transaction], error)
	Transaction(ctx context.Context, hash string) (*Transaction, error)
	Transactions(query url.Values) (*Pager[Transaction], error)
	TokenTransfers(hash string, query url.Values) (*Pager[TokenTransfer], error)
	Address(ctx context.Context, hash string) (*Address, error)
	AddressCounters(ctx context.Context, hash string) (*AddressCounters, error)
	AddressTransactions(hash string, query url.Values) (*Pager[Transaction], error)
	Search(query string) (*Pager[SearchResult], error)
}

// TokenClient provides typed access to tokens.
type TokenClient interface {
	Token(ctx context.Context, hash string) (*Token, error)
	Tokens(query url.Values) (*Pager[Token], error)
	TokenHolders(hash string, query url.Values) (*Pager[TokenHolder], error)
	TokenInstance(ctx context.Context, hash, id string) (*TokenInstance, error)
}

// PoolClient provides typed access to DEX pools.
type PoolClient interface {
	Pool(ctx context.Context, chainID, hash string) (*Pool, error)
	Pools(chainID string, query url.Values) (*Pager[Pool], error)
}

// AttestationClient provides typed access to attestations.
type AttestationClient interface {
	Attestation(ctx context.Context, uid string) (*Attestation, error)
	Attestations(query url.Values) (*Pager[Attestation], error)
}

// Client is the explorer data access client.
type Client interface {
	QueryClients
	ChainDataClient
	TokenClient
	PoolClient
	AttestationClient

	// Close releases cache connections and background goroutines.
	Close() error
}

// Config represents client configuration for building an explorer Client.
//
// # Caching
//
// Every GET query is cached under a key built from the resource name, the
// chain slug and the request parameters. Single-page queries are refetched
// on every call unless StaleTime (or a per-call WithStaleTime) allows a
// cached entry to be reused. Forward pages of a pagination session stay
// cached until the session resets.
//
// # Retries
//
// Retries are disabled by default. Set RetryMax to retry 5xx and 429
// responses and connection errors inside the HTTP layer.
type Config struct {
	// Required fields
	// APIEndpoint: base URL of the explorer API (e.g., "https://explorer.example.com").
	// explorerclient.New normalizes this value by trimming a trailing slash and
	// adding "https://" if no scheme is present.
	APIEndpoint string `validate:"required"`

	// ChainSlug: discriminates cache keys of clients talking to different
	// chains through one cache backend.
	ChainSlug string
	// APIKey: optional explorer API key, sent as X-API-Key.
	APIKey string

	// Optional configurations
	// HTTPTimeout: per attempt HTTP timeout. Callers should still bound
	// operations with context deadlines.
	HTTPTimeout time.Duration `validate:"gte=0"`
	// RetryMax: maximum number of retries for transient failures. Zero
	// disables retries.
	RetryMax int `validate:"gte=0"`
	// RetryWaitMin: minimum backoff between retries. Applied when RetryMax > 0.
	RetryWaitMin time.Duration `validate:"gte=0"`
	// RetryWaitMax: maximum backoff between retries. Applied when RetryMax > 0.
	RetryWaitMax time.Duration `validate:"gte=0"`
	// Debug: enables verbose HTTP request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger used by every layer.
	Logger Logger
	// UserAgent: overrides the default User-Agent header sent by the client.
	UserAgent string

	// Cache: query cache backend. Nil uses DefaultCacheConfig().
	Cache *CacheConfig `validate:"omitempty"`
	// StaleTime: default age below which cached single-page results are
	// reused. Zero always refetches.
	StaleTime time.Duration `validate:"gte=0"`
	// MetricsRegisterer: registers the prometheus collectors when set.
	MetricsRegisterer prometheus.Registerer
	// CircuitBreaker: enables the circuit breaker interceptor when set.
	CircuitBreaker *CircuitBreakerConfig `validate:"omitempty"`
	// Registry: resources available to the client. Nil uses DefaultRegistry().
	Registry *Registry
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigRequired
	}

	if c.APIEndpoint == "" {
		return ErrAPIEndpointRequired
	}

	err := validate.Struct(c)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// Get runs a typed query and decodes its canonical payload.
func Get[T any](ctx context.Context, q Querier, r Resource[T], pathParams map[string]string, query url.Values, opts ...FetchOption) (*T, error) {
	result, err := q.Query(ctx, r.Name, pathParams, query, opts...)
	if err != nil {
		return nil, err
	}

	var payload T

	err = json.Unmarshal(result.Data, &payload)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", r.Name, err)
	}

	return &payload, nil
}
