package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/hello-xone/xone-explorer-sub000/internal/constants"
	"github.com/hello-xone/xone-explorer-sub000/internal/http"
	"github.com/hello-xone/xone-explorer-sub000/pkg/explorer"
)

// Client implements the explorer.Client interface.
type Client struct {
	*explorer.QueryClient

	cache   explorer.Cache
	breaker *explorer.CircuitBreaker
	logger  explorer.Logger
	baseURL string
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *explorer.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	return httpOpts
}

// createInterceptorChain builds the transport interceptors for config.
func createInterceptorChain(config *explorer.Config, logger explorer.Logger, metrics *explorer.MetricsCollector, breaker *explorer.CircuitBreaker) *explorer.InterceptorChain {
	chain := explorer.NewInterceptorChain()

	chain.AddRequestInterceptor(explorer.RequestIDInterceptor())
	chain.AddRequestInterceptor(explorer.APIKeyInterceptor(config.APIKey))
	chain.AddRequestInterceptor(explorer.LoggingInterceptor(logger))
	chain.AddRequestInterceptor(explorer.MetricsRequestInterceptor(metrics))

	if breaker != nil {
		chain.AddRequestInterceptor(explorer.CircuitBreakerRequestInterceptor(breaker))
		chain.AddResponseInterceptor(explorer.CircuitBreakerResponseInterceptor(breaker))
	}

	chain.AddResponseInterceptor(explorer.MetricsResponseInterceptor(metrics))
	chain.AddResponseInterceptor(explorer.LoggingResponseInterceptor(logger))

	return chain
}

// New creates a new explorer client talking HTTP to config.APIEndpoint.
func New(ctx context.Context, config *explorer.Config) (*Client, error) {
	err := config.Validate()
	if err != nil {
		return nil, err
	}

	httpClient := http.NewClient(config.APIEndpoint, createHTTPClientOptions(config)...)

	client, err := NewWithDispatcher(config, NewHTTPDispatcher(httpClient))
	if err != nil {
		return nil, err
	}

	client.logger.Debug("Explorer client created", map[string]interface{}{
		"endpoint": config.APIEndpoint,
		"chain":    config.ChainSlug,
	})

	return client, nil
}

// NewWithDispatcher creates a client that sends requests through dispatcher
// instead of HTTP.
func NewWithDispatcher(config *explorer.Config, dispatcher explorer.Dispatcher) (*Client, error) {
	err := config.Validate()
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = explorer.NewNoopLogger()
	}

	cache, err := explorer.NewCacheFromConfig(config.Cache)
	if err != nil {
		return nil, fmt.Errorf("creating query cache: %w", err)
	}

	var cacheOptions *explorer.CacheOptions
	if config.Cache != nil {
		cacheOptions = config.Cache.Options
	}

	var breaker *explorer.CircuitBreaker
	if config.CircuitBreaker != nil {
		breaker = explorer.NewCircuitBreaker(config.CircuitBreaker)
	}

	metrics := explorer.NewMetricsCollector(config.MetricsRegisterer)

	queries, err := explorer.NewQueryClient(config.Registry, dispatcher,
		explorer.WithCacheManager(explorer.NewCacheManager(cache, cacheOptions)),
		explorer.WithLogger(logger),
		explorer.WithMetrics(metrics),
		explorer.WithInterceptorChain(createInterceptorChain(config, logger, metrics, breaker)),
		explorer.WithDiscriminator(config.ChainSlug),
		explorer.WithDefaultStaleTime(config.StaleTime),
	)
	if err != nil {
		_ = explorer.CloseCache(cache)

		return nil, fmt.Errorf("creating query client: %w", err)
	}

	return &Client{
		QueryClient: queries,
		cache:       cache,
		breaker:     breaker,
		logger:      logger,
		baseURL:     config.APIEndpoint,
	}, nil
}

// BaseURL returns the explorer endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CircuitState returns the circuit breaker state, or "" when no breaker is
// configured.
func (c *Client) CircuitState() string {
	if c.breaker == nil {
		return ""
	}

	return c.breaker.State()
}

// Close implements explorer.Client.Close.
func (c *Client) Close() error {
	err := explorer.CloseCache(c.cache)
	if err != nil {
		return fmt.Errorf("closing query cache: %w", err)
	}

	return nil
}

// Stats implements explorer.ChainDataClient.Stats.
func (c *Client) Stats(ctx context.Context) (*explorer.HomeStats, error) {
	return explorer.Get(ctx, c, explorer.Stats, nil, nil)
}

// TxsChart implements explorer.ChainDataClient.TxsChart. An empty
// resolution requests the default daily series.
func (c *Client) TxsChart(ctx context.Context, resolution string) (*explorer.TxsChart, error) {
	var pathParams map[string]string
	if resolution != "" {
		pathParams = map[string]string{"resolution": resolution}
	}

	return explorer.Get(ctx, c, explorer.TxsChartResource, pathParams, nil)
}

// Block implements explorer.ChainDataClient.Block.
func (c *Client) Block(ctx context.Context, heightOrHash string) (*explorer.Block, error) {
	return explorer.Get(ctx, c, explorer.BlockResource, map[string]string{"height_or_hash": heightOrHash}, nil)
}

// Blocks implements explorer.ChainDataClient.Blocks.
func (c *Client) Blocks(query url.Values) (*explorer.Pager[explorer.Block], error) {
	return explorer.NewPager(c, explorer.Blocks, nil, query)
}

// BlockTransactions implements explorer.ChainDataClient.BlockTransactions.
func (c *Client) BlockTransactions(heightOrHash string, query url.Values) (*explorer.Pager[explorer.Transaction], error) {
	return explorer.NewPager(c, explorer.BlockTxs, map[string]string{"height_or_hash": heightOrHash}, query)
}

// Transaction implements explorer.ChainDataClient.Transaction.
func (c *Client) Transaction(ctx context.Context, hash string) (*explorer.Transaction, error) {
	return explorer.Get(ctx, c, explorer.TxResource, map[string]string{"hash": hash}, nil)
}

// Transactions implements explorer.ChainDataClient.Transactions.
func (c *Client) Transactions(query url.Values) (*explorer.Pager[explorer.Transaction], error) {
	return explorer.NewPager(c, explorer.TxsValidated, nil, query)
}

// TokenTransfers implements explorer.ChainDataClient.TokenTransfers.
func (c *Client) TokenTransfers(hash string, query url.Values) (*explorer.Pager[explorer.TokenTransfer], error) {
	return explorer.NewPager(c, explorer.TxTokenTransfers, map[string]string{"hash": hash}, query)
}

// Address implements explorer.ChainDataClient.Address.
func (c *Client) Address(ctx context.Context, hash string) (*explorer.Address, error) {
	return explorer.Get(ctx, c, explorer.AddressResource, map[string]string{"hash": hash}, nil)
}

// AddressCounters implements explorer.ChainDataClient.AddressCounters.
func (c *Client) AddressCounters(ctx context.Context, hash string) (*explorer.AddressCounters, error) {
	return explorer.Get(ctx, c, explorer.AddressCountersResource, map[string]string{"hash": hash}, nil)
}

// AddressTransactions implements explorer.ChainDataClient.AddressTransactions.
func (c *Client) AddressTransactions(hash string, query url.Values) (*explorer.Pager[explorer.Transaction], error) {
	return explorer.NewPager(c, explorer.AddressTxs, map[string]string{"hash": hash}, query)
}

// Search implements explorer.ChainDataClient.Search.
func (c *Client) Search(query string) (*explorer.Pager[explorer.SearchResult], error) {
	return explorer.NewPager(c, explorer.Search, nil, url.Values{"q": []string{query}})
}

// Token implements explorer.TokenClient.Token.
func (c *Client) Token(ctx context.Context, hash string) (*explorer.Token, error) {
	return explorer.Get(ctx, c, explorer.TokenResource, map[string]string{"hash": hash}, nil)
}

// Tokens implements explorer.TokenClient.Tokens.
func (c *Client) Tokens(query url.Values) (*explorer.Pager[explorer.Token], error) {
	return explorer.NewPager(c, explorer.Tokens, nil, query)
}

// TokenHolders implements explorer.TokenClient.TokenHolders.
func (c *Client) TokenHolders(hash string, query url.Values) (*explorer.Pager[explorer.TokenHolder], error) {
	return explorer.NewPager(c, explorer.TokenHolders, map[string]string{"hash": hash}, query)
}

// TokenInstance implements explorer.TokenClient.TokenInstance.
func (c *Client) TokenInstance(ctx context.Context, hash, id string) (*explorer.TokenInstance, error) {
	return explorer.Get(ctx, c, explorer.TokenInstanceResource, map[string]string{"hash": hash, "id": id}, nil)
}

// Pool implements explorer.PoolClient.Pool.
func (c *Client) Pool(ctx context.Context, chainID, hash string) (*explorer.Pool, error) {
	return explorer.Get(ctx, c, explorer.PoolResource, map[string]string{"chain_id": chainID, "hash": hash}, nil)
}

// Pools implements explorer.PoolClient.Pools.
func (c *Client) Pools(chainID string, query url.Values) (*explorer.Pager[explorer.Pool], error) {
	return explorer.NewPager(c, explorer.Pools, map[string]string{"chain_id": chainID}, query)
}

// Attestation implements explorer.AttestationClient.Attestation.
func (c *Client) Attestation(ctx context.Context, uid string) (*explorer.Attestation, error) {
	return explorer.Get(ctx, c, explorer.AttestationResource, map[string]string{"uid": uid}, nil)
}

// Attestations implements explorer.AttestationClient.Attestations.
func (c *Client) Attestations(query url.Values) (*explorer.Pager[explorer.Attestation], error) {
	return explorer.NewPager(c, explorer.Attestations, nil, query)
}

var _ explorer.Client = (*Client)(nil)
