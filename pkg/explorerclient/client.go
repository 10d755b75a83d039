package explorerclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/hello-xone/xone-explorer-sub000/internal/client"
	"github.com/hello-xone/xone-explorer-sub000/pkg/explorer"
)

// New creates a new explorer client. The endpoint is normalized before use:
// a trailing slash is trimmed and "https://" is added when no scheme is
// given. config itself is not modified.
func New(ctx context.Context, config *explorer.Config) (explorer.Client, error) {
	if config == nil {
		return nil, explorer.ErrConfigRequired
	}

	if config.APIEndpoint == "" {
		return nil, explorer.ErrAPIEndpointRequired
	}

	normalized := *config
	normalized.APIEndpoint = NormalizeEndpoint(config.APIEndpoint)

	client, err := client.New(ctx, &normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return client, nil
}

// NormalizeEndpoint trims a trailing slash and defaults the scheme to https.
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSuffix(strings.TrimSpace(endpoint), "/")
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	return endpoint
}

// NewWithEndpoint creates a new client with default settings.
func NewWithEndpoint(ctx context.Context, endpoint string) (explorer.Client, error) {
	return New(ctx, &explorer.Config{
		APIEndpoint: endpoint,
	})
}

// NewWithAPIKey creates a new client that authenticates with an explorer API
// key.
func NewWithAPIKey(ctx context.Context, endpoint, apiKey string) (explorer.Client, error) {
	return New(ctx, &explorer.Config{
		APIEndpoint: endpoint,
		APIKey:      apiKey,
	})
}

// NewWithCache creates a new client for one chain backed by the given query
// cache. Clients of different chains may share a redis or NATS backend.
func NewWithCache(ctx context.Context, endpoint, chainSlug string, cache *explorer.CacheConfig) (explorer.Client, error) {
	return New(ctx, &explorer.Config{
		APIEndpoint: endpoint,
		ChainSlug:   chainSlug,
		Cache:       cache,
	})
}
