package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/hello-xone/xone-explorer-sub000/internal/http"
	"github.com/hello-xone/xone-explorer-sub000/pkg/explorer"
)

// HTTPDispatcher invokes resolved explorer requests over the HTTP client.
type HTTPDispatcher struct {
	httpClient *http.Client
}

// NewHTTPDispatcher creates a dispatcher backed by httpClient.
func NewHTTPDispatcher(httpClient *http.Client) *HTTPDispatcher {
	return &HTTPDispatcher{httpClient: httpClient}
}

// Invoke implements explorer.Dispatcher.
func (d *HTTPDispatcher) Invoke(ctx context.Context, req *explorer.Request) ([]byte, error) {
	headers := make(map[string]string, len(req.Headers))
	for key := range req.Headers {
		headers[key] = req.Headers.Get(key)
	}

	resp, err := d.httpClient.Do(ctx, &http.Request{
		Method:  req.Method,
		Path:    req.Path,
		Query:   req.Query,
		Headers: headers,
		Body:    req.Body,
	})
	if err != nil {
		var netErr *explorer.NetworkError
		if errors.As(err, &netErr) {
			netErr.Resource = req.Resource

			return nil, netErr
		}

		return nil, fmt.Errorf("dispatching %s: %w", req.Resource, err)
	}

	return resp.Body, nil
}
