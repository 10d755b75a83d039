package explorer_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/hello-xone/xone-explorer-sub000/pkg/explorer"
)

// handlerFunc answers one dispatched request.
type handlerFunc func(ctx context.Context, req *explorer.Request) ([]byte, error)

// fakeDispatcher routes requests by path and records what it saw.
type fakeDispatcher struct {
	mu       sync.Mutex
	routes   map[string]handlerFunc
	calls    map[string]int
	requests []*explorer.Request
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{
		routes: make(map[string]handlerFunc),
		calls:  make(map[string]int),
	}
}

func (d *fakeDispatcher) handle(path string, fn handlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.routes[path] = fn
}

func (d *fakeDispatcher) respond(path, body string) {
	d.handle(path, func(context.Context, *explorer.Request) ([]byte, error) {
		return []byte(body), nil
	})
}

func (d *fakeDispatcher) fail(path string, status int) {
	d.handle(path, func(_ context.Context, req *explorer.Request) ([]byte, error) {
		return nil, &explorer.NetworkError{
			Method:     req.Method,
			Path:       req.Path,
			StatusCode: status,
		}
	})
}

func (d *fakeDispatcher) Invoke(ctx context.Context, req *explorer.Request) ([]byte, error) {
	d.mu.Lock()
	d.calls[req.Path]++
	d.requests = append(d.requests, req)
	fn, ok := d.routes[req.Path]
	d.mu.Unlock()

	if !ok {
		return nil, &explorer.NetworkError{Method: req.Method, Path: req.Path, StatusCode: http.StatusNotFound}
	}

	return fn(ctx, req)
}

func (d *fakeDispatcher) count(path string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.calls[path]
}

func (d *fakeDispatcher) total() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.requests)
}

func (d *fakeDispatcher) last() *explorer.Request {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.requests) == 0 {
		return nil
	}

	return d.requests[len(d.requests)-1]
}

// tokenPages serves three pages of tokens keyed by the cursor they were
// requested with.
func tokenPages(d *fakeDispatcher) {
	d.handle("/api/v2/tokens", func(_ context.Context, req *explorer.Request) ([]byte, error) {
		switch req.Query.Get(explorer.CursorQueryParam) {
		case "":
			return []byte(`{"items":[{"address":"0x1","type":"ERC-20"}],"next_page_params":{"items_count":50}}`), nil
		case `{"items_count":50}`:
			return []byte(`{"items":[{"address":"0x2","type":"ERC-20"}],"next_page_params":{"items_count":100}}`), nil
		case `{"items_count":100}`:
			return []byte(`{"items":[{"address":"0x3","type":"ERC-20"}],"next_page_params":null}`), nil
		default:
			return nil, &explorer.NetworkError{Method: req.Method, Path: req.Path, StatusCode: http.StatusBadRequest}
		}
	})
}

func newTestQueryClient(t *testing.T, d explorer.Dispatcher, opts ...explorer.QueryClientOption) *explorer.QueryClient {
	t.Helper()

	client, err := explorer.NewQueryClient(nil, d, opts...)
	require.NoError(t, err)

	return client
}

// counterTotal sums every series of the named counter family in reg.
func counterTotal(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	var total float64

	for _, family := range families {
		if family.GetName() != name {
			continue
		}

		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}

	return total
}
