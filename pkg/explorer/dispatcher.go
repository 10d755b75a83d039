package explorer

import (
	"context"
	"net/http"
	"net/url"
)

// Request is a fully resolved request for one resource.
type Request struct {
	Resource string
	Method   string
	Path     string
	Headers  http.Header
	Query    url.Values
	Body     any
	Metadata map[string]interface{}
}

// Dispatcher performs the remote call for a resolved request and returns
// the raw response body. Failed calls return a *NetworkError.
type Dispatcher interface {
	Invoke(ctx context.Context, req *Request) ([]byte, error)
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, req *Request) ([]byte, error)

// Invoke calls f(ctx, req).
func (f DispatcherFunc) Invoke(ctx context.Context, req *Request) ([]byte, error) {
	return f(ctx, req)
}
