package explorer_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hello-xone/xone-explorer-sub000/pkg/explorer"
)

var (
	errInterceptor = errors.New("interceptor error")
	errTransport   = errors.New("connection reset")
)

func newRequest() *explorer.Request {
	return &explorer.Request{
		Resource: "blocks",
		Method:   http.MethodGet,
		Path:     "/api/v2/blocks",
		Query:    url.Values{},
	}
}

func okDispatcher(body string) explorer.Dispatcher {
	return explorer.DispatcherFunc(func(context.Context, *explorer.Request) ([]byte, error) {
		return []byte(body), nil
	})
}

func statusDispatcher(status int) explorer.Dispatcher {
	return explorer.DispatcherFunc(func(_ context.Context, req *explorer.Request) ([]byte, error) {
		return nil, &explorer.NetworkError{Method: req.Method, Path: req.Path, StatusCode: status}
	})
}

func TestInterceptorChain_Order(t *testing.T) {
	t.Parallel()

	var order []string

	chain := explorer.NewInterceptorChain()
	chain.AddRequestInterceptor(func(context.Context, *explorer.Request) error {
		order = append(order, "request-1")

		return nil
	})
	chain.AddRequestInterceptor(func(context.Context, *explorer.Request) error {
		order = append(order, "request-2")

		return nil
	})
	chain.AddResponseInterceptor(func(_ context.Context, _ *explorer.Request, resp *explorer.Response) error {
		order = append(order, "response-1")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ok", string(resp.Body))

		return nil
	})

	body, err := chain.Dispatch(context.Background(), okDispatcher("ok"), newRequest())
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, []string{"request-1", "request-2", "response-1"}, order)
}

func TestInterceptorChain_RequestError(t *testing.T) {
	t.Parallel()

	invoked := false

	chain := explorer.NewInterceptorChain()
	chain.AddRequestInterceptor(func(context.Context, *explorer.Request) error {
		return errInterceptor
	})

	_, err := chain.Dispatch(context.Background(), explorer.DispatcherFunc(func(context.Context, *explorer.Request) ([]byte, error) {
		invoked = true

		return nil, nil
	}), newRequest())
	require.ErrorIs(t, err, errInterceptor)
	assert.Contains(t, err.Error(), "request interceptor failed")
	assert.False(t, invoked)
}

func TestInterceptorChain_ErrorPrecedence(t *testing.T) {
	t.Parallel()

	chain := explorer.NewInterceptorChain()
	chain.AddResponseInterceptor(func(context.Context, *explorer.Request, *explorer.Response) error {
		return errInterceptor
	})

	_, err := chain.Dispatch(context.Background(), statusDispatcher(http.StatusBadGateway), newRequest())
	require.Error(t, err)
	assert.True(t, explorer.IsNetworkError(err))
	assert.NotErrorIs(t, err, errInterceptor)

	_, err = chain.Dispatch(context.Background(), okDispatcher("ok"), newRequest())
	require.ErrorIs(t, err, errInterceptor)
	assert.Contains(t, err.Error(), "response interceptor failed")
}

func TestInterceptorChain_StatusCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		dispatcher explorer.Dispatcher
		expected   int
	}{
		{"success", okDispatcher("{}"), http.StatusOK},
		{"api error", statusDispatcher(http.StatusNotFound), http.StatusNotFound},
		{"transport error", explorer.DispatcherFunc(func(context.Context, *explorer.Request) ([]byte, error) {
			return nil, errTransport
		}), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var status int

			chain := explorer.NewInterceptorChain()
			chain.AddResponseInterceptor(func(_ context.Context, _ *explorer.Request, resp *explorer.Response) error {
				status = resp.StatusCode

				return nil
			})

			_, _ = chain.Dispatch(context.Background(), tt.dispatcher, newRequest())
			assert.Equal(t, tt.expected, status)
		})
	}
}

func TestHeaderInterceptors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	req := newRequest()
	require.NoError(t, explorer.APIKeyInterceptor("secret")(ctx, req))
	assert.Equal(t, "secret", req.Headers.Get("X-API-Key"))

	req = newRequest()
	require.NoError(t, explorer.APIKeyInterceptor("")(ctx, req))
	assert.Empty(t, req.Headers.Get("X-API-Key"))

	req = newRequest()
	req.Headers = http.Header{"Accept": {"text/plain"}}
	require.NoError(t, explorer.HeaderInterceptor(map[string]string{
		"Accept":  "application/json",
		"X-Extra": "1",
	})(ctx, req))
	assert.Equal(t, "text/plain", req.Headers.Get("Accept"))
	assert.Equal(t, "1", req.Headers.Get("X-Extra"))
}

func TestRequestIDInterceptor(t *testing.T) {
	t.Parallel()

	req := newRequest()
	require.NoError(t, explorer.RequestIDInterceptor()(explorer.WithRequestID(context.Background(), "req-1"), req))
	assert.Equal(t, "req-1", req.Headers.Get("X-Request-Id"))
	assert.Equal(t, "req-1", req.Metadata["request_id"])

	req = newRequest()
	require.NoError(t, explorer.RequestIDInterceptor()(context.Background(), req))

	_, err := uuid.Parse(req.Headers.Get("X-Request-Id"))
	require.NoError(t, err)
}

func TestLoggingInterceptors(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := explorer.NewZapLogger(zap.New(core))

	chain := explorer.NewInterceptorChain()
	chain.AddRequestInterceptor(explorer.LoggingInterceptor(logger))
	chain.AddResponseInterceptor(explorer.LoggingResponseInterceptor(logger))

	_, err := chain.Dispatch(context.Background(), okDispatcher("{}"), newRequest())
	require.NoError(t, err)

	_, err = chain.Dispatch(context.Background(), statusDispatcher(http.StatusInternalServerError), newRequest())
	require.Error(t, err)

	assert.Equal(t, 2, logs.FilterMessage("API Request").Len())
	assert.Equal(t, 1, logs.FilterMessage("API Response").Len())

	failures := logs.FilterMessage("API Response Error").All()
	require.Len(t, failures, 1)
	assert.Equal(t, zapcore.ErrorLevel, failures[0].Level)
	assert.EqualValues(t, http.StatusInternalServerError, failures[0].ContextMap()["status_code"])
}

func TestMetricsInterceptors(t *testing.T) {
	t.Parallel()

	metrics := explorer.NewMetricsCollector(nil)

	chain := explorer.NewInterceptorChain()
	chain.AddRequestInterceptor(explorer.MetricsRequestInterceptor(metrics))
	chain.AddResponseInterceptor(explorer.MetricsResponseInterceptor(metrics))

	_, err := chain.Dispatch(context.Background(), okDispatcher("{}"), newRequest())
	require.NoError(t, err)

	_, err = chain.Dispatch(context.Background(), statusDispatcher(http.StatusNotFound), newRequest())
	require.Error(t, err)

	snapshot := metrics.GetMetrics("blocks")
	require.NotNil(t, snapshot)
	assert.Equal(t, int64(2), snapshot.TotalRequests)
	assert.Equal(t, int64(1), snapshot.TotalErrors)
	assert.False(t, snapshot.LastRequestTime.IsZero())
}

func newBreakerChain(breaker *explorer.CircuitBreaker) *explorer.InterceptorChain {
	chain := explorer.NewInterceptorChain()
	chain.AddRequestInterceptor(explorer.CircuitBreakerRequestInterceptor(breaker))
	chain.AddResponseInterceptor(explorer.CircuitBreakerResponseInterceptor(breaker))

	return chain
}

func TestCircuitBreaker(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	breaker := explorer.NewCircuitBreaker(&explorer.CircuitBreakerConfig{
		Threshold:        2,
		Timeout:          20 * time.Millisecond,
		SuccessThreshold: 1,
	})
	chain := newBreakerChain(breaker)

	assert.Equal(t, "closed", breaker.State())

	for range 2 {
		_, err := chain.Dispatch(ctx, statusDispatcher(http.StatusServiceUnavailable), newRequest())
		require.Error(t, err)
	}

	assert.Equal(t, "open", breaker.State())

	_, err := chain.Dispatch(ctx, okDispatcher("{}"), newRequest())
	require.ErrorIs(t, err, explorer.ErrCircuitBreakerOpen)

	time.Sleep(30 * time.Millisecond)

	_, err = chain.Dispatch(ctx, statusDispatcher(http.StatusBadGateway), newRequest())
	require.Error(t, err)
	assert.Equal(t, "open", breaker.State())

	time.Sleep(30 * time.Millisecond)

	_, err = chain.Dispatch(ctx, okDispatcher("{}"), newRequest())
	require.NoError(t, err)
	assert.Equal(t, "closed", breaker.State())
}

func TestCircuitBreaker_IgnoresClientErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	breaker := explorer.NewCircuitBreaker(&explorer.CircuitBreakerConfig{
		Threshold:        1,
		Timeout:          time.Minute,
		SuccessThreshold: 1,
	})
	chain := newBreakerChain(breaker)

	_, err := chain.Dispatch(ctx, statusDispatcher(http.StatusNotFound), newRequest())
	require.Error(t, err)
	assert.Equal(t, "closed", breaker.State())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	_, err = chain.Dispatch(cancelled, explorer.DispatcherFunc(func(ctx context.Context, _ *explorer.Request) ([]byte, error) {
		return nil, ctx.Err()
	}), newRequest())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "closed", breaker.State())

	_, err = chain.Dispatch(ctx, explorer.DispatcherFunc(func(context.Context, *explorer.Request) ([]byte, error) {
		return nil, errTransport
	}), newRequest())
	require.ErrorIs(t, err, errTransport)
	assert.Equal(t, "open", breaker.State())
}

func TestDefaultCircuitBreakerConfig(t *testing.T) {
	t.Parallel()

	config := explorer.DefaultCircuitBreakerConfig()
	assert.Equal(t, 5, config.Threshold)
	assert.Equal(t, 60*time.Second, config.Timeout)
	assert.Equal(t, 2, config.SuccessThreshold)

	assert.Equal(t, "closed", explorer.NewCircuitBreaker(nil).State())
}
