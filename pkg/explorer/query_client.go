package explorer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// FetchOption adjusts a single query.
type FetchOption func(*fetchOptions)

type fetchOptions struct {
	staleTime    time.Duration
	staleTimeSet bool
	context      string
	contextSet   bool
	body         any
	headers      map[string]string
	cursor       Cursor
}

// WithStaleTime lets a cached single-page result younger than d be reused.
func WithStaleTime(d time.Duration) FetchOption {
	return func(o *fetchOptions) {
		o.staleTime = d
		o.staleTimeSet = true
	}
}

// WithContext overrides the chain discriminator used in the query key.
func WithContext(discriminator string) FetchOption {
	return func(o *fetchOptions) {
		o.context = discriminator
		o.contextSet = true
	}
}

// WithBody sets the request body of a non-GET resource.
func WithBody(body any) FetchOption {
	return func(o *fetchOptions) {
		o.body = body
	}
}

// WithHeaders adds request headers for one query.
func WithHeaders(headers map[string]string) FetchOption {
	return func(o *fetchOptions) {
		o.headers = headers
	}
}

// WithCursor requests the page addressed by cursor.
func WithCursor(cursor Cursor) FetchOption {
	return func(o *fetchOptions) {
		o.cursor = cursor
	}
}

// QueryClientOption configures a QueryClient.
type QueryClientOption func(*QueryClient)

// WithCacheManager sets the query cache.
func WithCacheManager(cache *CacheManager) QueryClientOption {
	return func(q *QueryClient) {
		q.cache = cache
	}
}

// WithLogger sets the logger.
func WithLogger(logger Logger) QueryClientOption {
	return func(q *QueryClient) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(metrics *MetricsCollector) QueryClientOption {
	return func(q *QueryClient) {
		q.metrics = metrics
	}
}

// WithInterceptorChain sets the transport interceptors run around every
// dispatch.
func WithInterceptorChain(chain *InterceptorChain) QueryClientOption {
	return func(q *QueryClient) {
		if chain != nil {
			q.chain = chain
		}
	}
}

// WithDiscriminator sets the default context discriminator of query keys.
func WithDiscriminator(discriminator string) QueryClientOption {
	return func(q *QueryClient) {
		q.discriminator = discriminator
	}
}

// WithDefaultStaleTime sets the stale time used when a query passes none.
func WithDefaultStaleTime(d time.Duration) QueryClientOption {
	return func(q *QueryClient) {
		q.staleTime = d
	}
}

// QueryClient resolves, dispatches, normalizes and caches resource queries.
// It is safe for concurrent use.
type QueryClient struct {
	registry      *Registry
	dispatcher    Dispatcher
	cache         *CacheManager
	chain         *InterceptorChain
	logger        Logger
	metrics       *MetricsCollector
	discriminator string
	staleTime     time.Duration
	flights       *inflightGroup

	mu     sync.Mutex
	epochs map[string]uint64
}

// NewQueryClient creates a query client over a registry and dispatcher.
func NewQueryClient(registry *Registry, dispatcher Dispatcher, opts ...QueryClientOption) (*QueryClient, error) {
	if dispatcher == nil {
		return nil, ErrDispatcherRequired
	}

	if registry == nil {
		registry = DefaultRegistry()
	}

	q := &QueryClient{
		registry:   registry,
		dispatcher: dispatcher,
		chain:      NewInterceptorChain(),
		logger:     NewNoopLogger(),
		flights:    newInflightGroup(),
		epochs:     make(map[string]uint64),
	}

	for _, opt := range opts {
		opt(q)
	}

	if q.cache == nil {
		q.cache = NewCacheManager(NewMemoryCache(0), nil)
	}

	return q, nil
}

// Registry returns the resource registry.
func (q *QueryClient) Registry() *Registry {
	return q.registry
}

// Cache returns the cache manager.
func (q *QueryClient) Cache() *CacheManager {
	return q.cache
}

// Metrics returns the metrics collector, which may be nil.
func (q *QueryClient) Metrics() *MetricsCollector {
	return q.metrics
}

// CacheStats returns cache statistics.
func (q *QueryClient) CacheStats() CacheStats {
	return q.cache.GetStats()
}

// Query runs a query for the named resource. Programmer errors (unknown
// resource, missing path parameter) are returned before anything is
// dispatched.
func (q *QueryClient) Query(ctx context.Context, name string, pathParams map[string]string, query url.Values, opts ...FetchOption) (*QueryResult, error) {
	desc, err := q.registry.Lookup(name)
	if err != nil {
		return nil, err
	}

	o := q.options(opts)

	req, key, err := q.resolve(desc, pathParams, query, o)
	if err != nil {
		return nil, err
	}

	return q.execute(ctx, desc, req, key, o)
}

// Fetch implements Fetcher for interceptors. Secondary requests share the
// cache and de-duplication of primary ones.
func (q *QueryClient) Fetch(ctx context.Context, name string, pathParams map[string]string, query url.Values) ([]byte, error) {
	result, err := q.Query(ctx, name, pathParams, query)
	if err != nil {
		return nil, err
	}

	return result.Data, nil
}

// Key returns the query key a query would use, without running it.
func (q *QueryClient) Key(name string, pathParams map[string]string, query url.Values, opts ...FetchOption) (QueryKey, error) {
	desc, err := q.registry.Lookup(name)
	if err != nil {
		return QueryKey{}, err
	}

	_, key, err := q.resolve(desc, pathParams, query, q.options(opts))

	return key, err
}

// Invalidate drops every cached entry of a resource in the default context
// and prevents in-flight fetches of it from being cached.
func (q *QueryClient) Invalidate(ctx context.Context, name string) error {
	_, err := q.registry.Lookup(name)
	if err != nil {
		return err
	}

	scope := resourceScope(name, q.discriminator)
	q.bumpEpoch(scope)

	return q.cache.DeletePrefix(ctx, scope)
}

// InvalidateFamily drops every page cached for the family of key. Queries
// of the family issued afterwards never join a fetch started before.
func (q *QueryClient) InvalidateFamily(ctx context.Context, key QueryKey) error {
	q.bumpEpoch(key.Family())

	return q.cache.DeletePrefix(ctx, key.Family())
}

// invalidateForwardPages drops every page of the family of key except the
// first.
func (q *QueryClient) invalidateForwardPages(ctx context.Context, key QueryKey) error {
	q.bumpEpoch(key.Family())

	return q.cache.DeletePrefix(ctx, key.forwardPrefix())
}

func (q *QueryClient) options(opts []FetchOption) *fetchOptions {
	o := &fetchOptions{
		staleTime: q.staleTime,
		context:   q.discriminator,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// resolve builds the request and key of a query.
func (q *QueryClient) resolve(desc *ResourceDescriptor, pathParams map[string]string, query url.Values, o *fetchOptions) (*Request, QueryKey, error) {
	path, err := BuildPath(desc, pathParams)
	if err != nil {
		return nil, QueryKey{}, err
	}

	cursor := o.cursor
	if cursor.IsEmpty() {
		if raw := query.Get(cursorParam); raw != "" {
			cursor, err = DecodeCursor(raw)
			if err != nil {
				q.logger.Warn("Ignoring malformed cursor", map[string]interface{}{
					"resource": desc.Name,
					"error":    err.Error(),
				})

				cursor = nil
			}
		}
	}

	filtered := desc.filterQuery(query)

	key := NewQueryKey(desc.Name, o.context, pathParams, filtered, cursor)

	wire := make(url.Values, len(filtered)+1)
	for field, values := range filtered {
		wire[field] = values
	}

	if !cursor.IsEmpty() {
		wire.Set(cursorParam, cursor.Encode())
	}

	headers := make(http.Header, len(desc.Headers)+len(o.headers))
	for k, v := range desc.Headers {
		headers.Set(k, v)
	}

	for k, v := range o.headers {
		headers.Set(k, v)
	}

	req := &Request{
		Resource: desc.Name,
		Method:   desc.HTTPMethod(),
		Path:     path,
		Headers:  headers,
		Query:    wire,
		Body:     o.body,
		Metadata: map[string]interface{}{
			"query_key": key.String(),
		},
	}

	return req, key, nil
}

func (q *QueryClient) execute(ctx context.Context, desc *ResourceDescriptor, req *Request, key QueryKey, o *fetchOptions) (*QueryResult, error) {
	if req.Method != http.MethodGet {
		data, err := q.fetch(ctx, desc, req, key, epochStamp{}, false)
		if err != nil {
			return nil, err
		}

		return &QueryResult{Key: key, Data: data, FetchedAt: time.Now()}, nil
	}

	cacheKey := key.String()

	entry, ok := q.cache.Lookup(ctx, cacheKey)
	if ok && entry.IsFresh(o.staleTime) {
		q.metrics.RecordCacheLookup(desc.Name, true)

		return &QueryResult{
			Key:       key,
			Data:      entry.Data,
			FromCache: true,
			FetchedAt: entry.FetchedAt,
		}, nil
	}

	q.metrics.RecordCacheLookup(desc.Name, false)

	fetchedAt := time.Now()
	stamp := q.stamp(key)

	data, shared, err := q.flights.do(ctx, cacheKey+"#"+stamp.String(), func(fctx context.Context) ([]byte, error) {
		return q.fetch(fctx, desc, req, key, stamp, true)
	})
	if shared {
		q.metrics.RecordSharedCall(desc.Name)
	}

	if err != nil {
		return nil, err
	}

	return &QueryResult{
		Key:       key,
		Data:      data,
		Shared:    shared,
		FetchedAt: fetchedAt,
	}, nil
}

// fetch dispatches and normalizes a request. When cacheable, the result is
// stored unless the fetch was cancelled or its key was invalidated after
// stamp was taken.
func (q *QueryClient) fetch(ctx context.Context, desc *ResourceDescriptor, req *Request, key QueryKey, stamp epochStamp, cacheable bool) ([]byte, error) {
	raw, err := q.chain.Dispatch(ctx, q.dispatcher, req)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", desc.Name, err)
	}

	env := &pipelineEnv{
		resource: desc.Name,
		fetcher:  q,
		logger:   q.logger,
		metrics:  q.metrics,
	}

	data, err := desc.normalize(ctx, env, raw)
	if err != nil {
		return nil, err
	}

	if !cacheable || ctx.Err() != nil {
		return data, nil
	}

	q.store(ctx, key, stamp, data)

	return data, nil
}

// epochStamp is the invalidation state of a key when its fetch was issued.
type epochStamp struct {
	scope  uint64
	family uint64
}

func (e epochStamp) String() string {
	return strconv.FormatUint(e.scope, 10) + "." + strconv.FormatUint(e.family, 10)
}

// store writes a result if the key has not been invalidated since stamp was
// taken.
func (q *QueryClient) store(ctx context.Context, key QueryKey, stamp epochStamp, data []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stampLocked(key) != stamp {
		q.logger.Debug("Dropping result of invalidated query", map[string]interface{}{
			"key": key.String(),
		})

		return
	}

	_, err := q.cache.Put(ctx, key.String(), data, key.Cursor != "")
	if err != nil {
		q.logger.Warn("Failed to cache query result", map[string]interface{}{
			"key":   key.String(),
			"error": err.Error(),
		})
	}
}

func (q *QueryClient) stamp(key QueryKey) epochStamp {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.stampLocked(key)
}

func (q *QueryClient) stampLocked(key QueryKey) epochStamp {
	return epochStamp{
		scope:  q.epochs[key.Scope()],
		family: q.epochs[key.Family()],
	}
}

// bumpEpoch invalidates every key under prefix, which is either a resource
// scope or a family.
func (q *QueryClient) bumpEpoch(prefix string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.epochs[prefix]++
}
