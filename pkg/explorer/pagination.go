package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/hello-xone/xone-explorer-sub000/internal/constants"
)

const defaultMaxPages = constants.DefaultMaxPages

// PageState is the caller-visible state of a pagination session.
type PageState struct {
	Page        int  `json:"page"          yaml:"page"`
	HasNextPage bool `json:"has_next_page" yaml:"has_next_page"`
	HasPrevPage bool `json:"has_prev_page" yaml:"has_prev_page"`
	Fetching    bool `json:"fetching"      yaml:"fetching"`
}

// PageResult is the outcome of a pagination transition.
type PageResult struct {
	PageState
	Key       QueryKey        `json:"-"`
	Data      json.RawMessage `json:"data"`
	FromCache bool            `json:"from_cache"`
}

// PaginationSession walks a cursor-paginated resource. Page n+1 can only be
// reached from page n because its cursor is discovered in page n's
// response. The session owns its state; every transition bumps a
// generation and results of superseded transitions are discarded.
type PaginationSession struct {
	id         string
	client     *QueryClient
	desc       *ResourceDescriptor
	pathParams map[string]string
	opts       []FetchOption

	mu         sync.Mutex
	query      url.Values
	page       int
	cursors    map[int]Cursor
	nextCursor Cursor
	hasNext    bool
	generation uint64
	fetching   bool
	cancel     context.CancelFunc
	data       json.RawMessage
	key        QueryKey
	disposed   bool
}

// Paginate opens a session on page 1 of a paginated resource. Nothing is
// fetched until Load.
func (q *QueryClient) Paginate(name string, pathParams map[string]string, query url.Values, opts ...FetchOption) (*PaginationSession, error) {
	return q.ResumePagination(name, pathParams, query, "", 1, opts...)
}

// ResumePagination opens a session positioned on page with the cursor
// encoded in token, as produced by CursorToken. A missing or malformed token
// starts on page 1.
func (q *QueryClient) ResumePagination(name string, pathParams map[string]string, query url.Values, token string, page int, opts ...FetchOption) (*PaginationSession, error) {
	desc, err := q.registry.Lookup(name)
	if err != nil {
		return nil, err
	}

	if !desc.Paginated {
		return nil, fmt.Errorf("%w: %q", ErrNotPaginated, name)
	}

	_, err = BuildPath(desc, pathParams)
	if err != nil {
		return nil, err
	}

	s := &PaginationSession{
		id:         uuid.NewString(),
		client:     q,
		desc:       desc,
		pathParams: clonePathParams(pathParams),
		opts:       slices.Clone(opts),
		query:      desc.filterQuery(query),
		page:       1,
		cursors:    map[int]Cursor{1: {}},
	}

	cursor := ParseCursorToken(token)
	if page > 1 && !cursor.IsEmpty() {
		s.page = page
		s.cursors[page] = cursor
	} else if token != "" {
		q.logger.Debug("Starting pagination at page 1", map[string]interface{}{
			"resource": name,
			"token":    token,
		})
	}

	return s, nil
}

func clonePathParams(params map[string]string) map[string]string {
	cloned := make(map[string]string, len(params))
	for k, v := range params {
		cloned[k] = v
	}

	return cloned
}

// ID identifies the session in logs.
func (s *PaginationSession) ID() string {
	return s.id
}

// Resource returns the name of the paginated resource.
func (s *PaginationSession) Resource() string {
	return s.desc.Name
}

// State returns the current state.
func (s *PaginationSession) State() PageState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stateLocked()
}

func (s *PaginationSession) stateLocked() PageState {
	return PageState{
		Page:        s.page,
		HasNextPage: s.hasNext,
		HasPrevPage: s.page > 1,
		Fetching:    s.fetching,
	}
}

// Data returns the payload of the current page, or nil before the first
// successful fetch.
func (s *PaginationSession) Data() json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.data
}

// Query returns a copy of the filter parameters of the session.
func (s *PaginationSession) Query() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneValues(s.query)
}

// CursorToken returns a token restoring the current page through
// ResumePagination. Page 1 has an empty token.
func (s *PaginationSession) CursorToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return CursorToken(s.cursors[s.page])
}

// NextCursorToken returns a token for the page after the current one, or ""
// when the current page is the last.
func (s *PaginationSession) NextCursorToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasNext {
		return ""
	}

	return CursorToken(s.nextCursor)
}

// Load fetches the current page. It is the mount operation and the way to
// retry after a failed transition.
func (s *PaginationSession) Load(ctx context.Context) (*PageResult, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()

		return nil, ErrSessionDisposed
	}

	gen := s.bumpLocked()
	page, cursor := s.page, s.cursors[s.page]
	s.mu.Unlock()

	return s.fetch(ctx, gen, page, cursor)
}

// Next moves to the following page. It does nothing unless the current
// page reported a next cursor and no fetch is outstanding.
func (s *PaginationSession) Next(ctx context.Context) (*PageResult, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()

		return nil, ErrSessionDisposed
	}

	if !s.hasNext || s.fetching {
		result := s.resultLocked(false)
		s.mu.Unlock()

		return result, nil
	}

	s.page++
	s.cursors[s.page] = s.nextCursor
	gen := s.bumpLocked()
	page, cursor := s.page, s.nextCursor
	s.mu.Unlock()

	return s.fetch(ctx, gen, page, cursor)
}

// Prev moves to the previous page. It does nothing on page 1. Returning to
// page 1 refetches the first page and drops every forward page, since their
// cursors may no longer be valid. A previous page whose cursor is unknown,
// as after ResumePagination, also returns to page 1.
func (s *PaginationSession) Prev(ctx context.Context) (*PageResult, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()

		return nil, ErrSessionDisposed
	}

	if s.page <= 1 {
		result := s.resultLocked(false)
		s.mu.Unlock()

		return result, nil
	}

	s.page--
	if _, known := s.cursors[s.page]; !known {
		s.page = 1
	}

	toRoot := s.page == 1
	if toRoot {
		s.cursors = map[int]Cursor{1: {}}
	}

	gen := s.bumpLocked()
	page, cursor := s.page, s.cursors[s.page]
	s.mu.Unlock()

	result, err := s.fetch(ctx, gen, page, cursor)
	if err != nil || !toRoot {
		return result, err
	}

	err = s.client.invalidateForwardPages(ctx, result.Key)
	if err != nil {
		s.client.logger.Warn("Failed to drop forward pages", map[string]interface{}{
			"resource": s.desc.Name,
			"session":  s.id,
			"error":    err.Error(),
		})
	}

	return result, nil
}

// Reset returns to page 1, drops every cached page of the listing and
// refetches the first page. Any outstanding fetch is superseded.
func (s *PaginationSession) Reset(ctx context.Context) (*PageResult, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()

		return nil, ErrSessionDisposed
	}

	gen := s.resetLocked()
	query := s.query
	s.mu.Unlock()

	s.invalidateFamily(ctx, query)

	return s.fetch(ctx, gen, 1, nil)
}

// SetQuery replaces the filter parameters. Cursors of the old parameters
// are meaningless, so this resets the session.
func (s *PaginationSession) SetQuery(ctx context.Context, query url.Values) (*PageResult, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()

		return nil, ErrSessionDisposed
	}

	previous := s.query
	s.query = s.desc.filterQuery(query)
	gen := s.resetLocked()
	current := s.query
	s.mu.Unlock()

	s.invalidateFamily(ctx, previous)
	s.invalidateFamily(ctx, current)

	return s.fetch(ctx, gen, 1, nil)
}

// Dispose ends the session and cancels any outstanding fetch.
func (s *PaginationSession) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return
	}

	s.bumpLocked()
	s.disposed = true
}

func (s *PaginationSession) resetLocked() uint64 {
	s.page = 1
	s.cursors = map[int]Cursor{1: {}}
	s.nextCursor = nil
	s.hasNext = false
	s.data = nil

	return s.bumpLocked()
}

// bumpLocked starts a new generation and cancels the outstanding fetch.
func (s *PaginationSession) bumpLocked() uint64 {
	s.generation++

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	s.fetching = false

	return s.generation
}

func (s *PaginationSession) invalidateFamily(ctx context.Context, query url.Values) {
	key, err := s.client.Key(s.desc.Name, s.pathParams, query, s.opts...)
	if err == nil {
		err = s.client.InvalidateFamily(ctx, key)
	}

	if err != nil {
		s.client.logger.Warn("Failed to invalidate pages", map[string]interface{}{
			"resource": s.desc.Name,
			"session":  s.id,
			"error":    err.Error(),
		})
	}
}

func (s *PaginationSession) fetch(ctx context.Context, gen uint64, page int, cursor Cursor) (*PageResult, error) {
	fctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()

		return nil, ErrSuperseded
	}

	s.cancel = cancel
	s.fetching = true
	query := s.query
	s.mu.Unlock()

	opts := append(slices.Clone(s.opts), WithCursor(cursor))
	res, err := s.client.Query(fctx, s.desc.Name, s.pathParams, query, opts...)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen {
		s.client.metrics.RecordStaleDiscard(s.desc.Name)
		s.client.logger.Debug("Discarding superseded page", map[string]interface{}{
			"resource": s.desc.Name,
			"session":  s.id,
			"page":     page,
		})

		return nil, ErrSuperseded
	}

	s.fetching = false
	s.cancel = nil

	if err != nil {
		s.hasNext = false
		s.nextCursor = nil

		return nil, fmt.Errorf("loading page %d of %s: %w", page, s.desc.Name, err)
	}

	next, cerr := extractNextCursor(res.Data)
	if cerr != nil {
		s.client.logger.Warn("Treating malformed next page params as last page", map[string]interface{}{
			"resource": s.desc.Name,
			"session":  s.id,
			"error":    cerr.Error(),
		})
	}

	s.nextCursor = next
	s.hasNext = !next.IsEmpty()
	s.data = res.Data
	s.key = res.Key

	return s.resultLocked(res.FromCache), nil
}

func (s *PaginationSession) resultLocked(fromCache bool) *PageResult {
	return &PageResult{
		PageState: s.stateLocked(),
		Key:       s.key,
		Data:      s.data,
		FromCache: fromCache,
	}
}

func cloneValues(values url.Values) url.Values {
	cloned := make(url.Values, len(values))
	for k, v := range values {
		cloned[k] = slices.Clone(v)
	}

	return cloned
}

// Page is a decoded page of a typed pager.
type Page[T any] struct {
	PageState
	Items          []T    `json:"items"`
	NextPageParams Cursor `json:"next_page_params"`
	FromCache      bool   `json:"from_cache"`
}

// Pager is a typed view over a pagination session.
type Pager[T any] struct {
	session *PaginationSession
}

// NewPager opens a typed pagination session.
func NewPager[T any](p Paginator, r Resource[ListResponse[T]], pathParams map[string]string, query url.Values, opts ...FetchOption) (*Pager[T], error) {
	session, err := p.Paginate(r.Name, pathParams, query, opts...)
	if err != nil {
		return nil, err
	}

	return &Pager[T]{session: session}, nil
}

// Session returns the underlying session.
func (p *Pager[T]) Session() *PaginationSession {
	return p.session
}

// State returns the session state.
func (p *Pager[T]) State() PageState {
	return p.session.State()
}

// Load fetches the current page.
func (p *Pager[T]) Load(ctx context.Context) (*Page[T], error) {
	return decodePage[T](p.session.Load(ctx))
}

// Next moves to the following page.
func (p *Pager[T]) Next(ctx context.Context) (*Page[T], error) {
	return decodePage[T](p.session.Next(ctx))
}

// Prev moves to the previous page.
func (p *Pager[T]) Prev(ctx context.Context) (*Page[T], error) {
	return decodePage[T](p.session.Prev(ctx))
}

// Reset returns to page 1.
func (p *Pager[T]) Reset(ctx context.Context) (*Page[T], error) {
	return decodePage[T](p.session.Reset(ctx))
}

// SetQuery changes the filter parameters.
func (p *Pager[T]) SetQuery(ctx context.Context, query url.Values) (*Page[T], error) {
	return decodePage[T](p.session.SetQuery(ctx, query))
}

// Dispose ends the session.
func (p *Pager[T]) Dispose() {
	p.session.Dispose()
}

func decodePage[T any](result *PageResult, err error) (*Page[T], error) {
	if err != nil {
		return nil, err
	}

	page := &Page[T]{
		PageState: result.PageState,
		FromCache: result.FromCache,
	}

	if len(result.Data) == 0 {
		return page, nil
	}

	var list ListResponse[T]

	err = json.Unmarshal(result.Data, &list)
	if err != nil {
		return nil, fmt.Errorf("decoding page: %w", err)
	}

	page.Items = list.Items
	page.NextPageParams = list.NextPageParams

	return page, nil
}

// PaginationOptions bound a full walk over a listing.
type PaginationOptions struct {
	// MaxPages stops the walk after this many pages. Zero means
	// DefaultMaxPages.
	MaxPages int
}

// DefaultPaginationOptions returns the default walk options.
func DefaultPaginationOptions() *PaginationOptions {
	return &PaginationOptions{
		MaxPages: defaultMaxPages,
	}
}

// FetchAllPages follows cursors from the first page and returns every item.
func FetchAllPages[T any](ctx context.Context, q Querier, r Resource[ListResponse[T]], pathParams map[string]string, query url.Values, opts *PaginationOptions) ([]T, error) {
	return NewPageIterator(ctx, q, r, pathParams, query, opts).All()
}

// PageIterator walks the items of a listing across pages without a
// session.
type PageIterator[T any] struct {
	ctx        context.Context
	querier    Querier
	resource   Resource[ListResponse[T]]
	pathParams map[string]string
	query      url.Values
	maxPages   int

	cursor  Cursor
	items   []T
	index   int
	pages   int
	started bool
	done    bool
	err     error
}

// NewPageIterator creates an iterator positioned before the first item.
func NewPageIterator[T any](ctx context.Context, q Querier, r Resource[ListResponse[T]], pathParams map[string]string, query url.Values, opts *PaginationOptions) *PageIterator[T] {
	if opts == nil {
		opts = DefaultPaginationOptions()
	}

	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	return &PageIterator[T]{
		ctx:        ctx,
		querier:    q,
		resource:   r,
		pathParams: pathParams,
		query:      query,
		maxPages:   maxPages,
	}
}

// HasNext reports whether another item is available, fetching the next
// page when needed.
func (it *PageIterator[T]) HasNext() bool {
	for it.index >= len(it.items) {
		if it.err != nil || it.done {
			return false
		}

		it.fetchPage()
	}

	return true
}

// Next returns the next item.
func (it *PageIterator[T]) Next() (T, error) {
	var zero T

	if !it.HasNext() {
		if it.err != nil {
			return zero, it.err
		}

		return zero, ErrNoMoreItems
	}

	item := it.items[it.index]
	it.index++

	return item, nil
}

// Err returns the error that stopped the iteration.
func (it *PageIterator[T]) Err() error {
	return it.err
}

// All collects every remaining item.
func (it *PageIterator[T]) All() ([]T, error) {
	var all []T

	for it.HasNext() {
		all = append(all, it.items[it.index])
		it.index++
	}

	if it.err != nil {
		return nil, it.err
	}

	return all, nil
}

// ForEach calls fn for every remaining item, stopping at the first error.
func (it *PageIterator[T]) ForEach(fn func(T) error) error {
	for it.HasNext() {
		item := it.items[it.index]
		it.index++

		err := fn(item)
		if err != nil {
			return err
		}
	}

	return it.err
}

func (it *PageIterator[T]) fetchPage() {
	if (it.started && it.cursor.IsEmpty()) || it.pages >= it.maxPages {
		it.done = true

		return
	}

	it.started = true

	page, err := Get(it.ctx, it.querier, it.resource, it.pathParams, it.query, WithCursor(it.cursor))
	if err != nil {
		it.err = err

		return
	}

	it.pages++
	it.items = page.Items
	it.index = 0
	it.cursor = page.NextPageParams

	if it.cursor.IsEmpty() {
		it.done = len(it.items) == 0
	}
}
