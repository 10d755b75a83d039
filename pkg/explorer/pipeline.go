package explorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"golang.org/x/sync/errgroup"
)

// Transform converts a raw response into the canonical payload of a
// resource.
type Transform[T any] func(raw []byte) (*T, error)

// Interceptor patches a canonical payload using secondary requests.
type Interceptor[T any] struct {
	// Name identifies the interceptor in logs and metrics.
	Name string

	// Trigger decides whether Enrich runs. A nil Trigger always fires.
	Trigger func(payload *T) bool

	// Enrich mutates payload. Secondary requests go through fetch.
	Enrich func(ctx context.Context, fetch Fetcher, payload *T) error

	// Fields are the JSON fields copied from the enriched payload. When
	// empty the whole enriched payload replaces the canonical one.
	Fields []string
}

// Fetcher issues secondary requests by resource name through the same
// registry, dispatcher and cache as the primary request.
type Fetcher interface {
	Fetch(ctx context.Context, name string, pathParams map[string]string, query url.Values) ([]byte, error)
}

// FetchRequest names one secondary request for FetchAll.
type FetchRequest struct {
	Resource   string
	PathParams map[string]string
	Query      url.Values
}

// FetchAll runs the requests concurrently and returns their payloads in
// order. The first failure cancels the rest.
func FetchAll(ctx context.Context, f Fetcher, reqs ...FetchRequest) ([][]byte, error) {
	results := make([][]byte, len(reqs))

	g, gctx := errgroup.WithContext(ctx)

	for i, req := range reqs {
		g.Go(func() error {
			data, err := f.Fetch(gctx, req.Resource, req.PathParams, req.Query)
			if err != nil {
				return fmt.Errorf("fetching %s: %w", req.Resource, err)
			}

			results[i] = data

			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return nil, err
	}

	return results, nil
}

// FetchAs fetches a typed resource through f and decodes it.
func FetchAs[T any](ctx context.Context, f Fetcher, r Resource[T], pathParams map[string]string, query url.Values) (*T, error) {
	data, err := f.Fetch(ctx, r.Name, pathParams, query)
	if err != nil {
		return nil, err
	}

	var payload T

	err = json.Unmarshal(data, &payload)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", r.Name, err)
	}

	return &payload, nil
}

// pipelineEnv carries what a pipeline needs from the executing client.
type pipelineEnv struct {
	resource string
	fetcher  Fetcher
	logger   Logger
	metrics  *MetricsCollector
}

type pipeline[T any] struct {
	transform   Transform[T]
	interceptor *Interceptor[T]
}

func (p *pipeline[T]) hasTransform() bool {
	return p.transform != nil
}

func (p *pipeline[T]) interceptorName() string {
	if p.interceptor == nil {
		return ""
	}

	return p.interceptor.Name
}

// normalize applies the transform, then the interceptor. A transform failure
// fails the query. Any interceptor failure falls back to the canonical
// payload.
func (p *pipeline[T]) normalize(ctx context.Context, env *pipelineEnv, raw []byte) ([]byte, error) {
	canonical := raw

	if p.transform != nil {
		payload, err := p.transform(raw)
		if err != nil {
			return nil, fmt.Errorf("transforming %s response: %w", env.resource, err)
		}

		canonical, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding %s payload: %w", env.resource, err)
		}
	}

	if p.interceptor == nil || p.interceptor.Enrich == nil {
		return canonical, nil
	}

	enriched, err := p.enrich(ctx, env, canonical)
	if err != nil {
		env.logger.Warn("Interceptor failed, returning unmodified payload", map[string]interface{}{
			"resource":    env.resource,
			"interceptor": p.interceptor.Name,
			"error":       fmt.Errorf("%w: %w", ErrEnrichmentFailed, err).Error(),
		})
		env.metrics.RecordEnrichmentFailure(env.resource, p.interceptor.Name)

		return canonical, nil
	}

	return enriched, nil
}

func (p *pipeline[T]) enrich(ctx context.Context, env *pipelineEnv, canonical []byte) ([]byte, error) {
	var payload T

	err := json.Unmarshal(canonical, &payload)
	if err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}

	if p.interceptor.Trigger != nil && !p.interceptor.Trigger(&payload) {
		return canonical, nil
	}

	err = p.interceptor.Enrich(ctx, env.fetcher, &payload)
	if err != nil {
		return nil, err
	}

	enriched, err := json.Marshal(&payload)
	if err != nil {
		return nil, fmt.Errorf("encoding enriched payload: %w", err)
	}

	if len(p.interceptor.Fields) == 0 {
		return enriched, nil
	}

	return mergeFields(canonical, enriched, p.interceptor.Fields)
}

// mergeFields copies fields from src onto dst at the JSON object level so
// that fields dst carries but T does not model survive. A null in src never
// replaces a value dst already has.
var jsonNull = []byte("null")

func mergeFields(dst, src []byte, fields []string) ([]byte, error) {
	var base, patch map[string]json.RawMessage

	err := json.Unmarshal(dst, &base)
	if err != nil {
		return nil, fmt.Errorf("decoding canonical object: %w", err)
	}

	if base == nil {
		return nil, fmt.Errorf("%w: canonical payload is not an object", ErrUnexpectedPayloadType)
	}

	err = json.Unmarshal(src, &patch)
	if err != nil {
		return nil, fmt.Errorf("decoding enriched object: %w", err)
	}

	for _, field := range fields {
		value, ok := patch[field]
		if !ok {
			continue
		}

		current, exists := base[field]
		if exists && (bytes.Equal(current, value) || bytes.Equal(value, jsonNull)) {
			continue
		}

		base[field] = value
	}

	return json.Marshal(base)
}
