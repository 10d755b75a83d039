package explorer

import (
	"context"
	"net/http"
	"net/url"
	"slices"
)

// ResourceDescriptor is the data-only declaration of one remote resource.
// Descriptors are immutable once a Registry has been built from them.
type ResourceDescriptor struct {
	// Name is the stable identifier used by callers, e.g. "tokens" or
	// "stats:charts_txs". It must not contain the key delimiters '@', '?'
	// or '|'.
	Name string `validate:"required,excludesall=@?0x7C"`

	// Path is the endpoint template. Required parameters are written as
	// ":param", an optional trailing segment as "{/:param}".
	Path string `validate:"required,startswith=/"`

	// PathParams lists the template parameters in order. It must match the
	// parameters named in Path.
	PathParams []string `validate:"dive,required"`

	// FilterFields restricts which query fields are forwarded and keyed.
	// An empty list forwards every field.
	FilterFields []string `validate:"dive,required"`

	// Paginated marks cursor-paginated list resources.
	Paginated bool

	// Headers are static headers sent with every request for the resource.
	Headers map[string]string

	// Method is the HTTP method, GET when empty.
	Method string `validate:"omitempty,oneof=GET POST PUT PATCH DELETE"`

	hooks normalizer
}

// normalizer is the type-erased form of a resource's transform and
// interceptor hooks.
type normalizer interface {
	normalize(ctx context.Context, env *pipelineEnv, raw []byte) ([]byte, error)
	hasTransform() bool
	interceptorName() string
}

// HTTPMethod returns the method used to dispatch the resource.
func (d *ResourceDescriptor) HTTPMethod() string {
	if d.Method == "" {
		return http.MethodGet
	}

	return d.Method
}

// HasTransform reports whether the resource declares a response transform.
func (d *ResourceDescriptor) HasTransform() bool {
	return d.hooks != nil && d.hooks.hasTransform()
}

// InterceptorName returns the name of the resource interceptor, or "" when
// there is none.
func (d *ResourceDescriptor) InterceptorName() string {
	if d.hooks == nil {
		return ""
	}

	return d.hooks.interceptorName()
}

// AllowsField reports whether a query field is forwarded for this resource.
func (d *ResourceDescriptor) AllowsField(field string) bool {
	if len(d.FilterFields) == 0 {
		return true
	}

	return slices.Contains(d.FilterFields, field)
}

// filterQuery keeps the allowed query fields. The cursor parameter is
// handled separately and never copied here.
func (d *ResourceDescriptor) filterQuery(query url.Values) url.Values {
	filtered := make(url.Values, len(query))

	for field, values := range query {
		if field == cursorParam || !d.AllowsField(field) {
			continue
		}

		kept := make([]string, 0, len(values))
		for _, v := range values {
			if v != "" {
				kept = append(kept, v)
			}
		}

		if len(kept) > 0 {
			filtered[field] = kept
		}
	}

	return filtered
}

// normalize runs the resource pipeline, passing raw bytes through when the
// resource declares no hooks.
func (d *ResourceDescriptor) normalize(ctx context.Context, env *pipelineEnv, raw []byte) ([]byte, error) {
	if d.hooks == nil {
		return raw, nil
	}

	return d.hooks.normalize(ctx, env, raw)
}

// Resource is a typed handle on a descriptor whose canonical payload
// decodes into T.
type Resource[T any] struct {
	*ResourceDescriptor
}

// Option attaches a typed hook to a resource.
type Option[T any] func(*pipeline[T])

// WithTransform sets the function converting the raw response into the
// canonical payload. It must be pure.
func WithTransform[T any](fn Transform[T]) Option[T] {
	return func(p *pipeline[T]) {
		p.transform = fn
	}
}

// WithInterceptor sets the enrichment interceptor of a resource.
func WithInterceptor[T any](interceptor Interceptor[T]) Option[T] {
	return func(p *pipeline[T]) {
		p.interceptor = &interceptor
	}
}

// Define builds a typed resource from a descriptor literal. The descriptor
// is copied, so later changes to desc do not leak into the resource.
func Define[T any](desc ResourceDescriptor, opts ...Option[T]) Resource[T] {
	p := &pipeline[T]{}
	for _, opt := range opts {
		opt(p)
	}

	d := desc
	d.PathParams = slices.Clone(desc.PathParams)
	d.FilterFields = slices.Clone(desc.FilterFields)

	if desc.Headers != nil {
		d.Headers = make(map[string]string, len(desc.Headers))
		for k, v := range desc.Headers {
			d.Headers[k] = v
		}
	}

	if p.transform != nil || p.interceptor != nil {
		d.hooks = p
	}

	return Resource[T]{ResourceDescriptor: &d}
}
