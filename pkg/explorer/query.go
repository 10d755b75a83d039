package explorer

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"
)

// pathParamPrefix marks path parameters inside a key's params so they never
// collide with query fields of the same name.
const pathParamPrefix = ":"

// QueryKey identifies one cacheable query. Two keys built from the same
// resource, context and parameters are equal regardless of map or argument
// ordering.
type QueryKey struct {
	Resource string
	Context  string
	Params   url.Values
	Cursor   string
}

// NewQueryKey builds the key of a query. Empty values are dropped so that a
// missing field and an empty field key identically.
func NewQueryKey(resource, discriminator string, pathParams map[string]string, query url.Values, cursor Cursor) QueryKey {
	params := make(url.Values, len(pathParams)+len(query))

	for name, value := range pathParams {
		if value != "" {
			params.Set(pathParamPrefix+name, value)
		}
	}

	for field, values := range query {
		for _, v := range values {
			if v != "" {
				params.Add(field, v)
			}
		}
	}

	return QueryKey{
		Resource: resource,
		Context:  discriminator,
		Params:   params,
		Cursor:   cursor.Encode(),
	}
}

// Scope is the prefix shared by every key of a resource within a context.
func (k QueryKey) Scope() string {
	return resourceScope(k.Resource, k.Context)
}

// Family is the key without its cursor. Every page of one paginated listing
// shares a family.
func (k QueryKey) Family() string {
	var b strings.Builder

	b.WriteString(k.Scope())
	b.WriteString(k.Params.Encode())
	b.WriteByte('|')

	return b.String()
}

// String returns the cache key.
func (k QueryKey) String() string {
	return k.Family() + k.Cursor
}

// forwardPrefix matches every page of the family except the first.
func (k QueryKey) forwardPrefix() string {
	return k.Family() + "{"
}

func resourceScope(resource, discriminator string) string {
	return resource + "@" + discriminator + "?"
}

// QueryResult is the outcome of a query. A running call corresponds to the
// loading state; a returned error to the error state.
type QueryResult struct {
	Key       QueryKey        `json:"-"`
	Data      json.RawMessage `json:"data"`
	FromCache bool            `json:"from_cache"`
	Shared    bool            `json:"shared"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Decode unmarshals the result data into v.
func (r *QueryResult) Decode(v any) error {
	return json.Unmarshal(r.Data, v)
}
