package explorer

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Programmer errors. These are returned immediately and never retried.
var (
	ErrUnknownResource   = errors.New("unknown resource")
	ErrMissingPathParam  = errors.New("missing path parameter")
	ErrDuplicateResource = errors.New("resource already registered")
	ErrInvalidDescriptor = errors.New("invalid resource descriptor")
	ErrNotPaginated      = errors.New("resource is not paginated")
)

// Conditions recovered inside the access layer. They show up in logs and
// metrics but are never returned from Query.
var (
	ErrEnrichmentFailed = errors.New("interceptor enrichment failed")
	ErrMalformedCursor  = errors.New("malformed pagination cursor")
)

// Pagination session errors.
var (
	ErrSuperseded      = errors.New("response superseded by a newer pagination transition")
	ErrSessionDisposed = errors.New("pagination session disposed")
)

// Configuration and cache errors, static for err113 compliance.
var (
	ErrConfigRequired        = errors.New("config is required")
	ErrAPIEndpointRequired   = errors.New("API endpoint is required")
	ErrDispatcherRequired    = errors.New("dispatcher is required")
	ErrCircuitBreakerOpen    = errors.New("circuit breaker is open")
	ErrNoMoreItems           = errors.New("no more items")
	ErrUnexpectedPayloadType = errors.New("unexpected payload type")
)

// NetworkError is the typed error produced by a Dispatcher when the remote
// call fails, either at transport level (StatusCode 0) or with a non-2xx
// response.
type NetworkError struct {
	Resource   string `json:"resource,omitempty" yaml:"resource,omitempty"`
	Method     string `json:"method"             yaml:"method"`
	Path       string `json:"path"               yaml:"path"`
	StatusCode int    `json:"status_code"        yaml:"status_code"`
	Message    string `json:"message,omitempty"  yaml:"message,omitempty"`
	Err        error  `json:"-"                  yaml:"-"`
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: transport error: %v", e.Method, e.Path, e.Err)
	}

	if e.Message != "" {
		return fmt.Sprintf("%s %s: %s (status: %d)", e.Method, e.Path, e.Message, e.StatusCode)
	}

	return fmt.Sprintf("%s %s: %s (status: %d)", e.Method, e.Path, http.StatusText(e.StatusCode), e.StatusCode)
}

// Unwrap returns the underlying transport error, if any.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Temporary reports whether a retry by the caller could succeed.
func (e *NetworkError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// ErrorBody is the error document returned by the explorer API.
type ErrorBody struct {
	Message string            `json:"message"`
	Errors  []json.RawMessage `json:"errors,omitempty"`
}

// ParseErrorBody extracts the message from an API error document. It returns
// an empty string when the body is not a recognised error document.
func ParseErrorBody(data []byte) string {
	var body ErrorBody

	err := json.Unmarshal(data, &body)
	if err != nil {
		return ""
	}

	if body.Message != "" {
		return body.Message
	}

	if len(body.Errors) > 0 {
		return string(body.Errors[0])
	}

	return ""
}

// IsNetworkError checks whether err carries a NetworkError.
func IsNetworkError(err error) bool {
	netErr := &NetworkError{}

	return errors.As(err, &netErr)
}

// IsNotFound checks if the error is a 404 from the API.
func IsNotFound(err error) bool {
	netErr := &NetworkError{}
	if errors.As(err, &netErr) {
		return netErr.StatusCode == http.StatusNotFound
	}

	return false
}

// IsProgrammerError reports whether err is a registry or path error that
// should fail fast during development.
func IsProgrammerError(err error) bool {
	return errors.Is(err, ErrUnknownResource) ||
		errors.Is(err, ErrMissingPathParam) ||
		errors.Is(err, ErrInvalidDescriptor)
}

func asNetworkError(err error) (*NetworkError, bool) {
	netErr := &NetworkError{}
	if errors.As(err, &netErr) {
		return netErr, true
	}

	return nil, false
}
