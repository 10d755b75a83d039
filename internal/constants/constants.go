package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry limits. Retries are disabled unless a caller opts in.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 0

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// HTTP status codes commonly used.
const (
	// HTTPStatusOK represents a successful HTTP response.
	HTTPStatusOK = 200

	// HTTPStatusBadRequest represents a client error.
	HTTPStatusBadRequest = 400

	// HTTPStatusInternalServerError represents server errors.
	HTTPStatusInternalServerError = 500
)

// Cache sizing.
const (
	// DefaultCacheSize is the default number of entries held by the memory cache.
	DefaultCacheSize = 1000

	// DefaultCacheTTL bounds how long a backend keeps an unpinned entry.
	DefaultCacheTTL = 10 * time.Minute

	// DefaultCleanupInterval is how often expired memory entries are swept.
	DefaultCleanupInterval = time.Minute

	// DefaultNATSBucket is the key-value bucket used by the NATS cache.
	DefaultNATSBucket = "xexplorer-query-cache"

	// DefaultRedisKeyPrefix namespaces keys written by the redis cache.
	DefaultRedisKeyPrefix = "xexplorer:"

	// RedisScanCount is the COUNT hint for SCAN during prefix deletes.
	RedisScanCount = 200
)

// Pagination.
const (
	// CursorQueryParam carries the JSON encoded next-page params.
	CursorQueryParam = "next_page_params"

	// DefaultMaxPages bounds FetchAllPages.
	DefaultMaxPages = 100

	// StandardPageSize is the page size used by the explorer API.
	StandardPageSize = 50
)

// Circuit breaker states and defaults.
const (
	StatusClosed   = "closed"
	StatusOpen     = "open"
	StatusHalfOpen = "half-open"

	// CircuitBreakerThreshold is the number of failures before opening.
	CircuitBreakerThreshold = 5

	// CircuitBreakerTimeout is how long the breaker stays open.
	CircuitBreakerTimeout = 60 * time.Second

	// CircuitBreakerSuccessThreshold is the number of successes needed to close.
	CircuitBreakerSuccessThreshold = 2
)

// Display limits.
const (
	// HashDisplayLength truncates hashes in table output.
	HashDisplayLength = 18

	// MaxCellWidth truncates long values in table output.
	MaxCellWidth = 60
)

// UI and display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// None is used when no value is present.
	None = "none"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"
)

// Format constants.
const (
	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for table output format.
	FormatTable = "table"
)
