package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// Timeout fallbacks used when neither an explicit option nor the
// environment provides a value.
const (
	// DefaultTimeout bounds a single attempt end to end.
	DefaultTimeout = 10 * time.Second

	// DefaultConnectTimeout bounds dialing and the TLS handshake.
	DefaultConnectTimeout = 3 * time.Second

	// DefaultReadTimeout bounds the wait for response headers.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout bounds each write of the request to the connection.
	DefaultWriteTimeout = 5 * time.Second
)

// Retry fallbacks.
const (
	// DefaultMaxRetries disables retries unless configured.
	DefaultMaxRetries = 0

	// DefaultRetryBackoff is the fixed delay between attempts.
	DefaultRetryBackoff = 100 * time.Millisecond
)

// Gateway routing.
const (
	// AppPathPrefix is the fixed prefix every logical path lives under.
	AppPathPrefix = "/app"

	// PageTokenParam carries the pagination cursor on list requests.
	PageTokenParam = "page_token"
)

// Header names. Lower case matches the wire contract; net/http
// canonicalizes them on the way out.
const (
	HeaderAccept         = "accept"
	HeaderContentType    = "content-type"
	HeaderAuthorization  = "authorization"
	HeaderPassport       = "x-app-passport"
	HeaderRequestID      = "x-request-id"
	HeaderCorrelationID  = "x-correlation-id"
	HeaderIdempotencyKey = "x-idempotency-key"
	HeaderUserAgent      = "user-agent"
	HeaderRetryAfter     = "retry-after"
	HeaderCacheControl   = "cache-control"
)

// Media types.
const (
	MediaTypeJSON        = "application/json"
	MediaTypeProblemJSON = "application/problem+json"

	// DefaultAccept is sent unless the caller overrides accept.
	DefaultAccept = MediaTypeJSON + ", " + MediaTypeProblemJSON
)

// Limits.
const (
	// MaxIdempotencyKeyLength bounds caller supplied idempotency keys.
	MaxIdempotencyKeyLength = 255

	// BodyPreviewLimit caps the body excerpt kept on unparseable error responses.
	BodyPreviewLimit = 256

	// MaxRetryAfter caps server supplied retry hints.
	MaxRetryAfter = time.Hour

	// MaxResponseBodyBytes caps a buffered response body.
	MaxResponseBodyBytes = 32 << 20
)

// Cache defaults.
const (
	// DefaultCacheSize is the default number of entries kept in memory.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is used when response caching is enabled without a TTL.
	DefaultCacheTTL = 30 * time.Second

	// DefaultNATSBucket is the key-value bucket used for shared response caching.
	DefaultNATSBucket = "appplane_responses"
)

// UI and display constants.
const (
	// NotAvailable is shown for empty values.
	NotAvailable = "N/A"

	// MaskedSecret replaces token values in output.
	MaskedSecret = "***"
)

// Format constants.
const (
	// FormatJSON represents JSON output format.
	FormatJSON = "json"

	// FormatYAML represents YAML output format.
	FormatYAML = "yaml"

	// FormatTable represents table output format.
	FormatTable = "table"
)

// UserAgent is sent when the caller does not set one.
const UserAgent = "appplane-client-go"
