package constants

import "errors"

// CLI configuration errors.
var (
	ErrNoBaseURLConfigured = errors.New("no gateway base URL configured, pass --base-url or set APP_PLANE_BASE_URL")
	ErrTokenPromptNoTTY    = errors.New("cannot prompt for a token without a terminal")
)

// CLI argument errors.
var (
	ErrUnsupportedMethod    = errors.New("unsupported HTTP method")
	ErrInvalidQueryParam    = errors.New("invalid query parameter, expected key=value")
	ErrInvalidHeader        = errors.New("invalid header, expected name:value")
	ErrUnsupportedFormat    = errors.New("unsupported output format")
	ErrInvalidBodyJSON      = errors.New("request body is not valid JSON")
	ErrBodyAndFileExclusive = errors.New("--data and --data-file cannot be combined")
)

// Transport errors.
var (
	ErrResponseTooLarge = errors.New("response body exceeds size limit")
)
