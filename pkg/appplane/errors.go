package appplane

import (
	"errors"
	"fmt"
)

// Configuration errors. Resolve wraps them in a *ConfigError naming the
// offending field; the rejected value is never part of the message.
var (
	ErrInvalidConfig      = errors.New("invalid client configuration")
	ErrBaseURLRequired    = errors.New("base URL is required")
	ErrInvalidBaseURL     = errors.New("base URL must be an absolute http(s) URL with a host")
	ErrBaseURLCredentials = errors.New("base URL must not embed credentials")
	ErrInsecureScheme     = errors.New("http scheme requires the insecure HTTP opt-in")
	ErrNonPositiveTimeout = errors.New("timeout must be positive")
	ErrNegativeRetries    = errors.New("max retries must not be negative")
	ErrNegativeBackoff    = errors.New("retry backoff must not be negative")
	ErrInvalidValue       = errors.New("value could not be parsed")
)

// Pagination errors.
var (
	ErrNoMoreItems       = errors.New("no more items")
	ErrPageLimitExceeded = errors.New("page limit exceeded")
	ErrNilPage           = errors.New("page fetch returned no page")
)

// Cache errors.
var (
	ErrCacheMiss             = errors.New("key not found")
	ErrCacheEntryExpired     = errors.New("entry expired")
	ErrCacheDisabled         = errors.New("cache disabled")
	ErrKeyNotFoundInAnyCache = errors.New("key not found in any cache")
	ErrNATSConfigRequired    = errors.New("NATS configuration required for NATS cache")
	ErrUnsupportedCacheType  = errors.New("unsupported cache type")
)

// ErrNoToken is returned by token sources that have nothing to offer.
var ErrNoToken = errors.New("no token available")

// ConfigError reports a configuration value that failed validation.
type ConfigError struct {
	Field string
	Err   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", ErrInvalidConfig, e.Err)
	}

	return fmt.Sprintf("%s: %s: %v", ErrInvalidConfig, e.Field, e.Err)
}

// Unwrap returns the underlying reason.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrInvalidConfig) match any configuration failure.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

func configError(field string, err error) *ConfigError {
	return &ConfigError{Field: field, Err: err}
}
