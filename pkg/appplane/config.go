package appplane

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fivetwenty-io/appplane-client/internal/constants"
)

// Config is the resolved, validated client configuration.
//
// Resolve returns it by value and clients keep their own copy, so a Config
// is never mutated once a client has been built from it. Changing any
// setting means resolving a new Config and building a new client.
//
// # Precedence
//
// Every field is taken from, in order:
//  1. an explicit Option passed to Resolve,
//  2. the Environment (see the Env* keys),
//  3. the package fallback (10s overall, 3s connect, 5s read and write,
//     no retries, 100ms backoff).
//
// # Transport security
//
// BaseURL must use https. An http URL is only accepted when
// AllowInsecureHTTP is true, set either explicitly or through
// APP_PLANE_ALLOW_INSECURE_HTTP. An explicit WithAllowInsecureHTTP(false)
// overrides an environment opt-in.
type Config struct {
	// BaseURL is the gateway origin, without a trailing slash.
	BaseURL string
	// AuthToken is sent as a Bearer authorization header when set.
	AuthToken string
	// PassportToken is sent in the x-app-passport header when set.
	PassportToken string

	// Timeout bounds a single attempt end to end.
	Timeout time.Duration
	// ConnectTimeout bounds dialing and the TLS handshake.
	ConnectTimeout time.Duration
	// ReadTimeout bounds the wait for response headers.
	ReadTimeout time.Duration
	// WriteTimeout bounds each write of the request to the connection.
	WriteTimeout time.Duration

	// MaxRetries is the number of additional attempts after the first one
	// for calls that end without an HTTP response.
	MaxRetries int
	// RetryBackoff is the fixed delay between attempts.
	RetryBackoff time.Duration

	// AllowInsecureHTTP permits an http BaseURL.
	AllowInsecureHTTP bool
}

// Option sets an explicit configuration value for Resolve.
type Option func(*options)

type options struct {
	baseURL           *string
	authToken         *string
	passportToken     *string
	timeout           *time.Duration
	connectTimeout    *time.Duration
	readTimeout       *time.Duration
	writeTimeout      *time.Duration
	maxRetries        *int
	retryBackoff      *time.Duration
	allowInsecureHTTP *bool
}

// WithBaseURL sets the gateway base URL.
func WithBaseURL(baseURL string) Option {
	return func(o *options) { o.baseURL = &baseURL }
}

// WithAuthToken sets the bearer token.
func WithAuthToken(token string) Option {
	return func(o *options) { o.authToken = &token }
}

// WithPassportToken sets the capability (passport) token.
func WithPassportToken(token string) Option {
	return func(o *options) { o.passportToken = &token }
}

// WithTimeout sets the overall per-attempt timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) { o.timeout = &timeout }
}

// WithConnectTimeout sets the connect timeout.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(o *options) { o.connectTimeout = &timeout }
}

// WithReadTimeout sets the read timeout.
func WithReadTimeout(timeout time.Duration) Option {
	return func(o *options) { o.readTimeout = &timeout }
}

// WithWriteTimeout sets the write timeout.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(o *options) { o.writeTimeout = &timeout }
}

// WithMaxRetries sets the retry budget for local transport failures.
func WithMaxRetries(maxRetries int) Option {
	return func(o *options) { o.maxRetries = &maxRetries }
}

// WithRetryBackoff sets the fixed delay between attempts.
func WithRetryBackoff(backoff time.Duration) Option {
	return func(o *options) { o.retryBackoff = &backoff }
}

// WithAllowInsecureHTTP explicitly allows or forbids an http base URL.
func WithAllowInsecureHTTP(allow bool) Option {
	return func(o *options) { o.allowInsecureHTTP = &allow }
}

// Resolve merges explicit options over environment values over fallbacks
// and validates the result. It has no side effects beyond env lookups.
func Resolve(env Environment, opts ...Option) (Config, error) {
	if env == nil {
		env = emptyEnvironment{}
	}

	explicit := &options{}
	for _, opt := range opts {
		opt(explicit)
	}

	var (
		cfg Config
		err error
	)

	cfg.BaseURL = resolveString(explicit.baseURL, env, EnvBaseURL, "")
	cfg.AuthToken = resolveString(explicit.authToken, env, EnvAuthToken, "")
	cfg.PassportToken = resolveString(explicit.passportToken, env, EnvPassportToken, "")

	cfg.AllowInsecureHTTP, err = resolveBool(explicit.allowInsecureHTTP, env, EnvAllowInsecureHTTP, false)
	if err != nil {
		return Config{}, configError("AllowInsecureHTTP", err)
	}

	timeouts := []struct {
		field    string
		explicit *time.Duration
		key      string
		fallback time.Duration
		target   *time.Duration
	}{
		{"Timeout", explicit.timeout, EnvTimeoutMS, constants.DefaultTimeout, &cfg.Timeout},
		{"ConnectTimeout", explicit.connectTimeout, EnvConnectTimeoutMS, constants.DefaultConnectTimeout, &cfg.ConnectTimeout},
		{"ReadTimeout", explicit.readTimeout, EnvReadTimeoutMS, constants.DefaultReadTimeout, &cfg.ReadTimeout},
		{"WriteTimeout", explicit.writeTimeout, EnvWriteTimeoutMS, constants.DefaultWriteTimeout, &cfg.WriteTimeout},
		{"RetryBackoff", explicit.retryBackoff, EnvRetryBackoffMS, constants.DefaultRetryBackoff, &cfg.RetryBackoff},
	}

	for _, timeout := range timeouts {
		*timeout.target, err = resolveMillis(timeout.explicit, env, timeout.key, timeout.fallback)
		if err != nil {
			return Config{}, configError(timeout.field, err)
		}
	}

	cfg.MaxRetries, err = resolveInt(explicit.maxRetries, env, EnvMaxRetries, constants.DefaultMaxRetries)
	if err != nil {
		return Config{}, configError("MaxRetries", err)
	}

	err = cfg.normalize()
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the invariants Resolve enforces. It lets hand-built
// configurations go through the same gate.
func (c Config) Validate() error {
	_, err := parseBaseURL(c.BaseURL, c.AllowInsecureHTTP)
	if err != nil {
		return err
	}

	durations := []struct {
		field string
		value time.Duration
	}{
		{"Timeout", c.Timeout},
		{"ConnectTimeout", c.ConnectTimeout},
		{"ReadTimeout", c.ReadTimeout},
		{"WriteTimeout", c.WriteTimeout},
	}

	for _, d := range durations {
		if d.value <= 0 {
			return configError(d.field, ErrNonPositiveTimeout)
		}
	}

	if c.MaxRetries < 0 {
		return configError("MaxRetries", ErrNegativeRetries)
	}

	if c.RetryBackoff < 0 {
		return configError("RetryBackoff", ErrNegativeBackoff)
	}

	return nil
}

// String renders the configuration with tokens masked.
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{BaseURL:%s AuthToken:%s PassportToken:%s Timeout:%s ConnectTimeout:%s ReadTimeout:%s WriteTimeout:%s MaxRetries:%d RetryBackoff:%s AllowInsecureHTTP:%t}",
		c.BaseURL, mask(c.AuthToken), mask(c.PassportToken),
		c.Timeout, c.ConnectTimeout, c.ReadTimeout, c.WriteTimeout,
		c.MaxRetries, c.RetryBackoff, c.AllowInsecureHTTP,
	)
}

// GoString keeps %#v from printing tokens.
func (c Config) GoString() string {
	return "appplane." + c.String()
}

func (c *Config) normalize() error {
	base, err := parseBaseURL(c.BaseURL, c.AllowInsecureHTTP)
	if err != nil {
		return err
	}

	c.BaseURL = base

	return c.Validate()
}

func parseBaseURL(raw string, allowInsecure bool) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", configError("BaseURL", ErrBaseURLRequired)
	}

	parsed, err := url.Parse(raw)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return "", configError("BaseURL", ErrInvalidBaseURL)
	}

	if parsed.User != nil {
		return "", configError("BaseURL", ErrBaseURLCredentials)
	}

	if parsed.RawQuery != "" || parsed.Fragment != "" {
		return "", configError("BaseURL", ErrInvalidBaseURL)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "https":
	case "http":
		if !allowInsecure {
			return "", configError("BaseURL", ErrInsecureScheme)
		}
	default:
		return "", configError("BaseURL", ErrInvalidBaseURL)
	}

	return strings.TrimRight(parsed.String(), "/"), nil
}

func lookup(env Environment, key string) (string, bool) {
	value, ok := env.Lookup(key)
	if !ok {
		return "", false
	}

	value = strings.TrimSpace(value)

	return value, value != ""
}

func resolveString(explicit *string, env Environment, key, fallback string) string {
	if explicit != nil {
		return *explicit
	}

	if value, ok := lookup(env, key); ok {
		return value
	}

	return fallback
}

func resolveBool(explicit *bool, env Environment, key string, fallback bool) (bool, error) {
	if explicit != nil {
		return *explicit, nil
	}

	value, ok := lookup(env, key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrInvalidValue, key)
	}

	return parsed, nil
}

func resolveInt(explicit *int, env Environment, key string, fallback int) (int, error) {
	if explicit != nil {
		return *explicit, nil
	}

	value, ok := lookup(env, key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidValue, key)
	}

	return parsed, nil
}

func resolveMillis(explicit *time.Duration, env Environment, key string, fallback time.Duration) (time.Duration, error) {
	if explicit != nil {
		return *explicit, nil
	}

	value, ok := lookup(env, key)
	if !ok {
		return fallback, nil
	}

	millis, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidValue, key)
	}

	const maxMillis = math.MaxInt64 / int64(time.Millisecond)
	if millis > maxMillis || millis < -maxMillis {
		return 0, fmt.Errorf("%w: %s out of range", ErrInvalidValue, key)
	}

	return time.Duration(millis) * time.Millisecond, nil
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}

	return constants.MaskedSecret
}
