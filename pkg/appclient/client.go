package appclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	apphttp "github.com/fivetwenty-io/appplane-client/internal/http"
	"github.com/fivetwenty-io/appplane-client/pkg/appplane"
)

// Client calls the gateway. It is safe for concurrent use.
type Client struct {
	http   *apphttp.Client
	config appplane.Config
}

// Option configures a Client.
type Option func(*settings)

type settings struct {
	logger    appplane.Logger
	debug     bool
	userAgent string
	providers []appplane.HeaderProvider
	metrics   *appplane.MetricsCollector
	cache     appplane.Cache
	cacheTTL  time.Duration
	limiter   *rate.Limiter
	transport http.RoundTripper
}

// WithLogger sets the logger. Without one nothing is logged.
func WithLogger(logger appplane.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithDebug logs every request and response at debug level.
func WithDebug(debug bool) Option {
	return func(s *settings) {
		s.debug = debug
	}
}

// WithUserAgent overrides the user-agent header.
func WithUserAgent(userAgent string) Option {
	return func(s *settings) {
		s.userAgent = userAgent
	}
}

// WithHeaderProvider adds headers computed for every call. Providers run
// in the order they were added; later ones win.
func WithHeaderProvider(provider appplane.HeaderProvider) Option {
	return func(s *settings) {
		if provider != nil {
			s.providers = append(s.providers, provider)
		}
	}
}

// WithPassportSource sends the token from source as x-app-passport on
// every call, overriding Config.PassportToken.
func WithPassportSource(source appplane.TokenSource) Option {
	return WithHeaderProvider(appplane.PassportHeaderProvider(source))
}

// WithMetrics records calls on collector.
func WithMetrics(collector *appplane.MetricsCollector) Option {
	return func(s *settings) {
		s.metrics = collector
	}
}

// WithCache caches successful GET responses for ttl. A zero ttl uses the
// package default.
func WithCache(cache appplane.Cache, ttl time.Duration) Option {
	return func(s *settings) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithRateLimit allows at most rps calls per second with bursts of burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *settings) {
		if burst < 1 {
			burst = 1
		}

		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTransport replaces the network transport, typically in tests.
func WithTransport(transport http.RoundTripper) Option {
	return func(s *settings) {
		s.transport = transport
	}
}

// New creates a client for cfg. cfg is copied; later changes to the
// caller's value have no effect.
func New(cfg appplane.Config, opts ...Option) (*Client, error) {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}

	httpOpts := []apphttp.Option{
		apphttp.WithLogger(s.logger),
		apphttp.WithDebug(s.debug),
		apphttp.WithMetrics(s.metrics),
		apphttp.WithTransport(s.transport),
	}

	if s.userAgent != "" {
		httpOpts = append(httpOpts, apphttp.WithUserAgent(s.userAgent))
	}

	switch len(s.providers) {
	case 0:
	case 1:
		httpOpts = append(httpOpts, apphttp.WithHeaderProvider(s.providers[0]))
	default:
		httpOpts = append(httpOpts, apphttp.WithHeaderProvider(appplane.ChainHeaderProviders(s.providers...)))
	}

	if s.cache != nil {
		httpOpts = append(httpOpts, apphttp.WithCache(s.cache, s.cacheTTL))
	}

	if s.limiter != nil {
		httpOpts = append(httpOpts, apphttp.WithRateLimiter(s.limiter))
	}

	httpClient, err := apphttp.NewClient(cfg, httpOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return &Client{http: httpClient, config: httpClient.Config()}, nil
}

// NewWithToken creates a client for baseURL authenticating with a bearer
// token. Everything else uses the fallbacks; the process environment is
// not consulted.
func NewWithToken(baseURL, token string, opts ...Option) (*Client, error) {
	cfg, err := appplane.Resolve(nil, appplane.WithBaseURL(baseURL), appplane.WithAuthToken(token))
	if err != nil {
		return nil, err
	}

	return New(cfg, opts...)
}

// NewFromEnvironment resolves configuration from APP_PLANE_* variables,
// with overrides taking precedence, and creates a client.
func NewFromEnvironment(overrides []appplane.Option, opts ...Option) (*Client, error) {
	cfg, err := appplane.Resolve(appplane.OSEnvironment(), overrides...)
	if err != nil {
		return nil, err
	}

	return New(cfg, opts...)
}

// Config returns the configuration the client was created with.
func (c *Client) Config() appplane.Config {
	return c.config
}

// Request performs a call. A non-2xx response is returned together with
// its *appplane.Problem; any other failure returns a nil response.
func (c *Client) Request(ctx context.Context, method, path string, opts ...CallOption) (*appplane.Response, error) {
	req := &apphttp.Request{Method: method, Path: path}
	for _, opt := range opts {
		opt(req)
	}

	return c.http.Do(ctx, req)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, opts ...CallOption) (*appplane.Response, error) {
	return c.Request(ctx, http.MethodGet, path, opts...)
}

// Post performs a POST request with body.
func (c *Client) Post(ctx context.Context, path string, body interface{}, opts ...CallOption) (*appplane.Response, error) {
	return c.Request(ctx, http.MethodPost, path, append([]CallOption{WithBody(body)}, opts...)...)
}

// Put performs a PUT request with body.
func (c *Client) Put(ctx context.Context, path string, body interface{}, opts ...CallOption) (*appplane.Response, error) {
	return c.Request(ctx, http.MethodPut, path, append([]CallOption{WithBody(body)}, opts...)...)
}

// Patch performs a PATCH request with body.
func (c *Client) Patch(ctx context.Context, path string, body interface{}, opts ...CallOption) (*appplane.Response, error) {
	return c.Request(ctx, http.MethodPatch, path, append([]CallOption{WithBody(body)}, opts...)...)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, opts ...CallOption) (*appplane.Response, error) {
	return c.Request(ctx, http.MethodDelete, path, opts...)
}

// Do performs a call and decodes a 2xx JSON payload into T. An empty 2xx
// body yields the zero T.
func Do[T any](ctx context.Context, c *Client, method, path string, opts ...CallOption) (T, error) {
	var out T

	resp, err := c.Request(ctx, method, path, opts...)
	if err != nil {
		return out, err
	}

	err = resp.Decode(&out)
	if err != nil {
		return out, err
	}

	return out, nil
}
