package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/fivetwenty-io/appplane-client/internal/constants"
	"github.com/fivetwenty-io/appplane-client/pkg/appplane"
)

// Client runs the full call pipeline against one gateway:
// Build, Inject, Prepare, cache lookup, rate limiting, Execute, decode.
// It is safe for concurrent use; the Config it holds is never mutated.
type Client struct {
	config         appplane.Config
	policy         RetryPolicy
	executor       *Executor
	logger         appplane.Logger
	debug          bool
	userAgent      string
	headerProvider appplane.HeaderProvider
	metrics        *appplane.MetricsCollector
	cache          appplane.Cache
	cacheTTL       time.Duration
	limiter        *rate.Limiter
	transport      http.RoundTripper
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger appplane.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDebug enables per-request debug logs.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent sets the user agent.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithHeaderProvider adds headers computed per call.
func WithHeaderProvider(provider appplane.HeaderProvider) Option {
	return func(c *Client) {
		c.headerProvider = provider
	}
}

// WithMetrics records calls on collector.
func WithMetrics(collector *appplane.MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithCache caches successful GET responses for ttl.
func WithCache(cache appplane.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// WithRateLimiter makes every call wait on limiter before it is sent.
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithTransport replaces the network transport.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = transport
	}
}

// NewClient validates cfg and builds a client around a copy of it.
func NewClient(cfg appplane.Config, opts ...Option) (*Client, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	client := &Client{
		config:    cfg,
		policy:    NewRetryPolicy(cfg),
		logger:    appplane.NoopLogger{},
		userAgent: constants.UserAgent,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.cache != nil && client.cacheTTL <= 0 {
		client.cacheTTL = constants.DefaultCacheTTL
	}

	client.executor = NewExecutor(cfg, client.policy, client.transport, client.onAttempt)

	return client, nil
}

// Config returns the client's configuration.
func (c *Client) Config() appplane.Config {
	return c.config
}

// Do runs req. A non-2xx response is returned together with its Problem;
// every other failure is a local Problem and a nil response.
func (c *Client) Do(ctx context.Context, req *Request) (*appplane.Response, error) {
	start := time.Now()

	treq, err := Build(c.config.BaseURL, req)
	if err != nil {
		return nil, c.fail(nil, err, "", start)
	}

	c.metrics.RecordRequestStart(treq.Method)
	defer c.metrics.RecordRequestEnd(treq.Method)

	requestID, err := Inject(ctx, treq, Identity{
		AuthToken:      c.config.AuthToken,
		PassportToken:  c.config.PassportToken,
		UserAgent:      c.userAgent,
		HeaderProvider: c.headerProvider,
	})
	if err != nil {
		return nil, c.fail(treq, err, "", start)
	}

	eligible, err := c.policy.Prepare(treq)
	if err != nil {
		return nil, c.fail(treq, err, requestID, start)
	}

	cacheKey := ""
	if c.cache != nil && treq.Method == http.MethodGet {
		cacheKey = appplane.CacheKey(treq.Method, treq.URL, treq.Header)

		entry, cacheErr := c.cache.Get(ctx, cacheKey)
		if cacheErr == nil {
			c.metrics.RecordCacheHit(treq.Method)
			c.logDebug("Cache Hit", map[string]interface{}{
				"method":     treq.Method,
				"path":       treq.Path,
				"request_id": requestID,
			})

			return entry.Response(), nil
		}

		c.metrics.RecordCacheMiss(treq.Method)
	}

	if c.limiter != nil {
		err = c.limiter.Wait(ctx)
		if err != nil {
			return nil, c.fail(treq, limiterProblem(ctx, err), requestID, start)
		}
	}

	c.logDebug("HTTP Request", map[string]interface{}{
		"method":     treq.Method,
		"path":       treq.Path,
		"request_id": requestID,
	})

	outcome := c.executor.Execute(ctx, treq, eligible)
	if problem := outcome.Problem(); problem != nil {
		c.logger.Error("HTTP Request Failed", map[string]interface{}{
			"method":      treq.Method,
			"path":        treq.Path,
			"request_id":  requestID,
			"attempts":    outcome.Attempts,
			"kind":        string(problem.Kind),
			"code":        problem.Code,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		c.metrics.RecordRequest(treq.Method, 0, time.Since(start))
		c.metrics.RecordProblem(problem)

		return nil, problem
	}

	resp := outcome.Response
	duration := time.Since(start)

	c.logDebug("HTTP Response", map[string]interface{}{
		"method":      treq.Method,
		"path":        treq.Path,
		"request_id":  requestID,
		"status_code": resp.StatusCode,
		"attempts":    outcome.Attempts,
		"duration_ms": duration.Milliseconds(),
	})
	c.metrics.RecordRequest(treq.Method, resp.StatusCode, duration)

	if problem := resp.Problem(); problem != nil {
		c.metrics.RecordProblem(problem)

		return resp, problem
	}

	if cacheKey != "" && appplane.Cacheable(resp) {
		cacheErr := c.cache.Set(ctx, cacheKey, appplane.NewCacheEntry(resp, c.cacheTTL))
		if cacheErr != nil {
			c.logger.Warn("Cache Store Failed", map[string]interface{}{
				"path":       treq.Path,
				"request_id": requestID,
			})
		}
	}

	return resp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*appplane.Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*appplane.Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*appplane.Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*appplane.Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*appplane.Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

func (c *Client) onAttempt(req *http.Request, attempt int) {
	if attempt == 0 {
		return
	}

	c.metrics.RecordRetry(req.Method)
	c.logger.Warn("Retrying request", map[string]interface{}{
		"method":     req.Method,
		"path":       req.URL.Path,
		"request_id": req.Header.Get(constants.HeaderRequestID),
		"attempt":    attempt + 1,
	})
}

// fail logs and counts a problem raised before anything was sent.
func (c *Client) fail(treq *TransportRequest, err error, requestID string, start time.Time) error {
	fields := map[string]interface{}{"duration_ms": time.Since(start).Milliseconds()}
	if treq != nil {
		fields["method"] = treq.Method
		fields["path"] = treq.Path
	}

	if requestID != "" {
		fields["request_id"] = requestID
	}

	if problem, ok := appplane.AsProblem(err); ok {
		fields["kind"] = string(problem.Kind)
		fields["code"] = problem.Code
		c.metrics.RecordProblem(problem)
	}

	c.logger.Error("HTTP Request Failed", fields)

	return err
}

func (c *Client) logDebug(msg string, fields map[string]interface{}) {
	if c.debug {
		c.logger.Debug(msg, fields)
	}
}

func limiterProblem(ctx context.Context, err error) *appplane.Problem {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return appplane.NewLocalProblem(appplane.KindTransport, appplane.CodeCanceled, "request canceled", 0, err)
	case ctx.Err() != nil:
		return appplane.NewLocalProblem(appplane.KindTransport, appplane.CodeTimeout, "request timed out", 0, err)
	default:
		return appplane.NewLocalProblem(appplane.KindLocal, appplane.CodeRateLimiterWait, "rate limiter refused the call", 0, err)
	}
}
