package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/appplane-client/internal/constants"
	"github.com/fivetwenty-io/appplane-client/pkg/appplane"
)

// Failure tags an attempt that produced no HTTP response.
type Failure int

// Failure values.
const (
	FailureNone Failure = iota
	FailureTimeout
	FailureNetwork
	FailureCanceled
	FailureTooLarge
)

// String implements fmt.Stringer.
func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureTimeout:
		return "timeout"
	case FailureNetwork:
		return "network"
	case FailureCanceled:
		return "canceled"
	case FailureTooLarge:
		return "too_large"
	default:
		return "unknown"
	}
}

// Outcome is the raw result of executing a call: a buffered response or a
// failure tag, never both.
type Outcome struct {
	Response *appplane.Response
	Failure  Failure
	Attempts int

	cause error
}

// Problem maps a failed outcome to a local transport Problem with a fixed,
// secret-free message. It returns nil for outcomes that carry a response.
func (o Outcome) Problem() *appplane.Problem {
	switch o.Failure {
	case FailureNone:
		return nil
	case FailureTimeout:
		return appplane.NewLocalProblem(appplane.KindTransport, appplane.CodeTimeout, "request timed out", 0, o.cause)
	case FailureCanceled:
		return appplane.NewLocalProblem(appplane.KindTransport, appplane.CodeCanceled, "request canceled", 0, o.cause)
	case FailureTooLarge:
		return appplane.NewLocalProblem(appplane.KindLocal, appplane.CodeResponseTooLarge, "response body exceeds size limit", 0, o.cause)
	default:
		return appplane.NewLocalProblem(appplane.KindTransport, appplane.CodeNetwork, "network failure while calling gateway", 0, o.cause)
	}
}

// AttemptHook observes every attempt; attempt counts from zero.
type AttemptHook func(req *http.Request, attempt int)

// Executor sends transport requests through a retryablehttp client whose
// retry decisions come from a RetryPolicy.
type Executor struct {
	client *retryablehttp.Client
	policy RetryPolicy
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*executorOptions)

type executorOptions struct {
	maxBodyBytes int64
}

// WithMaxResponseBytes caps buffered response bodies at limit bytes.
// Non-positive values keep the default.
func WithMaxResponseBytes(limit int64) ExecutorOption {
	return func(o *executorOptions) {
		if limit > 0 {
			o.maxBodyBytes = limit
		}
	}
}

// NewExecutor builds an executor for cfg. A nil transport gets a pooled
// transport with the configured connect, read and write timeouts.
func NewExecutor(cfg appplane.Config, policy RetryPolicy, transport http.RoundTripper, hook AttemptHook, opts ...ExecutorOption) *Executor {
	options := executorOptions{maxBodyBytes: constants.MaxResponseBodyBytes}
	for _, opt := range opts {
		opt(&options)
	}

	if transport == nil {
		transport = NewTransport(cfg)
	}

	client := retryablehttp.NewClient()
	client.HTTPClient = &http.Client{
		Transport: &bufferingTransport{next: transport, limit: options.maxBodyBytes},
		Timeout:   cfg.Timeout,
	}
	client.Logger = nil
	client.RetryMax = policy.MaxRetries
	client.RetryWaitMin = policy.Backoff
	client.RetryWaitMax = policy.Backoff
	client.CheckRetry = policy.CheckRetry
	client.Backoff = policy.BackoffFor
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		callStateFrom(req.Context()).attempts = attempt + 1

		if hook != nil {
			hook(req, attempt)
		}
	}

	return &Executor{client: client, policy: policy}
}

// Execute runs treq until it produces a response, fails terminally, or
// exhausts the retry budget. Timeout bounds each attempt.
func (e *Executor) Execute(ctx context.Context, treq *TransportRequest, eligible bool) Outcome {
	state := &callState{eligible: eligible}
	ctx = withCallState(ctx, state)

	req, err := retryablehttp.NewRequestWithContext(ctx, treq.Method, treq.URL, treq.Body)
	if err != nil {
		return Outcome{Failure: FailureNetwork, cause: fmt.Errorf("creating request: %w", err)}
	}

	req.Header = treq.Header.Clone()

	resp, err := e.client.Do(req)
	if err != nil {
		return Outcome{Failure: classify(ctx, err), Attempts: state.attempts, cause: err}
	}

	defer func() { _ = resp.Body.Close() }()

	// The body is already in memory; bufferingTransport read it within the attempt.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{Failure: classify(ctx, err), Attempts: state.attempts, cause: fmt.Errorf("reading response body: %w", err)}
	}

	return Outcome{
		Response: &appplane.Response{
			StatusCode: resp.StatusCode,
			Headers:    appplane.NewHeaders(resp.Header),
			Body:       body,
		},
		Attempts: state.attempts,
	}
}

// classify tags a transport error. Deadlines and timeouts win over
// cancellation; anything else is a network failure.
func classify(ctx context.Context, err error) Failure {
	var netErr net.Error

	switch {
	case errors.Is(err, constants.ErrResponseTooLarge):
		return FailureTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return FailureTimeout
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		return FailureCanceled
	default:
		return FailureNetwork
	}
}

// bufferingTransport reads the whole response body inside the round trip,
// so a body that fails mid-read counts as an attempt without a response
// and follows the same retry rules as a dial or header failure.
type bufferingTransport struct {
	next  http.RoundTripper
	limit int64
}

func (t *bufferingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if int64(len(body)) > t.limit {
		return nil, fmt.Errorf("%w: more than %d bytes", constants.ErrResponseTooLarge, t.limit)
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))

	return resp, nil
}

// NewTransport returns a pooled transport honoring the connect, read and
// write timeouts of cfg.
func NewTransport(cfg appplane.Config) *http.Transport {
	transport := cleanhttp.DefaultPooledTransport()
	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport.DialContext = func(ctx context.Context, network, address string) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, network, address)
		if err != nil {
			return nil, err
		}

		return &writeDeadlineConn{Conn: conn, timeout: cfg.WriteTimeout}, nil
	}
	transport.TLSHandshakeTimeout = cfg.ConnectTimeout
	transport.ResponseHeaderTimeout = cfg.ReadTimeout

	return transport
}

// writeDeadlineConn arms a fresh write deadline before every write.
type writeDeadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *writeDeadlineConn) Write(b []byte) (int, error) {
	if c.timeout > 0 {
		err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout))
		if err != nil {
			return 0, err
		}
	}

	return c.Conn.Write(b)
}
