package http_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/fivetwenty-io/appplane-client/internal/http"
	"github.com/fivetwenty-io/appplane-client/pkg/appplane"
)

// brokenReader yields a prefix, then fails as if the peer reset the stream.
type brokenReader struct {
	prefix io.Reader
}

func (r *brokenReader) Read(p []byte) (int, error) {
	n, err := r.prefix.Read(p)
	if errors.Is(err, io.EOF) {
		return n, errors.New("connection reset by peer")
	}

	return n, err
}

func respondWithBrokenBody(status int) func(*http.Request) (*http.Response, error) {
	return func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(&brokenReader{prefix: strings.NewReader(`{"items":[`)}),
			Request:    req,
		}, nil
	}
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestExecutor_Execute(t *testing.T) {
	t.Parallel()

	cfg := appplane.Config{
		BaseURL:        "https://gateway.test",
		Timeout:        time.Second,
		ConnectTimeout: time.Second,
		ReadTimeout:    time.Second,
		WriteTimeout:   time.Second,
		MaxRetries:     2,
		RetryBackoff:   time.Millisecond,
	}

	tests := []struct {
		name     string
		steps    []func(*http.Request) (*http.Response, error)
		eligible bool
		failure  apphttp.Failure
		status   int
		attempts int
	}{
		{
			name:     "timeout is retried up to the budget",
			steps:    []func(*http.Request) (*http.Response, error){failWith(timeoutError{})},
			eligible: true,
			failure:  apphttp.FailureTimeout,
			attempts: 3,
		},
		{
			name:     "deadline is a timeout",
			steps:    []func(*http.Request) (*http.Response, error){failWith(context.DeadlineExceeded)},
			eligible: true,
			failure:  apphttp.FailureTimeout,
			attempts: 3,
		},
		{
			name:     "network failure",
			steps:    []func(*http.Request) (*http.Response, error){failWith(errors.New("no route to host"))},
			eligible: true,
			failure:  apphttp.FailureNetwork,
			attempts: 3,
		},
		{
			name:     "ineligible call is not retried",
			steps:    []func(*http.Request) (*http.Response, error){failWith(errors.New("connection refused"))},
			failure:  apphttp.FailureNetwork,
			attempts: 1,
		},
		{
			name: "recovers after a failure",
			steps: []func(*http.Request) (*http.Response, error){
				failWith(timeoutError{}),
				respondWith(204, ""),
			},
			eligible: true,
			status:   204,
			attempts: 2,
		},
		{
			name:     "body cut off mid-read is retried",
			steps:    []func(*http.Request) (*http.Response, error){respondWithBrokenBody(200)},
			eligible: true,
			failure:  apphttp.FailureNetwork,
			attempts: 3,
		},
		{
			name:     "body cut off on an ineligible call is final",
			steps:    []func(*http.Request) (*http.Response, error){respondWithBrokenBody(200)},
			failure:  apphttp.FailureNetwork,
			attempts: 1,
		},
		{
			name: "recovers after a broken body",
			steps: []func(*http.Request) (*http.Response, error){
				respondWithBrokenBody(200),
				respondWith(200, `{"items":[]}`),
			},
			eligible: true,
			status:   200,
			attempts: 2,
		},
		{
			name:     "server error is final",
			steps:    []func(*http.Request) (*http.Response, error){respondWith(503, `{}`)},
			eligible: true,
			status:   503,
			attempts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			transport := &scriptedTransport{steps: tt.steps}
			executor := apphttp.NewExecutor(cfg, apphttp.NewRetryPolicy(cfg), transport, nil)

			treq, err := apphttp.Build(cfg.BaseURL, &apphttp.Request{Method: "GET", Path: "/items"})
			require.NoError(t, err)

			outcome := executor.Execute(context.Background(), treq, tt.eligible)
			assert.Equal(t, tt.failure, outcome.Failure)
			assert.Equal(t, tt.attempts, transport.Calls())
			assert.Equal(t, tt.attempts, outcome.Attempts)

			if tt.failure == apphttp.FailureNone {
				require.NotNil(t, outcome.Response)
				assert.Equal(t, tt.status, outcome.Response.StatusCode)
				assert.Nil(t, outcome.Problem())

				return
			}

			assert.Nil(t, outcome.Response)

			problem := outcome.Problem()
			require.NotNil(t, problem)
			assert.Equal(t, appplane.KindTransport, problem.Kind)
			assert.Equal(t, 0, problem.Status)
			assert.True(t, problem.Local)

			if tt.failure == apphttp.FailureTimeout {
				assert.Equal(t, appplane.CodeTimeout, problem.Code)
			} else {
				assert.Equal(t, appplane.CodeNetwork, problem.Code)
			}
		})
	}
}

func TestFailure_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "none", apphttp.FailureNone.String())
	assert.Equal(t, "timeout", apphttp.FailureTimeout.String())
	assert.Equal(t, "network", apphttp.FailureNetwork.String())
	assert.Equal(t, "canceled", apphttp.FailureCanceled.String())
	assert.Equal(t, "too_large", apphttp.FailureTooLarge.String())
}

func TestExecutor_ResponseSizeLimit(t *testing.T) {
	t.Parallel()

	cfg := appplane.Config{
		BaseURL:      "https://gateway.test",
		Timeout:      time.Second,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	}

	treq, err := apphttp.Build(cfg.BaseURL, &apphttp.Request{Method: "GET", Path: "/items"})
	require.NoError(t, err)

	t.Run("oversized body is final", func(t *testing.T) {
		t.Parallel()

		transport := &scriptedTransport{steps: []func(*http.Request) (*http.Response, error){
			respondWith(200, `{"items":[1,2,3]}`),
		}}
		executor := apphttp.NewExecutor(cfg, apphttp.NewRetryPolicy(cfg), transport, nil,
			apphttp.WithMaxResponseBytes(8))

		outcome := executor.Execute(context.Background(), treq, true)
		assert.Equal(t, apphttp.FailureTooLarge, outcome.Failure)
		assert.Nil(t, outcome.Response)
		assert.Equal(t, 1, transport.Calls())

		problem := outcome.Problem()
		require.NotNil(t, problem)
		assert.Equal(t, appplane.KindLocal, problem.Kind)
		assert.Equal(t, appplane.CodeResponseTooLarge, problem.Code)
		assert.True(t, problem.Local)
	})

	t.Run("body at the limit is accepted", func(t *testing.T) {
		t.Parallel()

		transport := &scriptedTransport{steps: []func(*http.Request) (*http.Response, error){
			respondWith(200, `{"n":12}`),
		}}
		executor := apphttp.NewExecutor(cfg, apphttp.NewRetryPolicy(cfg), transport, nil,
			apphttp.WithMaxResponseBytes(8))

		outcome := executor.Execute(context.Background(), treq, true)
		assert.Equal(t, apphttp.FailureNone, outcome.Failure)
		require.NotNil(t, outcome.Response)
		assert.JSONEq(t, `{"n":12}`, string(outcome.Response.Body))
	})
}

func TestNewTransport_AppliesTimeouts(t *testing.T) {
	t.Parallel()

	transport := apphttp.NewTransport(appplane.Config{
		ConnectTimeout: 2 * time.Second,
		ReadTimeout:    4 * time.Second,
		WriteTimeout:   time.Second,
	})

	assert.Equal(t, 2*time.Second, transport.TLSHandshakeTimeout)
	assert.Equal(t, 4*time.Second, transport.ResponseHeaderTimeout)
	assert.NotNil(t, transport.DialContext)
}
