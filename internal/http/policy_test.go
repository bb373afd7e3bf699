package http_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/fivetwenty-io/appplane-client/internal/http"
	"github.com/fivetwenty-io/appplane-client/pkg/appplane"
)

func prepared(t *testing.T, method string, headers map[string]string) *apphttp.TransportRequest {
	t.Helper()

	treq, err := apphttp.Build("https://gateway.test", &apphttp.Request{Method: method, Path: "/items", Headers: headers})
	require.NoError(t, err)

	_, err = apphttp.Inject(context.Background(), treq, apphttp.Identity{})
	require.NoError(t, err)

	return treq
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestRetryPolicy_Prepare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		method     string
		maxRetries int
		headers    map[string]string
		eligible   bool
		key        string
		synthesize bool
	}{
		{name: "GET without retries", method: "GET", maxRetries: 0},
		{name: "GET with retries needs no key", method: "GET", maxRetries: 2, eligible: true},
		{name: "POST without retries gets no key", method: "POST", maxRetries: 0},
		{name: "POST with retries gets a key", method: "POST", maxRetries: 1, eligible: true, synthesize: true},
		{name: "PUT with retries gets a key", method: "PUT", maxRetries: 1, eligible: true, synthesize: true},
		{name: "PATCH with retries gets a key", method: "PATCH", maxRetries: 1, eligible: true, synthesize: true},
		{name: "DELETE with retries gets a key", method: "DELETE", maxRetries: 1, eligible: true, synthesize: true},
		{
			name:       "caller key is kept",
			method:     "POST",
			maxRetries: 3,
			headers:    map[string]string{"X-Idempotency-Key": "order-42:v1"},
			eligible:   true,
			key:        "order-42:v1",
		},
		{
			name:       "caller key without retries",
			method:     "POST",
			maxRetries: 0,
			headers:    map[string]string{"x-idempotency-key": "order-43"},
			key:        "order-43",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			treq := prepared(t, tt.method, tt.headers)
			policy := apphttp.RetryPolicy{MaxRetries: tt.maxRetries, Backoff: time.Millisecond}

			eligible, err := policy.Prepare(treq)
			require.NoError(t, err)
			assert.Equal(t, tt.eligible, eligible)

			key := treq.Header.Get("x-idempotency-key")

			switch {
			case tt.synthesize:
				_, parseErr := uuid.Parse(key)
				require.NoError(t, parseErr)
				assert.True(t, apphttp.ValidIdempotencyKey(key))
			default:
				assert.Equal(t, tt.key, key)
			}
		})
	}
}

func TestRetryPolicy_PrepareRejectsBadKeys(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"has space", "slash/inside", "ünïcode", strings.Repeat("k", 256)} {
		treq := prepared(t, "POST", map[string]string{"x-idempotency-key": key})
		policy := apphttp.RetryPolicy{MaxRetries: 1}

		_, err := policy.Prepare(treq)
		require.Error(t, err, key)

		problem, ok := appplane.AsProblem(err)
		require.True(t, ok)
		assert.Equal(t, appplane.CodeInvalidIdempotencyKey, problem.Code)
		assert.NotContains(t, err.Error(), key)
	}

	assert.True(t, apphttp.ValidIdempotencyKey(strings.Repeat("k", 255)))
}

func TestRetryPolicy_CheckRetry(t *testing.T) {
	t.Parallel()

	policy := apphttp.RetryPolicy{MaxRetries: 3}

	retry, err := policy.CheckRetry(context.Background(), &http.Response{StatusCode: 503}, nil)
	require.NoError(t, err)
	assert.False(t, retry, "responses are final")

	retry, err = policy.CheckRetry(context.Background(), nil, errors.New("reset"))
	require.NoError(t, err)
	assert.False(t, retry, "calls not marked eligible are not retried")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	retry, err = policy.CheckRetry(ctx, nil, errors.New("reset"))
	require.NoError(t, err)
	assert.False(t, retry, "canceled calls are not retried")

	assert.Equal(t, 250*time.Millisecond,
		apphttp.RetryPolicy{Backoff: 250 * time.Millisecond}.BackoffFor(0, time.Hour, 5, nil))
}
