package appplane_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/appplane-client/pkg/appplane"
)

func jsonHeaders(contentType string) appplane.Headers {
	return appplane.NewHeaders(http.Header{"Content-Type": []string{contentType}})
}

func TestParseProblem_CanonicalRoundTrip(t *testing.T) {
	t.Parallel()

	original := appplane.Problem{
		Code:          "rate_limited",
		Message:       "Too many requests.",
		Kind:          "throttle",
		Status:        429,
		CorrelationID: "corr-123",
	}

	body, err := json.Marshal(original)
	require.NoError(t, err)

	problem := appplane.ParseProblem(http.StatusTooManyRequests, jsonHeaders("application/json"), body)
	assert.Equal(t, "rate_limited", problem.Code)
	assert.Equal(t, "Too many requests.", problem.Message)
	assert.Equal(t, appplane.Kind("throttle"), problem.Kind)
	assert.Equal(t, 429, problem.Status)
	assert.Equal(t, "corr-123", problem.CorrelationID)
	assert.False(t, problem.Local)
	assert.Nil(t, problem.Retryable)
	assert.Empty(t, problem.Extensions)
	assert.True(t, appplane.IsRateLimited(problem))
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestParseProblem(t *testing.T) {
	t.Parallel()

	t.Run("RFC 7807 fallback", func(t *testing.T) {
		t.Parallel()

		body := `{"type":"https://errors.example.com/quota","title":"Quota exceeded","status":422,"detail":"Limit is 10","instance":"/app/items"}`
		problem := appplane.ParseProblem(422, jsonHeaders("application/problem+json; charset=utf-8"), []byte(body))

		assert.Equal(t, "Quota exceeded", problem.Message)
		assert.Equal(t, "Limit is 10", problem.Detail)
		assert.Equal(t, "https://errors.example.com/quota", problem.Type)
		assert.Equal(t, "/app/items", problem.Instance)
		assert.Equal(t, 422, problem.Status)
		assert.Equal(t, appplane.KindRemote, problem.Kind)
		assert.Equal(t, "http_422", problem.Code)
	})

	t.Run("canonical fields win", func(t *testing.T) {
		t.Parallel()

		body := `{"code":"bad_input","message":"Name is required","title":"Bad Request","kind":"validation","retryable":false,"reason":"missing_field","details":{"field":"name"}}`
		problem := appplane.ParseProblem(400, jsonHeaders("application/json"), []byte(body))

		assert.Equal(t, "bad_input", problem.Code)
		assert.Equal(t, "Name is required", problem.Message)
		assert.Equal(t, "Bad Request", problem.Title)
		assert.Equal(t, appplane.KindValidation, problem.Kind)
		require.NotNil(t, problem.Retryable)
		assert.False(t, *problem.Retryable)
		assert.Equal(t, "missing_field", problem.Reason)
		assert.Equal(t, "name", problem.Details["field"])
	})

	t.Run("extensions are preserved", func(t *testing.T) {
		t.Parallel()

		body := `{"code":"conflict","message":"Version mismatch","current_version":7,"links":{"self":"/app/items/1"}}`
		problem := appplane.ParseProblem(409, jsonHeaders("application/json"), []byte(body))

		require.Len(t, problem.Extensions, 2)
		assert.JSONEq(t, `7`, string(problem.Extensions["current_version"]))
		assert.JSONEq(t, `{"self":"/app/items/1"}`, string(problem.Extensions["links"]))

		encoded, err := json.Marshal(problem)
		require.NoError(t, err)

		var decoded appplane.Problem

		require.NoError(t, json.Unmarshal(encoded, &decoded))
		assert.Equal(t, problem.Extensions, decoded.Extensions)
		assert.Equal(t, "conflict", decoded.Code)
	})

	t.Run("retry hints", func(t *testing.T) {
		t.Parallel()

		headers := appplane.NewHeaders(http.Header{
			"Content-Type":     []string{"application/json"},
			"Retry-After":      []string{"30"},
			"X-Correlation-Id": []string{"from-header"},
		})

		problem := appplane.ParseProblem(503, headers, []byte(`{"code":"unavailable"}`))
		assert.Equal(t, 30*time.Second, problem.RetryAfter)
		assert.Equal(t, "from-header", problem.CorrelationID)
		assert.Equal(t, "Service Unavailable", problem.Message)

		problem = appplane.ParseProblem(503, headers, []byte(`{"code":"unavailable","retry_after":2,"correlation_id":"from-body"}`))
		assert.Equal(t, 2*time.Second, problem.RetryAfter)
		assert.Equal(t, "from-body", problem.CorrelationID)

		problem = appplane.ParseProblem(503, headers, []byte(`{"retry_after":86400}`))
		assert.Equal(t, time.Hour, problem.RetryAfter)

		problem = appplane.ParseProblem(503, headers, []byte(`{"retry_after":1e300}`))
		assert.Equal(t, time.Hour, problem.RetryAfter)

		huge := appplane.NewHeaders(http.Header{"Retry-After": []string{"9223372036854775807"}})
		problem = appplane.ParseProblem(503, huge, nil)
		assert.Equal(t, time.Hour, problem.RetryAfter)
	})

	t.Run("non JSON body", func(t *testing.T) {
		t.Parallel()

		problem := appplane.ParseProblem(502, jsonHeaders("text/html"), []byte("<h1>Bad gateway</h1>"))

		assert.True(t, problem.Local)
		assert.Equal(t, appplane.KindLocal, problem.Kind)
		assert.Equal(t, appplane.CodeUnexpectedResponse, problem.Code)
		assert.Equal(t, 502, problem.Status)
		assert.Equal(t, "<h1>Bad gateway</h1>", problem.BodyPreview)
		assert.NotContains(t, problem.Error(), "Bad gateway</h1>")
	})

	t.Run("malformed JSON body", func(t *testing.T) {
		t.Parallel()

		problem := appplane.ParseProblem(500, jsonHeaders("application/json"), []byte(`{"code":`))
		assert.Equal(t, appplane.CodeUnexpectedResponse, problem.Code)
		assert.Equal(t, 500, problem.Status)

		problem = appplane.ParseProblem(500, jsonHeaders("application/json"), []byte(`["not","an","object"]`))
		assert.Equal(t, appplane.CodeUnexpectedResponse, problem.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		t.Parallel()

		problem := appplane.ParseProblem(404, appplane.Headers{}, nil)
		assert.Equal(t, appplane.CodeUnexpectedResponse, problem.Code)
		assert.Equal(t, "unexpected response from gateway", problem.Message)
		assert.Empty(t, problem.BodyPreview)
		assert.True(t, appplane.IsNotFound(problem))
	})

	t.Run("body preview is bounded and valid UTF-8", func(t *testing.T) {
		t.Parallel()

		body := strings.Repeat("a", 255) + "é" + strings.Repeat("b", 1000)
		problem := appplane.ParseProblem(500, jsonHeaders("text/plain"), []byte(body))

		assert.LessOrEqual(t, len(problem.BodyPreview), 256)
		assert.True(t, utf8.ValidString(problem.BodyPreview))
		assert.Equal(t, strings.Repeat("a", 255), problem.BodyPreview)
	})
}

func TestParseProblem_MistypedFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		body      string
		code      string
		message   string
		kind      appplane.Kind
		extension string
		raw       string
	}{
		{
			name:      "details array",
			status:    422,
			body:      `{"code":"bad","message":"m","kind":"validation","details":[{"field":"x"}]}`,
			code:      "bad",
			message:   "m",
			kind:      appplane.KindValidation,
			extension: "details",
			raw:       `[{"field":"x"}]`,
		},
		{
			name:      "status as string",
			status:    400,
			body:      `{"code":"bad","message":"m","status":"400"}`,
			code:      "bad",
			message:   "m",
			kind:      appplane.KindRemote,
			extension: "status",
			raw:       `"400"`,
		},
		{
			name:      "retryable as string",
			status:    503,
			body:      `{"code":"busy","message":"later","retryable":"yes"}`,
			code:      "busy",
			message:   "later",
			kind:      appplane.KindRemote,
			extension: "retryable",
			raw:       `"yes"`,
		},
		{
			name:      "code as number",
			status:    409,
			body:      `{"code":42,"message":"Already exists"}`,
			code:      "http_409",
			message:   "Already exists",
			kind:      appplane.KindRemote,
			extension: "code",
			raw:       `42`,
		},
		{
			name:      "retry_after as object",
			status:    429,
			body:      `{"code":"slow_down","retry_after":{"seconds":3}}`,
			code:      "slow_down",
			message:   "Too Many Requests",
			kind:      appplane.KindRemote,
			extension: "retry_after",
			raw:       `{"seconds":3}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			problem := appplane.ParseProblem(tt.status, jsonHeaders("application/json"), []byte(tt.body))
			assert.False(t, problem.Local)
			assert.Equal(t, tt.code, problem.Code)
			assert.Equal(t, tt.message, problem.Message)
			assert.Equal(t, tt.kind, problem.Kind)
			assert.Equal(t, tt.status, problem.Status)
			assert.Empty(t, problem.BodyPreview)
			require.Contains(t, problem.Extensions, tt.extension)
			assert.JSONEq(t, tt.raw, string(problem.Extensions[tt.extension]))
		})
	}
}

func TestProblem_MistypedFieldSurvivesRoundTrip(t *testing.T) {
	t.Parallel()

	problem := appplane.ParseProblem(422, jsonHeaders("application/json"),
		[]byte(`{"code":"bad","message":"m","details":[{"field":"x"}],"status":"422"}`))

	encoded, err := json.Marshal(problem)
	require.NoError(t, err)

	var fields map[string]json.RawMessage

	require.NoError(t, json.Unmarshal(encoded, &fields))
	assert.JSONEq(t, `[{"field":"x"}]`, string(fields["details"]))
	assert.JSONEq(t, `422`, string(fields["status"]))
	assert.JSONEq(t, `"bad"`, string(fields["code"]))
}

func TestParseProblem_AuthFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		header appplane.Headers
		body   string
		code   string
	}{
		{name: "401 without body", status: 401, header: appplane.Headers{}, code: appplane.CodeUnauthorized},
		{name: "403 html body", status: 403, header: jsonHeaders("text/html"), body: "<p>denied</p>", code: appplane.CodeForbidden},
		{name: "401 canonical body keeps code", status: 401, header: jsonHeaders("application/json"), body: `{"code":"token_expired","kind":"validation"}`, code: "token_expired"},
		{name: "403 body without code", status: 403, header: jsonHeaders("application/json"), body: `{"message":"nope"}`, code: appplane.CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			problem := appplane.ParseProblem(tt.status, tt.header, []byte(tt.body))
			assert.Equal(t, appplane.KindAuth, problem.Kind)
			assert.Equal(t, tt.code, problem.Code)
			assert.Equal(t, tt.status, problem.Status)
			assert.True(t, appplane.IsAuthFailure(problem))
		})
	}
}

func TestProblem_ErrorAndHelpers(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp 10.0.0.1:443: i/o timeout")
	problem := appplane.NewLocalProblem(appplane.KindTransport, appplane.CodeTimeout, "request timed out", 0, cause)

	assert.Equal(t, "transport/timeout: request timed out", problem.Error())
	assert.ErrorIs(t, problem, cause)
	assert.True(t, problem.IsLocal())
	assert.True(t, appplane.IsTimeout(problem))
	assert.True(t, appplane.IsLocal(problem))
	assert.False(t, appplane.IsNetwork(problem))
	assert.False(t, appplane.IsAuthFailure(problem))

	remote := &appplane.Problem{Kind: appplane.KindRemote, Code: "boom", Message: "Exploded", Status: 500}
	assert.Equal(t, "remote/boom: Exploded (status 500)", remote.Error())

	_, ok := appplane.AsProblem(errors.New("plain"))
	assert.False(t, ok)
	assert.False(t, appplane.IsNotFound(nil))
}
