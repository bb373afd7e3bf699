package appclient

import (
	"net/url"
	"strings"

	"github.com/fivetwenty-io/appplane-client/internal/constants"
	apphttp "github.com/fivetwenty-io/appplane-client/internal/http"
)

// CallOption customizes a single call.
type CallOption func(*apphttp.Request)

// WithQuery adds query parameters. Values for a key already present are
// appended.
func WithQuery(values url.Values) CallOption {
	return func(r *apphttp.Request) {
		if len(values) == 0 {
			return
		}

		if r.Query == nil {
			r.Query = url.Values{}
		}

		for key, vals := range values {
			for _, value := range vals {
				r.Query.Add(key, value)
			}
		}
	}
}

// WithQueryParam sets a single query parameter, replacing earlier values.
func WithQueryParam(key, value string) CallOption {
	return func(r *apphttp.Request) {
		if r.Query == nil {
			r.Query = url.Values{}
		}

		r.Query.Set(key, value)
	}
}

// WithHeader sets one per-call header. Per-call headers override every
// other source.
func WithHeader(name, value string) CallOption {
	return func(r *apphttp.Request) {
		if r.Headers == nil {
			r.Headers = make(map[string]string)
		}

		r.Headers[strings.ToLower(name)] = value
	}
}

// WithHeaders sets several per-call headers.
func WithHeaders(headers map[string]string) CallOption {
	return func(r *apphttp.Request) {
		for name, value := range headers {
			WithHeader(name, value)(r)
		}
	}
}

// WithBody sets the request body. Byte slices, readers and
// appplane.RawBody are sent as is; anything else is encoded as JSON.
func WithBody(body interface{}) CallOption {
	return func(r *apphttp.Request) {
		r.Body = body
	}
}

// WithIdempotencyKey makes an unsafe call retryable under key.
func WithIdempotencyKey(key string) CallOption {
	return WithHeader(constants.HeaderIdempotencyKey, key)
}

// WithRequestID pins the request and correlation ID of the call.
func WithRequestID(id string) CallOption {
	return WithHeader(constants.HeaderRequestID, id)
}
