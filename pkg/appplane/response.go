package appplane

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fivetwenty-io/appplane-client/internal/constants"
)

// Headers is a response header multimap with lower-cased names.
type Headers map[string][]string

// NewHeaders copies an http.Header, lower-casing every name.
func NewHeaders(header http.Header) Headers {
	headers := make(Headers, len(header))
	for name, values := range header {
		key := strings.ToLower(name)
		headers[key] = append(headers[key], values...)
	}

	return headers
}

// Get returns the first value for name, matched case-insensitively.
func (h Headers) Get(name string) string {
	values := h[strings.ToLower(name)]
	if len(values) == 0 {
		return ""
	}

	return values[0]
}

// Values returns every value for name.
func (h Headers) Values(name string) []string {
	return h[strings.ToLower(name)]
}

// Clone returns a deep copy of h.
func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}

	clone := make(Headers, len(h))
	for name, values := range h {
		clone[name] = append([]string(nil), values...)
	}

	return clone
}

// Response is a fully buffered gateway response.
type Response struct {
	StatusCode int
	Headers    Headers
	Body       []byte
}

// Success reports a 2xx status.
func (r *Response) Success() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

// Header returns the first value of the named header.
func (r *Response) Header(name string) string {
	return r.Headers.Get(name)
}

// RequestID returns the correlation identifier echoed by the gateway, if any.
func (r *Response) RequestID() string {
	return firstNonEmpty(r.Headers.Get(constants.HeaderRequestID), r.Headers.Get(constants.HeaderCorrelationID))
}

// Empty reports a body with no content.
func (r *Response) Empty() bool {
	return len(bytes.TrimSpace(r.Body)) == 0
}

// JSON decodes the body into out without any status checks.
func (r *Response) JSON(out interface{}) error {
	return json.Unmarshal(r.Body, out)
}

// Problem returns the Problem a non-2xx response carries, or nil.
func (r *Response) Problem() *Problem {
	if r.Success() {
		return nil
	}

	return ParseProblem(r.StatusCode, r.Headers, r.Body)
}

// Decode maps the response onto out.
//
// A 2xx response with an empty body leaves out untouched and returns nil.
// A 2xx response whose content type is JSON, or absent, is decoded; a
// decode failure becomes a local decode_error Problem carrying the
// status. Any other 2xx content type is rejected the same way rather than
// guessed at. Non-2xx responses return their Problem.
func (r *Response) Decode(out interface{}) error {
	if !r.Success() {
		return r.Problem()
	}

	if r.Empty() || out == nil {
		return nil
	}

	contentType := r.Headers.Get(constants.HeaderContentType)
	if contentType != "" && !isJSONContentType(contentType) {
		return NewLocalProblem(KindLocal, CodeDecode, "response content type is not JSON", r.StatusCode, nil)
	}

	err := json.Unmarshal(r.Body, out)
	if err != nil {
		return NewLocalProblem(KindLocal, CodeDecode, "response body could not be decoded", r.StatusCode, err)
	}

	return nil
}
