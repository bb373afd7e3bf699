package appplane

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fivetwenty-io/appplane-client/internal/constants"
)

// Kind categorizes a Problem.
type Kind string

// Problem kinds produced by the client. Remote problems may carry any kind
// the gateway declares.
const (
	KindAuth       Kind = "auth"
	KindValidation Kind = "validation"
	KindTransport  Kind = "transport"
	KindLocal      Kind = "local"
	KindRemote     Kind = "remote"
)

// Problem codes produced by the client.
const (
	CodeTimeout               = "timeout"
	CodeNetwork               = "network_error"
	CodeCanceled              = "canceled"
	CodeDecode                = "decode_error"
	CodeUnexpectedResponse    = "unexpected_response"
	CodeInvalidRequest        = "invalid_request"
	CodeInvalidIdempotencyKey = "invalid_idempotency_key"
	CodeHeaderProvider        = "header_provider_failed"
	CodeRateLimiterWait       = "rate_limiter_wait_failed"
	CodeResponseTooLarge      = "response_too_large"
	CodeUnauthorized          = "unauthorized"
	CodeForbidden             = "forbidden"
)

// Problem is the canonical structured error.
//
// Remote problems are decoded from either the canonical envelope
// (code, message, kind, correlation_id, retryable, retry_after, reason,
// details) or an RFC 7807 document (type, title, status, detail,
// instance). Canonical fields win when both are present. Any other
// top-level key is kept in Extensions.
//
// Problems raised by the client itself have Local set and a kind of
// "transport" or "local". Their messages are fixed strings: they never
// echo tokens, header values or low-level transport diagnostics.
type Problem struct {
	Code          string
	Message       string
	Kind          Kind
	Status        int
	CorrelationID string
	Retryable     *bool
	RetryAfter    time.Duration
	Reason        string
	Details       map[string]interface{}

	Type     string
	Title    string
	Detail   string
	Instance string

	Extensions map[string]json.RawMessage

	// BodyPreview holds a bounded excerpt of an unparseable error body.
	// It is never included in Error().
	BodyPreview string

	// Local marks problems synthesized by the client.
	Local bool

	cause error
}

// Error implements the error interface.
func (p *Problem) Error() string {
	var b strings.Builder

	b.WriteString(string(p.Kind))

	if p.Code != "" {
		if b.Len() > 0 {
			b.WriteString("/")
		}

		b.WriteString(p.Code)
	}

	if p.Message != "" {
		b.WriteString(": ")
		b.WriteString(p.Message)
	}

	if p.Status > 0 {
		fmt.Fprintf(&b, " (status %d)", p.Status)
	}

	return b.String()
}

// Unwrap exposes the underlying cause of a local problem, if any.
func (p *Problem) Unwrap() error {
	return p.cause
}

// IsLocal reports whether the client produced this problem.
func (p *Problem) IsLocal() bool {
	return p.Local
}

// NewLocalProblem builds a client-side problem. cause is kept for
// errors.Is/As but never rendered.
func NewLocalProblem(kind Kind, code, message string, status int, cause error) *Problem {
	return &Problem{
		Kind:    kind,
		Code:    code,
		Message: message,
		Status:  status,
		Local:   true,
		cause:   cause,
	}
}

type problemWire struct {
	Code          string                 `json:"code,omitempty"`
	Message       string                 `json:"message,omitempty"`
	Kind          Kind                   `json:"kind,omitempty"`
	Status        int                    `json:"status,omitempty"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Retryable     *bool                  `json:"retryable,omitempty"`
	RetryAfter    *float64               `json:"retry_after,omitempty"`
	Reason        string                 `json:"reason,omitempty"`
	Details       map[string]interface{} `json:"details,omitempty"`
	Type          string                 `json:"type,omitempty"`
	Title         string                 `json:"title,omitempty"`
	Detail        string                 `json:"detail,omitempty"`
	Instance      string                 `json:"instance,omitempty"`
}

// MarshalJSON writes the canonical envelope with extensions flattened in.
func (p Problem) MarshalJSON() ([]byte, error) {
	wire := problemWire{
		Code:          p.Code,
		Message:       p.Message,
		Kind:          p.Kind,
		Status:        p.Status,
		CorrelationID: p.CorrelationID,
		Retryable:     p.Retryable,
		Reason:        p.Reason,
		Details:       p.Details,
		Type:          p.Type,
		Title:         p.Title,
		Detail:        p.Detail,
		Instance:      p.Instance,
	}

	if p.RetryAfter > 0 {
		seconds := p.RetryAfter.Seconds()
		wire.RetryAfter = &seconds
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("marshaling problem: %w", err)
	}

	if len(p.Extensions) == 0 {
		return data, nil
	}

	// Typed fields overwrite extensions of the same name.
	merged := make(map[string]json.RawMessage, len(p.Extensions))
	for key, value := range p.Extensions {
		merged[key] = value
	}

	err = json.Unmarshal(data, &merged)
	if err != nil {
		return nil, fmt.Errorf("merging problem extensions: %w", err)
	}

	return json.Marshal(merged)
}

// UnmarshalJSON reads a canonical or RFC 7807 problem document. Fields
// are taken one at a time: a known key whose value has the wrong JSON type
// is kept in Extensions instead of failing the whole document.
func (p *Problem) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return fmt.Errorf("parsing problem: %w", err)
	}

	if raw == nil {
		return fmt.Errorf("parsing problem: %w", errNotAnObject)
	}

	var decoded Problem

	for key, value := range raw {
		if decoded.setField(key, value) {
			continue
		}

		if decoded.Extensions == nil {
			decoded.Extensions = make(map[string]json.RawMessage)
		}

		decoded.Extensions[key] = value
	}

	*p = decoded

	return nil
}

// setField decodes one known key. It reports false for unknown keys and
// for values that do not fit the field's type.
func (p *Problem) setField(key string, value json.RawMessage) bool {
	switch key {
	case "code":
		return decodeField(value, &p.Code)
	case "message":
		return decodeField(value, &p.Message)
	case "kind":
		return decodeField(value, &p.Kind)
	case "status":
		return decodeField(value, &p.Status)
	case "correlation_id":
		return decodeField(value, &p.CorrelationID)
	case "retryable":
		return decodeField(value, &p.Retryable)
	case "retry_after":
		var seconds float64
		if !decodeField(value, &seconds) {
			return false
		}

		switch {
		case seconds >= constants.MaxRetryAfter.Seconds():
			p.RetryAfter = constants.MaxRetryAfter
		case seconds > 0:
			p.RetryAfter = time.Duration(seconds * float64(time.Second))
		}

		return true
	case "reason":
		return decodeField(value, &p.Reason)
	case "details":
		return decodeField(value, &p.Details)
	case "type":
		return decodeField(value, &p.Type)
	case "title":
		return decodeField(value, &p.Title)
	case "detail":
		return decodeField(value, &p.Detail)
	case "instance":
		return decodeField(value, &p.Instance)
	default:
		return false
	}
}

func decodeField[T any](value json.RawMessage, target *T) bool {
	var decoded T

	err := json.Unmarshal(value, &decoded)
	if err != nil {
		return false
	}

	*target = decoded

	return true
}

var errNotAnObject = errors.New("problem document is not a JSON object")

// ParseProblem classifies a non-2xx response into a Problem.
//
// 401 and 403 always yield KindAuth, whatever the body says, so callers
// can branch on credential failures without reading messages.
func ParseProblem(status int, headers Headers, body []byte) *Problem {
	problem, ok := decodeProblemBody(headers, body)
	if !ok {
		problem = NewLocalProblem(KindLocal, CodeUnexpectedResponse, "unexpected response from gateway", status, nil)
		problem.BodyPreview = bodyPreview(body)
	}

	problem.Status = status

	if problem.Message == "" {
		switch {
		case problem.Title != "":
			problem.Message = problem.Title
		case problem.Detail != "":
			problem.Message = problem.Detail
		default:
			problem.Message = http.StatusText(status)
		}
	}

	if problem.CorrelationID == "" {
		problem.CorrelationID = firstNonEmpty(headers.Get(constants.HeaderCorrelationID), headers.Get(constants.HeaderRequestID))
	}

	if problem.RetryAfter == 0 {
		problem.RetryAfter = parseRetryAfter(headers.Get(constants.HeaderRetryAfter))
	}

	switch status {
	case http.StatusUnauthorized:
		problem.Kind = KindAuth
		if !ok || problem.Code == "" {
			problem.Code = CodeUnauthorized
		}
	case http.StatusForbidden:
		problem.Kind = KindAuth
		if !ok || problem.Code == "" {
			problem.Code = CodeForbidden
		}
	default:
		if problem.Kind == "" {
			problem.Kind = KindRemote
		}

		if problem.Code == "" {
			problem.Code = "http_" + strconv.Itoa(status)
		}
	}

	return problem
}

func decodeProblemBody(headers Headers, body []byte) (*Problem, bool) {
	if len(bytes.TrimSpace(body)) == 0 || !isJSONContentType(headers.Get(constants.HeaderContentType)) {
		return nil, false
	}

	var problem Problem

	err := json.Unmarshal(body, &problem)
	if err != nil {
		return nil, false
	}

	return &problem, true
}

func isJSONContentType(value string) bool {
	if value == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return false
	}

	return mediaType == constants.MediaTypeJSON || strings.HasSuffix(mediaType, "+json")
}

// bodyPreview returns at most BodyPreviewLimit bytes, cut on a rune boundary.
func bodyPreview(body []byte) string {
	if len(body) > constants.BodyPreviewLimit {
		body = body[:constants.BodyPreviewLimit]
		for len(body) > 0 && !utf8.Valid(body) {
			body = body[:len(body)-1]
		}
	}

	return strings.ToValidUTF8(string(body), "")
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	seconds, err := strconv.Atoi(value)
	if err == nil {
		if seconds <= 0 {
			return 0
		}

		if seconds >= int(constants.MaxRetryAfter/time.Second) {
			return constants.MaxRetryAfter
		}

		return time.Duration(seconds) * time.Second
	}

	when, err := http.ParseTime(value)
	if err != nil {
		return 0
	}

	delay := time.Until(when)
	if delay <= 0 {
		return 0
	}

	return capRetryAfter(delay)
}

func capRetryAfter(delay time.Duration) time.Duration {
	if delay > constants.MaxRetryAfter {
		return constants.MaxRetryAfter
	}

	return delay
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}

	return ""
}

// AsProblem extracts a *Problem from err.
func AsProblem(err error) (*Problem, bool) {
	var problem *Problem
	if errors.As(err, &problem) {
		return problem, true
	}

	return nil, false
}

// IsAuthFailure checks if the error is a 401/403 or a credential problem.
func IsAuthFailure(err error) bool {
	problem, ok := AsProblem(err)

	return ok && problem.Kind == KindAuth
}

// IsTimeout checks if the error is a local timeout.
func IsTimeout(err error) bool {
	problem, ok := AsProblem(err)

	return ok && problem.Local && problem.Code == CodeTimeout
}

// IsNetwork checks if the error is a local network failure.
func IsNetwork(err error) bool {
	problem, ok := AsProblem(err)

	return ok && problem.Local && problem.Code == CodeNetwork
}

// IsLocal checks if the error was raised by the client rather than the gateway.
func IsLocal(err error) bool {
	problem, ok := AsProblem(err)

	return ok && problem.Local
}

// IsNotFound checks if the gateway answered 404.
func IsNotFound(err error) bool {
	problem, ok := AsProblem(err)

	return ok && problem.Status == http.StatusNotFound
}

// IsRateLimited checks if the gateway answered 429.
func IsRateLimited(err error) bool {
	problem, ok := AsProblem(err)

	return ok && problem.Status == http.StatusTooManyRequests
}
