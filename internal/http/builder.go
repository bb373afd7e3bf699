package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/fivetwenty-io/appplane-client/internal/constants"
	"github.com/fivetwenty-io/appplane-client/pkg/appplane"
)

// Request is a logical gateway call.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string
	Body    interface{}
}

// TransportRequest is a call ready for the wire. Header starts with the
// builder defaults; Inject layers the rest on top.
type TransportRequest struct {
	Method string
	Path   string
	URL    string
	Header http.Header
	Body   interface{}

	callHeaders map[string]string
}

var supportedMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

// BuildPath places a logical path under the /app prefix exactly once.
func BuildPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", invalidRequest("path must not be empty", nil)
	}

	if strings.ContainsAny(path, "?#") {
		return "", invalidRequest("path must not contain a query or fragment", nil)
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	if path == constants.AppPathPrefix || strings.HasPrefix(path, constants.AppPathPrefix+"/") {
		return path, nil
	}

	return constants.AppPathPrefix + path, nil
}

// Build turns req into a TransportRequest against baseURL.
func Build(baseURL string, req *Request) (*TransportRequest, error) {
	if req == nil {
		return nil, invalidRequest("request is required", nil)
	}

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if _, ok := supportedMethods[method]; !ok {
		return nil, invalidRequest("unsupported method", nil)
	}

	path, err := BuildPath(req.Path)
	if err != nil {
		return nil, err
	}

	target := baseURL + escapePath(path)
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	callHeaders := make(map[string]string, len(req.Headers))
	for name, value := range req.Headers {
		callHeaders[strings.ToLower(strings.TrimSpace(name))] = value
	}

	treq := &TransportRequest{
		Method:      method,
		Path:        path,
		URL:         target,
		Header:      make(http.Header),
		callHeaders: callHeaders,
	}

	treq.Header.Set(constants.HeaderAccept, constants.DefaultAccept)

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	treq.Body = body
	if contentType != "" {
		treq.Header.Set(constants.HeaderContentType, contentType)
	}

	return treq, nil
}

// encodeBody returns the wire body and the content type it implies.
// Binary kinds pass through with no implied type.
func encodeBody(body interface{}) (interface{}, string, error) {
	switch value := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return value, "", nil
	case appplane.RawBody:
		return value.Data, value.ContentType, nil
	case *appplane.RawBody:
		if value == nil {
			return nil, "", nil
		}

		return value.Data, value.ContentType, nil
	case json.RawMessage:
		if !json.Valid(value) {
			return nil, "", invalidRequest("body is not valid JSON", nil)
		}

		return []byte(value), constants.MediaTypeJSON, nil
	case *bytes.Buffer:
		return value.Bytes(), "", nil
	case io.Reader:
		return value, "", nil
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return nil, "", invalidRequest("body could not be encoded as JSON", fmt.Errorf("encoding body: %w", err))
		}

		return data, constants.MediaTypeJSON, nil
	}
}

// escapePath keeps caller escapes that are already valid and escapes
// everything else.
func escapePath(path string) string {
	unescaped, err := url.PathUnescape(path)
	if err != nil {
		return (&url.URL{Path: path}).EscapedPath()
	}

	return (&url.URL{Path: unescaped, RawPath: path}).EscapedPath()
}

func invalidRequest(message string, cause error) *appplane.Problem {
	return appplane.NewLocalProblem(appplane.KindLocal, appplane.CodeInvalidRequest, message, 0, cause)
}
