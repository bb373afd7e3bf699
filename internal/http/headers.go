package http

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/fivetwenty-io/appplane-client/internal/constants"
	"github.com/fivetwenty-io/appplane-client/pkg/appplane"
)

// Identity carries what Inject contributes on top of the builder defaults.
type Identity struct {
	AuthToken      string
	PassportToken  string
	UserAgent      string
	HeaderProvider appplane.HeaderProvider
}

// Inject layers headers onto treq, lowest precedence first: builder and
// identity defaults, then provider headers, then per-call headers. The
// request and correlation IDs are filled in last, only where absent, and
// always share one value. It returns that value.
func Inject(ctx context.Context, treq *TransportRequest, identity Identity) (string, error) {
	userAgent := identity.UserAgent
	if userAgent == "" {
		userAgent = constants.UserAgent
	}

	defaults := map[string]string{constants.HeaderUserAgent: userAgent}

	if identity.AuthToken != "" {
		defaults[constants.HeaderAuthorization] = "Bearer " + identity.AuthToken
	}

	if identity.PassportToken != "" {
		defaults[constants.HeaderPassport] = identity.PassportToken
	}

	err := setHeaders(treq, defaults)
	if err != nil {
		return "", err
	}

	if identity.HeaderProvider != nil {
		provided, providerErr := identity.HeaderProvider(ctx)
		if providerErr != nil {
			return "", appplane.NewLocalProblem(appplane.KindAuth, appplane.CodeHeaderProvider,
				"header provider failed", 0, providerErr)
		}

		err = setHeaders(treq, provided)
		if err != nil {
			return "", err
		}
	}

	err = setHeaders(treq, treq.callHeaders)
	if err != nil {
		return "", err
	}

	requestID := firstHeader(treq, constants.HeaderRequestID, constants.HeaderCorrelationID)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	for _, name := range []string{constants.HeaderRequestID, constants.HeaderCorrelationID} {
		if treq.Header.Get(name) == "" {
			treq.Header.Set(name, requestID)
		}
	}

	return requestID, nil
}

func setHeaders(treq *TransportRequest, headers map[string]string) error {
	for name, value := range headers {
		name = strings.ToLower(strings.TrimSpace(name))
		if !validHeaderName(name) || !validHeaderValue(value) {
			return invalidRequest("header name or value is not valid", nil)
		}

		treq.Header.Set(name, value)
	}

	return nil
}

func firstHeader(treq *TransportRequest, names ...string) string {
	for _, name := range names {
		if value := strings.TrimSpace(treq.Header.Get(name)); value != "" {
			return value
		}
	}

	return ""
}

// validHeaderName accepts RFC 7230 token characters.
func validHeaderName(name string) bool {
	if name == "" {
		return false
	}

	for _, r := range name {
		if r > 0x7e || r <= 0x20 || strings.ContainsRune("\"(),/:;<=>?@[\\]{}", r) {
			return false
		}
	}

	return true
}

func validHeaderValue(value string) bool {
	for _, r := range value {
		if r == 0x7f || (r < 0x20 && r != '\t') {
			return false
		}
	}

	return true
}
