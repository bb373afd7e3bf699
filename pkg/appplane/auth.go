package appplane

import (
	"context"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/appplane-client/internal/constants"
)

// TokenSource yields a credential on demand. Implementations must be safe
// for concurrent use.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

// Token implements TokenSource.
func (f TokenSourceFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticTokenSource always returns the same token.
type StaticTokenSource string

// Token implements TokenSource.
func (s StaticTokenSource) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoToken
	}

	return string(s), nil
}

// HeaderProvider contributes headers to every call. Its values override
// the client defaults and are overridden by per-call headers. An error
// aborts the call before anything is sent.
type HeaderProvider func(ctx context.Context) (map[string]string, error)

// PassportHeaderProvider sends the token from source as x-app-passport.
func PassportHeaderProvider(source TokenSource) HeaderProvider {
	return tokenHeaderProvider(source, constants.HeaderPassport, "")
}

// BearerHeaderProvider sends the token from source as a Bearer
// authorization header.
func BearerHeaderProvider(source TokenSource) HeaderProvider {
	return tokenHeaderProvider(source, constants.HeaderAuthorization, "Bearer ")
}

// StaticHeaderProvider always contributes headers.
func StaticHeaderProvider(headers map[string]string) HeaderProvider {
	fixed := make(map[string]string, len(headers))
	for name, value := range headers {
		fixed[strings.ToLower(name)] = value
	}

	return func(context.Context) (map[string]string, error) {
		return fixed, nil
	}
}

// ChainHeaderProviders merges providers in order; later ones win.
func ChainHeaderProviders(providers ...HeaderProvider) HeaderProvider {
	return func(ctx context.Context) (map[string]string, error) {
		merged := make(map[string]string)

		for _, provider := range providers {
			if provider == nil {
				continue
			}

			headers, err := provider(ctx)
			if err != nil {
				return nil, err
			}

			for name, value := range headers {
				merged[strings.ToLower(name)] = value
			}
		}

		return merged, nil
	}
}

func tokenHeaderProvider(source TokenSource, header, prefix string) HeaderProvider {
	return func(ctx context.Context) (map[string]string, error) {
		token, err := source.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("obtaining %s token: %w", header, err)
		}

		return map[string]string{header: prefix + token}, nil
	}
}
