package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fivetwenty-io/appplane-client/pkg/appplane"
)

// Static errors for err113 compliance.
var (
	ErrTokenFileRequired = errors.New("token file path is required")
	ErrTokenExpired      = errors.New("token in file has expired")
)

// FileTokenSource serves a token kept in a file that another process
// rotates, such as a mounted passport. The file holds either the bare
// token or a JSON Token document. It is re-read whenever its modification
// time changes or the cached token is no longer valid.
type FileTokenSource struct {
	path  string
	store *TokenStore

	mu      sync.Mutex
	modTime time.Time
}

// NewFileTokenSource creates a source reading path.
func NewFileTokenSource(path string) (*FileTokenSource, error) {
	if path == "" {
		return nil, ErrTokenFileRequired
	}

	return &FileTokenSource{path: path, store: NewTokenStore()}, nil
}

// Token implements appplane.TokenSource.
func (s *FileTokenSource) Token(ctx context.Context) (string, error) {
	err := ctx.Err()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		return "", fmt.Errorf("reading token file: %w", err)
	}

	cached := s.store.Get()
	if cached.Valid() && info.ModTime().Equal(s.modTime) {
		return cached.AccessToken, nil
	}

	token, err := readTokenFile(s.path)
	if err != nil {
		s.store.Clear()

		return "", err
	}

	s.store.Set(token)
	s.modTime = info.ModTime()

	if !token.Valid() {
		return "", ErrTokenExpired
	}

	return token.AccessToken, nil
}

// Current returns the last token read, if any.
func (s *FileTokenSource) Current() *Token {
	return s.store.Get()
}

func readTokenFile(path string) (*Token, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is chosen by the operator
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, appplane.ErrNoToken
	}

	if data[0] != '{' {
		return &Token{AccessToken: string(data)}, nil
	}

	var token Token

	err = json.Unmarshal(data, &token)
	if err != nil {
		return nil, fmt.Errorf("parsing token file: %w", err)
	}

	if token.AccessToken == "" {
		return nil, appplane.ErrNoToken
	}

	return &token, nil
}
