package appplane

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fivetwenty-io/appplane-client/internal/constants"
)

// Cache stores buffered GET responses.
type Cache interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Set(ctx context.Context, key string, entry *CacheEntry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) bool
}

// CacheEntry is one cached response.
type CacheEntry struct {
	StatusCode int       `json:"status_code"`
	Headers    Headers   `json:"headers,omitempty"`
	Data       []byte    `json:"data"`
	ExpiresAt  time.Time `json:"expires_at"`
	ETag       string    `json:"etag,omitempty"`
}

// Expired reports whether the entry is past its expiry.
func (e *CacheEntry) Expired() bool {
	return !e.ExpiresAt.IsZero() && time.Now().After(e.ExpiresAt)
}

// Response rebuilds the cached response. The result owns its body and
// headers; changing it leaves the entry untouched.
func (e *CacheEntry) Response() *Response {
	return &Response{
		StatusCode: e.StatusCode,
		Headers:    e.Headers.Clone(),
		Body:       bytes.Clone(e.Data),
	}
}

// NewCacheEntry captures a private copy of resp for ttl.
func NewCacheEntry(resp *Response, ttl time.Duration) *CacheEntry {
	return &CacheEntry{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers.Clone(),
		Data:       bytes.Clone(resp.Body),
		ExpiresAt:  time.Now().Add(ttl),
		ETag:       resp.Header("etag"),
	}
}

// Cacheable reports whether a response may be stored. Only 2xx responses
// the gateway did not mark no-store or private qualify.
func Cacheable(resp *Response) bool {
	if resp == nil || !resp.Success() {
		return false
	}

	directives := strings.ToLower(resp.Header(constants.HeaderCacheControl))

	return !strings.Contains(directives, "no-store") && !strings.Contains(directives, "private")
}

// CacheKey derives the storage key for a GET. Credentials take part in the
// key so callers never read each other's responses, but only as a digest.
func CacheKey(method, url string, headers http.Header) string {
	hash := sha256.New()

	for _, part := range []string{
		method,
		url,
		headers.Get(constants.HeaderAccept),
		headers.Get(constants.HeaderAuthorization),
		headers.Get(constants.HeaderPassport),
	} {
		hash.Write([]byte(part))
		hash.Write([]byte{0})
	}

	return hex.EncodeToString(hash.Sum(nil))
}

// MemoryCache is a bounded in-process cache. When full, the entry closest
// to expiry is evicted.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*CacheEntry
	maxSize int
}

// NewMemoryCache creates a memory cache holding up to maxSize entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = constants.DefaultCacheSize
	}

	return &MemoryCache{
		entries: make(map[string]*CacheEntry),
		maxSize: maxSize,
	}
}

// Get retrieves an entry.
func (c *MemoryCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, ErrCacheMiss
	}

	if entry.Expired() {
		_ = c.Delete(ctx, key)

		return nil, ErrCacheEntryExpired
	}

	return entry, nil
}

// Set stores an entry.
func (c *MemoryCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictLocked()
	}

	c.entries[key] = entry

	return nil
}

// Delete removes an entry.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	return nil
}

// Clear removes every entry.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]*CacheEntry)
	c.mu.Unlock()

	return nil
}

// Has reports whether a live entry exists for key.
func (c *MemoryCache) Has(ctx context.Context, key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]

	return ok && !entry.Expired()
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Cleanup drops expired entries.
func (c *MemoryCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if entry.Expired() {
			delete(c.entries, key)
		}
	}
}

// StartCleanup runs Cleanup every interval until ctx is done.
func (c *MemoryCache) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Cleanup()
			}
		}
	}()
}

func (c *MemoryCache) evictLocked() {
	var (
		victim string
		oldest time.Time
	)

	for key, entry := range c.entries {
		if victim == "" || entry.ExpiresAt.Before(oldest) {
			victim = key
			oldest = entry.ExpiresAt
		}
	}

	delete(c.entries, victim)
}
