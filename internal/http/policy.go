package http

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/fivetwenty-io/appplane-client/internal/constants"
	"github.com/fivetwenty-io/appplane-client/pkg/appplane"
)

var idempotencyKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~:-]+$`)

// RetryPolicy decides which attempts may be repeated.
//
// Only attempts that ended without an HTTP response are retried, a body
// that broke off mid-read included. Any status, 5xx and 429 included, is
// final, as is a body over the size limit. Safe methods are always
// eligible; unsafe ones only when they carry an idempotency key.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// NewRetryPolicy builds the policy for cfg.
func NewRetryPolicy(cfg appplane.Config) RetryPolicy {
	return RetryPolicy{MaxRetries: cfg.MaxRetries, Backoff: cfg.RetryBackoff}
}

// Prepare runs once before the first attempt. It validates a caller
// supplied idempotency key or, for unsafe methods with retries enabled,
// synthesizes one, so every attempt carries the same key. It reports
// whether the call may be retried.
func (p RetryPolicy) Prepare(treq *TransportRequest) (bool, error) {
	key := treq.Header.Get(constants.HeaderIdempotencyKey)
	if key != "" && !ValidIdempotencyKey(key) {
		return false, appplane.NewLocalProblem(appplane.KindLocal, appplane.CodeInvalidIdempotencyKey,
			"idempotency key must be 1-255 URL-safe characters", 0, nil)
	}

	if safeMethod(treq.Method) {
		return p.MaxRetries > 0, nil
	}

	if key == "" && p.MaxRetries > 0 {
		key = uuid.NewString()
		treq.Header.Set(constants.HeaderIdempotencyKey, key)
	}

	return p.MaxRetries > 0 && key != "", nil
}

// ValidIdempotencyKey reports whether key is URL-safe and within bounds.
func ValidIdempotencyKey(key string) bool {
	return len(key) <= constants.MaxIdempotencyKeyLength && idempotencyKeyPattern.MatchString(key)
}

// CheckRetry is the retryablehttp.CheckRetry hook.
func (p RetryPolicy) CheckRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, nil
	}

	if resp != nil || err == nil || errors.Is(err, constants.ErrResponseTooLarge) {
		return false, nil
	}

	return callStateFrom(ctx).eligible, nil
}

// BackoffFor is the retryablehttp.Backoff hook: a fixed delay.
func (p RetryPolicy) BackoffFor(_, _ time.Duration, _ int, _ *http.Response) time.Duration {
	return p.Backoff
}

func safeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

type callStateKey struct{}

// callState follows one logical call through the retry loop.
type callState struct {
	eligible bool
	attempts int
}

func withCallState(ctx context.Context, state *callState) context.Context {
	return context.WithValue(ctx, callStateKey{}, state)
}

func callStateFrom(ctx context.Context) *callState {
	if state, ok := ctx.Value(callStateKey{}).(*callState); ok {
		return state
	}

	return &callState{}
}
