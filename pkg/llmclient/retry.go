package llmclient

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// RetryConfig controls the exponential-backoff-with-jitter policy for
// External-transient errors (spec §6, §7).
type RetryConfig struct {
	// MaxAttempts is the total number of tries, including the first
	// (default 5).
	MaxAttempts int
	// BaseDelay is the delay before the first retry (default 250ms).
	BaseDelay time.Duration
	// MaxDelay caps the exponential growth (default 4s).
	MaxDelay time.Duration
	// Jitter is the maximum random delay added on top of the backoff
	// (default 100ms).
	Jitter time.Duration
}

// DefaultRetryConfig returns the spec's default backoff policy.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: DefaultMaxRetryAttempts,
		BaseDelay:   DefaultBackoffBase * time.Millisecond,
		MaxDelay:    DefaultBackoffCap * time.Millisecond,
		Jitter:      DefaultBackoffJitter * time.Millisecond,
	}
}

func (c *RetryConfig) normalized() *RetryConfig {
	if c == nil {
		return DefaultRetryConfig()
	}
	out := *c
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = DefaultMaxRetryAttempts
	}
	if out.BaseDelay <= 0 {
		out.BaseDelay = DefaultBackoffBase * time.Millisecond
	}
	if out.MaxDelay <= 0 {
		out.MaxDelay = DefaultBackoffCap * time.Millisecond
	}
	if out.Jitter < 0 {
		out.Jitter = 0
	}
	return &out
}

// RetryClient wraps a Client with bounded exponential-backoff retry.
type RetryClient struct {
	client Client
	config *RetryConfig
	rand   *rand.Rand
}

// NewRetryClient wraps client with the given retry policy (nil uses
// DefaultRetryConfig).
func NewRetryClient(client Client, config *RetryConfig) *RetryClient {
	return &RetryClient{
		client: client,
		config: config.normalized(),
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Infer implements Client, retrying External-transient failures with
// exponential backoff and jitter, then surfacing the last error.
func (r *RetryClient) Infer(ctx context.Context, messages []Message) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt < r.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := r.delay(attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, fmt.Errorf("llmclient: context cancelled during retry backoff: %w", ctx.Err())
			}
		}

		resp, err := r.client.Infer(ctx, messages)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("llmclient: failed after %d attempts: %w", r.config.MaxAttempts, lastErr)
}

// Close implements Client.
func (r *RetryClient) Close() error { return r.client.Close() }

// delay computes attempt N's exponential backoff (attempt is 1-indexed
// retry count) plus a uniform random jitter, capped at MaxDelay.
func (r *RetryClient) delay(attempt int) time.Duration {
	backoff := float64(r.config.BaseDelay) * math.Pow(2, float64(attempt-1))
	if backoff > float64(r.config.MaxDelay) {
		backoff = float64(r.config.MaxDelay)
	}
	jitter := time.Duration(0)
	if r.config.Jitter > 0 {
		jitter = time.Duration(r.rand.Int63n(int64(r.config.Jitter) + 1))
	}
	return time.Duration(backoff) + jitter
}

// IsRetryable classifies an error as External-transient (spec §7).
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) || errors.Is(err, ErrRateLimit) {
		return true
	}

	msg := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"500", "internal server error",
		"502", "bad gateway",
		"503", "service unavailable",
		"504", "gateway timeout",
		"timeout",
		"connection reset",
		"connection refused",
		"temporary failure",
		"rate limit",
		"too many requests",
		"429",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	type httpErrorWithStatusCode interface {
		HTTPStatusCode() int
	}
	if httpErr, ok := err.(httpErrorWithStatusCode); ok {
		code := httpErr.HTTPStatusCode()
		if code >= 500 || code == http.StatusTooManyRequests {
			return true
		}
	}

	return false
}
