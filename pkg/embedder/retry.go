package embedder

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/oakmoss/graphrag/pkg/llmclient"
)

// RetryClient wraps a Client with bounded exponential-backoff retry,
// mirroring llmclient.RetryClient's policy and error classification so
// embedding calls and chat calls back off identically against the same
// provider family.
type RetryClient struct {
	client Client
	config *llmclient.RetryConfig
	rand   *rand.Rand
}

// NewRetryClient wraps client with the given retry policy (nil uses
// llmclient.DefaultRetryConfig).
func NewRetryClient(client Client, config *llmclient.RetryConfig) *RetryClient {
	if config == nil {
		config = llmclient.DefaultRetryConfig()
	}
	return &RetryClient{
		client: client,
		config: config,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// BatchEncode implements Client, retrying External-transient failures.
func (r *RetryClient) BatchEncode(ctx context.Context, texts []string, opts EncodeOptions) ([][]float64, error) {
	var lastErr error
	for attempt := 0; attempt < r.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(r.delay(attempt)):
			case <-ctx.Done():
				return nil, fmt.Errorf("embedder: context cancelled during retry backoff: %w", ctx.Err())
			}
		}

		out, err := r.client.BatchEncode(ctx, texts, opts)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !llmclient.IsRetryable(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("embedder: failed after %d attempts: %w", r.config.MaxAttempts, lastErr)
}

// Dimensions implements Client.
func (r *RetryClient) Dimensions() int { return r.client.Dimensions() }

// Close implements Client.
func (r *RetryClient) Close() error { return r.client.Close() }

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
