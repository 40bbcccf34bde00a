package llmclient_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oakmoss/graphrag/pkg/llmclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	responses []*llmclient.Response
	errs      []error
	calls     int
}

func (m *mockClient) Infer(ctx context.Context, messages []llmclient.Message) (*llmclient.Response, error) {
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i < len(m.responses) {
		return m.responses[i], nil
	}
	return &llmclient.Response{Content: "ok"}, nil
}

func (m *mockClient) Close() error { return nil }

func fastRetryConfig() *llmclient.RetryConfig {
	return &llmclient.RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Jitter:      time.Millisecond,
	}
}

func TestRetryClientSucceedsAfterTransientFailure(t *testing.T) {
	mock := &mockClient{
		errs: []error{errors.New("503 service unavailable"), nil},
	}
	rc := llmclient.NewRetryClient(mock, fastRetryConfig())

	resp, err := rc.Infer(context.Background(), []llmclient.Message{llmclient.NewUserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 2, mock.calls)
}

func TestRetryClientFailsFastOnNonRetryable(t *testing.T) {
	mock := &mockClient{errs: []error{errors.New("invalid api key")}}
	rc := llmclient.NewRetryClient(mock, fastRetryConfig())

	_, err := rc.Infer(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 1, mock.calls)
}

func TestRetryClientExhaustsAttempts(t *testing.T) {
	mock := &mockClient{errs: []error{
		errors.New("timeout"), errors.New("timeout"), errors.New("timeout"),
	}}
	rc := llmclient.NewRetryClient(mock, fastRetryConfig())

	_, err := rc.Infer(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 3, mock.calls)
}

func TestIsRetryableClassifiesErrors(t *testing.T) {
	assert.True(t, llmclient.IsRetryable(errors.New("429 too many requests")))
	assert.True(t, llmclient.IsRetryable(&llmclient.RateLimitError{}))
	assert.False(t, llmclient.IsRetryable(errors.New("bad request: invalid schema")))
	assert.False(t, llmclient.IsRetryable(nil))
}
