package llmclient

import "errors"

// Sentinel errors surfaced by clients. Callers use errors.Is/As per the
// Configuration/External-transient split in the error taxonomy.
var (
	// ErrMissingAPIKey is a Configuration error: fatal at construction.
	ErrMissingAPIKey = errors.New("llmclient: missing API key")
	// ErrUnknownProvider is a Configuration error: fatal at construction.
	ErrUnknownProvider = errors.New("llmclient: unknown provider")
	// ErrRateLimit marks an External-transient error eligible for retry.
	ErrRateLimit = errors.New("llmclient: rate limited")
	// ErrEmptyResponse marks a Content error: the model returned nothing.
	ErrEmptyResponse = errors.New("llmclient: empty response")
)

// RateLimitError carries the retry-after hint some providers return
// alongside a 429.
type RateLimitError struct {
	RetryAfterSeconds int
	Message           string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return ErrRateLimit.Error()
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimit }
