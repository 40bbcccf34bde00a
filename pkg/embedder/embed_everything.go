package embedder

import (
	"context"
	"fmt"

	eeembedder "github.com/soundprediction/go-embedeverything/pkg/embedder"

	"github.com/oakmoss/graphrag/pkg/utils"
)

// EmbedEverythingClient implements Client against a local EmbedEverything
// model, for offline/self-hosted embedding without an external API key.
type EmbedEverythingClient struct {
	client *eeembedder.Embedder
	config *Config
}

// NewEmbedEverythingClient constructs an EmbedEverythingClient for
// cfg.Model (a model name or local path understood by go-embedeverything).
func NewEmbedEverythingClient(cfg *Config) (*EmbedEverythingClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("embedder: nil config")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedder: embed_everything requires a model")
	}

	client, err := eeembedder.NewEmbedder(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("embedder: create embed_everything embedder: %w", err)
	}

	return &EmbedEverythingClient{client: client, config: cfg}, nil
}

// BatchEncode implements Client. go-embedeverything does not accept a
// context; cancellation is only observed between calls.
func (e *EmbedEverythingClient) BatchEncode(ctx context.Context, texts []string, opts EncodeOptions) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prepared := applyInstruction(texts, opts)

	vectors, err := e.client.Embed(prepared)
	if err != nil {
		return nil, fmt.Errorf("embedder: embed_everything embed: %w", err)
	}
	if len(vectors) != len(prepared) {
		return nil, fmt.Errorf("embedder: embed_everything returned %d vectors for %d inputs", len(vectors), len(prepared))
	}

	out := make([][]float64, len(vectors))
	for i, v := range vectors {
		vec := make([]float64, len(v))
		for j, x := range v {
			vec[j] = float64(x)
		}
		if opts.Normalize {
			utils.L2Normalize(vec)
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions implements Client.
func (e *EmbedEverythingClient) Dimensions() int {
	return e.config.Dimensions
}

// Close implements Client.
func (e *EmbedEverythingClient) Close() error {
	e.client.Close()
	return nil
}
