package embedder

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/oakmoss/graphrag/pkg/utils"
)

// OpenAIEmbedder implements Client against OpenAI's (or an
// OpenAI-compatible) embeddings endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
	config *Config
}

// NewOpenAIEmbedder constructs an OpenAIEmbedder. Returns an error if
// cfg.APIKey is blank (Configuration error, fatal at construction per
// spec §7).
func NewOpenAIEmbedder(cfg *Config) (*OpenAIEmbedder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("embedder: nil config")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedder: missing API key")
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 96
	}

	oaCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oaCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(oaCfg),
		config: cfg,
	}, nil
}

// BatchEncode implements Client. Requests are chunked to config.BatchSize
// texts per call; the outer order of the returned vectors always matches
// the input order.
func (e *OpenAIEmbedder) BatchEncode(ctx context.Context, texts []string, opts EncodeOptions) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	prepared := applyInstruction(texts, opts)
	out := make([][]float64, 0, len(prepared))

	for start := 0; start < len(prepared); start += e.config.BatchSize {
		end := min(start+e.config.BatchSize, len(prepared))
		batch := prepared[start:end]

		req := openai.EmbeddingRequestStrings{
			Input: batch,
			Model: openai.EmbeddingModel(e.config.Model),
		}
		resp, err := e.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("embedder: openai create embeddings: %w", err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("embedder: openai returned %d vectors for %d inputs", len(resp.Data), len(batch))
		}

		for _, d := range resp.Data {
			vec := make([]float64, len(d.Embedding))
			for i, x := range d.Embedding {
				vec[i] = float64(x)
			}
			if opts.Normalize {
				utils.L2Normalize(vec)
			}
			out = append(out, vec)
		}
	}

	return out, nil
}

// Dimensions implements Client.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.config.Dimensions
}

// Close implements Client. The OpenAI HTTP client owns no resources that
// require explicit teardown.
func (e *OpenAIEmbedder) Close() error { return nil }
