package embedder

import "context"

// EncodeOptions controls a single BatchEncode call.
type EncodeOptions struct {
	// Instruction, when non-empty, is prepended as "Instruction " to
	// every text before encoding (spec §6).
	Instruction string
	// Normalize L2-normalizes every output vector.
	Normalize bool
}

// Client is the external embedding collaborator contract (spec §6).
// Implementations return exactly one vector per input text, in the same
// order; a length mismatch is an Invariant error the caller must treat
// as fatal.
type Client interface {
	BatchEncode(ctx context.Context, texts []string, opts EncodeOptions) ([][]float64, error)
	Dimensions() int
	Close() error
}

// Config holds provider-agnostic embedding client settings.
type Config struct {
	APIKey     string `mapstructure:"api_key" json:"-"`
	Model      string `mapstructure:"model" json:"model,omitempty"`
	BaseURL    string `mapstructure:"base_url" json:"base_url,omitempty"`
	Dimensions int    `mapstructure:"dimensions" json:"dimensions,omitempty"`
	BatchSize  int    `mapstructure:"batch_size" json:"batch_size,omitempty"`
}

// applyInstruction prepends opts.Instruction + " " to each text, matching
// spec §6's "If instruction is given, prepend instruction + ' ' to each
// text."
func applyInstruction(texts []string, opts EncodeOptions) []string {
	if opts.Instruction == "" {
		return texts
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = opts.Instruction + " " + t
	}
	return out
}
