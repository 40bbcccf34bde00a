package llmclient

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements Client against the OpenAI (or an
// OpenAI-compatible) chat completions endpoint.
type OpenAIClient struct {
	client *openai.Client
	config *Config
}

// NewOpenAIClient constructs an OpenAIClient. Returns ErrMissingAPIKey if
// cfg.APIKey is blank, matching the Configuration/fatal-at-construction
// policy in spec §7.
func NewOpenAIClient(cfg *Config) (*OpenAIClient, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	oaCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oaCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(oaCfg),
		config: cfg,
	}, nil
}

// Infer implements Client.
func (c *OpenAIClient) Infer(ctx context.Context, messages []Message) (*Response, error) {
	req := openai.ChatCompletionRequest{
		Model:       modelOrDefault(c.config.Model),
		Messages:    toOpenAIMessages(messages),
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("llmclient: openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	return &Response{
		Content: resp.Choices[0].Message.Content,
		Metadata: map[string]any{
			"model":             resp.Model,
			"prompt_tokens":     resp.Usage.PromptTokens,
			"completion_tokens": resp.Usage.CompletionTokens,
		},
	}, nil
}

// Close implements Client. The OpenAI HTTP client owns no resources that
// require explicit teardown.
func (c *OpenAIClient) Close() error { return nil }

func modelOrDefault(model string) string {
	if model == "" {
		return DefaultModel
	}
	return model
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
	}
	return out
}
