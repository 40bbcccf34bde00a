package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AzureOpenAIClient implements Client against an Azure OpenAI deployment,
// authenticated with AZURE_OPENAI_API_KEY (spec §6). Azure's chat
// completions endpoint is REST-compatible with OpenAI's but is addressed
// by deployment name and api-version query parameter rather than model
// name, so it is implemented directly over net/http instead of the
// go-openai SDK.
type AzureOpenAIClient struct {
	httpClient *http.Client
	config     *Config
}

// NewAzureOpenAIClient constructs an AzureOpenAIClient. Returns
// ErrMissingAPIKey if cfg.APIKey is blank.
func NewAzureOpenAIClient(cfg *Config) (*AzureOpenAIClient, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("llmclient: azure openai requires base_url: %w", ErrUnknownProvider)
	}
	if cfg.AzureAPIVersion == "" {
		cfg.AzureAPIVersion = "2024-06-01"
	}

	return &AzureOpenAIClient{
		httpClient: &http.Client{Timeout: DefaultTimeoutSeconds * time.Second},
		config:     cfg,
	}, nil
}

type azureChatRequest struct {
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type azureChatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Infer implements Client.
func (c *AzureOpenAIClient) Infer(ctx context.Context, messages []Message) (*Response, error) {
	deployment := c.config.AzureDeployment
	if deployment == "" {
		deployment = modelOrDefault(c.config.Model)
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.config.BaseURL, deployment, c.config.AzureAPIVersion)

	body, err := json.Marshal(azureChatRequest{
		Messages:    messages,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("llmclient: marshal azure request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llmclient: build azure request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.config.APIKey)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llmclient: azure request: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("llmclient: read azure response: %w", err)
	}

	if httpResp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{Message: string(raw)}
	}
	if httpResp.StatusCode >= 500 {
		return nil, fmt.Errorf("llmclient: azure server error %d: %s", httpResp.StatusCode, raw)
	}

	var parsed azureChatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("llmclient: decode azure response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("llmclient: azure error %s: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	return &Response{
		Content: parsed.Choices[0].Message.Content,
		Metadata: map[string]any{
			"deployment":        deployment,
			"prompt_tokens":     parsed.Usage.PromptTokens,
			"completion_tokens": parsed.Usage.CompletionTokens,
		},
	}, nil
}

// Close implements Client.
func (c *AzureOpenAIClient) Close() error { return nil }
