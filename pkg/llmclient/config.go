package llmclient

// Default configuration values, matching spec §6.
const (
	DefaultModel             = "gpt-4o-mini"
	DefaultTemperature       = 0.0
	DefaultMaxTokens         = 4096
	DefaultMaxRetryAttempts  = 5
	DefaultBackoffBase       = 250 // milliseconds
	DefaultBackoffCap        = 4000
	DefaultBackoffJitter     = 100
	DefaultTimeoutSeconds    = 60
	AzureAPIVersionParamName = "api-version"
)

// Config holds provider-agnostic settings for a chat client.
type Config struct {
	APIKey      string  `mapstructure:"api_key" json:"-"`
	Model       string  `mapstructure:"model" json:"model,omitempty"`
	BaseURL     string  `mapstructure:"base_url" json:"base_url,omitempty"`
	Temperature float32 `mapstructure:"temperature" json:"temperature,omitempty"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens,omitempty"`
	MaxRetries  int     `mapstructure:"max_retries" json:"max_retries,omitempty"`

	// AzureDeployment, when set, selects the Azure OpenAI deployment name
	// (which may differ from Model).
	AzureDeployment string `mapstructure:"azure_deployment" json:"azure_deployment,omitempty"`
	AzureAPIVersion string `mapstructure:"azure_api_version" json:"azure_api_version,omitempty"`
}

// NewConfig returns a Config populated with the package defaults.
func NewConfig() *Config {
	return &Config{
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		MaxRetries:  DefaultMaxRetryAttempts,
	}
}
