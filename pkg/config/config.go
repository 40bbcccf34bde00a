// Package config loads graphrag's runtime configuration via viper,
// layering defaults, an optional YAML file, and environment variables,
// matching the teacher framework's configuration style.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for a graphrag session.
type Config struct {
	Log            LogConfig            `mapstructure:"log"`
	Server         ServerConfig         `mapstructure:"server"`
	LLM            LLMConfig            `mapstructure:"llm"`
	Embedding      EmbeddingConfig      `mapstructure:"embedding"`
	Retrieval      RetrievalConfig      `mapstructure:"retrieval"`
	Alert          AlertConfig          `mapstructure:"alert"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	WorkDir        WorkDirConfig        `mapstructure:"work_dir"`
	Telemetry      TelemetryConfig      `mapstructure:"telemetry"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds the optional HTTP surface's configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// LLMConfig groups the per-role model configurations. Roles are keyed
// "default" (QA), "openie", and "rerank"; a role entry overrides only the
// model, temperature, and max tokens, and an absent role uses the base
// fields below. All roles share the base provider, key, and URL.
type LLMConfig struct {
	Provider    string             `mapstructure:"provider"` // openai, azure_openai
	Model       string             `mapstructure:"model"`
	APIKey      string             `mapstructure:"api_key"`
	BaseURL     string             `mapstructure:"base_url"`
	Temperature float32            `mapstructure:"temperature"`
	MaxTokens   int                `mapstructure:"max_tokens"`
	MaxRetries  int                `mapstructure:"max_retries"`
	Roles       map[string]LLMRole `mapstructure:"roles"`
}

// LLMRole overrides fields of LLMConfig for a specific call site.
type LLMRole struct {
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// EmbeddingConfig configures the embedding client.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"` // openai, embed_everything
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
	BatchSize  int    `mapstructure:"batch_size"`
}

// RetrievalConfig holds the graph-search and fusion knobs from spec §4.3,
// §4.6, §4.7.
type RetrievalConfig struct {
	Damping                  float64 `mapstructure:"damping"`
	SynonymyEdgeTopK         int     `mapstructure:"synonymy_edge_top_k"`
	SynonymyEdgeSimThreshold float64 `mapstructure:"synonymy_edge_sim_threshold"`
	LinkingTopK              int     `mapstructure:"linking_top_k"`
	QATopK                   int     `mapstructure:"qa_top_k"`
	PassageNodeWeight        float64 `mapstructure:"passage_node_weight"`
	ForceIndexFromScratch    bool    `mapstructure:"force_index_from_scratch"`
	ForceOpenIEFromScratch   bool    `mapstructure:"force_openie_from_scratch"`
	// OpenIEMode selects "online" (extract on demand), "offline" (require
	// a prior PreOpenIE pass), or "transformers-offline" (spec §5).
	OpenIEMode string `mapstructure:"openie_mode"`
	// RerankDemosPath points at a JSON or YAML file of few-shot rerank
	// demos (the --rerank_dspy_file_path CLI flag); empty uses the
	// compiled-in defaults.
	RerankDemosPath string `mapstructure:"rerank_demos_path"`
}

// AlertConfig configures the SMTP alerter used on circuit-breaker trips.
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
	// CooldownSeconds suppresses repeat alerts for the same subject
	// within the window, so a flapping circuit breaker doesn't flood the
	// mailbox. 0 disables suppression.
	CooldownSeconds int `mapstructure:"cooldown_seconds"`
}

// CircuitBreakerConfig configures the gobreaker wrapper around the LLM
// client.
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // seconds
	Timeout          int     `mapstructure:"timeout"`  // seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// WorkDirConfig controls the per-session working directory layout
// (spec §5): {save_dir}/{llm_label}_{embedding_label}.
type WorkDirConfig struct {
	SaveDir string `mapstructure:"save_dir"`
}

// TelemetryConfig controls the retrieval-timing JSON-lines sink layered
// over the default slog handler.
type TelemetryConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	BatchSize int  `mapstructure:"batch_size"`
}

// Default retrieval knob values, matching spec defaults.
const (
	DefaultDamping                  = 0.5
	DefaultSynonymyEdgeTopK         = 2047
	DefaultSynonymyEdgeSimThreshold = 0.8
	DefaultLinkingTopK              = 30
	DefaultQATopK                   = 5
	DefaultPassageNodeWeight        = 0.05
	DefaultOpenIEMode               = "online"
)

// Default returns a Config populated with the system's documented
// defaults, mirroring the teacher's layered viper setup.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Mode: "release",
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0,
			MaxTokens:   4096,
			MaxRetries:  5,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			BatchSize: 100,
		},
		Retrieval: RetrievalConfig{
			Damping:                  DefaultDamping,
			SynonymyEdgeTopK:         DefaultSynonymyEdgeTopK,
			SynonymyEdgeSimThreshold: DefaultSynonymyEdgeSimThreshold,
			LinkingTopK:              DefaultLinkingTopK,
			QATopK:                   DefaultQATopK,
			PassageNodeWeight:        DefaultPassageNodeWeight,
			OpenIEMode:               DefaultOpenIEMode,
		},
		Alert: AlertConfig{
			CooldownSeconds: 300,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      1,
			Interval:         60,
			Timeout:          30,
			ReadyToTripRatio: 0.6,
		},
		WorkDir: WorkDirConfig{SaveDir: "./outputs"},
		Telemetry: TelemetryConfig{
			Enabled:   true,
			BatchSize: 100,
		},
	}
}

// Load reads configuration from an optional file path, environment
// variables (GRAPHRAG_ prefixed), and falls back to Default() for
// anything unset.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("graphrag")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	applyAPIKeyEnv(&cfg)
	return &cfg, nil
}

// applyAPIKeyEnv fills in provider API keys from the environment
// variables named in spec §6 when the config file left them blank.
func applyAPIKeyEnv(cfg *Config) {
	if cfg.LLM.APIKey == "" {
		if cfg.LLM.Provider == "azure_openai" {
			cfg.LLM.APIKey = os.Getenv("AZURE_OPENAI_API_KEY")
		} else {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

func setDefaults(v *viper.Viper, defaults *Config) {
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("server.mode", defaults.Server.Mode)
	v.SetDefault("llm.provider", defaults.LLM.Provider)
	v.SetDefault("llm.model", defaults.LLM.Model)
	v.SetDefault("llm.temperature", defaults.LLM.Temperature)
	v.SetDefault("llm.max_tokens", defaults.LLM.MaxTokens)
	v.SetDefault("llm.max_retries", defaults.LLM.MaxRetries)
	v.SetDefault("embedding.provider", defaults.Embedding.Provider)
	v.SetDefault("embedding.model", defaults.Embedding.Model)
	v.SetDefault("embedding.batch_size", defaults.Embedding.BatchSize)
	v.SetDefault("retrieval.damping", defaults.Retrieval.Damping)
	v.SetDefault("retrieval.synonymy_edge_top_k", defaults.Retrieval.SynonymyEdgeTopK)
	v.SetDefault("retrieval.synonymy_edge_sim_threshold", defaults.Retrieval.SynonymyEdgeSimThreshold)
	v.SetDefault("retrieval.linking_top_k", defaults.Retrieval.LinkingTopK)
	v.SetDefault("retrieval.qa_top_k", defaults.Retrieval.QATopK)
	v.SetDefault("retrieval.passage_node_weight", defaults.Retrieval.PassageNodeWeight)
	v.SetDefault("retrieval.openie_mode", defaults.Retrieval.OpenIEMode)
	v.SetDefault("alert.cooldown_seconds", defaults.Alert.CooldownSeconds)
	v.SetDefault("circuit_breaker.enabled", defaults.CircuitBreaker.Enabled)
	v.SetDefault("circuit_breaker.max_requests", defaults.CircuitBreaker.MaxRequests)
	v.SetDefault("circuit_breaker.interval", defaults.CircuitBreaker.Interval)
	v.SetDefault("circuit_breaker.timeout", defaults.CircuitBreaker.Timeout)
	v.SetDefault("circuit_breaker.ready_to_trip_ratio", defaults.CircuitBreaker.ReadyToTripRatio)
	v.SetDefault("work_dir.save_dir", defaults.WorkDir.SaveDir)
	v.SetDefault("telemetry.enabled", defaults.Telemetry.Enabled)
	v.SetDefault("telemetry.batch_size", defaults.Telemetry.BatchSize)
}
