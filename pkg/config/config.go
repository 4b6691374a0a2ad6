// Package config provides configuration loading, defaults and validation for sentinai.
//
// Precedence, lowest to highest:
//
//  1. Defaults applied in code (Default)
//  2. YAML config file (optional, --config or SENTINAI_CONFIG)
//  3. .env file in the working directory (loaded into the process environment)
//  4. Environment variables (SENTINAI_* plus the provider API key names)
//
// Credentials are never read from the YAML file's git-tracked defaults; they are
// expected in the environment or a .env file.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Provider names for the reasoning backend.
const (
	ProviderGoogle    = "google"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Environment variable names for provider credentials.
const (
	EnvGoogleAPIKey    = "GOOGLE_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvDeepgramAPIKey  = "DEEPGRAM_API_KEY"
	EnvConfigPath      = "SENTINAI_CONFIG"
	EnvPrefix          = "SENTINAI"
)

// Default models per provider.
const (
	ModelGeminiFlash     = "gemini-2.5-flash"
	ModelClaudeSonnet4   = "claude-sonnet-4-20250514"
	ModelGPT5            = "gpt-5"
	DefaultDeepgramModel = "nova-2"
)

// Algorithm defaults. These mirror the orchestration contract and are
// overridable only through the reasoning and ratelimit sections.
const (
	DefaultMaxIterations   = 15
	DefaultMaxDuration     = 120 * time.Second
	DefaultCooldownWindow  = 60 * time.Second
	DefaultMaxHistoryToken = 4000
	DefaultTemperature     = 0.1
	DefaultMaxTokens       = 2048
	DefaultRequestTimeout  = 60 * time.Second
)

// ServerConfig configures the HTTP shell.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	DataDir        string   `yaml:"data_dir"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
}

// RetryConfig mirrors the retry middleware settings.
type RetryConfig struct {
	MaxAttempts   int           `yaml:"max_attempts"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
	Jitter        bool          `yaml:"jitter"`
}

// CircuitConfig mirrors the circuit breaker settings.
type CircuitConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
}

// LLMConfig configures the reasoning backend client.
type LLMConfig struct {
	Provider       string        `yaml:"provider"`
	Model          string        `yaml:"model"`
	Temperature    float32       `yaml:"temperature"`
	MaxTokens      int           `yaml:"max_tokens"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Retry          RetryConfig   `yaml:"retry"`
	Circuit        CircuitConfig `yaml:"circuit"`

	// Credentials come from the environment only.
	GoogleAPIKey    string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`
	OpenAIAPIKey    string `yaml:"-"`
}

// ReasoningConfig bounds the reasoning loop.
type ReasoningConfig struct {
	MaxIterations    int           `yaml:"max_iterations"`
	MaxDuration      time.Duration `yaml:"max_duration"`
	MaxHistoryTokens int           `yaml:"max_history_tokens"`
}

// RateLimitConfig configures the cooldown guard.
type RateLimitConfig struct {
	CooldownWindow time.Duration `yaml:"cooldown_window"`
	// EarlyReset returns the guard to NORMAL on any successful backend call,
	// even before the cooldown window has elapsed.
	EarlyReset bool `yaml:"early_reset"`
}

// CapabilitiesConfig configures the concrete tool capabilities.
type CapabilitiesConfig struct {
	DeepgramModel   string `yaml:"deepgram_model"`
	DocQAModel      string `yaml:"docqa_model"`
	ClassifierModel string `yaml:"classifier_model"`

	DeepgramAPIKey string `yaml:"-"`
}

// MemoryConfig configures the write-through memory sink.
type MemoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// LogConfig configures logx.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Config is the complete sentinai configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	LLM          LLMConfig          `yaml:"llm"`
	Reasoning    ReasoningConfig    `yaml:"reasoning"`
	RateLimit    RateLimitConfig    `yaml:"ratelimit"`
	Capabilities CapabilitiesConfig `yaml:"capabilities"`
	Memory       MemoryConfig       `yaml:"memory"`
	Log          LogConfig          `yaml:"log"`
}

// Default returns a config populated with defaults and no credentials.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8000",
			DataDir:        "data",
			AllowedOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
			MaxUploadBytes: 32 << 20,
		},
		LLM: LLMConfig{
			Provider:       ProviderGoogle,
			Model:          ModelGeminiFlash,
			Temperature:    DefaultTemperature,
			MaxTokens:      DefaultMaxTokens,
			RequestTimeout: DefaultRequestTimeout,
			Retry: RetryConfig{
				MaxAttempts:   3,
				InitialDelay:  500 * time.Millisecond,
				MaxDelay:      10 * time.Second,
				BackoffFactor: 2.0,
				Jitter:        true,
			},
			Circuit: CircuitConfig{
				FailureThreshold: 5,
				SuccessThreshold: 1,
				Timeout:          30 * time.Second,
			},
		},
		Reasoning: ReasoningConfig{
			MaxIterations:    DefaultMaxIterations,
			MaxDuration:      DefaultMaxDuration,
			MaxHistoryTokens: DefaultMaxHistoryToken,
		},
		RateLimit: RateLimitConfig{
			CooldownWindow: DefaultCooldownWindow,
			EarlyReset:     true,
		},
		Capabilities: CapabilitiesConfig{
			DeepgramModel:   DefaultDeepgramModel,
			DocQAModel:      ModelGeminiFlash,
			ClassifierModel: "models/ticket_classifier.json",
		},
		Memory: MemoryConfig{
			Enabled: true,
			DBPath:  "data/memory.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultModel returns the default model for a provider.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return ModelClaudeSonnet4
	case ProviderOpenAI:
		return ModelGPT5
	default:
		return ModelGeminiFlash
	}
}

// APIKey returns the credential for the configured reasoning provider.
func (c *LLMConfig) APIKey() string {
	switch c.Provider {
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	default:
		return c.GoogleAPIKey
	}
}

// APIKeyEnv returns the environment variable that holds the provider credential.
func (c *LLMConfig) APIKeyEnv() string {
	switch c.Provider {
	case ProviderAnthropic:
		return EnvAnthropicAPIKey
	case ProviderOpenAI:
		return EnvOpenAIAPIKey
	default:
		return EnvGoogleAPIKey
	}
}

// Validate checks structural validity. Missing credentials are not a
// validation failure: the orchestrator reports them from Initialize so the
// fallback router keeps working.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderGoogle, ProviderAnthropic, ProviderOpenAI:
	default:
		return fmt.Errorf("llm.provider must be one of %s, got %q",
			strings.Join([]string{ProviderGoogle, ProviderAnthropic, ProviderOpenAI}, ", "), c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model cannot be empty")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive")
	}
	if c.LLM.Temperature < 0.0 || c.LLM.Temperature > 2.0 {
		return fmt.Errorf("llm.temperature must be between 0.0 and 2.0")
	}
	if c.LLM.Retry.MaxAttempts < 1 {
		return fmt.Errorf("llm.retry.max_attempts must be at least 1")
	}
	if c.Reasoning.MaxIterations <= 0 {
		return fmt.Errorf("reasoning.max_iterations must be positive")
	}
	if c.Reasoning.MaxDuration <= 0 {
		return fmt.Errorf("reasoning.max_duration must be positive")
	}
	if c.RateLimit.CooldownWindow <= 0 {
		return fmt.Errorf("ratelimit.cooldown_window must be positive")
	}
	if c.Memory.Enabled && c.Memory.DBPath == "" {
		return fmt.Errorf("memory.db_path cannot be empty when memory is enabled")
	}
	return nil
}
