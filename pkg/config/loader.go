package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// envOverrides lists the environment variables that override file values.
// Zero values mean "not set" and leave the loaded value untouched.
//
// Tagged fields are looked up as SENTINAI_<TAG> first and then as the bare
// tag, so plain GOOGLE_API_KEY style variables from a .env file work.
// Untagged fields are SENTINAI_ prefixed only.
type envOverrides struct {
	GoogleAPIKey    string `envconfig:"GOOGLE_API_KEY"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	DeepgramAPIKey  string `envconfig:"DEEPGRAM_API_KEY"`

	Addr        string `split_words:"true"`
	DataDir     string `split_words:"true"`
	LLMProvider string `split_words:"true"`
	LLMModel    string `split_words:"true"`

	MaxIterations  int           `split_words:"true"`
	MaxDuration    time.Duration `split_words:"true"`
	CooldownWindow time.Duration `split_words:"true"`
	EarlyReset     string        `split_words:"true"`

	MemoryDBPath  string `split_words:"true"`
	MemoryEnabled string `split_words:"true"`

	LogLevel  string `split_words:"true"`
	LogPretty string `split_words:"true"`
}

// Load builds a Config from defaults, an optional YAML file, .env and the
// environment, then validates it. An empty path falls back to SENTINAI_CONFIG;
// a missing file at the fallback path is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return Config{}, err
			}
		}
	}

	// .env is optional.
	_ = godotenv.Load()

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultModel(cfg.LLM.Provider)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// loadFile merges a YAML file into cfg.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config YAML %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.LLM.GoogleAPIKey = env.GoogleAPIKey
	cfg.LLM.AnthropicAPIKey = env.AnthropicAPIKey
	cfg.LLM.OpenAIAPIKey = env.OpenAIAPIKey
	cfg.Capabilities.DeepgramAPIKey = env.DeepgramAPIKey

	setString(&cfg.Server.Addr, env.Addr)
	setString(&cfg.Server.DataDir, env.DataDir)
	if env.LLMProvider != "" && env.LLMProvider != cfg.LLM.Provider {
		cfg.LLM.Provider = env.LLMProvider
		// A provider switch without an explicit model gets that provider's default.
		cfg.LLM.Model = DefaultModel(env.LLMProvider)
	}
	setString(&cfg.LLM.Model, env.LLMModel)
	setString(&cfg.Memory.DBPath, env.MemoryDBPath)
	setString(&cfg.Log.Level, env.LogLevel)

	if env.MaxIterations > 0 {
		cfg.Reasoning.MaxIterations = env.MaxIterations
	}
	if env.MaxDuration > 0 {
		cfg.Reasoning.MaxDuration = env.MaxDuration
	}
	if env.CooldownWindow > 0 {
		cfg.RateLimit.CooldownWindow = env.CooldownWindow
	}

	var err error
	if cfg.RateLimit.EarlyReset, err = parseBool("EARLY_RESET", env.EarlyReset, cfg.RateLimit.EarlyReset); err != nil {
		return err
	}
	if cfg.Memory.Enabled, err = parseBool("MEMORY_ENABLED", env.MemoryEnabled, cfg.Memory.Enabled); err != nil {
		return err
	}
	if cfg.Log.Pretty, err = parseBool("LOG_PRETTY", env.LogPretty, cfg.Log.Pretty); err != nil {
		return err
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func parseBool(name, raw string, current bool) (bool, error) {
	switch raw {
	case "":
		return current, nil
	case "1", "true", "TRUE", "True", "yes":
		return true, nil
	case "0", "false", "FALSE", "False", "no":
		return false, nil
	default:
		return current, fmt.Errorf("%s_%s: invalid boolean %q", EnvPrefix, name, raw)
	}
}
