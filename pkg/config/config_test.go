package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateEnv clears every variable Load reads and runs the test from an empty
// directory so a developer's .env cannot leak in.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		EnvGoogleAPIKey, EnvAnthropicAPIKey, EnvOpenAIAPIKey, EnvDeepgramAPIKey, EnvConfigPath,
		"SENTINAI_GOOGLE_API_KEY", "SENTINAI_LLM_PROVIDER", "SENTINAI_LLM_MODEL",
		"SENTINAI_COOLDOWN_WINDOW", "SENTINAI_EARLY_RESET", "SENTINAI_MAX_ITERATIONS",
		"SENTINAI_MEMORY_ENABLED", "SENTINAI_LOG_PRETTY", "SENTINAI_ADDR",
	} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
	t.Chdir(t.TempDir())
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ProviderGoogle, cfg.LLM.Provider)
	assert.Equal(t, 15, cfg.Reasoning.MaxIterations)
	assert.Equal(t, 120*time.Second, cfg.Reasoning.MaxDuration)
	assert.Equal(t, 60*time.Second, cfg.RateLimit.CooldownWindow)
	assert.True(t, cfg.RateLimit.EarlyReset)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown provider", func(c *Config) { c.LLM.Provider = "bard" }, "llm.provider"},
		{"empty model", func(c *Config) { c.LLM.Model = "" }, "llm.model"},
		{"temperature", func(c *Config) { c.LLM.Temperature = 3 }, "temperature"},
		{"iterations", func(c *Config) { c.Reasoning.MaxIterations = 0 }, "max_iterations"},
		{"duration", func(c *Config) { c.Reasoning.MaxDuration = 0 }, "max_duration"},
		{"cooldown", func(c *Config) { c.RateLimit.CooldownWindow = -time.Second }, "cooldown_window"},
		{"memory path", func(c *Config) { c.Memory.DBPath = "" }, "db_path"},
		{"retry attempts", func(c *Config) { c.LLM.Retry.MaxAttempts = 0 }, "max_attempts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "sentinai.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: anthropic
  model: claude-test
reasoning:
  max_iterations: 7
ratelimit:
  cooldown_window: 90s
  early_reset: false
`), 0o600))

	t.Setenv(EnvAnthropicAPIKey, "sk-ant")
	t.Setenv("SENTINAI_MAX_ITERATIONS", "9")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderAnthropic, cfg.LLM.Provider)
	assert.Equal(t, "claude-test", cfg.LLM.Model)
	assert.Equal(t, 9, cfg.Reasoning.MaxIterations, "env overrides file")
	assert.Equal(t, 90*time.Second, cfg.RateLimit.CooldownWindow)
	assert.False(t, cfg.RateLimit.EarlyReset)
	assert.Equal(t, "sk-ant", cfg.LLM.APIKey())
	assert.Equal(t, EnvAnthropicAPIKey, cfg.LLM.APIKeyEnv())
}

func TestLoadZeroTemperature(t *testing.T) {
	isolateEnv(t)

	path := filepath.Join(t.TempDir(), "sentinai.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  temperature: 0\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.LLM.Temperature)
	assert.InDelta(t, DefaultTemperature, Default().LLM.Temperature, 1e-6)
}

func TestLoadPrefixedKeyWins(t *testing.T) {
	isolateEnv(t)
	t.Setenv(EnvGoogleAPIKey, "plain")
	t.Setenv("SENTINAI_GOOGLE_API_KEY", "prefixed")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.LLM.GoogleAPIKey)
}

func TestLoadProviderSwitchPicksDefaultModel(t *testing.T) {
	isolateEnv(t)
	t.Setenv("SENTINAI_LLM_PROVIDER", ProviderOpenAI)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ModelGPT5, cfg.LLM.Model)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolateEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadMissingEnvFileIgnored(t *testing.T) {
	isolateEnv(t)
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load("")
	assert.NoError(t, err)
}

func TestLoadInvalidBoolean(t *testing.T) {
	isolateEnv(t)
	t.Setenv("SENTINAI_EARLY_RESET", "maybe")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EARLY_RESET")
}

func TestLoadDotEnv(t *testing.T) {
	isolateEnv(t)
	require.NoError(t, os.WriteFile(".env", []byte("GOOGLE_API_KEY=from-dotenv\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv(EnvGoogleAPIKey) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.LLM.GoogleAPIKey)
}
