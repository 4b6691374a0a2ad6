package agent

import (
	"errors"
	"fmt"
	"strings"

	"sentinai/pkg/agent/internal/llmimpl/anthropic"
	"sentinai/pkg/agent/internal/llmimpl/google"
	"sentinai/pkg/agent/internal/llmimpl/openaiofficial"
	"sentinai/pkg/agent/llm"
	"sentinai/pkg/agent/middleware/metrics"
	"sentinai/pkg/agent/middleware/resilience/circuit"
	"sentinai/pkg/agent/middleware/resilience/retry"
	"sentinai/pkg/agent/middleware/resilience/timeout"
	"sentinai/pkg/config"
	"sentinai/pkg/guard"
	"sentinai/pkg/logx"
)

// ErrMissingAPIKey is returned when the configured provider has no credential.
var ErrMissingAPIKey = errors.New("missing API key")

// RawClientFunc constructs an unwrapped provider client.
type RawClientFunc func(provider, apiKey, model string) (llm.LLMClient, error)

// LLMClientFactory creates LLM clients with properly configured middleware chains.
type LLMClientFactory struct {
	config          config.LLMConfig
	metricsRecorder metrics.Recorder
	circuitBreaker  circuit.Breaker
	guard           *guard.Guard
	newRaw          RawClientFunc
	logger          *logx.Logger
}

// Option customizes a factory.
type Option func(*LLMClientFactory)

// WithRecorder sets the metrics recorder. The default is a no-op recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(f *LLMClientFactory) { f.metricsRecorder = r }
}

// WithRawClient replaces provider client construction, used by tests.
func WithRawClient(fn RawClientFunc) Option {
	return func(f *LLMClientFactory) { f.newRaw = fn }
}

// NewLLMClientFactory creates a factory. g may be nil, in which case backend
// outcomes are not reported to a rate-limit guard.
func NewLLMClientFactory(cfg config.LLMConfig, g *guard.Guard, opts ...Option) *LLMClientFactory {
	f := &LLMClientFactory{
		config:          cfg,
		metricsRecorder: metrics.Nop(),
		circuitBreaker: circuit.New(circuit.Config{
			FailureThreshold: cfg.Circuit.FailureThreshold,
			SuccessThreshold: cfg.Circuit.SuccessThreshold,
			Timeout:          cfg.Circuit.Timeout,
		}),
		guard:  g,
		newRaw: NewRawClient,
		logger: logx.NewLogger("llm-factory"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewRawClient constructs the provider client without middleware.
func NewRawClient(provider, apiKey, model string) (llm.LLMClient, error) {
	switch provider {
	case config.ProviderGoogle:
		return google.NewGeminiClientWithModel(apiKey, model), nil
	case config.ProviderAnthropic:
		return anthropic.NewClaudeClientWithModel(apiKey, model), nil
	case config.ProviderOpenAI:
		return openaiofficial.NewOfficialClientWithModel(apiKey, model), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// CreateClient creates the reasoning client with the full middleware chain.
func (f *LLMClientFactory) CreateClient() (llm.LLMClient, error) {
	apiKey := strings.TrimSpace(f.config.APIKey())
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set %s", ErrMissingAPIKey, f.config.APIKeyEnv())
	}

	rawClient, err := f.newRaw(f.config.Provider, apiKey, f.config.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", f.config.Provider, err)
	}

	retryPolicy := retry.NewPolicy(retry.Config{
		MaxAttempts:   f.config.Retry.MaxAttempts,
		InitialDelay:  f.config.Retry.InitialDelay,
		MaxDelay:      f.config.Retry.MaxDelay,
		BackoffFactor: f.config.Retry.BackoffFactor,
		Jitter:        f.config.Retry.Jitter,
	}, nil) // Use default classifier

	// Build the middleware chain in the correct order:
	// Metrics -> CircuitBreaker -> Retry -> Guard -> Timeout -> RawClient
	middlewares := []llm.Middleware{
		metrics.Middleware(f.metricsRecorder, nil, f.logger),
		circuit.Middleware(f.circuitBreaker),
		retry.Middleware(retryPolicy),
	}
	if f.guard != nil {
		middlewares = append(middlewares, guard.Middleware(f.guard))
	}
	middlewares = append(middlewares, timeout.Middleware(f.config.RequestTimeout))

	f.logger.Info("🤖 reasoning backend: %s (%s)", f.config.Provider, f.config.Model)
	return llm.Chain(rawClient, middlewares...), nil
}
