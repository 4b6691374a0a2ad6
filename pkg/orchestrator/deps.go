package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sentinai/pkg/agent"
	"sentinai/pkg/agent/llm"
	agentmetrics "sentinai/pkg/agent/middleware/metrics"
	"sentinai/pkg/capability/deepgram"
	"sentinai/pkg/capability/docqa"
	"sentinai/pkg/capability/ticket"
	"sentinai/pkg/config"
	"sentinai/pkg/guard"
	"sentinai/pkg/logx"
	"sentinai/pkg/memory"
	"sentinai/pkg/metrics"
	"sentinai/pkg/tools"
)

// Memory is the write-through sink for successful tool outputs. *memory.Store implements it.
type Memory interface {
	AddDocuments(ctx context.Context, texts []string, metadatas []map[string]any) (int, error)
	SimilaritySearch(ctx context.Context, query string, k int) ([]memory.Record, error)
	Count(ctx context.Context) (int, error)
	DeleteCollection(ctx context.Context) error
}

// Deps holds the constructors Initialize calls. Each constructor runs at
// most once successfully.
type Deps struct {
	// Backend builds the reasoning client. The guard must observe its calls.
	Backend func(ctx context.Context, g *guard.Guard) (llm.LLMClient, error)
	// Capabilities builds the tool adapters' collaborators.
	Capabilities func(ctx context.Context) (tools.Capabilities, error)
	// Memory builds the memory sink. Nil disables it.
	Memory func(ctx context.Context) (Memory, error)
	// Metrics records orchestrator counters. Nil records nothing.
	Metrics *metrics.Recorder
	// Now is the clock shared with the guard; nil uses time.Now.
	Now func() time.Time
}

// DefaultDeps wires the production collaborators from cfg.
func DefaultDeps(cfg *config.Config, orchMetrics *metrics.Recorder, llmRecorder agentmetrics.Recorder) Deps {
	deps := Deps{
		Backend: func(_ context.Context, g *guard.Guard) (llm.LLMClient, error) {
			opts := []agent.Option{}
			if llmRecorder != nil {
				opts = append(opts, agent.WithRecorder(llmRecorder))
			}
			return agent.NewLLMClientFactory(cfg.LLM, g, opts...).CreateClient()
		},
		Capabilities: func(ctx context.Context) (tools.Capabilities, error) {
			return defaultCapabilities(ctx, cfg)
		},
		Metrics: orchMetrics,
	}
	if cfg.Memory.Enabled {
		deps.Memory = func(_ context.Context) (Memory, error) {
			store, err := memory.Open(cfg.Memory.DBPath)
			if err != nil {
				return nil, err
			}
			return store, nil
		}
	}
	return deps
}

func defaultCapabilities(ctx context.Context, cfg *config.Config) (tools.Capabilities, error) {
	logger := logx.NewLogger("capabilities")
	var caps tools.Capabilities

	transcriber, err := deepgram.New(cfg.Capabilities.DeepgramAPIKey, cfg.Capabilities.DeepgramModel)
	switch {
	case errors.Is(err, deepgram.ErrMissingAPIKey):
		logger.Warn("audio transcription disabled: %s is not set", config.EnvDeepgramAPIKey)
		caps.Transcriber = unavailable{what: "audio transcription", env: config.EnvDeepgramAPIKey}
	case err != nil:
		return caps, fmt.Errorf("failed to create transcriber: %w", err)
	default:
		caps.Transcriber = transcriber
	}

	answerer, err := docqa.New(ctx, cfg.LLM.GoogleAPIKey, cfg.Capabilities.DocQAModel)
	switch {
	case errors.Is(err, docqa.ErrMissingAPIKey):
		logger.Warn("document question answering disabled: %s is not set", config.EnvGoogleAPIKey)
		caps.Documents = unavailable{what: "document question answering", env: config.EnvGoogleAPIKey}
	case err != nil:
		return caps, fmt.Errorf("failed to create document answerer: %w", err)
	default:
		caps.Documents = answerer
	}

	classifier, err := ticket.LoadOrTrain(cfg.Capabilities.ClassifierModel)
	if err != nil {
		return caps, fmt.Errorf("failed to load ticket classifier: %w", err)
	}
	caps.Classifier = classifier
	return caps, nil
}

// unavailable stands in for a capability whose credential is missing.
type unavailable struct {
	what string
	env  string
}

func (u unavailable) err() error {
	return fmt.Errorf("%s is not configured: set %s", u.what, u.env)
}

func (u unavailable) Transcribe(context.Context, string) (tools.Transcription, error) {
	return tools.Transcription{}, u.err()
}

func (u unavailable) Answer(context.Context, string, string) (tools.DocumentAnswer, error) {
	return tools.DocumentAnswer{}, u.err()
}
