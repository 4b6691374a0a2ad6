// Package toolloop runs the bounded think/act/observe cycle between an LLM
// and the tool adapters.
package toolloop

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sentinai/pkg/agent/llm"
	"sentinai/pkg/logx"
	"sentinai/pkg/tools"
)

// Defaults applied when Config leaves a bound unset.
const (
	DefaultMaxIterations = 15
	DefaultMaxDuration   = 120 * time.Second
	DefaultMaxTokens     = 2048
)

// oneToolPerStep is the observation given to every tool call after the first.
const oneToolPerStep = "only one tool can be executed per step; request it again in the next step if still needed"

// nudge is sent when the LLM returns neither content nor tool calls.
const nudge = "Your last reply was empty. Either call one of the available tools or give your final answer."

// ToolInvoker executes a tool by its advertised name. *tools.Registry implements it.
type ToolInvoker interface {
	InvokeByName(ctx context.Context, name string, args map[string]any) tools.Result
}

// ToolLoop manages LLM interactions with tool calling.
type ToolLoop struct {
	llmClient llm.LLMClient
	invoker   ToolInvoker
	logger    *logx.Logger
}

// New creates a new ToolLoop instance.
func New(llmClient llm.LLMClient, invoker ToolInvoker, logger *logx.Logger) *ToolLoop {
	if logger == nil {
		logger = logx.NewLogger("toolloop")
	}
	return &ToolLoop{
		llmClient: llmClient,
		invoker:   invoker,
		logger:    logger,
	}
}

// Config defines how the tool loop behaves.
//
//nolint:govet // fieldalignment: struct fields ordered for clarity over memory alignment
type Config struct {
	// Tools advertised to the LLM.
	Tools []tools.ToolDefinition

	// Bounds, checked between cycles.
	MaxIterations int
	MaxDuration   time.Duration

	MaxTokens int
	// Temperature is sent as given; zero is a valid setting.
	Temperature float32

	// Now overrides the clock used for the time budget.
	Now func() time.Time
}

func (c *Config) applyDefaults() {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.MaxDuration <= 0 {
		c.MaxDuration = DefaultMaxDuration
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Run executes the loop over messages, which must already hold the system
// prompt, prior turns and the user input. The messages slice is not modified.
func (tl *ToolLoop) Run(ctx context.Context, messages []llm.CompletionMessage, cfg Config) Outcome {
	cfg.applyDefaults()

	conv := make([]llm.CompletionMessage, len(messages), len(messages)+2*cfg.MaxIterations)
	copy(conv, messages)

	start := cfg.Now()
	out := Outcome{}

	for iteration := 1; iteration <= cfg.MaxIterations; iteration++ {
		out.Iteration = iteration

		if err := ctx.Err(); err != nil {
			out.Kind = OutcomeCanceled
			out.Err = fmt.Errorf("%w: %w", ErrCanceled, err)
			return out
		}
		if elapsed := cfg.Now().Sub(start); elapsed >= cfg.MaxDuration {
			tl.logger.Warn("⏱️  Reasoning time budget (%s) exhausted after %d cycles", cfg.MaxDuration, iteration-1)
			out.Kind = OutcomeTimeBudget
			out.Err = fmt.Errorf("%w: time budget of %s used after %d cycles", ErrBoundExceeded, cfg.MaxDuration, iteration-1)
			return out
		}

		req := llm.CompletionRequest{
			Messages:    conv,
			Tools:       cfg.Tools,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}

		tl.logger.Info("🔄 Starting LLM call to model '%s' with %d messages, %d tools (iteration %d)",
			tl.llmClient.GetModelName(), len(conv), len(cfg.Tools), iteration)

		callStart := time.Now()
		resp, err := tl.llmClient.Complete(ctx, req)
		duration := time.Since(callStart)
		if err != nil {
			tl.logger.Error("❌ LLM call failed after %.3gs: %v", duration.Seconds(), err)
			out.Kind = OutcomeLLMError
			out.Err = err
			return out
		}

		tl.logger.Info("✅ LLM call completed in %.3gs, response length: %d chars, tool calls: %d",
			duration.Seconds(), len(resp.Content), len(resp.ToolCalls))

		if len(resp.ToolCalls) == 0 {
			answer := strings.TrimSpace(resp.Content)
			if answer == "" {
				tl.logger.Warn("Empty LLM response without tool calls, nudging")
				conv = append(conv, llm.NewUserMessage(nudge))
				continue
			}
			out.Kind = OutcomeSuccess
			out.Answer = ground(answer, out.Results)
			return out
		}

		conv = append(conv, llm.NewAssistantMessage(resp.Content, resp.ToolCalls...))
		results := make([]llm.ToolResult, 0, len(resp.ToolCalls))

		for i := range resp.ToolCalls {
			call := &resp.ToolCalls[i]
			if i > 0 {
				tl.logger.Warn("Skipping extra tool call %s (%d requested)", call.Name, len(resp.ToolCalls))
				out.Trace = append(out.Trace, Step{Tool: call.Name, Outcome: StepSkipped, Detail: oneToolPerStep, Iteration: iteration})
				results = append(results, llm.ToolResult{
					ToolCallID: call.ID, Name: call.Name, Content: "Error: " + oneToolPerStep, IsError: true,
				})
				continue
			}

			tl.logger.Info("Executing tool: %s", call.Name)
			toolStart := time.Now()
			var res tools.Result
			if call.ParseError != "" {
				res = unparsedArguments(call)
			} else {
				res = tl.invoker.InvokeByName(ctx, call.Name, call.Parameters)
			}
			observation := res.Observation()
			tl.logger.Info("Tool %s finished in %.3fs: %s", call.Name, time.Since(toolStart).Seconds(), res.Outcome())

			out.Trace = append(out.Trace, Step{Tool: call.Name, Outcome: res.Outcome(), Detail: observation, Iteration: iteration})
			if res.OK() {
				out.Results = append(out.Results, res)
			}
			results = append(results, llm.ToolResult{
				ToolCallID: call.ID, Name: call.Name, Content: observation, IsError: !res.OK(),
			})
		}
		conv = append(conv, llm.NewToolResultMessage(results...))
	}

	tl.logger.Warn("⚠️  Maximum tool iterations (%d) reached", cfg.MaxIterations)
	out.Kind = OutcomeMaxIterations
	out.Err = fmt.Errorf("%w: no final answer after %d cycles", ErrBoundExceeded, cfg.MaxIterations)
	return out
}

func unparsedArguments(call *llm.ToolCall) tools.Result {
	kind, err := tools.ParseKind(call.Name)
	if err != nil {
		kind = -1
	}
	return tools.Failuref(kind, "%s: arguments could not be parsed: %s", call.Name, call.ParseError)
}

// ground appends the observation of every successful result whose key value
// the answer does not mention.
func ground(answer string, results []tools.Result) string {
	lower := strings.ToLower(answer)
	var missing []string
	for _, res := range results {
		key := strings.TrimSpace(res.Payload.KeyValue())
		if key == "" || strings.Contains(lower, strings.ToLower(key)) {
			continue
		}
		missing = append(missing, res.Observation())
	}
	if len(missing) == 0 {
		return answer
	}
	return answer + "\n\n" + strings.Join(missing, "\n")
}
