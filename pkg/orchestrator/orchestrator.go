// Package orchestrator ties the reasoning loop, the rate-limit guard and the
// fallback router together behind a single Execute entry point.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sentinai/pkg/agent"
	"sentinai/pkg/agent/llmerrors"
	"sentinai/pkg/agent/toolloop"
	"sentinai/pkg/config"
	"sentinai/pkg/fallback"
	"sentinai/pkg/guard"
	"sentinai/pkg/logx"
	"sentinai/pkg/memory"
	"sentinai/pkg/metrics"
	"sentinai/pkg/tools"
)

// ErrMemoryDisabled is returned by Search when no memory sink is configured.
var ErrMemoryDisabled = errors.New("memory is disabled")

// Orchestrator is safe for concurrent use. Conversation memory is scoped per
// session id; the guard and lazy initialization are mutex guarded.
type Orchestrator struct {
	cfg      config.Config
	deps     Deps
	guard    *guard.Guard
	sessions *sessions
	metrics  *metrics.Recorder
	logger   *logx.Logger

	// initMu guards the lazily built components below.
	initMu   sync.Mutex
	registry *tools.Registry
	router   *fallback.Router
	loop     *toolloop.ToolLoop
	model    string
	memory   Memory
	memInit  bool
}

// New creates an orchestrator. No backend or capability is touched until
// Initialize or the first Execute.
func New(cfg *config.Config, deps Deps) *Orchestrator {
	o := &Orchestrator{
		cfg:      *cfg,
		deps:     deps,
		sessions: newSessions(),
		metrics:  deps.Metrics,
		logger:   logx.NewLogger("orchestrator"),
	}
	o.guard = guard.New(guard.Config{
		Window:     cfg.RateLimit.CooldownWindow,
		EarlyReset: cfg.RateLimit.EarlyReset,
		Now:        deps.Now,
		OnChange: func(m guard.Mode) {
			o.metrics.SetCooldown(m == guard.ModeCooldown)
		},
	})
	return o
}

// Guard exposes the rate-limit guard.
func (o *Orchestrator) Guard() *guard.Guard {
	return o.guard
}

// Initialize builds the tool registry, the memory sink and the backend client.
// It is idempotent: a component that was built is never built again, and a
// call after full success is a no-op. A quota failure while building the
// backend arms the cooldown and leaves the orchestrator usable in fallback mode.
func (o *Orchestrator) Initialize(ctx context.Context) InitResult {
	return o.initialize(ctx, true)
}

// initialize builds the missing components. The backend is skipped when
// withBackend is false, which Execute uses while the guard is in cooldown.
func (o *Orchestrator) initialize(ctx context.Context, withBackend bool) InitResult {
	o.initMu.Lock()
	defer o.initMu.Unlock()

	if o.initializedLocked() {
		return InitResult{Status: StatusSuccess, Message: "SentinAI Orchestrator already initialized"}
	}

	if o.registry == nil {
		if o.deps.Capabilities == nil {
			return initError(newError(KindConfiguration, nil, "no tool capabilities configured"))
		}
		caps, err := o.deps.Capabilities(ctx)
		if err != nil {
			return initError(newError(KindConfiguration, err, "Failed to initialize tools: %v", err))
		}
		registry, err := tools.NewRegistry(caps)
		if err != nil {
			return initError(newError(KindConfiguration, err, "Failed to initialize tools: %v", err))
		}
		o.registry = registry
		o.router = fallback.NewRouter(registry)
		o.logger.Info("🔧 Tool registry ready: %d tools", len(registry.Definitions()))
	}

	if !o.memInit {
		if o.deps.Memory != nil {
			mem, err := o.deps.Memory(ctx)
			if err != nil {
				// Memory is optional; requests run without it.
				o.logger.Warn("memory sink unavailable: %v", err)
			} else {
				o.memory = mem
			}
		}
		o.memInit = true
	}

	if !withBackend && o.loop == nil {
		return InitResult{Status: StatusSuccess, Message: "SentinAI tools initialized; backend deferred during cooldown"}
	}

	if o.loop == nil {
		if o.deps.Backend == nil {
			return initError(newError(KindConfiguration, nil, "no reasoning backend configured"))
		}
		client, err := o.deps.Backend(ctx, o.guard)
		if err != nil {
			return o.backendInitError(err)
		}
		o.loop = toolloop.New(client, o.registry, logx.NewLogger("toolloop"))
		o.model = client.GetModelName()
	}

	o.logger.Info("✅ SentinAI Orchestrator initialized (model %s)", o.model)
	return InitResult{Status: StatusSuccess, Message: "SentinAI Orchestrator initialized successfully"}
}

func (o *Orchestrator) initializedLocked() bool {
	return o.registry != nil && o.memInit && o.loop != nil
}

func (o *Orchestrator) backendInitError(err error) InitResult {
	switch {
	case errors.Is(err, agent.ErrMissingAPIKey):
		return initError(newError(KindConfiguration, err,
			"%s API key not provided. Set %s environment variable.", providerLabel(o.cfg.LLM.Provider), o.cfg.LLM.APIKeyEnv()))
	case llmerrors.IsQuotaExhausted(err):
		o.armCooldown(err)
		return initError(newError(KindQuotaExhausted, err, "%s", o.quotaMessage(err)))
	default:
		return initError(newError(KindConfiguration, err, "Failed to initialize orchestrator: %v", err))
	}
}

func initError(e *Error) InitResult {
	return InitResult{Status: StatusError, Message: e.Message, ErrorKind: e.Kind, Err: e}
}

type components struct {
	registry *tools.Registry
	router   *fallback.Router
	loop     *toolloop.ToolLoop
	memory   Memory
}

func (o *Orchestrator) snapshot() components {
	o.initMu.Lock()
	defer o.initMu.Unlock()
	return components{registry: o.registry, router: o.router, loop: o.loop, memory: o.memory}
}

// Execute serves one request. It always returns a complete Response.
func (o *Orchestrator) Execute(ctx context.Context, req Request) Response {
	requestID := uuid.NewString()
	input := strings.TrimSpace(req.Input)
	if input == "" {
		return o.finish(req, errorResponse(requestID, ModeNone, newError(KindValidation, nil, "Input data cannot be empty"), nil))
	}

	route := o.guard.Decide()
	init := o.initialize(ctx, route == guard.RouteReasoning)
	c := o.snapshot()
	if c.registry == nil {
		return o.finish(req, errorResponse(requestID, ModeNone, init.Err, nil))
	}

	// Building the backend may itself have armed the cooldown.
	if route == guard.RouteFallback || o.guard.State().Exhausted {
		o.logger.Info("⏸️  Backend in cooldown, serving request %s with fallback router", requestID)
		return o.finish(req, o.serveFallback(ctx, c, req, requestID, nil))
	}

	if c.loop == nil {
		// The backend could not be built and the failure was not quota related.
		return o.finish(req, errorResponse(requestID, ModeNone, init.Err, nil))
	}

	history := req.History
	if history == nil {
		history = o.sessions.history(req.SessionID)
	}
	history = trimHistory(history, o.cfg.Reasoning.MaxHistoryTokens)

	out := c.loop.Run(ctx, buildMessages(history, input), toolloop.Config{
		Tools:         c.registry.Definitions(),
		MaxIterations: o.cfg.Reasoning.MaxIterations,
		MaxDuration:   o.cfg.Reasoning.MaxDuration,
		MaxTokens:     o.cfg.LLM.MaxTokens,
		Temperature:   o.cfg.LLM.Temperature,
		Now:           o.deps.Now,
	})
	o.observeTrace(out.Trace)
	o.remember(ctx, c.memory, requestID, req.SessionID, input, out.Results)

	switch {
	case out.Kind == toolloop.OutcomeSuccess:
		return o.finish(req, Response{
			Status:    StatusSuccess,
			Response:  out.Answer,
			Trace:     nonNilTrace(out.Trace),
			Mode:      ModeReasoning,
			RequestID: requestID,
		})

	case out.Kind == toolloop.OutcomeLLMError && llmerrors.IsQuotaExhausted(out.Err):
		o.armCooldown(out.Err)
		o.logger.Warn("🚦 Quota exhausted during reasoning, serving request %s with fallback router", requestID)
		return o.finish(req, o.serveFallback(ctx, c, req, requestID, out.Trace))

	case out.Kind.BoundExceeded():
		return o.finish(req, errorResponse(requestID, ModeReasoning,
			newError(KindReasoningBoundExceeded, out.Err,
				"Reasoning stopped before a final answer (%v). The request was not retried; try a more specific input.", out.Err),
			out.Trace))

	case out.Kind == toolloop.OutcomeCanceled:
		return o.finish(req, errorResponse(requestID, ModeReasoning,
			newError(KindBackend, out.Err, "Request canceled: %v", out.Err), out.Trace))

	default:
		return o.finish(req, errorResponse(requestID, ModeReasoning,
			newError(KindBackend, out.Err, "Execution failed: %v", out.Err), out.Trace))
	}
}

// serveFallback runs the fallback router and prefixes trace with prior steps.
func (o *Orchestrator) serveFallback(ctx context.Context, c components, req Request, requestID string, prior []Step) Response {
	input := strings.TrimSpace(req.Input)
	state := o.guard.State()
	fb, err := o.route(ctx, c.router, input, state.Remaining(o.guard.Now()))
	if err != nil {
		return errorResponse(requestID, ModeFallback,
			newError(KindToolInvocation, err, "Fallback routing failed: %v", err), prior)
	}

	trace := append([]Step{}, prior...)
	if fb.Invoked {
		trace = append(trace, Step{Tool: fb.Result.Kind.String(), Outcome: fb.Result.Outcome(), Detail: fb.Result.Observation()})
		o.observeTrace(trace[len(trace)-1:])
	}

	switch {
	case fb.OK:
		o.remember(ctx, c.memory, requestID, req.SessionID, input, []tools.Result{fb.Result})
		return Response{Status: StatusSuccess, Response: fb.Text, Trace: trace, Mode: ModeFallback, RequestID: requestID}
	case fb.Invoked:
		return errorResponse(requestID, ModeFallback, newError(KindToolInvocation, nil, "%s", fb.Text), trace)
	default:
		return errorResponse(requestID, ModeFallback, newError(KindQuotaExhausted, nil, "%s", fb.Text), trace)
	}
}

// route runs the router and converts a panic into an error.
func (o *Orchestrator) route(ctx context.Context, router *fallback.Router, input string, retryAfter time.Duration) (out fallback.Outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("fallback router panicked: %v\n%s", p, debug.Stack())
			err = fmt.Errorf("fallback router crashed: %v", p)
		}
	}()
	return router.Route(ctx, input, retryAfter), nil
}

func errorResponse(requestID string, mode Mode, err error, trace []Step) Response {
	if err == nil {
		err = newError(KindConfiguration, nil, "orchestrator is not initialized")
	}
	resp := Response{
		Status:    StatusError,
		Message:   err.Error(),
		Trace:     nonNilTrace(trace),
		Mode:      mode,
		ErrorKind: KindOf(err),
		RequestID: requestID,
		Err:       err,
	}
	var oe *Error
	if errors.As(err, &oe) {
		resp.Message = oe.Message
	}
	return resp
}

func nonNilTrace(trace []Step) []Step {
	if trace == nil {
		return []Step{}
	}
	return trace
}

// finish records metrics and, on success, appends the turn to the session.
func (o *Orchestrator) finish(req Request, resp Response) Response {
	o.metrics.ObserveRequest(string(resp.Mode), resp.Status)
	if resp.OK() {
		o.sessions.append(req.SessionID,
			Turn{Role: RoleUser, Content: strings.TrimSpace(req.Input)},
			Turn{Role: RoleAssistant, Content: resp.Response})
	} else {
		o.logger.Warn("request %s failed (%s): %s", resp.RequestID, resp.ErrorKind, resp.Message)
	}
	return resp
}

func (o *Orchestrator) observeTrace(trace []Step) {
	for _, s := range trace {
		o.metrics.ObserveTool(s.Tool, s.Outcome)
	}
}

// armCooldown arms the guard unless the backend middleware already did.
func (o *Orchestrator) armCooldown(err error) {
	if !o.guard.State().Exhausted {
		o.guard.RecordQuotaFailure(err)
	}
}

// remember writes successful results to the memory sink. Failures are logged
// and never affect the response.
func (o *Orchestrator) remember(ctx context.Context, mem Memory, requestID, sessionID, input string, results []tools.Result) {
	if mem == nil || len(results) == 0 {
		return
	}
	texts := make([]string, 0, len(results))
	metas := make([]map[string]any, 0, len(results))
	for _, res := range results {
		if !res.OK() {
			continue
		}
		meta := res.Payload.Fields()
		meta["tool"] = res.Kind.String()
		meta["request_id"] = requestID
		meta["input"] = input
		if sessionID != "" {
			meta["session_id"] = sessionID
		}
		texts = append(texts, res.Observation())
		metas = append(metas, meta)
	}
	if len(texts) == 0 {
		return
	}

	n, err := mem.AddDocuments(ctx, texts, metas)
	o.metrics.ObserveMemoryWrite(err == nil)
	if err != nil {
		o.logger.Warn("failed to store %d tool results: %v", len(texts), err)
		return
	}
	o.logger.Debug("stored %d tool results for request %s", n, requestID)
}

func (o *Orchestrator) quotaMessage(err error) string {
	retry := "about a minute"
	if rem := o.guard.State().Remaining(o.guard.Now()); rem > 0 {
		retry = fmt.Sprintf("about %d seconds", int(math.Ceil(rem.Seconds())))
	}
	return fmt.Sprintf("The reasoning backend quota is exhausted (%v). "+
		"Wait %s for the cooldown to end, check your plan and billing details, or configure a different API key. "+
		"Meanwhile audio transcription, document question answering and support ticket classification keep working in fallback mode.",
		err, retry)
}

func providerLabel(provider string) string {
	switch provider {
	case config.ProviderAnthropic:
		return "Anthropic"
	case config.ProviderOpenAI:
		return "OpenAI"
	default:
		return "Google"
	}
}

// Status reports readiness, the guard state, the available tools and the
// number of stored memory records.
func (o *Orchestrator) Status(ctx context.Context) Status {
	o.initMu.Lock()
	initialized := o.initializedLocked()
	model := o.model
	mem := o.memory
	o.initMu.Unlock()

	if model == "" {
		model = o.cfg.LLM.Model
	}
	state := o.guard.State()
	names := make([]string, 0, len(tools.Kinds()))
	for _, k := range tools.Kinds() {
		names = append(names, k.String())
	}

	st := Status{
		AgentID:           AgentID,
		Status:            "not_initialized",
		Provider:          o.cfg.LLM.Provider,
		Model:             model,
		Mode:              state.Mode,
		RateLimit:         state,
		Capabilities:      append([]string{}, capabilityNames...),
		Tools:             names,
		CooldownRemaining: state.Remaining(o.guard.Now()).Seconds(),
		Sessions:          o.sessions.count(),
		Initialized:       initialized,
		MemoryEnabled:     mem != nil,
	}
	if initialized {
		st.Status = "ready"
	}
	if mem != nil {
		n, err := mem.Count(ctx)
		if err != nil {
			o.logger.Warn("failed to count memory records: %v", err)
		} else {
			st.MemoryRecords = n
		}
	}
	return st
}

// ClearSession drops the conversation memory of a session and reports
// whether it existed.
func (o *Orchestrator) ClearSession(id string) bool {
	return o.sessions.clear(id)
}

// Search runs a similarity search over stored tool outputs.
func (o *Orchestrator) Search(ctx context.Context, query string, k int) ([]memory.Record, error) {
	o.Initialize(ctx)
	mem := o.snapshot().memory
	if mem == nil {
		return nil, ErrMemoryDisabled
	}
	records, err := mem.SimilaritySearch(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("memory search failed: %w", err)
	}
	return records, nil
}

// ClearMemory deletes every stored record and returns how many there were.
func (o *Orchestrator) ClearMemory(ctx context.Context) (int, error) {
	o.Initialize(ctx)
	mem := o.snapshot().memory
	if mem == nil {
		return 0, ErrMemoryDisabled
	}
	n, err := mem.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("memory clear failed: %w", err)
	}
	if err := mem.DeleteCollection(ctx); err != nil {
		return 0, fmt.Errorf("memory clear failed: %w", err)
	}
	o.logger.Info("🧹 Cleared %d memory records", n)
	return n, nil
}

// Close releases the memory sink.
func (o *Orchestrator) Close() error {
	o.initMu.Lock()
	defer o.initMu.Unlock()
	if c, ok := o.memory.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

