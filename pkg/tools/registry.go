package tools

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"sentinai/pkg/logx"
	"sentinai/pkg/utils"
)

// Transcriber converts speech in an audio file to text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (Transcription, error)
}

// DocumentAnswerer answers a question about a PDF or image file.
type DocumentAnswerer interface {
	Answer(ctx context.Context, path, query string) (DocumentAnswer, error)
}

// TicketClassifier assigns a support ticket to a category.
type TicketClassifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
}

// Capabilities groups the collaborators the adapters wrap.
type Capabilities struct {
	Transcriber Transcriber
	Documents   DocumentAnswerer
	Classifier  TicketClassifier
}

// ErrMissingCapability is returned by NewRegistry when a capability is nil.
var ErrMissingCapability = errors.New("missing capability")

type handler func(ctx context.Context, args map[string]string) (Payload, error)

// Registry binds every Kind to its capability. It is immutable after
// NewRegistry returns and safe for concurrent use.
type Registry struct {
	handlers [kindCount]handler
	logger   *logx.Logger
}

// NewRegistry builds the dispatch table. Every capability must be set.
func NewRegistry(caps Capabilities) (*Registry, error) {
	switch {
	case caps.Transcriber == nil:
		return nil, fmt.Errorf("%w: transcriber", ErrMissingCapability)
	case caps.Documents == nil:
		return nil, fmt.Errorf("%w: document answerer", ErrMissingCapability)
	case caps.Classifier == nil:
		return nil, fmt.Errorf("%w: ticket classifier", ErrMissingCapability)
	}

	r := &Registry{logger: logx.NewLogger("tools")}
	r.handlers[KindTranscribeAudio] = func(ctx context.Context, args map[string]string) (Payload, error) {
		out, err := caps.Transcriber.Transcribe(ctx, args[ArgFilePath])
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	r.handlers[KindQueryDocument] = func(ctx context.Context, args map[string]string) (Payload, error) {
		out, err := caps.Documents.Answer(ctx, args[ArgFilePath], args[ArgQuery])
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	r.handlers[KindClassifyTicket] = func(ctx context.Context, args map[string]string) (Payload, error) {
		out, err := caps.Classifier.Classify(ctx, args[ArgText])
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return r, nil
}

// Definitions returns the tool definitions served by this registry.
func (r *Registry) Definitions() []ToolDefinition {
	return Definitions()
}

// Invoke validates args against the kind's schema and calls its capability.
// Capability errors and panics are converted to a Failure; Invoke never panics.
func (r *Registry) Invoke(ctx context.Context, kind Kind, args map[string]any) (res Result) {
	if !kind.Valid() {
		return Failuref(kind, "unknown tool kind %d", int(kind))
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("tool %s panicked: %v\n%s", kind, p, debug.Stack())
			res = Failuref(kind, "%s crashed: %v", kind, p)
		}
	}()

	input, err := Validate(kind, args)
	if err != nil {
		return Failure(kind, err.Error())
	}

	payload, err := r.handlers[kind](ctx, input)
	if err != nil {
		r.logger.Warn("tool %s failed: %v", kind, err)
		return Failure(kind, err.Error())
	}
	return Success(kind, payload).validate()
}

// InvokeByName resolves name to a Kind and invokes it. Unknown names yield a
// Failure whose observation lists the available tools.
func (r *Registry) InvokeByName(ctx context.Context, name string, args map[string]any) Result {
	kind, err := ParseKind(name)
	if err != nil {
		names := make([]string, 0, kindCount)
		for _, d := range definitions {
			names = append(names, d.Name)
		}
		return Result{Kind: -1, Reason: fmt.Sprintf("%v; available tools: %s", err, strings.Join(names, ", "))}
	}
	return r.Invoke(ctx, kind, args)
}

// Validate checks args against the kind's input schema: every required
// argument present, a string, and not blank. It returns the typed input.
func Validate(kind Kind, args map[string]any) (map[string]string, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown tool kind %d", int(kind))
	}
	schema := definitions[kind].InputSchema
	out := make(map[string]string, len(schema.Required))
	for _, name := range schema.Required {
		s, err := utils.GetMapField[string](args, name)
		switch {
		case errors.Is(err, utils.ErrFieldMissing):
			return nil, fmt.Errorf("%s: missing required argument %q", kind, name)
		case err != nil:
			return nil, fmt.Errorf("%s: argument %q must be a string, got %T", kind, name, args[name])
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, fmt.Errorf("%s: argument %q must not be empty", kind, name)
		}
		out[name] = s
	}
	return out, nil
}
