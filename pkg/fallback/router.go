// Package fallback provides the deterministic, backend-free router used while
// the reasoning backend is rate limited.
package fallback

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"sentinai/pkg/logx"
	"sentinai/pkg/tools"
)

// Tag prefixes every fallback response.
const Tag = "[Fallback mode]"

// Invoker runs a tool adapter. *tools.Registry implements it.
type Invoker interface {
	Invoke(ctx context.Context, kind tools.Kind, args map[string]any) tools.Result
}

// Outcome is the router's answer for one input.
type Outcome struct {
	Result  tools.Result // zero unless Invoked
	Text    string
	Plan    Plan
	Invoked bool
	OK      bool
}

// Router is stateless and safe for concurrent use.
type Router struct {
	tools  Invoker
	logger *logx.Logger
}

// NewRouter creates a router over the given adapters.
func NewRouter(invoker Invoker) *Router {
	return &Router{tools: invoker, logger: logx.NewLogger("fallback")}
}

// Route serves input without the reasoning backend. Each branch reports its
// own adapter failure; a failing branch never falls through to the next.
// retryAfter is only used in the capacity-exhausted message.
func (r *Router) Route(ctx context.Context, input string, retryAfter time.Duration) Outcome {
	plan := PlanFor(input)
	r.logger.Info("fallback route: %s", plan.Match)

	var (
		kind tools.Kind
		args map[string]any
	)
	switch plan.Match {
	case MatchAudio:
		kind, args = tools.KindTranscribeAudio, map[string]any{tools.ArgFilePath: plan.Path}
	case MatchDocument:
		kind, args = tools.KindQueryDocument, map[string]any{tools.ArgFilePath: plan.Path, tools.ArgQuery: plan.Question}
	case MatchTicket:
		kind, args = tools.KindClassifyTicket, map[string]any{tools.ArgText: strings.TrimSpace(input)}
	default:
		return Outcome{Plan: plan, Text: CapacityMessage(retryAfter)}
	}

	res := r.tools.Invoke(ctx, kind, args)
	out := Outcome{Plan: plan, Result: res, Invoked: true, OK: res.OK()}
	if !res.OK() {
		out.Text = fmt.Sprintf("%s %s failed: %s", Tag, branchLabel(plan.Match), res.Reason)
		return out
	}

	switch p := res.Payload.(type) {
	case tools.Transcription:
		out.Text = fmt.Sprintf("%s Transcription (language: %s): %s", Tag, p.Language, p.Text)
	case tools.DocumentAnswer:
		out.Text = fmt.Sprintf("%s Document answer: %s (confidence: %s)", Tag, p.Answer, tools.Percent(p.ConfidenceScore))
	case tools.Classification:
		out.Text = fmt.Sprintf("%s Ticket classified as %s (confidence: %s)", Tag, p.Category, tools.Percent(p.Probability))
	default:
		out.Text = fmt.Sprintf("%s %s", Tag, res.Observation())
	}
	return out
}

func branchLabel(m Match) string {
	switch m {
	case MatchAudio:
		return "Transcription"
	case MatchDocument:
		return "Document query"
	default:
		return "Ticket classification"
	}
}

// CapacityMessage explains that the backend is exhausted and lists what still works.
func CapacityMessage(retryAfter time.Duration) string {
	retry := "in a minute"
	if retryAfter > 0 {
		retry = fmt.Sprintf("in about %d seconds", int(math.Ceil(retryAfter.Seconds())))
	}
	return fmt.Sprintf("The reasoning backend is temporarily out of capacity (rate limit or quota reached). "+
		"These capabilities still work without it: "+
		"1) audio transcription: include an audio file path (.mp3, .wav, .m4a, .flac, .ogg, .webm); "+
		"2) document question answering: include a PDF or image path, optionally followed by 'Question: ...'; "+
		"3) support ticket classification: describe a billing, technical or account issue. "+
		"Otherwise please retry %s, check your plan and billing, or configure a different API key.", retry)
}
