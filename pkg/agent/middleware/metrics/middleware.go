package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"sentinai/pkg/agent/llm"
	"sentinai/pkg/agent/llmerrors"
	"sentinai/pkg/logx"
	"sentinai/pkg/utils"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// UsageExtractor is a function that extracts token usage from a request and response.
type UsageExtractor func(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int)

// DefaultUsageExtractor counts tokens with tiktoken over message and tool-result text.
//
//nolint:gocritic // CompletionRequest size acceptable for interface consistency
func DefaultUsageExtractor(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int) {
	var b strings.Builder
	for i := range req.Messages {
		b.WriteString(req.Messages[i].Content)
		b.WriteByte('\n')
		for _, tr := range req.Messages[i].ToolResults {
			b.WriteString(tr.Content)
			b.WriteByte('\n')
		}
	}
	return utils.CountTokensSimple(b.String()), utils.CountTokensSimple(resp.Content)
}

// Middleware returns a middleware function that records metrics for LLM operations.
// It tracks request latency, token usage, success/failure rates, and error types.
func Middleware(recorder Recorder, usageExtractor UsageExtractor, logger *logx.Logger) llm.Middleware {
	if usageExtractor == nil {
		usageExtractor = DefaultUsageExtractor
	}
	if recorder == nil {
		recorder = Nop()
	}

	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				model := next.GetModelName()

				resp, err := next.Complete(ctx, req)
				duration := time.Since(start)

				var promptTokens, completionTokens int
				if err == nil {
					promptTokens, completionTokens = usageExtractor(req, resp)
				}
				errorType := ErrorType(err)
				recorder.ObserveRequest(model, promptTokens, completionTokens, err == nil, errorType, duration)

				if logger != nil {
					status := statusSuccess
					if err != nil {
						status = statusError + "/" + errorType
					}
					logger.Debug("LLM request: model=%s tokens=%d+%d status=%s duration=%dms",
						model, promptTokens, completionTokens, status, duration.Milliseconds())
				}
				return resp, err //nolint:wrapcheck // Middleware should pass through errors unchanged
			},
			func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
				start := time.Now()
				ch, err := next.Stream(ctx, req)
				// Stream token usage would require consuming the stream.
				recorder.ObserveRequest(next.GetModelName(), 0, 0, err == nil, ErrorType(err), time.Since(start))
				return ch, err //nolint:wrapcheck // Middleware should pass through errors unchanged
			},
			next.GetModelName,
		)
	}
}

// ErrorType maps an error to a metrics label.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case llmerrors.IsQuotaExhausted(err):
		return llmerrors.ErrorTypeRateLimit.String()
	default:
		return llmerrors.TypeOf(err).String()
	}
}
