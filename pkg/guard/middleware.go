package guard

import (
	"context"

	"sentinai/pkg/agent/llm"
	"sentinai/pkg/agent/llmerrors"
)

// Middleware feeds every backend call outcome into g: quota failures arm the
// cooldown and successes may end it. Errors pass through unchanged.
func Middleware(g *Guard) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		observe := func(err error) {
			switch {
			case err == nil:
				g.RecordSuccess()
			case llmerrors.IsQuotaExhausted(err):
				g.RecordQuotaFailure(err)
			}
		}
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				resp, err := next.Complete(ctx, req)
				observe(err)
				return resp, err //nolint:wrapcheck // Middleware should pass through errors unchanged
			},
			func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
				ch, err := next.Stream(ctx, req)
				observe(err)
				return ch, err //nolint:wrapcheck // Middleware should pass through errors unchanged
			},
			next.GetModelName,
		)
	}
}
