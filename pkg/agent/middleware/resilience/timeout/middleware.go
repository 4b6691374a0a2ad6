// Package timeout provides timeout middleware for LLM clients.
package timeout

import (
	"context"
	"time"

	"sentinai/pkg/agent/llm"
)

// Middleware bounds each backend call with its own deadline. A zero or
// negative duration disables the bound.
func Middleware(duration time.Duration) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		if duration <= 0 {
			return next
		}
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				timeoutCtx, cancel := context.WithTimeout(ctx, duration)
				defer cancel()
				return next.Complete(timeoutCtx, req)
			},
			// The stream outlives this call, so the deadline is not cancelled on return.
			func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
				timeoutCtx, cancel := context.WithTimeout(ctx, duration)
				ch, err := next.Stream(timeoutCtx, req)
				if err != nil {
					cancel()
					return nil, err
				}
				go func() {
					<-timeoutCtx.Done()
					cancel()
				}()
				return ch, nil
			},
			next.GetModelName,
		)
	}
}
