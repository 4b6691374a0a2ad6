package retry

import (
	"context"
	"fmt"
	"time"

	"sentinai/pkg/agent/llm"
	"sentinai/pkg/agent/llmerrors"
)

// Middleware returns a middleware function that wraps an LLM client with retry logic.
// Exhausting retries on a retryable error yields ErrorTypeServiceUnavailable.
func Middleware(policy *Policy) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				var resp llm.CompletionResponse
				err := policy.do(ctx, func(ctx context.Context) error {
					var callErr error
					resp, callErr = next.Complete(ctx, req)
					return callErr
				})
				return resp, err
			},
			func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
				var ch <-chan llm.StreamChunk
				err := policy.do(ctx, func(ctx context.Context) error {
					var callErr error
					ch, callErr = next.Stream(ctx, req)
					return callErr
				})
				return ch, err
			},
			next.GetModelName,
		)
	}
}

func (p *Policy) do(ctx context.Context, call func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= p.Config.MaxAttempts; attempt++ {
		if attempt > 1 {
			if delay := p.CalculateDelay(attempt); delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return fmt.Errorf("retry cancelled: %w", ctx.Err())
				case <-timer.C:
				}
			}
		}

		lastErr = call(ctx)
		if lastErr == nil {
			return nil
		}
		if !p.ShouldRetry(lastErr) || ctx.Err() != nil {
			return lastErr
		}
	}
	return llmerrors.NewServiceUnavailableError(lastErr, p.Config.MaxAttempts)
}
