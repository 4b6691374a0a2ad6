package circuit

import (
	"context"

	"sentinai/pkg/agent/llm"
	"sentinai/pkg/agent/llmerrors"
)

// Middleware rejects calls while the circuit is OPEN.
//
// Quota failures are neither successes nor failures here: the rate-limit
// guard owns them, and counting them would open the circuit and hide the
// quota signal behind a circuit error.
func Middleware(breaker Breaker) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		record := func(err error) {
			if err != nil && llmerrors.IsQuotaExhausted(err) {
				return
			}
			breaker.Record(err == nil)
		}
		rejected := func() error {
			return llmerrors.NewErrorWithCause(llmerrors.ErrorTypeServiceUnavailable,
				&Error{State: breaker.GetState()}, "backend temporarily disabled after repeated failures")
		}

		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				if !breaker.Allow() {
					return llm.CompletionResponse{}, rejected()
				}
				resp, err := next.Complete(ctx, req)
				record(err)
				return resp, err //nolint:wrapcheck // Middleware should pass through errors unchanged
			},
			func(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
				if !breaker.Allow() {
					return nil, rejected()
				}
				ch, err := next.Stream(ctx, req)
				record(err)
				return ch, err //nolint:wrapcheck // Middleware should pass through errors unchanged
			},
			next.GetModelName,
		)
	}
}
