package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinai/pkg/agent/llm"
	"sentinai/pkg/agent/llmerrors"
	"sentinai/pkg/agent/middleware/resilience/circuit"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", fmt.Errorf("op: %w", context.Canceled), false},
		{"deadline", fmt.Errorf("http: %w", context.DeadlineExceeded), true},
		{"typed quota", llmerrors.NewError(llmerrors.ErrorTypeRateLimit, "slow down"), false},
		{"untyped quota", errors.New("429 Too Many Requests"), false},
		{"auth", llmerrors.NewError(llmerrors.ErrorTypeAuth, "bad key"), false},
		{"bad prompt", llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, "too long"), false},
		{"transient", llmerrors.NewError(llmerrors.ErrorTypeTransient, "reset"), true},
		{"empty", llmerrors.NewError(llmerrors.ErrorTypeEmptyResponse, ""), true},
		{"circuit", &circuit.Error{State: circuit.Open}, false},
		{"string 503", errors.New("server said 503"), true},
		{"string 404", errors.New("not found 404"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldRetry(tt.err))
		})
	}
}

func TestCalculateDelay(t *testing.T) {
	p := NewPolicy(Config{MaxAttempts: 5, InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, BackoffFactor: 2}, nil)

	assert.Zero(t, p.CalculateDelay(1))
	assert.Equal(t, 100*time.Millisecond, p.CalculateDelay(2))
	assert.Equal(t, 200*time.Millisecond, p.CalculateDelay(3))
	assert.Equal(t, 300*time.Millisecond, p.CalculateDelay(4), "capped at max delay")

	p.Config.Jitter = true
	d := p.CalculateDelay(2)
	assert.InDelta(t, float64(100*time.Millisecond), float64(d), float64(10*time.Millisecond))
}

func fastPolicy(attempts int) *Policy {
	return NewPolicy(Config{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1}, nil)
}

func TestMiddlewareRetriesTransient(t *testing.T) {
	transient := llmerrors.NewError(llmerrors.ErrorTypeTransient, "reset")
	base := llm.NewMockLLMClient(llm.Fail(transient), llm.FinalAnswer("ok"))
	client := Middleware(fastPolicy(3))(base)

	resp, err := client.Complete(context.Background(), llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("x")}))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 2, base.Calls())
}

func TestMiddlewareDoesNotRetryQuota(t *testing.T) {
	quota := llmerrors.NewError(llmerrors.ErrorTypeRateLimit, "quota exceeded")
	base := llm.NewMockLLMClient(llm.Fail(quota), llm.FinalAnswer("never"))
	client := Middleware(fastPolicy(3))(base)

	_, err := client.Complete(context.Background(), llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("x")}))
	assert.ErrorIs(t, err, quota)
	assert.Equal(t, 1, base.Calls())
}

func TestMiddlewareExhaustion(t *testing.T) {
	transient := llmerrors.NewError(llmerrors.ErrorTypeTransient, "reset")
	base := llm.NewMockLLMClient(llm.Fail(transient), llm.Fail(transient))
	client := Middleware(fastPolicy(2))(base)

	_, err := client.Complete(context.Background(), llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("x")}))
	assert.True(t, llmerrors.IsServiceUnavailable(err))
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 2, base.Calls())
}

func TestMiddlewareHonoursCancel(t *testing.T) {
	transient := llmerrors.NewError(llmerrors.ErrorTypeTransient, "reset")
	base := llm.NewMockLLMClient(llm.Fail(transient), llm.FinalAnswer("never"))
	p := NewPolicy(Config{MaxAttempts: 3, InitialDelay: time.Hour, MaxDelay: time.Hour, BackoffFactor: 1}, nil)
	client := Middleware(p)(base)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := client.Complete(ctx, llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("x")}))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, base.Calls())
}
