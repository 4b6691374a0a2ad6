package circuit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinai/pkg/agent/llm"
	"sentinai/pkg/agent/llmerrors"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestBreakerLifecycle(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	b := NewWithClock(Config{FailureThreshold: 2, SuccessThreshold: 1, Timeout: 30 * time.Second}, clock.now)

	assert.True(t, b.Allow())
	b.Record(false)
	assert.Equal(t, Closed, b.GetState())
	b.Record(false)
	assert.Equal(t, Open, b.GetState())
	assert.False(t, b.Allow())

	clock.t = clock.t.Add(30 * time.Second)
	assert.True(t, b.Allow())
	assert.Equal(t, HalfOpen, b.GetState())

	b.Record(false)
	assert.Equal(t, Open, b.GetState(), "failure in half-open reopens")

	clock.t = clock.t.Add(time.Minute)
	require.True(t, b.Allow())
	b.Record(true)
	assert.Equal(t, Closed, b.GetState())

	b.Record(false)
	b.Record(false)
	b.Reset()
	assert.Equal(t, Closed, b.GetState())
	assert.Equal(t, "HALF_OPEN", HalfOpen.String())
}

func TestMiddlewareRejectsWhenOpen(t *testing.T) {
	boom := llmerrors.NewError(llmerrors.ErrorTypeTransient, "502")
	base := llm.NewMockLLMClient(llm.Fail(boom))
	b := New(Config{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Hour})
	client := Middleware(b)(base)
	req := llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("x")})

	_, err := client.Complete(context.Background(), req)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Open, b.GetState())

	_, err = client.Complete(context.Background(), req)
	require.Error(t, err)
	var cErr *Error
	assert.True(t, errors.As(err, &cErr))
	assert.True(t, llmerrors.IsServiceUnavailable(err))
	assert.Equal(t, 1, base.Calls(), "open circuit must not reach the backend")
}

func TestMiddlewareIgnoresQuotaFailures(t *testing.T) {
	quota := llmerrors.NewError(llmerrors.ErrorTypeRateLimit, "quota exceeded")
	base := llm.NewMockLLMClient(llm.Fail(quota), llm.Fail(quota))
	b := New(Config{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Hour})
	client := Middleware(b)(base)
	req := llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("x")})

	for i := 0; i < 2; i++ {
		_, err := client.Complete(context.Background(), req)
		assert.True(t, llmerrors.IsQuotaExhausted(err))
	}
	assert.Equal(t, Closed, b.GetState())
}
