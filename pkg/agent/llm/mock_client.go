package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockLLMClient provides a controllable implementation of LLMClient for testing.
// Each Complete call consumes the next scripted step; a step with Err set
// returns that error instead of a response.
type MockLLMClient struct {
	mu       sync.Mutex
	steps    []MockStep
	requests []CompletionRequest
	model    string
	// Fallback, when set, answers calls after the script runs out.
	Fallback func(req CompletionRequest) (CompletionResponse, error)
}

// MockStep is one scripted backend reply.
type MockStep struct {
	Err      error
	Response CompletionResponse
}

// NewMockLLMClient creates a mock client that plays back steps in order.
func NewMockLLMClient(steps ...MockStep) *MockLLMClient {
	return &MockLLMClient{steps: steps, model: "mock-model"}
}

// Complete returns the next scripted response or error.
//
//nolint:gocritic // CompletionRequest size acceptable for interface consistency
func (m *MockLLMClient) Complete(_ context.Context, in CompletionRequest) (CompletionResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, in)
	idx := len(m.requests) - 1
	fallback := m.Fallback
	var step *MockStep
	if idx < len(m.steps) {
		step = &m.steps[idx]
	}
	m.mu.Unlock()

	if step == nil {
		if fallback != nil {
			return fallback(in)
		}
		return CompletionResponse{}, fmt.Errorf("mock client: no more responses")
	}
	if step.Err != nil {
		return CompletionResponse{}, step.Err
	}
	return step.Response, nil
}

// Stream plays back the next step as a single chunk.
//
//nolint:gocritic // CompletionRequest size acceptable for interface consistency
func (m *MockLLMClient) Stream(ctx context.Context, in CompletionRequest) (<-chan StreamChunk, error) {
	return StreamFromComplete(ctx, m, in)
}

// GetModelName returns the mock model name.
func (m *MockLLMClient) GetModelName() string {
	return m.model
}

// Calls returns how many Complete calls were made.
func (m *MockLLMClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every request received.
func (m *MockLLMClient) Requests() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CompletionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// FinalAnswer is a helper step that ends a reasoning loop.
func FinalAnswer(content string) MockStep {
	return MockStep{Response: CompletionResponse{Content: content, StopReason: "end_turn"}}
}

// CallTool is a helper step that requests one tool call.
func CallTool(name string, params map[string]any) MockStep {
	return MockStep{Response: CompletionResponse{
		ToolCalls:  []ToolCall{{ID: "call_" + name, Name: name, Parameters: params}},
		StopReason: "tool_use",
	}}
}

// Fail is a helper step that returns err.
func Fail(err error) MockStep {
	return MockStep{Err: err}
}
