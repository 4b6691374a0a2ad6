// Package llm provides interfaces and types for Large Language Model client implementations.
package llm

import (
	"context"
	"fmt"

	"sentinai/pkg/tools"
)

// CompletionRole represents the role of a message in a conversation.
type CompletionRole string

const (
	// RoleSystem indicates a system message that provides instructions or context.
	RoleSystem CompletionRole = "system"
	// RoleUser indicates a message from the human user.
	RoleUser CompletionRole = "user"
	// RoleAssistant indicates a message from the AI assistant.
	RoleAssistant CompletionRole = "assistant"
)

// TemperatureDefault keeps tool selection close to deterministic.
const TemperatureDefault = 0.1

// ToolCall represents a tool call made by the LLM.
type ToolCall struct {
	Parameters map[string]any `json:"parameters"`
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	// Signature is an opaque provider token (Gemini thought signature) that
	// must be echoed back with the call on the next turn.
	Signature []byte `json:"-"`
	// ParseError is set when the provider returned arguments that are not a
	// JSON object. The tool is not run and the error becomes its observation.
	ParseError string `json:"-"`
}

// ToolResult carries a tool observation back to the LLM.
// Name is required by providers that match results by function name (Gemini).
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
}

// CompletionMessage represents a message in a completion request.
// Assistant messages may carry ToolCalls; the user message that follows
// carries the matching ToolResults.
type CompletionMessage struct {
	Content     string
	Role        CompletionRole
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// CompletionRequest represents a request to generate a completion.
//
//nolint:govet // fieldalignment: value semantics preferred over pointer indirection
type CompletionRequest struct {
	Messages    []CompletionMessage
	Tools       []tools.ToolDefinition
	MaxTokens   int
	Temperature float32
}

// CompletionResponse represents a response from a completion request.
//
//nolint:govet // fieldalignment: value semantics preferred over pointer indirection
type CompletionResponse struct {
	ToolCalls  []ToolCall
	Content    string // Main response text
	StopReason string // Why the response stopped: "end_turn", "tool_use", "max_tokens", etc.
}

// StreamChunk represents a chunk of streamed completion response.
type StreamChunk struct {
	Error   error
	Content string
	Done    bool
}

// LLMClient defines the interface for language model interactions.
type LLMClient interface { //nolint:revive // Keep name for backward compatibility
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// Stream generates a completion as a stream of chunks.
	Stream(ctx context.Context, in CompletionRequest) (<-chan StreamChunk, error)

	// GetModelName returns the model name for this LLM client.
	GetModelName() string
}

// NewCompletionRequest creates a new completion request with default values.
func NewCompletionRequest(messages []CompletionMessage) CompletionRequest {
	return CompletionRequest{
		Messages:    messages,
		MaxTokens:   2048,
		Temperature: TemperatureDefault,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) CompletionMessage {
	return CompletionMessage{
		Role:    RoleSystem,
		Content: content,
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) CompletionMessage {
	return CompletionMessage{
		Role:    RoleUser,
		Content: content,
	}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string, calls ...ToolCall) CompletionMessage {
	return CompletionMessage{
		Role:      RoleAssistant,
		Content:   content,
		ToolCalls: calls,
	}
}

// NewToolResultMessage creates the user message that answers tool calls.
func NewToolResultMessage(results ...ToolResult) CompletionMessage {
	return CompletionMessage{
		Role:        RoleUser,
		ToolResults: results,
	}
}

// ValidateRequest performs the checks every provider shares.
//
//nolint:gocritic // CompletionRequest size acceptable for interface consistency
func ValidateRequest(in CompletionRequest) error {
	if len(in.Messages) == 0 {
		return fmt.Errorf("message list cannot be empty")
	}
	if in.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive")
	}
	if in.Temperature < 0.0 || in.Temperature > 2.0 {
		return fmt.Errorf("temperature must be between 0.0 and 2.0")
	}
	return nil
}

// StreamFromComplete adapts a synchronous Complete into a single-chunk stream.
// Providers use it because the orchestrator never needs token streaming.
//
//nolint:gocritic // CompletionRequest size acceptable for interface consistency
func StreamFromComplete(ctx context.Context, c LLMClient, in CompletionRequest) (<-chan StreamChunk, error) {
	resp, err := c.Complete(ctx, in)
	if err != nil {
		return nil, err
	}
	ch := make(chan StreamChunk, 1)
	ch <- StreamChunk{Content: resp.Content, Done: true}
	close(ch)
	return ch, nil
}
