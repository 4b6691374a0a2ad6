package anthropic

import (
	"encoding/json"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinai/pkg/agent/llm"
	"sentinai/pkg/agent/llmerrors"
	"sentinai/pkg/config"
	"sentinai/pkg/tools"
)

func TestEnsureAlternation(t *testing.T) {
	tests := []struct {
		name         string
		input        []llm.CompletionMessage
		expectSystem string
		expectMsgLen int
		errContains  string
	}{
		{
			name:        "empty messages",
			input:       []llm.CompletionMessage{},
			errContains: "message list cannot be empty",
		},
		{
			name: "multiple system messages concatenated",
			input: []llm.CompletionMessage{
				llm.NewSystemMessage("You are helpful"),
				llm.NewSystemMessage("And concise"),
				llm.NewUserMessage("Hello"),
			},
			expectSystem: "You are helpful\n\nAnd concise",
			expectMsgLen: 1,
		},
		{
			name: "consecutive user messages merged",
			input: []llm.CompletionMessage{
				llm.NewUserMessage("Hello"),
				llm.NewUserMessage("Anyone there?"),
			},
			expectMsgLen: 1,
		},
		{
			name: "tool loop alternates",
			input: []llm.CompletionMessage{
				llm.NewUserMessage("refund please"),
				llm.NewAssistantMessage("", llm.ToolCall{ID: "t1", Name: tools.NameClassifyTicket}),
				llm.NewToolResultMessage(llm.ToolResult{ToolCallID: "t1", Content: "Category: Billing"}),
			},
			expectMsgLen: 3,
		},
		{
			name: "starts with assistant",
			input: []llm.CompletionMessage{
				llm.NewAssistantMessage("Hi"),
				llm.NewUserMessage("Hello"),
			},
			errContains: "first message must be user",
		},
		{
			name: "ends with assistant",
			input: []llm.CompletionMessage{
				llm.NewUserMessage("Hello"),
				llm.NewAssistantMessage("Hi"),
			},
			errContains: "last message must be user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			system, msgs, err := ensureAlternation(tt.input)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectSystem, system)
			assert.Len(t, msgs, tt.expectMsgLen)
		})
	}
}

func TestMergeKeepsToolResults(t *testing.T) {
	_, msgs, err := ensureAlternation([]llm.CompletionMessage{
		llm.NewUserMessage("a"),
		llm.NewAssistantMessage("", llm.ToolCall{ID: "t1", Name: tools.NameTranscribeAudio}),
		llm.NewToolResultMessage(llm.ToolResult{ToolCallID: "t1", Content: "Transcription: hi"}),
		llm.NewUserMessage("Please either call a tool or answer."),
	})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Len(t, msgs[2].ToolResults, 1)
	assert.Equal(t, "Please either call a tool or answer.", msgs[2].Content)
}

func TestConvertMessagesBlocks(t *testing.T) {
	out := convertMessages([]llm.CompletionMessage{
		llm.NewUserMessage("refund"),
		llm.NewAssistantMessage("checking", llm.ToolCall{ID: "t1", Name: tools.NameClassifyTicket, Parameters: map[string]any{"text": "refund"}}),
		llm.NewToolResultMessage(llm.ToolResult{ToolCallID: "t1", Content: "Category: Billing", IsError: false}),
	})
	require.Len(t, out, 3)

	require.Len(t, out[1].Content, 2)
	assert.NotNil(t, out[1].Content[0].OfText)
	require.NotNil(t, out[1].Content[1].OfToolUse)
	assert.Equal(t, "t1", out[1].Content[1].OfToolUse.ID)

	require.Len(t, out[2].Content, 1)
	require.NotNil(t, out[2].Content[0].OfToolResult)
	assert.Equal(t, "t1", out[2].Content[0].OfToolResult.ToolUseID)
}

func TestBuildParams(t *testing.T) {
	c := NewClaudeClient("k").(*ClaudeClient)
	assert.Equal(t, config.ModelClaudeSonnet4, c.GetModelName())

	req := llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewSystemMessage("sys"), llm.NewUserMessage("hi")})
	req.Tools = tools.Definitions()
	params, err := c.buildParams(req)
	require.NoError(t, err)
	assert.Len(t, params.Tools, 3)
	assert.NotNil(t, params.ToolChoice.OfAuto)
	require.Len(t, params.System, 1)
	assert.Equal(t, "sys", params.System[0].Text)
	assert.Equal(t, int64(2048), params.MaxTokens)
}

func TestConvertResponse(t *testing.T) {
	var resp anthropic.Message
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-test",
		"stop_reason": "tool_use",
		"content": [
			{"type": "text", "text": "Classifying."},
			{"type": "tool_use", "id": "tu_1", "name": "classify_ticket", "input": {"text": "charged twice"}},
			{"type": "tool_use", "id": "tu_2", "name": "classify_ticket", "input": "not-an-object"}
		]
	}`), &resp))

	out, err := convertResponse(&resp)
	require.NoError(t, err, "malformed tool input must not fail the call")
	assert.Equal(t, "Classifying.", out.Content)
	assert.Equal(t, "tool_use", out.StopReason)
	require.Len(t, out.ToolCalls, 2)

	assert.Equal(t, "charged twice", out.ToolCalls[0].Parameters["text"])
	assert.Empty(t, out.ToolCalls[0].ParseError)

	assert.Equal(t, "tu_2", out.ToolCalls[1].ID)
	assert.Equal(t, tools.NameClassifyTicket, out.ToolCalls[1].Name)
	assert.Nil(t, out.ToolCalls[1].Parameters)
	assert.NotEmpty(t, out.ToolCalls[1].ParseError)

	_, err = convertResponse(&anthropic.Message{})
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeEmptyResponse))
}
