package google

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"sentinai/pkg/agent/llm"
	"sentinai/pkg/agent/llmerrors"
	"sentinai/pkg/tools"
)

func TestNewGeminiClientWithModel(t *testing.T) {
	client := NewGeminiClientWithModel("test-key", "gemini-2.5-flash")
	require.NotNil(t, client)
	assert.Equal(t, "gemini-2.5-flash", client.GetModelName())
}

func TestConvertMessagesToGemini(t *testing.T) {
	tests := []struct {
		name             string
		messages         []llm.CompletionMessage
		expectSystem     string
		expectContentLen int
		errContains      string
	}{
		{
			name:        "empty messages",
			messages:    []llm.CompletionMessage{},
			errContains: "message list cannot be empty",
		},
		{
			name:        "only system",
			messages:    []llm.CompletionMessage{llm.NewSystemMessage("sys")},
			errContains: "non-system message",
		},
		{
			name: "multiple system messages concatenated",
			messages: []llm.CompletionMessage{
				llm.NewSystemMessage("You are helpful"),
				llm.NewSystemMessage("And concise"),
				llm.NewUserMessage("Hello"),
			},
			expectSystem:     "You are helpful\n\nAnd concise",
			expectContentLen: 1,
		},
		{
			name: "tool call round trip",
			messages: []llm.CompletionMessage{
				llm.NewUserMessage("Classify: refund please"),
				llm.NewAssistantMessage("", llm.ToolCall{ID: tools.NameClassifyTicket, Name: tools.NameClassifyTicket,
					Parameters: map[string]any{"text": "refund please"}}),
				llm.NewToolResultMessage(llm.ToolResult{ToolCallID: tools.NameClassifyTicket, Name: tools.NameClassifyTicket,
					Content: "Category: Billing (Probability: 92.00%)"}),
			},
			expectContentLen: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contents, system, err := convertMessagesToGemini(tt.messages)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectSystem, system)
			assert.Len(t, contents, tt.expectContentLen)
		})
	}
}

func TestToolResultsUseFunctionName(t *testing.T) {
	contents, _, err := convertMessagesToGemini([]llm.CompletionMessage{
		llm.NewUserMessage("hi"),
		llm.NewAssistantMessage("", llm.ToolCall{ID: "abc", Name: tools.NameTranscribeAudio, Signature: []byte("sig")}),
		llm.NewToolResultMessage(
			llm.ToolResult{ToolCallID: "abc", Name: tools.NameTranscribeAudio, Content: "Error: file not found", IsError: true},
		),
	})
	require.NoError(t, err)
	require.Len(t, contents, 3)

	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, []byte("sig"), contents[1].Parts[0].ThoughtSignature)

	resp := contents[2].Parts[0].FunctionResponse
	require.NotNil(t, resp)
	assert.Equal(t, tools.NameTranscribeAudio, resp.Name)
	assert.Equal(t, "Error: file not found", resp.Response["error"])
}

func TestBuildRequestUsesAutoToolMode(t *testing.T) {
	req := llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewSystemMessage("sys"), llm.NewUserMessage("hi")})
	req.Tools = tools.Definitions()

	_, config, err := buildRequest(req)
	require.NoError(t, err)
	require.NotNil(t, config.ToolConfig)
	assert.Equal(t, genai.FunctionCallingConfigModeAuto, config.ToolConfig.FunctionCallingConfig.Mode)
	require.Len(t, config.Tools, 1)
	assert.Len(t, config.Tools[0].FunctionDeclarations, 3)
	assert.InDelta(t, llm.TemperatureDefault, *config.Temperature, 1e-6)
	assert.Equal(t, "sys", config.SystemInstruction.Parts[0].Text)
}

func TestConvertToolsToGemini(t *testing.T) {
	result := convertToolsToGemini([]tools.ToolDefinition{tools.KindQueryDocument.Definition()})
	require.Len(t, result, 1)

	converted := result[0]
	assert.Equal(t, tools.NameQueryDocument, converted.Name)
	require.NotNil(t, converted.Parameters)
	assert.Equal(t, genai.TypeObject, converted.Parameters.Type)
	assert.ElementsMatch(t, []string{tools.ArgFilePath, tools.ArgQuery}, converted.Parameters.Required)
	assert.Equal(t, genai.TypeString, converted.Parameters.Properties[tools.ArgQuery].Type)
}

func TestConvertResponse(t *testing.T) {
	result := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		FinishReason: genai.FinishReasonStop,
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "thinking...", Thought: true},
			{Text: "Let me check. "},
			{FunctionCall: &genai.FunctionCall{Name: tools.NameClassifyTicket, Args: map[string]any{"text": "x"}}, ThoughtSignature: []byte("s")},
		}},
	}}}

	resp, err := convertResponse(result)
	require.NoError(t, err)
	assert.Equal(t, "Let me check. ", resp.Content)
	assert.Equal(t, "tool_use", resp.StopReason)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, tools.NameClassifyTicket, resp.ToolCalls[0].ID, "name doubles as ID")
	assert.Equal(t, []byte("s"), resp.ToolCalls[0].Signature)
}

func TestConvertResponseEmpty(t *testing.T) {
	_, err := convertResponse(&genai.GenerateContentResponse{})
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeEmptyResponse))

	_, err = convertResponse(&genai.GenerateContentResponse{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
	})
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeBadPrompt))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, 429, statusCode(genai.APIError{Code: 429, Message: "RESOURCE_EXHAUSTED"}))
	assert.Zero(t, statusCode(assert.AnError))
}
