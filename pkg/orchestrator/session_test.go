package orchestrator

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinai/pkg/agent/llm"
)

func TestTrimHistory(t *testing.T) {
	long := strings.Repeat("word ", 200)
	turns := []Turn{
		{Role: RoleUser, Content: long},
		{Role: RoleAssistant, Content: long},
		{Role: RoleUser, Content: "short question"},
		{Role: RoleAssistant, Content: "short answer"},
	}

	assert.Len(t, trimHistory(turns, 0), 4, "non-positive budget keeps everything")
	assert.Nil(t, trimHistory(nil, 100))

	kept := trimHistory(turns, 250)
	require.Len(t, kept, 2, "assistant turn at the cut is dropped")
	assert.Equal(t, RoleUser, kept[0].Role)
	assert.Equal(t, "short question", kept[0].Content)
	assert.Len(t, turns, 4, "input is not modified")
}

func TestBuildMessages(t *testing.T) {
	msgs := buildMessages([]Turn{
		{Role: RoleUser, Content: "a"},
		{Role: RoleAssistant, Content: ""},
		{Role: RoleAssistant, Content: "b"},
	}, "c")
	require.Len(t, msgs, 4)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "classify_ticket")
	assert.Equal(t, llm.RoleAssistant, msgs[2].Role)
	assert.Equal(t, "c", msgs[3].Content)
}

func TestSessionsCopyOnRead(t *testing.T) {
	s := newSessions()
	s.append("", Turn{Role: RoleUser, Content: "ignored"})
	assert.Zero(t, s.count())

	s.append("x", Turn{Role: RoleUser, Content: "hi"})
	h := s.history("x")
	h[0].Content = "changed"
	assert.Equal(t, "hi", s.history("x")[0].Content)
}

func TestErrorMatching(t *testing.T) {
	cause := errors.New("boom")
	err := newError(KindBackend, cause, "Execution failed: %v", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, &Error{Kind: KindBackend})
	assert.NotErrorIs(t, err, &Error{Kind: KindValidation})
	assert.Equal(t, KindBackend, KindOf(err))
	assert.Equal(t, ErrorKind(""), KindOf(cause))
	assert.Equal(t, "backend: Execution failed: boom", err.Error())
}
