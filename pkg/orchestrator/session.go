package orchestrator

import (
	"sync"

	"sentinai/pkg/agent/llm"
	"sentinai/pkg/utils"
)

// sessions holds append-only conversation memory per session id.
type sessions struct {
	mu    sync.Mutex
	turns map[string][]Turn
}

func newSessions() *sessions {
	return &sessions{turns: make(map[string][]Turn)}
}

// history returns a copy of the turns stored for id.
func (s *sessions) history(id string) []Turn {
	if id == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.turns[id]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

func (s *sessions) append(id string, turns ...Turn) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[id] = append(s.turns[id], turns...)
}

// clear drops a session and reports whether it existed.
func (s *sessions) clear(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.turns[id]
	delete(s.turns, id)
	return ok
}

func (s *sessions) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// trimHistory keeps the newest turns within budget tokens. The result never
// starts with an assistant turn, since providers require the user to speak first.
func trimHistory(turns []Turn, budget int) []Turn {
	if len(turns) == 0 {
		return nil
	}
	contents := make([]string, len(turns))
	for i := range turns {
		contents[i] = turns[i].Content
	}
	kept := turns[utils.KeepNewestWithinBudget(contents, budget):]
	for len(kept) > 0 && kept[0].Role != RoleUser {
		kept = kept[1:]
	}
	return kept
}

// buildMessages assembles system prompt, prior turns and the new input.
func buildMessages(history []Turn, input string) []llm.CompletionMessage {
	msgs := make([]llm.CompletionMessage, 0, len(history)+2)
	msgs = append(msgs, llm.NewSystemMessage(systemPrompt))
	for _, t := range history {
		if t.Content == "" {
			continue
		}
		switch t.Role {
		case RoleAssistant:
			msgs = append(msgs, llm.NewAssistantMessage(t.Content))
		default:
			msgs = append(msgs, llm.NewUserMessage(t.Content))
		}
	}
	return append(msgs, llm.NewUserMessage(input))
}
