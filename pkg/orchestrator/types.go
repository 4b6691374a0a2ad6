package orchestrator

import (
	"sentinai/pkg/agent/toolloop"
	"sentinai/pkg/guard"
)

// Mode tells which path produced a response.
type Mode string

const (
	ModeReasoning Mode = "reasoning"
	ModeFallback  Mode = "fallback"
	ModeNone      Mode = "none"
)

// Response statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// AgentID identifies the orchestrator in status payloads.
const AgentID = "sentinai-orchestrator"

// Role of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is the input to Execute.
type Request struct {
	Input string `json:"input"`
	// History, when non-nil, is used instead of the stored session turns.
	History []Turn `json:"history,omitempty"`
	// SessionID scopes conversation memory. Empty means stateless.
	SessionID string `json:"session_id,omitempty"`
}

// Step is one entry of a response trace.
type Step = toolloop.Step

// Response is the uniform result of Execute. Response is set on success and
// Message on error.
type Response struct {
	Status    string    `json:"status"`
	Response  string    `json:"response,omitempty"`
	Message   string    `json:"message,omitempty"`
	Trace     []Step    `json:"trace"`
	Mode      Mode      `json:"mode"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	RequestID string    `json:"request_id"`
	// Err is the classified failure behind an error response.
	Err error `json:"-"`
}

// OK reports whether the response is a success.
func (r Response) OK() bool {
	return r.Status == StatusSuccess
}

// Text returns Response on success and Message otherwise.
func (r Response) Text() string {
	if r.OK() {
		return r.Response
	}
	return r.Message
}

// InitResult is the outcome of Initialize.
type InitResult struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Err       error     `json:"-"`
}

// OK reports whether initialization succeeded.
func (r InitResult) OK() bool {
	return r.Status == StatusSuccess
}

// Status describes the orchestrator for the status endpoint.
type Status struct {
	AgentID      string      `json:"agent_id"`
	Status       string      `json:"status"`
	Provider     string      `json:"provider"`
	Model        string      `json:"model"`
	Mode         guard.Mode  `json:"mode"`
	RateLimit    guard.State `json:"rate_limit"`
	Capabilities []string    `json:"capabilities"`
	Tools        []string    `json:"tools"`
	// CooldownRemaining is in seconds, zero outside COOLDOWN.
	CooldownRemaining float64 `json:"cooldown_remaining_seconds"`
	Sessions          int     `json:"sessions"`
	Initialized       bool    `json:"initialized"`
	MemoryEnabled     bool    `json:"memory_enabled"`
	MemoryRecords     int     `json:"memory_records"`
}
