package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies the producer of a message.
type Role string

const (
	// RoleUser marks messages typed by the end user.
	RoleUser Role = "user"
	// RoleAssistant marks messages produced by an agent (including handoff markers).
	RoleAssistant Role = "assistant"
	// RoleTool marks tool result messages.
	RoleTool Role = "tool"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleTool:
		return true
	default:
		return false
	}
}

// ToolCall describes a tool invocation requested by the reasoning capability.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"` // raw JSON object as produced by the model
}

// Message is one turn unit of a conversation.
//
// ID and CreatedAt are assigned by the ConversationStore at persistence time;
// producers leave them empty. UserID and SessionID are stamped by the store as
// well so a persisted message always carries its partition scope.
type Message struct {
	ID         string     `json:"id,omitempty"`
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	Sender     string     `json:"sender,omitempty"`       // agent name on assistant messages
	ToolName   string     `json:"tool_name,omitempty"`    // tool messages only
	ToolCallID string     `json:"tool_call_id,omitempty"` // tool messages only
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // assistant messages only
	Handoff    bool       `json:"handoff,omitempty"`      // handoff marker
	UserID     string     `json:"user_id,omitempty"`
	SessionID  string     `json:"session_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at,omitempty"`
}

// NewUserMessage creates a user message.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// NewAssistantMessage creates an assistant message attributed to sender.
func NewAssistantMessage(sender, text string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Sender: sender, Content: text, ToolCalls: calls}
}

// NewToolMessage creates a tool result message answering the call with callID.
func NewToolMessage(callID, toolName, content string) Message {
	return Message{Role: RoleTool, ToolCallID: callID, ToolName: toolName, Content: content}
}

// ToolErrorPrefix starts the content of tool messages reporting an absorbed
// tool failure. The prefix is the failure flag, so it survives every store.
const ToolErrorPrefix = "Error: "

// IsToolError reports whether m is a tool message reporting a failure.
func (m Message) IsToolError() bool {
	return m.Role == RoleTool && strings.HasPrefix(m.Content, ToolErrorPrefix)
}

// NewHandoffMessage creates the marker appended when control moves to agent.
func NewHandoffMessage(agent string) Message {
	return Message{Role: RoleAssistant, Sender: agent, Handoff: true}
}

// HasToolCalls reports whether the message requests tool execution.
func (m Message) HasToolCalls() bool { return len(m.ToolCalls) > 0 }

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	if m.ToolCalls != nil {
		calls := make([]ToolCall, len(m.ToolCalls))
		copy(calls, m.ToolCalls)
		m.ToolCalls = calls
	}
	return m
}

// CloneMessages deep copies a message slice. A nil input yields an empty,
// non-nil slice.
func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// NewID returns a new random identifier.
func NewID() string { return uuid.NewString() }
