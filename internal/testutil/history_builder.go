package testutil

import (
	"encoding/json"

	"github.com/hupe1980/shopmesh/core"
)

// HistoryBuilder provides a fluent helper for constructing conversations in tests.
// Example:
//
//	h := NewHistoryBuilder().
//		User("I want a refund").
//		ToolCall("Triage Agent", "transfer_to_refunds", nil).
//		ToolResult(`{"assistant":"Refunds Agent"}`).
//		Handoff("Refunds Agent").
//		Assistant("Refunds Agent", "What is your user ID?").
//		Build()
//
// ToolResult answers the most recent ToolCall that has no result yet.
type HistoryBuilder struct {
	msgs    []core.Message
	pending []core.ToolCall
}

// NewHistoryBuilder creates an empty builder.
func NewHistoryBuilder() *HistoryBuilder { return &HistoryBuilder{} }

// User appends a user message (chainable).
func (b *HistoryBuilder) User(text string) *HistoryBuilder {
	b.msgs = append(b.msgs, core.NewUserMessage(text))
	return b
}

// Assistant appends a plain assistant message (chainable).
func (b *HistoryBuilder) Assistant(sender, text string) *HistoryBuilder {
	b.msgs = append(b.msgs, core.NewAssistantMessage(sender, text))
	return b
}

// ToolCall appends an assistant message requesting a single tool call (chainable).
func (b *HistoryBuilder) ToolCall(sender, name string, args map[string]any) *HistoryBuilder {
	raw := "{}"
	if args != nil {
		data, _ := json.Marshal(args)
		raw = string(data)
	}
	call := core.ToolCall{ID: "call_" + core.NewID(), Name: name, Arguments: raw}
	b.pending = append(b.pending, call)
	b.msgs = append(b.msgs, core.NewAssistantMessage(sender, "", call))
	return b
}

// ToolResult appends the tool message answering the latest open call (chainable).
func (b *HistoryBuilder) ToolResult(content string) *HistoryBuilder {
	var call core.ToolCall
	if n := len(b.pending); n > 0 {
		call = b.pending[n-1]
		b.pending = b.pending[:n-1]
	}
	b.msgs = append(b.msgs, core.NewToolMessage(call.ID, call.Name, content))
	return b
}

// Handoff appends a handoff marker for agent (chainable).
func (b *HistoryBuilder) Handoff(agent string) *HistoryBuilder {
	b.msgs = append(b.msgs, core.NewHandoffMessage(agent))
	return b
}

// Build returns a copy of the accumulated conversation.
func (b *HistoryBuilder) Build() []core.Message {
	return core.CloneMessages(b.msgs)
}
