package runner

import (
	"testing"

	"github.com/hupe1980/shopmesh/core"
	"github.com/stretchr/testify/assert"
)

func TestToDisplay(t *testing.T) {
	tests := []struct {
		name string
		msg  core.Message
		want DisplayMessage
	}{
		{
			name: "user",
			msg:  core.NewUserMessage("I want a refund"),
			want: DisplayMessage{Role: core.RoleUser, Content: "I want a refund", Text: "I want a refund"},
		},
		{
			name: "assistant",
			msg:  core.NewAssistantMessage("Refunds Agent", "What is your user ID?"),
			want: DisplayMessage{Role: core.RoleAssistant, Sender: "Refunds Agent", Content: "What is your user ID?", Text: "[Refunds Agent] What is your user ID?"},
		},
		{
			name: "tool call without text",
			msg:  core.NewAssistantMessage("Triage Agent", "", core.ToolCall{ID: "c1", Name: "transfer_to_refunds"}),
			want: DisplayMessage{Role: core.RoleAssistant, Sender: "Triage Agent", Text: "[Triage Agent] Preparing Transfer..."},
		},
		{
			name: "handoff marker",
			msg:  core.NewHandoffMessage("Refunds Agent"),
			want: DisplayMessage{Role: core.RoleAssistant, Sender: "Refunds Agent", Text: "[Refunds Agent] Preparing Transfer..."},
		},
		{
			name: "tool",
			msg:  core.NewToolMessage("c1", "refund_item", "Refunding $39.99 to user ID 1 for item ID 3."),
			want: DisplayMessage{
				Role:     core.RoleAssistant,
				ToolName: "refund_item",
				Content:  "Refunding $39.99 to user ID 1 for item ID 3.",
				Text:     "[Debug Info: Tool: refund_item, Content: Refunding $39.99 to user ID 1 for item ID 3.]",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToDisplay(tt.msg))
		})
	}
}

func TestFormatMessages_Empty(t *testing.T) {
	out := FormatMessages(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}
