package runner

import (
	"fmt"

	"github.com/hupe1980/shopmesh/core"
)

// DisplayMessage is a rendering-ready projection of a conversation message.
type DisplayMessage struct {
	// Role is the chat role the message is shown under: user or assistant.
	// Tool results are shown as assistant lines.
	Role     core.Role `json:"role"`
	Sender   string    `json:"sender,omitempty"`
	ToolName string    `json:"tool_name,omitempty"`
	Content  string    `json:"content"`
	// Text is the formatted line.
	Text string `json:"text"`
}

const transferPlaceholder = "Preparing Transfer..."

// ToDisplay formats a single message.
func ToDisplay(m core.Message) DisplayMessage {
	switch m.Role {
	case core.RoleUser:
		return DisplayMessage{Role: core.RoleUser, Content: m.Content, Text: m.Content}
	case core.RoleTool:
		return DisplayMessage{
			Role:     core.RoleAssistant,
			ToolName: m.ToolName,
			Content:  m.Content,
			Text:     fmt.Sprintf("[Debug Info: Tool: %s, Content: %s]", m.ToolName, m.Content),
		}
	default:
		content := m.Content
		if content == "" {
			content = transferPlaceholder
		}
		return DisplayMessage{
			Role:    core.RoleAssistant,
			Sender:  m.Sender,
			Content: m.Content,
			Text:    fmt.Sprintf("[%s] %s", m.Sender, content),
		}
	}
}

// FormatMessages projects msgs for display, preserving order.
func FormatMessages(msgs []core.Message) []DisplayMessage {
	out := make([]DisplayMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ToDisplay(m))
	}
	return out
}
