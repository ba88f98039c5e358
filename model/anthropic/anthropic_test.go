package anthropic

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/hupe1980/shopmesh/core"
	"github.com/hupe1980/shopmesh/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessages_ToolResultsInUserTurn(t *testing.T) {
	history := []core.Message{
		core.NewUserMessage("refund my item"),
		core.NewAssistantMessage("Refunds Agent", "Let me check.",
			core.ToolCall{ID: "toolu_1", Name: "refund_item", Arguments: `{"user_id":1,"item_id":101}`},
			core.ToolCall{ID: "toolu_2", Name: "notify_customer", Arguments: ""},
		),
		core.NewToolMessage("toolu_1", "refund_item", "Refunding $99.99 to user ID 1 for item ID 101."),
		core.NewToolMessage("toolu_2", "notify_customer", "Emailed customer alice@test.com a notification."),
		core.NewUserMessage("thanks"),
	}

	msgs := buildMessages(history)
	require.Len(t, msgs, 3)

	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[0].Role)

	assert.Equal(t, anthropic.MessageParamRoleAssistant, msgs[1].Role)
	require.Len(t, msgs[1].Content, 3)
	assert.NotNil(t, msgs[1].Content[0].OfText)
	require.NotNil(t, msgs[1].Content[1].OfToolUse)
	assert.Equal(t, "refund_item", msgs[1].Content[1].OfToolUse.Name)
	assert.Equal(t, map[string]any{}, msgs[1].Content[2].OfToolUse.Input)

	// Both results and the follow-up text share one user turn.
	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[2].Role)
	require.Len(t, msgs[2].Content, 3)
	require.NotNil(t, msgs[2].Content[0].OfToolResult)
	assert.Equal(t, "toolu_1", msgs[2].Content[0].OfToolResult.ToolUseID)
	assert.False(t, msgs[2].Content[0].OfToolResult.IsError.Value)
	assert.NotNil(t, msgs[2].Content[1].OfToolResult)
	assert.NotNil(t, msgs[2].Content[2].OfText)
}

func TestBuildMessages_FlagsToolErrors(t *testing.T) {
	msgs := buildMessages([]core.Message{
		core.NewUserMessage("refund item 101"),
		core.NewAssistantMessage("Refunds Agent", "", core.ToolCall{ID: "toolu_1", Name: "refund_item", Arguments: "{}"}),
		core.NewToolMessage("toolu_1", "refund_item", core.ToolErrorPrefix+"refund_item is temporarily unavailable."),
	})
	require.Len(t, msgs, 3)
	require.NotNil(t, msgs[2].Content[0].OfToolResult)
	assert.True(t, msgs[2].Content[0].OfToolResult.IsError.Value)
}

func TestBuildMessages_SkipsHandoffMarkers(t *testing.T) {
	msgs := buildMessages([]core.Message{
		core.NewUserMessage("hi"),
		core.NewHandoffMessage("Sales Agent"),
		core.NewAssistantMessage("Sales Agent", "Hello!"),
	})
	require.Len(t, msgs, 2)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, msgs[1].Role)
	require.Len(t, msgs[1].Content, 1)
}

func TestBuildTools(t *testing.T) {
	tools := buildTools([]model.ToolDefinition{{
		Type: "function",
		Function: model.FunctionDefinition{
			Name: "refund_item",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"user_id": map[string]any{"type": "integer"}},
				"required":   []any{"user_id", 7},
			},
		},
	}})
	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, "refund_item", tools[0].OfTool.Name)
	assert.Equal(t, []string{"user_id"}, tools[0].OfTool.InputSchema.Required)
}

func TestInfo(t *testing.T) {
	m := NewModelFromClient(nil, func(o *Options) { o.Model = "claude-test" })
	assert.Equal(t, "claude-test", m.Info().Name)
	assert.Equal(t, "anthropic", m.Info().Provider)
}
