package openai

import (
	"testing"

	"github.com/hupe1980/shopmesh/core"
	"github.com/hupe1980/shopmesh/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessages(t *testing.T) {
	call := core.ToolCall{ID: "call_1", Name: "transfer_to_sales"}
	req := model.Request{
		Instructions: "You are a triage agent.",
		Messages: []core.Message{
			core.NewUserMessage("I want shoes"),
			core.NewAssistantMessage("Triage Agent", "", call),
			core.NewToolMessage("call_1", "transfer_to_sales", `{"assistant":"Sales Agent"}`),
			core.NewHandoffMessage("Sales Agent"),
			core.NewAssistantMessage("Sales Agent", "What is your user ID?"),
		},
	}

	msgs := buildMessages(req)
	require.Len(t, msgs, 5)
	assert.NotNil(t, msgs[0].OfSystem)
	assert.NotNil(t, msgs[1].OfUser)

	require.NotNil(t, msgs[2].OfAssistant)
	require.Len(t, msgs[2].OfAssistant.ToolCalls, 1)
	assert.Equal(t, "call_1", msgs[2].OfAssistant.ToolCalls[0].ID)
	assert.Equal(t, "{}", msgs[2].OfAssistant.ToolCalls[0].Function.Arguments)

	require.NotNil(t, msgs[3].OfTool)
	assert.Equal(t, "call_1", msgs[3].OfTool.ToolCallID)
	assert.NotNil(t, msgs[4].OfAssistant)
}

func TestBuildMessages_NoInstructions(t *testing.T) {
	msgs := buildMessages(model.Request{Messages: []core.Message{core.NewUserMessage("hi")}})
	require.Len(t, msgs, 1)
	assert.NotNil(t, msgs[0].OfUser)
}

func TestOrderedCalls(t *testing.T) {
	agg := map[int64]*aggCall{
		2: {id: "c", name: "notify_customer", args: "{}"},
		0: {id: "a", name: "order_item", args: `{"user_id":1}`},
		1: {id: "b", name: "refund_item", args: "{}"},
	}
	calls := orderedCalls(agg)
	require.Len(t, calls, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{calls[0].ID, calls[1].ID, calls[2].ID})
	assert.Equal(t, `{"user_id":1}`, calls[0].Arguments)
}

func TestBuildParams_Tools(t *testing.T) {
	m := NewModelFromClient(nil, func(o *Options) { o.Model = "gpt-test" })
	params := m.buildParams(model.Request{Tools: []model.ToolDefinition{{
		Type: "function",
		Function: model.FunctionDefinition{
			Name:       "order_item",
			Parameters: map[string]any{"type": "object"},
		},
	}}}, nil)

	require.Len(t, params.Tools, 1)
	assert.Equal(t, "order_item", params.Tools[0].Function.Name)
	assert.Equal(t, "gpt-test", string(params.Model))
	assert.Equal(t, "openai", m.Info().Provider)
}
