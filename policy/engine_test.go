package policy

import (
	"context"
	"testing"

	"github.com/hupe1980/shopmesh/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	e, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	tests := []struct {
		name    string
		check   engine.ToolCheck
		allowed bool
	}{
		{"order ok", engine.ToolCheck{ToolName: "order_item", Args: map[string]any{"user_id": 2.0, "product_id": 9.0}}, true},
		{"order zero user", engine.ToolCheck{ToolName: "order_item", Args: map[string]any{"user_id": 0.0, "product_id": 9.0}}, false},
		{"refund negative user", engine.ToolCheck{ToolName: "refund_item", Args: map[string]any{"user_id": -1, "item_id": 3}}, false},
		{"notify zero user", engine.ToolCheck{ToolName: "notify_customer", Args: map[string]any{"user_id": 0.0, "method": "email"}}, true},
		{"no args", engine.ToolCheck{ToolName: "product_information", Args: map[string]any{}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed, reason, err := e.Check(ctx, tt.check)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, allowed)
			if !tt.allowed {
				assert.Contains(t, reason, "user_id")
			}
		})
	}
}

func TestEvaluate_StringDecision(t *testing.T) {
	ctx := context.Background()
	e, err := NewEngine(ctx, `
package tool_policy

default decision = "allow"

decision = "block" {
	input.tool_name == "dangerous"
}
`)
	require.NoError(t, err)

	d, err := e.Evaluate(ctx, map[string]any{"tool_name": "dangerous"})
	require.NoError(t, err)
	assert.Equal(t, ActionBlock, d.Action)
	assert.False(t, d.Allowed())

	d, err = e.Evaluate(ctx, map[string]any{"tool_name": "safe"})
	require.NoError(t, err)
	assert.True(t, d.Allowed())
}

func TestEvaluate_Undefined(t *testing.T) {
	ctx := context.Background()
	e, err := NewEngine(ctx, `
package tool_policy

decision = "block" {
	input.tool_name == "dangerous"
}
`)
	require.NoError(t, err)

	d, err := e.Evaluate(ctx, map[string]any{"tool_name": "safe"})
	require.NoError(t, err)
	assert.Equal(t, Decision{Action: ActionAllow, Reason: "default"}, d)
}

func TestNewEngine_InvalidPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package tool_policy\n\ndecision = {")
	assert.Error(t, err)
}
