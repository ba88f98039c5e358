package shopmesh

import (
	"context"
	"strings"
	"testing"

	"github.com/hupe1980/shopmesh/agent"
	"github.com/hupe1980/shopmesh/core"
	"github.com/hupe1980/shopmesh/model"
	"github.com/hupe1980/shopmesh/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefundConversation(t *testing.T) {
	ctx := context.Background()
	m := model.NewScriptedModel(
		model.CallTool("transfer_to_refunds", nil),
		model.Reply("Sure. What is your user ID and the item ID?"),
		model.CallTool("refund_item", map[string]any{"user_id": 1, "item_id": 101}),
		model.Reply("Your refund of $99.99 is on its way."),
	)
	mesh, err := New(ctx, m)
	require.NoError(t, err)

	reply, err := mesh.Submit(ctx, "1", "s1", "I want a refund")
	require.NoError(t, err)
	assert.Equal(t, agent.RefundsAgent, reply.NextAgent)

	reply, err = mesh.Submit(ctx, "1", "s1", "user 1, item 101")
	require.NoError(t, err)
	assert.Equal(t, agent.RefundsAgent, reply.NextAgent)

	var toolContent string
	for _, msg := range reply.Messages {
		if msg.Role == core.RoleTool {
			toolContent = msg.Content
		}
	}
	assert.Equal(t, "Refunding $99.99 to user ID 1 for item ID 101.", toolContent)
	assert.Equal(t, "[Refunds Agent] Your refund of $99.99 is on its way.", reply.Display[len(reply.Display)-1].Text)

	// The refunds agent saw the customer context in its instructions.
	reqs := m.Requests()
	assert.Contains(t, reqs[3].Instructions, "user ID is 1")

	history, err := mesh.Runner().History(ctx, "1", "s1")
	require.NoError(t, err)
	assert.Len(t, history, len(reply.History))
}

func TestProductQuestionThenOrder(t *testing.T) {
	ctx := context.Background()
	m := model.NewScriptedModel(
		model.CallTool("transfer_to_product", nil),
		model.CallTool("product_information", map[string]any{"query_text": "warm wool socks for hiking"}),
		model.CallTool("transfer_to_sales", nil),
		model.CallTool("order_item", map[string]any{"user_id": 2, "product_id": 8}),
		model.Reply("Your wool socks are ordered."),
	)
	mesh, err := New(ctx, m)
	require.NoError(t, err)

	reply, err := mesh.Submit(ctx, "2", "s1", "Do you have warm socks? Order them for me, I'm user 2.")
	require.NoError(t, err)
	assert.Equal(t, agent.SalesAgent, reply.NextAgent)

	var tools []string
	markers := 0
	for _, msg := range reply.Messages {
		switch {
		case msg.Role == core.RoleTool:
			tools = append(tools, msg.ToolName+": "+msg.Content)
		case msg.Handoff:
			markers++
		}
	}
	assert.Equal(t, 2, markers)
	require.Len(t, tools, 4)
	assert.True(t, strings.HasPrefix(tools[1], "product_information: product id 8: Wool socks"), tools[1])
	assert.True(t, strings.HasPrefix(tools[3], "order_item: Order placed for product Wool socks (product ID 8, price $29.99) for user ID 2."), tools[3])

	purchases, err := mesh.Catalog().Purchases(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, purchases, 2)
}

func TestPolicyBlocksAnonymousOrder(t *testing.T) {
	ctx := context.Background()
	guard, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	require.NoError(t, err)

	m := model.NewScriptedModel(
		model.CallTool("transfer_to_sales", nil),
		model.CallTool("order_item", map[string]any{"user_id": 0, "product_id": 9}),
		model.Reply("I need your user ID first."),
	)
	mesh, err := New(ctx, m, func(o *Options) { o.Guard = guard })
	require.NoError(t, err)

	reply, err := mesh.Submit(ctx, "anon", "s1", "buy shoes")
	require.NoError(t, err)

	var blocked string
	for _, msg := range reply.Messages {
		if msg.Role == core.RoleTool && msg.ToolName == "order_item" {
			blocked = msg.Content
		}
	}
	assert.Equal(t, "Error: blocked by policy: user_id must be a positive customer id", blocked)

	purchases, err := mesh.Catalog().Purchases(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, purchases)
}

func TestNew_WithoutSeed(t *testing.T) {
	ctx := context.Background()
	m := model.NewScriptedModel(
		model.CallTool("transfer_to_product", nil),
		model.CallTool("product_information", map[string]any{"query_text": "shoes"}),
		model.Reply("Nothing found."),
	)
	mesh, err := New(ctx, m, func(o *Options) { o.Seed = false })
	require.NoError(t, err)

	reply, err := mesh.Submit(ctx, "1", "s1", "shoes?")
	require.NoError(t, err)
	assert.Contains(t, reply.Messages[len(reply.Messages)-2].Content, "No matching products found.")
}
