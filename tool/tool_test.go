package tool

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/hupe1980/shopmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------- FunctionTool Tests --------------------

func TestFunctionTool_Success(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required": []string{"a", "b"},
	}

	sumTool := NewFunctionTool("sum", "Add numbers", params, func(_ context.Context, args map[string]any) (core.Result, error) {
		a := args["a"].(float64)
		b := args["b"].(float64)
		return core.Text(strconv.FormatFloat(a+b, 'f', -1, 64)), nil
	})

	result, err := sumTool.Call(context.Background(), map[string]any{"a": 2.0, "b": 3.0})
	assert.NoError(t, err)
	assert.Equal(t, core.TextResult{Text: "5"}, result)
}

func TestFunctionTool_ValidationError(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
		},
		"required": []any{"a"},
	}
	called := false
	tTool := NewFunctionTool("test", "Test", params, func(context.Context, map[string]any) (core.Result, error) {
		called = true
		return core.Text(""), nil
	})

	_, err := tTool.Call(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.False(t, called)

	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, CodeValidation, toolErr.Code)
	assert.True(t, IsValidationError(err))
	assert.ErrorIs(t, err, core.ErrInvalidArguments)
}

func TestFunctionTool_ExecutionError(t *testing.T) {
	boom := errors.New("boom")
	params := map[string]any{"type": "object", "properties": map[string]any{}}
	execTool := NewFunctionTool("fail", "Fails", params, func(context.Context, map[string]any) (core.Result, error) {
		return nil, boom
	})

	_, err := execTool.Call(context.Background(), map[string]any{})
	require.Error(t, err)

	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, CodeExecution, toolErr.Code)
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsValidationError(err))
	assert.NotErrorIs(t, err, core.ErrInvalidArguments)
}

func TestFunctionTool_ForwardsToolError(t *testing.T) {
	custom := NewToolError("custom", "quota exceeded", "QUOTA")
	params := map[string]any{"type": "object", "properties": map[string]any{}}
	ft := NewFunctionTool("custom", "Custom", params, func(context.Context, map[string]any) (core.Result, error) {
		return nil, custom
	})

	_, err := ft.Call(context.Background(), map[string]any{})
	assert.Same(t, custom, err)
	assert.Equal(t, "tool error [QUOTA] in custom: quota exceeded", err.Error())
}

// -------------------- Typed Tool Tests --------------------

type orderArgs struct {
	UserID    int `json:"user_id" description:"Customer id"`
	ProductID int `json:"product_id" description:"Product id"`
}

func TestTypedTool(t *testing.T) {
	var got orderArgs
	order := NewTypedTool("order_item", "Place an order", func(_ context.Context, a orderArgs) (core.Result, error) {
		got = a
		return core.Text("ok"), nil
	})

	props := order.Parameters()["properties"].(map[string]any)
	assert.Contains(t, props, "user_id")
	assert.Contains(t, props, "product_id")

	res, err := order.Call(context.Background(), map[string]any{"user_id": float64(2), "product_id": float64(9)})
	require.NoError(t, err)
	assert.Equal(t, core.TextResult{Text: "ok"}, res)
	assert.Equal(t, orderArgs{UserID: 2, ProductID: 9}, got)

	_, err = order.Call(context.Background(), map[string]any{"user_id": "two", "product_id": float64(9)})
	assert.True(t, IsValidationError(err))
}

// -------------------- Transfer Tool Tests --------------------

func TestTransferTool(t *testing.T) {
	tr := NewTransferTool("transfer_to_sales", "Sales Agent", "")

	assert.Equal(t, "transfer_to_sales", tr.Name())
	assert.Contains(t, tr.Description(), "Sales Agent")
	assert.Empty(t, tr.Parameters()["properties"])

	res, err := tr.Call(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, core.HandoffResult{Agent: "Sales Agent"}, res)

	target, ok := HandoffTarget(tr)
	assert.True(t, ok)
	assert.Equal(t, "Sales Agent", target)

	_, ok = HandoffTarget(NewTypedTool("x", "x", func(context.Context, orderArgs) (core.Result, error) { return nil, nil }))
	assert.False(t, ok)
}
