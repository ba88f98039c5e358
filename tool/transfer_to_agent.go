package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/shopmesh/core"
)

// transferTool hands control to a fixed target agent.
type transferTool struct {
	name        string
	target      string
	description string
}

// NewTransferTool constructs a zero-argument handoff tool. Calling it always
// succeeds and yields core.HandoffResult{Agent: target}.
func NewTransferTool(name, target, description string) Tool {
	if description == "" {
		description = fmt.Sprintf("Transfer the conversation to the %s.", target)
	}
	return &transferTool{name: name, target: target, description: description}
}

func (t *transferTool) Name() string { return t.name }

func (t *transferTool) Description() string { return t.description }

func (t *transferTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

// Target returns the agent this tool transfers to.
func (t *transferTool) Target() string { return t.target }

func (t *transferTool) Call(context.Context, map[string]any) (core.Result, error) {
	return core.Handoff(t.target), nil
}

// HandoffTarget reports the target of a tool built by NewTransferTool.
func HandoffTarget(t Tool) (string, bool) {
	tt, ok := t.(*transferTool)
	if !ok {
		return "", false
	}
	return tt.target, true
}
