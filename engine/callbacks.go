package engine

import (
	"github.com/hupe1980/shopmesh/core"
)

// Callbacks observe a running turn. All fields are optional and are invoked
// synchronously from the goroutine running the turn.
type Callbacks struct {
	// OnMessage is called for every message appended to the history,
	// including the user message and handoff markers.
	OnMessage func(msg core.Message)

	// OnPartial receives streamed assistant text when Config.Stream is set.
	OnPartial func(agent, text string)

	// OnToolResult is called once per tool call after it finished. err is
	// non-nil when the call failed and the failure was reported to the model.
	OnToolResult func(call core.ToolCall, res core.Result, err error)

	// OnHandoff is called when control moves from one agent to another.
	OnHandoff func(from, to string)
}

func (c *Callbacks) message(msg core.Message) {
	if c != nil && c.OnMessage != nil {
		c.OnMessage(msg)
	}
}

func (c *Callbacks) partial(agent, text string) {
	if c != nil && c.OnPartial != nil {
		c.OnPartial(agent, text)
	}
}

func (c *Callbacks) toolResult(call core.ToolCall, res core.Result, err error) {
	if c != nil && c.OnToolResult != nil {
		c.OnToolResult(call, res, err)
	}
}

func (c *Callbacks) handoff(from, to string) {
	if c != nil && c.OnHandoff != nil {
		c.OnHandoff(from, to)
	}
}
