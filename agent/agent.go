package agent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/shopmesh/model"
	"github.com/hupe1980/shopmesh/tool"
)

// Handoff declares that an agent may transfer control to Target by calling
// the tool named Tool. An empty Tool is derived from the first word of the
// target name: "Sales Agent" -> "transfer_to_sales".
type Handoff struct {
	Tool        string
	Target      string
	Description string
}

// Options configures an Agent.
type Options struct {
	Description string
	Instruction Instruction
	Tools       []tool.Tool
	Handoffs    []Handoff
}

// Agent is an immutable agent configuration.
type Agent struct {
	name        string
	description string
	instruction Instruction
	tools       []tool.Tool // declaration order, handoff tools last
	byName      map[string]tool.Tool
	handoffs    []Handoff
}

// New builds an agent. Tool names must be unique across regular and handoff
// tools.
func New(name string, optFns ...func(o *Options)) (*Agent, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("agent name must not be empty")
	}

	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	a := &Agent{
		name:        name,
		description: opts.Description,
		instruction: opts.Instruction,
		byName:      make(map[string]tool.Tool, len(opts.Tools)+len(opts.Handoffs)),
	}

	add := func(t tool.Tool) error {
		if t == nil {
			return fmt.Errorf("agent %q: nil tool", name)
		}
		if _, dup := a.byName[t.Name()]; dup {
			return fmt.Errorf("agent %q: duplicate tool %q", name, t.Name())
		}
		a.byName[t.Name()] = t
		a.tools = append(a.tools, t)
		return nil
	}

	for _, t := range opts.Tools {
		if err := add(t); err != nil {
			return nil, err
		}
	}

	for _, h := range opts.Handoffs {
		if strings.TrimSpace(h.Target) == "" {
			return nil, fmt.Errorf("agent %q: handoff target must not be empty", name)
		}
		if h.Tool == "" {
			h.Tool = HandoffToolName(h.Target)
		}
		if err := add(tool.NewTransferTool(h.Tool, h.Target, h.Description)); err != nil {
			return nil, err
		}
		a.handoffs = append(a.handoffs, h)
	}

	return a, nil
}

// MustNew is like New but panics on error.
func MustNew(name string, optFns ...func(o *Options)) *Agent {
	a, err := New(name, optFns...)
	if err != nil {
		panic(err)
	}
	return a
}

// HandoffToolName derives the transfer tool name for target.
func HandoffToolName(target string) string {
	fields := strings.Fields(strings.ToLower(target))
	if len(fields) == 0 {
		return "transfer_to_agent"
	}
	return "transfer_to_" + fields[0]
}

// Name returns the agent's unique name.
func (a *Agent) Name() string { return a.name }

// Description returns the agent's description.
func (a *Agent) Description() string { return a.description }

// Instructions renders the agent's instructions for the given context variables.
func (a *Agent) Instructions(vars map[string]any) (string, error) {
	return a.instruction.Resolve(vars)
}

// Tools returns the bound tools, handoff tools last.
func (a *Agent) Tools() []tool.Tool {
	out := make([]tool.Tool, len(a.tools))
	copy(out, a.tools)
	return out
}

// Tool resolves a bound tool by name.
func (a *Agent) Tool(name string) (tool.Tool, bool) {
	t, ok := a.byName[name]
	return t, ok
}

// Handoffs returns the declared handoffs with tool names filled in.
func (a *Agent) Handoffs() []Handoff {
	out := make([]Handoff, len(a.handoffs))
	copy(out, a.handoffs)
	return out
}

// ToolDefinitions describes the bound tools for a model request.
func (a *Agent) ToolDefinitions() []model.ToolDefinition {
	defs := make([]model.ToolDefinition, len(a.tools))
	for i, t := range a.tools {
		defs[i] = model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		}
	}
	return defs
}
