package model

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hupe1980/shopmesh/core"
)

// Step produces the next assistant message for a request.
type Step func(req Request) (core.Message, error)

// Reply returns a Step answering with plain text.
func Reply(text string) Step {
	return func(Request) (core.Message, error) {
		return core.Message{Role: core.RoleAssistant, Content: text}, nil
	}
}

// CallTool returns a Step requesting a single tool call. args is marshaled to JSON.
func CallTool(name string, args map[string]any) Step {
	return CallTools(NewToolCall(name, args))
}

// CallTools returns a Step requesting the given tool calls in order.
func CallTools(calls ...core.ToolCall) Step {
	return func(Request) (core.Message, error) {
		out := make([]core.ToolCall, len(calls))
		copy(out, calls)
		return core.Message{Role: core.RoleAssistant, ToolCalls: out}, nil
	}
}

// Fail returns a Step that fails with err.
func Fail(err error) Step {
	return func(Request) (core.Message, error) { return core.Message{}, err }
}

// NewToolCall builds a tool call with a fresh id.
func NewToolCall(name string, args map[string]any) core.ToolCall {
	raw := "{}"
	if args != nil {
		b, _ := json.Marshal(args)
		raw = string(b)
	}
	return core.ToolCall{ID: "call_" + core.NewID(), Name: name, Arguments: raw}
}

// ScriptedModel is a deterministic in-memory Model useful for tests, demos
// and offline development. Each Generate call consumes the next queued Step;
// once the queue is drained the fallback Step answers (if configured).
type ScriptedModel struct {
	mu       sync.Mutex
	info     Info
	steps    []Step
	fallback Step
	requests []Request
}

// NewScriptedModel constructs a ScriptedModel answering with steps in order.
func NewScriptedModel(steps ...Step) *ScriptedModel {
	return &ScriptedModel{
		info:  Info{Name: "scripted", Provider: "scripted", SupportsTools: true},
		steps: steps,
	}
}

// Then appends steps to the script.
func (m *ScriptedModel) Then(steps ...Step) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, steps...)
	return m
}

// WithFallback sets the Step used once the script is exhausted.
func (m *ScriptedModel) WithFallback(s Step) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = s
	return m
}

// Requests returns copies of the requests received so far.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Remaining reports how many queued steps have not been consumed.
func (m *ScriptedModel) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.steps)
}

func (m *ScriptedModel) next(req Request) (Step, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := req
	snapshot.Messages = core.CloneMessages(req.Messages)
	m.requests = append(m.requests, snapshot)
	if len(m.steps) > 0 {
		s := m.steps[0]
		m.steps = m.steps[1:]
		return s, nil
	}
	if m.fallback != nil {
		return m.fallback, nil
	}
	return nil, fmt.Errorf("scripted model exhausted after %d requests", len(m.requests)-1)
}

// Generate implements Model; emits optional streaming char chunks then the final response.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		step, err := m.next(req)
		if err != nil {
			errCh <- err
			return
		}
		msg, err := step(req)
		if err != nil {
			errCh <- err
			return
		}
		msg.Role = core.RoleAssistant

		if req.Stream {
			for _, r := range msg.Content {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{
					Partial: true,
					Message: core.Message{Role: core.RoleAssistant, Content: string(r)},
				}:
				}
			}
		}

		finish := "stop"
		if msg.HasToolCalls() {
			finish = "tool_calls"
		}
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- Response{Partial: false, Message: msg, FinishReason: finish}:
		}
	}()

	return respCh, errCh
}

// Info implements Model interface.
func (m *ScriptedModel) Info() Info { return m.info }
