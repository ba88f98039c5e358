package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/shopmesh/agent"
	"github.com/hupe1980/shopmesh/core"
	"github.com/hupe1980/shopmesh/internal/util"
	"github.com/hupe1980/shopmesh/logging"
	"github.com/hupe1980/shopmesh/model"
	"github.com/hupe1980/shopmesh/tool"
)

// Config defines the bounds of a single turn.
type Config struct {
	// MaxHandoffs limits agent switches within one turn. Exceeding it fails
	// the turn with core.ErrHandoffLimit.
	MaxHandoffs int

	// MaxModelCalls limits model round-trips within one turn. Exceeding it
	// fails the turn with core.ErrTurnLimit.
	MaxModelCalls int

	// MaxParallelTools limits how many tool calls of one model response run
	// concurrently. Values below 2 execute calls sequentially.
	MaxParallelTools int

	// ModelTimeout bounds every model call. Zero disables the timeout.
	ModelTimeout time.Duration

	// ToolTimeout bounds every tool call. Zero disables the timeout.
	ToolTimeout time.Duration

	// Stream requests streamed model output, forwarded to Callbacks.OnPartial.
	Stream bool
}

// DefaultConfig is used when no Config is supplied.
var DefaultConfig = Config{
	MaxHandoffs:      10,
	MaxModelCalls:    25,
	MaxParallelTools: 1,
	ModelTimeout:     60 * time.Second,
	ToolTimeout:      30 * time.Second,
}

// ToolCheck describes a tool call about to be executed.
type ToolCheck struct {
	Agent     string
	ToolName  string
	Args      map[string]any
	UserID    string
	SessionID string
}

// Guard authorizes tool calls. A call that is not allowed is reported to the
// model as an error tool message and never executed.
type Guard interface {
	Check(ctx context.Context, c ToolCheck) (allowed bool, reason string, err error)
}

// Options configures an Engine.
type Options struct {
	Config Config

	// Guard is consulted before every non-handoff tool call. Optional.
	Guard Guard

	// Logger defaults to a no-op logger.
	Logger logging.Logger
}

// Engine runs conversation turns over an agent registry.
type Engine struct {
	model    model.Model
	registry *agent.Registry
	cfg      Config
	guard    Guard
	logger   logging.Logger
}

// New creates an Engine. Zero bounds in the supplied Config fall back to the
// DefaultConfig values.
func New(m model.Model, reg *agent.Registry, optFns ...func(o *Options)) *Engine {
	opts := Options{Config: DefaultConfig}
	for _, fn := range optFns {
		fn(&opts)
	}

	cfg := opts.Config
	if cfg.MaxHandoffs <= 0 {
		cfg.MaxHandoffs = DefaultConfig.MaxHandoffs
	}
	if cfg.MaxModelCalls <= 0 {
		cfg.MaxModelCalls = DefaultConfig.MaxModelCalls
	}
	if cfg.MaxParallelTools <= 0 {
		cfg.MaxParallelTools = 1
	}

	return &Engine{
		model:    m,
		registry: reg,
		cfg:      cfg,
		guard:    opts.Guard,
		logger:   logging.OrNoOp(opts.Logger),
	}
}

// Registry returns the agent registry the engine runs on.
func (e *Engine) Registry() *agent.Registry { return e.registry }

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// TurnInput is the input of a single turn.
type TurnInput struct {
	UserID    string
	SessionID string

	// Agent is the active agent at the start of the turn. Empty selects the
	// registry's entry agent.
	Agent string

	// History is the prior conversation. It is never modified.
	History []core.Message

	// Text is the user's message. Surrounding whitespace is trimmed.
	Text string

	// Vars are rendered into agent instructions. user_id and session_id are
	// added when absent.
	Vars map[string]any

	Callbacks *Callbacks
}

// TurnResult is the outcome of a completed turn.
type TurnResult struct {
	// Agent is the active agent at the end of the turn.
	Agent string

	// History is the input history extended by New.
	History []core.Message

	// New holds the messages added during the turn, starting with the user message.
	New []core.Message

	Hops       int
	ModelCalls int
}

// Reply returns the content of the last assistant message of the turn.
func (r TurnResult) Reply() string {
	for i := len(r.New) - 1; i >= 0; i-- {
		if m := r.New[i]; m.Role == core.RoleAssistant && !m.Handoff {
			return m.Content
		}
	}
	return ""
}

// RunTurn runs one user turn to completion.
func (e *Engine) RunTurn(ctx context.Context, in TurnInput) (TurnResult, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return TurnResult{}, core.ErrEmptyMessage
	}

	active := e.registry.Entry()
	if in.Agent != "" {
		a, err := e.registry.Lookup(in.Agent)
		if err != nil {
			return TurnResult{}, err
		}
		active = a
	}

	vars := turnVars(in)
	cb := in.Callbacks

	history := core.CloneMessages(in.History)
	start := len(history)
	appendMsg := func(m core.Message) {
		history = append(history, m)
		cb.message(m)
	}

	e.logger.Info("engine.turn.start",
		"user_id", in.UserID,
		"session_id", in.SessionID,
		"agent", active.Name(),
		"history", start,
	)
	turnStart := time.Now()

	appendMsg(core.NewUserMessage(text))

	modelCalls := core.NewBudget(e.cfg.MaxModelCalls, core.ErrTurnLimit)
	handoffs := core.NewBudget(e.cfg.MaxHandoffs, core.ErrHandoffLimit)
	calls := modelCalls.Used
	hops := handoffs.Used
	fail := func(err error) (TurnResult, error) {
		e.logger.Error("engine.turn.failed",
			"user_id", in.UserID,
			"session_id", in.SessionID,
			"agent", active.Name(),
			"hops", hops(),
			"model_calls", calls(),
			"error", err.Error(),
		)
		return TurnResult{Agent: active.Name(), Hops: hops(), ModelCalls: calls()}, err
	}

	for {
		if err := modelCalls.Spend(); err != nil {
			return fail(err)
		}

		instructions, err := active.Instructions(vars)
		if err != nil {
			return fail(fmt.Errorf("render instructions of %q: %w", active.Name(), err))
		}

		req := model.Request{
			Instructions: instructions,
			Messages:     core.CloneMessages(history),
			Tools:        active.ToolDefinitions(),
			Stream:       e.cfg.Stream,
		}

		resp, err := e.generate(ctx, active.Name(), req, cb)
		if err != nil {
			return fail(fmt.Errorf("%w: %w", core.ErrModel, err))
		}

		reply := resp.Message.Clone()
		reply.Role = core.RoleAssistant
		reply.Sender = active.Name()
		reply.Handoff = false
		ensureCallIDs(reply.ToolCalls)
		appendMsg(reply)

		if !reply.HasToolCalls() {
			break
		}

		prepared, err := prepareCalls(active, reply.ToolCalls)
		if err != nil {
			return fail(err)
		}

		outcomes := e.executeCalls(ctx, active.Name(), in, prepared)

		next := ""
		for i, o := range outcomes {
			call := prepared[i].call
			if o.err != nil && tool.IsValidationError(o.err) {
				return fail(o.err)
			}

			cb.toolResult(call, o.result, o.err)

			content := ""
			if o.err != nil {
				content = errorContent(call.Name, o.err)
			} else {
				content = core.ResultContent(o.result)
				if h, ok := o.result.(core.HandoffResult); ok && next == "" {
					next = h.Agent
				}
			}
			appendMsg(core.NewToolMessage(call.ID, call.Name, content))
		}

		if next == "" {
			continue
		}

		if err := handoffs.Spend(); err != nil {
			return fail(err)
		}

		target, err := e.registry.Lookup(next)
		if err != nil {
			return fail(err)
		}

		e.logger.Info("engine.handoff",
			"session_id", in.SessionID,
			"from", active.Name(),
			"to", target.Name(),
			"hop", hops(),
		)

		appendMsg(core.NewHandoffMessage(target.Name()))
		cb.handoff(active.Name(), target.Name())
		active = target
	}

	e.logger.Info("engine.turn.completed",
		"user_id", in.UserID,
		"session_id", in.SessionID,
		"agent", active.Name(),
		"hops", hops(),
		"model_calls", calls(),
		"messages", len(history)-start,
		"duration_ms", time.Since(turnStart).Milliseconds(),
	)

	return TurnResult{
		Agent:      active.Name(),
		History:    history,
		New:        history[start:len(history):len(history)],
		Hops:       hops(),
		ModelCalls: calls(),
	}, nil
}

func (e *Engine) generate(ctx context.Context, agentName string, req model.Request, cb *Callbacks) (model.Response, error) {
	if e.cfg.ModelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ModelTimeout)
		defer cancel()
	}

	e.logger.Debug("engine.model.request",
		"agent", agentName,
		"messages", len(req.Messages),
		"tools", len(req.Tools),
	)

	return model.Collect(ctx, e.model, req, func(r model.Response) {
		cb.partial(agentName, r.Message.Content)
	})
}

func turnVars(in TurnInput) map[string]any {
	vars := make(map[string]any, len(in.Vars)+2)
	for k, v := range in.Vars {
		vars[k] = v
	}
	if _, ok := vars["user_id"]; !ok && in.UserID != "" {
		vars["user_id"] = in.UserID
	}
	if _, ok := vars["session_id"]; !ok && in.SessionID != "" {
		vars["session_id"] = in.SessionID
	}
	return vars
}

func ensureCallIDs(calls []core.ToolCall) {
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = "call_" + core.NewID()
		}
	}
}

// preparedCall is a tool call resolved against the active agent with decoded
// and schema-checked arguments.
type preparedCall struct {
	call core.ToolCall
	tool tool.Tool
	args map[string]any
}

// prepareCalls resolves every call before any of them runs so a contract
// violation never leaves half of a response executed.
func prepareCalls(a *agent.Agent, calls []core.ToolCall) ([]preparedCall, error) {
	out := make([]preparedCall, 0, len(calls))
	for _, c := range calls {
		t, ok := a.Tool(c.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not bound to agent %q", core.ErrUnknownTool, c.Name, a.Name())
		}
		args, err := util.ParseArgs(c.Arguments)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", core.ErrInvalidArguments, c.Name, err)
		}
		if err := util.ValidateParameters(args, t.Parameters()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", core.ErrInvalidArguments, c.Name, err)
		}
		out = append(out, preparedCall{call: c, tool: t, args: args})
	}
	return out, nil
}

// errorContent renders an absorbed tool failure for the conversation. Policy
// reasons are authored text and pass through; every other cause stays in the
// logs only.
func errorContent(toolName string, err error) string {
	switch {
	case errors.Is(err, errBlocked):
		return core.ToolErrorPrefix + err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return core.ToolErrorPrefix + fmt.Sprintf("%s timed out. Please try again later.", toolName)
	default:
		return core.ToolErrorPrefix + fmt.Sprintf("%s is temporarily unavailable.", toolName)
	}
}
