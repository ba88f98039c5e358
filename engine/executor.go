package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hupe1980/shopmesh/core"
	"github.com/hupe1980/shopmesh/tool"
	"golang.org/x/sync/errgroup"
)

// errBlocked marks tool calls rejected by the guard.
var errBlocked = errors.New("blocked by policy")

type callOutcome struct {
	result core.Result
	err    error
}

// executeCalls runs the prepared calls and returns one outcome per call in
// request order, regardless of completion order.
func (e *Engine) executeCalls(ctx context.Context, agentName string, in TurnInput, calls []preparedCall) []callOutcome {
	outcomes := make([]callOutcome, len(calls))

	if e.cfg.MaxParallelTools < 2 || len(calls) == 1 {
		for i, pc := range calls {
			outcomes[i] = e.executeCall(ctx, agentName, in, pc)
		}
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(e.cfg.MaxParallelTools)
	for i, pc := range calls {
		i, pc := i, pc
		g.Go(func() error {
			outcomes[i] = e.executeCall(ctx, agentName, in, pc)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (e *Engine) executeCall(ctx context.Context, agentName string, in TurnInput, pc preparedCall) (out callOutcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("agent.function.panic",
				"agent", agentName,
				"function", pc.call.Name,
				"recover", r,
				"stack", string(debug.Stack()),
			)
			out = callOutcome{err: fmt.Errorf("tool %s panicked: %v", pc.call.Name, r)}
		}

		fields := []any{
			"agent", agentName,
			"function", pc.call.Name,
			"function_call_id", pc.call.ID,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if out.err != nil {
			fields = append(fields, "error", out.err.Error())
		}
		e.logger.Info("agent.function.executed", fields...)
	}()

	if _, isHandoff := tool.HandoffTarget(pc.tool); !isHandoff && e.guard != nil {
		allowed, reason, err := e.guard.Check(ctx, ToolCheck{
			Agent:     agentName,
			ToolName:  pc.call.Name,
			Args:      pc.args,
			UserID:    in.UserID,
			SessionID: in.SessionID,
		})
		if err != nil {
			e.logger.Error("engine.guard.error",
				"agent", agentName,
				"function", pc.call.Name,
				"error", err.Error(),
			)
			return callOutcome{err: fmt.Errorf("%w: policy check unavailable", errBlocked)}
		}
		if !allowed {
			if reason == "" {
				reason = "not allowed"
			}
			return callOutcome{err: fmt.Errorf("%w: %s", errBlocked, reason)}
		}
	}

	callCtx := ctx
	if e.cfg.ToolTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.cfg.ToolTimeout)
		defer cancel()
	}

	res, err := pc.tool.Call(callCtx, pc.args)
	if err != nil {
		return callOutcome{err: err}
	}
	if res == nil {
		return callOutcome{err: fmt.Errorf("tool %s returned no result", pc.call.Name)}
	}
	return callOutcome{result: res}
}
