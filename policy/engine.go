// Package policy guards tool calls with an OPA (rego) policy.
package policy

import (
	"context"
	"fmt"

	"github.com/hupe1980/shopmesh/engine"
	"github.com/open-policy-agent/opa/rego"
)

// Policy actions.
const (
	ActionAllow = "allow"
	ActionBlock = "block"
)

// Decision is the outcome of a policy evaluation.
type Decision struct {
	Action string
	Reason string
}

// Allowed reports whether the call may proceed.
func (d Decision) Allowed() bool { return d.Action == ActionAllow }

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

var _ engine.Guard = (*Engine)(nil)

// NewEngine creates a new policy engine with the given policy content. The
// module must define data.tool_policy.decision as either a string action or
// an object {"action": ..., "reason": ...}.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.tool_policy.decision"),
		rego.Module("tool_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks the tool policy against input.
func (e *Engine) Evaluate(ctx context.Context, input any) (Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	// The policy defines a default; an undefined result only happens for
	// modules without one.
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Action: ActionAllow, Reason: "default"}, nil
	}

	switch v := results[0].Expressions[0].Value.(type) {
	case string:
		return Decision{Action: v}, nil
	case map[string]any:
		action, _ := v["action"].(string)
		reason, _ := v["reason"].(string)
		if action == "" {
			return Decision{}, fmt.Errorf("policy decision without action: %v", v)
		}
		return Decision{Action: action, Reason: reason}, nil
	default:
		return Decision{}, fmt.Errorf("unexpected policy result type %T", v)
	}
}

// Check implements engine.Guard. Every action other than allow blocks the call.
func (e *Engine) Check(ctx context.Context, c engine.ToolCheck) (bool, string, error) {
	d, err := e.Evaluate(ctx, map[string]any{
		"agent":      c.Agent,
		"tool_name":  c.ToolName,
		"args":       c.Args,
		"user_id":    c.UserID,
		"session_id": c.SessionID,
	})
	if err != nil {
		return false, "", err
	}
	return d.Allowed(), d.Reason, nil
}

// DefaultPolicy allows every tool call except orders and refunds for a
// non-positive customer id.
const DefaultPolicy = `
package tool_policy

default decision = {"action": "allow", "reason": ""}

money_tools = {"order_item", "refund_item"}

decision = {"action": "block", "reason": "user_id must be a positive customer id"} {
	money_tools[input.tool_name]
	input.args.user_id <= 0
}
`
