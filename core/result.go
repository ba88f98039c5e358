package core

import "encoding/json"

// Result is the outcome of a tool invocation. Concrete result types implement
// the unexported isResult marker enabling a closed set: TextResult or
// HandoffResult.
type Result interface{ isResult() }

// TextResult is plain text fed back to the agent as a tool message.
type TextResult struct {
	Text string
	// Miss marks lookup misses (unknown user, purchase or product). The text
	// is still surfaced conversationally; callers may branch on the flag.
	Miss bool
}

// isResult implements the Result interface for TextResult.
func (TextResult) isResult() {}

// HandoffResult transfers control to the named agent.
type HandoffResult struct {
	Agent string
}

// isResult implements the Result interface for HandoffResult.
func (HandoffResult) isResult() {}

// Text returns a TextResult.
func Text(s string) Result { return TextResult{Text: s} }

// Miss returns a TextResult flagged as lookup miss.
func Miss(s string) Result { return TextResult{Text: s, Miss: true} }

// Handoff returns a HandoffResult targeting agent.
func Handoff(agent string) Result { return HandoffResult{Agent: agent} }

// ResultContent renders a result as tool message content. Handoffs are
// rendered as {"assistant":"<agent>"}.
func ResultContent(r Result) string {
	switch v := r.(type) {
	case TextResult:
		return v.Text
	case HandoffResult:
		b, _ := json.Marshal(map[string]string{"assistant": v.Agent})
		return string(b)
	default:
		return ""
	}
}
