package agent

import "github.com/hupe1980/shopmesh/internal/util"

// Provider supplies dynamic instruction text at runtime from the turn's
// context variables (for example the customer's user_id).
type Provider interface {
	Instruction(vars map[string]any) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(vars map[string]any) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(vars map[string]any) (string, error) { return f(vars) }

// Instruction represents either a static instruction template or a dynamic provider.
// This mirrors a union of string | provider in a Go-idiomatic way.
type Instruction struct {
	tmpl     *util.Template
	err      error
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static string. The
// text may contain text/template actions over the context variables; it is
// parsed once and a parse error surfaces on every Resolve.
func NewInstructionFromText(text string) Instruction {
	tmpl, err := util.ParseTemplate("instruction", text)
	return Instruction{tmpl: tmpl, err: err}
}

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(vars map[string]any) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a static string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the instruction text, rendering the template or invoking
// the provider if needed.
func (i Instruction) Resolve(vars map[string]any) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(vars)
	}
	if i.err != nil {
		return "", i.err
	}
	if i.tmpl == nil {
		return "", nil
	}
	return i.tmpl.Render(vars)
}
