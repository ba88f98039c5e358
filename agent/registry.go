package agent

import (
	"fmt"

	"github.com/hupe1980/shopmesh/core"
)

// Registry is the validated, read-only set of agents of a deployment.
type Registry struct {
	entry  string
	agents map[string]*Agent
	order  []string
}

// NewRegistry validates agents and designates entry as the agent new
// sessions start with. Agent names must be unique and every handoff target
// must be registered.
func NewRegistry(entry string, agents ...*Agent) (*Registry, error) {
	r := &Registry{entry: entry, agents: make(map[string]*Agent, len(agents))}
	for _, a := range agents {
		if a == nil {
			return nil, fmt.Errorf("registry: nil agent")
		}
		if _, dup := r.agents[a.Name()]; dup {
			return nil, fmt.Errorf("registry: duplicate agent %q", a.Name())
		}
		r.agents[a.Name()] = a
		r.order = append(r.order, a.Name())
	}

	if _, ok := r.agents[entry]; !ok {
		return nil, fmt.Errorf("registry: entry agent %q: %w", entry, core.ErrUnknownAgent)
	}

	for _, a := range agents {
		for _, h := range a.Handoffs() {
			if _, ok := r.agents[h.Target]; !ok {
				return nil, fmt.Errorf("registry: agent %q hands off to %q: %w", a.Name(), h.Target, core.ErrUnknownAgent)
			}
		}
	}

	return r, nil
}

// Lookup returns the agent registered under name.
func (r *Registry) Lookup(name string) (*Agent, error) {
	a, ok := r.agents[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownAgent, name)
	}
	return a, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.agents[name]
	return ok
}

// Entry returns the entry agent.
func (r *Registry) Entry() *Agent { return r.agents[r.entry] }

// Agents returns all agents in registration order.
func (r *Registry) Agents() []*Agent {
	out := make([]*Agent, len(r.order))
	for i, name := range r.order {
		out[i] = r.agents[name]
	}
	return out
}
