// Package agent defines immutable agent configurations and the registry the
// orchestration loop resolves them from.
//
// An Agent is a named bundle of instructions, tools and handoffs. Handoffs
// are bound as zero-argument transfer_to_* tools when the agent is built, so
// the model sees them like any other tool. Agents never change after New
// returns; accessors hand out copies.
//
// The Registry validates the agent graph once (unique names, unique tool
// names per agent, existing handoff targets) and designates the entry agent
// new sessions start with. NewShopRegistry wires the reference customer
// service agents: Triage, Sales, Refunds and Product.
package agent
