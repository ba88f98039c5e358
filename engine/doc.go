// Package engine drives a single conversation turn across cooperating agents.
//
// A turn starts with the user's message and alternates between the active
// agent's model call and the execution of the tool calls it requested. Tool
// results are appended as tool messages; a handoff result appends a marker
// message and swaps the active agent before the model is asked again. The
// turn ends when the model replies without requesting tools.
//
// The engine never persists anything and never mutates the caller's history;
// RunTurn returns the extended history and the messages it added so the
// caller can commit them in one batch.
//
// Bounds:
//   - MaxHandoffs caps agent switches per turn (ErrHandoffLimit)
//   - MaxModelCalls caps model round-trips per turn (ErrTurnLimit)
//   - ModelTimeout and ToolTimeout bound every individual call
//
// Unknown tools and malformed arguments fail the turn because they indicate a
// drift between the model's tool contract and the bound tools. Tool execution
// failures are reported back to the model as tool messages instead.
package engine
