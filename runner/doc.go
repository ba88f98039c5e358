// Package runner is the turn entry point used by the HTTP server, the REPL and
// the examples.
//
// The Runner wraps an engine.Engine with everything a single turn needs
// around the pure orchestration loop:
//   - scope validation and per-session serialization of turns
//   - active agent resolution (explicit name, stored marker, entry agent)
//   - history restoration from the conversation store
//   - atomic persistence of the turn's messages and the next active agent
//   - projection of the new messages into display lines
//
// Collaborator failures never leak to the caller's display: the reply carries
// a generic "try again" message, the prior history is returned unchanged and
// the full error is logged and returned for classification.
package runner
