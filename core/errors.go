package core

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned by lookups when no record matches.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an append-only record id already exists.
	ErrConflict = errors.New("record already exists")

	// ErrInvalidScope is returned when user_id or session_id is empty.
	ErrInvalidScope = errors.New("user_id and session_id must be non-empty")

	// ErrEmptyMessage is returned when a user submits blank text.
	ErrEmptyMessage = errors.New("message text is empty")

	// ErrUnknownAgent is returned when an agent name is not registered.
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrUnknownTool is returned when the model requests a tool the active
	// agent does not expose. It indicates model/tool contract drift.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidArguments is returned when tool arguments are malformed or do
	// not satisfy the tool schema.
	ErrInvalidArguments = errors.New("invalid tool arguments")

	// ErrHandoffLimit is returned when a turn exceeds the handoff budget.
	ErrHandoffLimit = errors.New("handoff limit exceeded")

	// ErrTurnLimit is returned when a turn exceeds the model call budget.
	ErrTurnLimit = errors.New("model call limit exceeded")

	// ErrModel wraps failures of the reasoning capability.
	ErrModel = errors.New("model failure")

	// ErrPersistence wraps conversation store failures.
	ErrPersistence = errors.New("persistence failure")
)

// ValidateScope checks the (user_id, session_id) partition key.
func ValidateScope(userID, sessionID string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(sessionID) == "" {
		return ErrInvalidScope
	}
	return nil
}

// IsProgrammingError reports whether err signals model/tool contract drift
// (unknown tool, malformed arguments) rather than a transient failure.
func IsProgrammingError(err error) bool {
	return errors.Is(err, ErrUnknownTool) || errors.Is(err, ErrInvalidArguments) || errors.Is(err, ErrUnknownAgent)
}
