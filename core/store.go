package core

import "context"

// ConversationStore persists session scoped, append-only conversations.
//
// Contract:
//   - AppendBatch is atomic: either every message of the batch becomes
//     visible or none does
//   - The store assigns a fresh ID (and CreatedAt, UserID, SessionID) to each
//     message and returns the stored copies in batch order
//   - ReadAll returns the conversation in write order, or an empty slice when
//     the pair is unknown
//   - Concurrent appends to the same partition are serialized by the store
type ConversationStore interface {
	AppendBatch(ctx context.Context, userID, sessionID string, msgs []Message) ([]Message, error)
	ReadAll(ctx context.Context, userID, sessionID string) ([]Message, error)
}

// AgentStateStore persists the active agent of a session between turns.
// LoadActiveAgent returns ErrNotFound when no marker exists.
type AgentStateStore interface {
	LoadActiveAgent(ctx context.Context, userID, sessionID string) (string, error)
	SaveActiveAgent(ctx context.Context, userID, sessionID, agent string) error
}
