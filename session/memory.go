package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/shopmesh/core"
)

type scope struct{ userID, sessionID string }

// InMemoryStore is a volatile ConversationStore and AgentStateStore keeping
// conversations in a process local map. It is safe for concurrent access and
// best suited for tests or ephemeral demo servers. Messages are cloned on the
// way in and out to prevent external mutation of internal state.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[scope][]core.Message
	agents        map[scope]string
	now           Clock
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		conversations: make(map[scope][]core.Message),
		agents:        make(map[scope]string),
		now:           defaultClock,
	}
}

// AppendBatch validates the whole batch before appending it under the write
// lock, so a rejected batch leaves the conversation untouched.
func (s *InMemoryStore) AppendBatch(ctx context.Context, userID, sessionID string, msgs []core.Message) ([]core.Message, error) {
	if err := core.ValidateScope(userID, sessionID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrPersistence, err)
	}
	if err := validateBatch(msgs); err != nil {
		return nil, err
	}

	stored := stamp(userID, sessionID, msgs, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()
	key := scope{userID, sessionID}
	s.conversations[key] = append(s.conversations[key], core.CloneMessages(stored)...)
	return stored, nil
}

// ReadAll returns a copy of the conversation in write order.
func (s *InMemoryStore) ReadAll(_ context.Context, userID, sessionID string) ([]core.Message, error) {
	if err := core.ValidateScope(userID, sessionID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.CloneMessages(s.conversations[scope{userID, sessionID}]), nil
}

// LoadActiveAgent returns the stored active agent or core.ErrNotFound.
func (s *InMemoryStore) LoadActiveAgent(_ context.Context, userID, sessionID string) (string, error) {
	if err := core.ValidateScope(userID, sessionID); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	agent, ok := s.agents[scope{userID, sessionID}]
	if !ok {
		return "", core.ErrNotFound
	}
	return agent, nil
}

// SaveActiveAgent records the active agent of the session.
func (s *InMemoryStore) SaveActiveAgent(_ context.Context, userID, sessionID, agent string) error {
	if err := core.ValidateScope(userID, sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[scope{userID, sessionID}] = agent
	return nil
}
