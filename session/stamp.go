package session

import (
	"fmt"
	"time"

	"github.com/hupe1980/shopmesh/core"
)

// Clock returns the persistence timestamp. Timestamps are UTC and truncated
// to microseconds so every backend round-trips them unchanged.
type Clock func() time.Time

func defaultClock() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// validateBatch rejects messages a conversation may never contain.
func validateBatch(msgs []core.Message) error {
	for i, m := range msgs {
		if !m.Role.Valid() {
			return fmt.Errorf("%w: message %d has invalid role %q", core.ErrPersistence, i, m.Role)
		}
	}
	return nil
}

// stamp returns stored copies of msgs carrying fresh IDs, the partition key
// and the persistence time.
func stamp(userID, sessionID string, msgs []core.Message, now time.Time) []core.Message {
	out := make([]core.Message, len(msgs))
	for i, m := range msgs {
		m = m.Clone()
		m.ID = core.NewID()
		m.UserID = userID
		m.SessionID = sessionID
		m.CreatedAt = now
		out[i] = m
	}
	return out
}
