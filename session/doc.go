// Package session provides conversation persistence and active-agent state
// backends.
//
// Every store partitions data by (user_id, session_id), rejects an empty
// partition key with core.ErrInvalidScope and appends batches atomically:
// either every message of a batch becomes visible or none does. Stores assign
// message IDs and timestamps; producers leave them empty.
//
// Backends:
//   - InMemoryStore: process-local maps (tests, demos)
//   - SQLiteStore: database/sql + mattn/go-sqlite3
//   - PostgresStore: uptrace/bun over pgdriver
//   - RedisAgentStateStore: active-agent marker only, with TTL
package session
