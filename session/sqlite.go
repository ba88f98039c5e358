package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/shopmesh/core"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements ConversationStore and AgentStateStore using SQLite.
// Write order is kept by an autoincrement sequence; a batch is written in one
// SQL transaction.
type SQLiteStore struct {
	db  *sql.DB
	now Clock
}

// NewSQLiteStore opens the database at dsn and runs migrations. Use
// ":memory:" for an ephemeral database.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db, now: defaultClock}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL CHECK (role IN ('user', 'assistant', 'tool')),
			content TEXT NOT NULL,
			sender TEXT NOT NULL DEFAULT '',
			tool_name TEXT NOT NULL DEFAULT '',
			tool_call_id TEXT NOT NULL DEFAULT '',
			tool_calls TEXT,
			handoff INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_scope ON messages(user_id, session_id, seq)`,
		`CREATE TABLE IF NOT EXISTS agent_states (
			user_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			agent TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, session_id)
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// AppendBatch inserts msgs in one transaction. Any failing row (including a
// role rejected by the CHECK constraint) rolls back the whole batch.
func (s *SQLiteStore) AppendBatch(ctx context.Context, userID, sessionID string, msgs []core.Message) ([]core.Message, error) {
	if err := core.ValidateScope(userID, sessionID); err != nil {
		return nil, err
	}

	stored := stamp(userID, sessionID, msgs, s.now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", core.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO messages
		(message_id, user_id, session_id, role, content, sender, tool_name, tool_call_id, tool_calls, handoff, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("%w: prepare: %v", core.ErrPersistence, err)
	}
	defer stmt.Close()

	for i, m := range stored {
		calls, err := encodeToolCalls(m.ToolCalls)
		if err != nil {
			return nil, fmt.Errorf("%w: message %d: %v", core.ErrPersistence, i, err)
		}
		if _, err := stmt.ExecContext(ctx,
			m.ID, m.UserID, m.SessionID, string(m.Role), m.Content, m.Sender,
			m.ToolName, m.ToolCallID, calls, m.Handoff, m.CreatedAt.UnixNano(),
		); err != nil {
			return nil, fmt.Errorf("%w: insert message %d: %v", core.ErrPersistence, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", core.ErrPersistence, err)
	}
	return stored, nil
}

// ReadAll returns the conversation in write order.
func (s *SQLiteStore) ReadAll(ctx context.Context, userID, sessionID string) ([]core.Message, error) {
	if err := core.ValidateScope(userID, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT message_id, role, content, sender, tool_name, tool_call_id, tool_calls, handoff, created_at
		FROM messages WHERE user_id = ? AND session_id = ? ORDER BY seq ASC`, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", core.ErrPersistence, err)
	}
	defer rows.Close()

	out := []core.Message{}
	for rows.Next() {
		var (
			m       core.Message
			role    string
			calls   sql.NullString
			created int64
		)
		if err := rows.Scan(&m.ID, &role, &m.Content, &m.Sender, &m.ToolName, &m.ToolCallID, &calls, &m.Handoff, &created); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", core.ErrPersistence, err)
		}
		m.Role = core.Role(role)
		m.UserID = userID
		m.SessionID = sessionID
		m.CreatedAt = time.Unix(0, created).UTC()
		if m.ToolCalls, err = decodeToolCalls(calls); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrPersistence, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrPersistence, err)
	}
	return out, nil
}

// LoadActiveAgent returns the stored active agent or core.ErrNotFound.
func (s *SQLiteStore) LoadActiveAgent(ctx context.Context, userID, sessionID string) (string, error) {
	if err := core.ValidateScope(userID, sessionID); err != nil {
		return "", err
	}
	var agent string
	err := s.db.QueryRowContext(ctx,
		`SELECT agent FROM agent_states WHERE user_id = ? AND session_id = ?`, userID, sessionID,
	).Scan(&agent)
	if errors.Is(err, sql.ErrNoRows) {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrPersistence, err)
	}
	return agent, nil
}

// SaveActiveAgent upserts the active agent of the session.
func (s *SQLiteStore) SaveActiveAgent(ctx context.Context, userID, sessionID, agent string) error {
	if err := core.ValidateScope(userID, sessionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO agent_states (user_id, session_id, agent, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, session_id) DO UPDATE SET agent = excluded.agent, updated_at = excluded.updated_at`,
		userID, sessionID, agent, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrPersistence, err)
	}
	return nil
}

func encodeToolCalls(calls []core.ToolCall) (sql.NullString, error) {
	if len(calls) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(calls)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeToolCalls(raw sql.NullString) ([]core.ToolCall, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var calls []core.ToolCall
	if err := json.Unmarshal([]byte(raw.String), &calls); err != nil {
		return nil, fmt.Errorf("decode tool calls: %w", err)
	}
	return calls, nil
}
