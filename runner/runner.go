package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/shopmesh/core"
	"github.com/hupe1980/shopmesh/engine"
	"github.com/hupe1980/shopmesh/logging"
	"github.com/hupe1980/shopmesh/session"
)

// RetryMessage is shown when a turn fails for reasons the customer cannot fix.
const RetryMessage = "Sorry, something went wrong on our side. Please try again in a moment."

// Options holds dependency overrides passed to New().
type Options struct {
	// Conversations persists the message log. Defaults to an in-memory store.
	Conversations core.ConversationStore
	// AgentStates persists the active agent between turns. Defaults to the
	// conversation store when it implements core.AgentStateStore.
	AgentStates core.AgentStateStore
	// Vars are merged into every turn's instruction variables.
	Vars map[string]any
	// Logging services.
	Logger logging.Logger
}

// Runner submits user turns to the engine and persists their outcome.
// Public methods are safe for concurrent use.
type Runner struct {
	engine        *engine.Engine
	conversations core.ConversationStore
	agentStates   core.AgentStateStore
	vars          map[string]any
	logger        logging.Logger

	mu         sync.Mutex
	locks      map[string]*sessionLock
	activeRuns map[string]context.CancelFunc
}

// sessionLock is a 1-buffered channel used as a mutex so waiters can give up
// when their context ends.
type sessionLock struct {
	ch   chan struct{}
	refs int
}

// New constructs a Runner with optional overrides.
func New(eng *engine.Engine, optFns ...func(o *Options)) *Runner {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Conversations == nil {
		opts.Conversations = session.NewInMemoryStore()
	}
	if opts.AgentStates == nil {
		if as, ok := opts.Conversations.(core.AgentStateStore); ok {
			opts.AgentStates = as
		} else {
			opts.AgentStates = session.NewInMemoryStore()
		}
	}

	return &Runner{
		engine:        eng,
		conversations: opts.Conversations,
		agentStates:   opts.AgentStates,
		vars:          opts.Vars,
		logger:        logging.OrNoOp(opts.Logger),
		locks:         make(map[string]*sessionLock),
		activeRuns:    make(map[string]context.CancelFunc),
	}
}

// Submission is the input of SubmitUserMessage.
type Submission struct {
	UserID    string
	SessionID string

	// AgentName is the active agent as tracked by the caller. Empty restores
	// the stored marker, falling back to the entry agent.
	AgentName string

	// History is the conversation as tracked by the caller. Nil restores it
	// from the conversation store.
	History []core.Message

	Text string

	// Vars are rendered into agent instructions for this turn only.
	Vars map[string]any

	Callbacks *engine.Callbacks
}

// Reply is the outcome of a submitted turn.
type Reply struct {
	// Display holds the turn's new messages formatted for rendering.
	Display []DisplayMessage
	// NextAgent is the active agent for the next turn.
	NextAgent string
	// History is the updated conversation, or the prior one if the turn failed.
	History []core.Message
	// Messages are the stored copies of the turn's new messages.
	Messages []core.Message
}

// SubmitUserMessage runs one user turn end to end. Turns of the same
// (user_id, session_id) are serialized.
//
// On failure the returned Reply still carries a displayable retry message,
// the starting agent and the unchanged prior history.
func (r *Runner) SubmitUserMessage(ctx context.Context, sub Submission) (Reply, error) {
	if err := core.ValidateScope(sub.UserID, sub.SessionID); err != nil {
		return Reply{NextAgent: sub.AgentName, History: sub.History}, err
	}
	if strings.TrimSpace(sub.Text) == "" {
		return Reply{NextAgent: sub.AgentName, History: sub.History}, core.ErrEmptyMessage
	}

	key := sessionKey(sub.UserID, sub.SessionID)
	unlock, err := r.lock(ctx, key)
	if err != nil {
		return Reply{NextAgent: sub.AgentName, History: sub.History}, err
	}
	defer unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.mu.Lock()
	r.activeRuns[key] = cancel
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.activeRuns, key)
		r.mu.Unlock()
	}()

	agentName := r.resolveAgent(ctx, sub)

	history := sub.History
	if history == nil {
		stored, err := r.conversations.ReadAll(ctx, sub.UserID, sub.SessionID)
		if err != nil {
			return r.failed(sub, agentName, nil, fmt.Errorf("restore history: %w", err))
		}
		history = stored
	}

	res, err := r.engine.RunTurn(ctx, engine.TurnInput{
		UserID:    sub.UserID,
		SessionID: sub.SessionID,
		Agent:     agentName,
		History:   history,
		Text:      sub.Text,
		Vars:      r.turnVars(sub.Vars),
		Callbacks: sub.Callbacks,
	})
	if err != nil {
		return r.failed(sub, agentName, history, err)
	}

	stored, err := r.conversations.AppendBatch(ctx, sub.UserID, sub.SessionID, res.New)
	if err != nil {
		return r.failed(sub, agentName, history, err)
	}

	if err := r.agentStates.SaveActiveAgent(ctx, sub.UserID, sub.SessionID, res.Agent); err != nil {
		// The messages are committed; the marker only speeds up restoration
		// and the caller still learns the next agent from the reply.
		r.logger.Warn("runner.agent_state.save_failed",
			"user_id", sub.UserID,
			"session_id", sub.SessionID,
			"agent", res.Agent,
			"error", err.Error(),
		)
	}

	updated := make([]core.Message, 0, len(history)+len(stored))
	updated = append(updated, core.CloneMessages(history)...)
	updated = append(updated, stored...)

	r.logger.Info("runner.turn.completed",
		"user_id", sub.UserID,
		"session_id", sub.SessionID,
		"agent", agentName,
		"next_agent", res.Agent,
		"messages", len(stored),
		"hops", res.Hops,
	)

	return Reply{
		Display:   FormatMessages(stored),
		NextAgent: res.Agent,
		History:   updated,
		Messages:  stored,
	}, nil
}

// History returns the stored conversation of a session formatted for display.
func (r *Runner) History(ctx context.Context, userID, sessionID string) ([]DisplayMessage, error) {
	msgs, err := r.conversations.ReadAll(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return FormatMessages(msgs), nil
}

// Messages returns the stored conversation of a session.
func (r *Runner) Messages(ctx context.Context, userID, sessionID string) ([]core.Message, error) {
	return r.conversations.ReadAll(ctx, userID, sessionID)
}

// ActiveAgent returns the agent that will handle the session's next turn.
func (r *Runner) ActiveAgent(ctx context.Context, userID, sessionID string) (string, error) {
	if err := core.ValidateScope(userID, sessionID); err != nil {
		return "", err
	}
	return r.resolveAgent(ctx, Submission{UserID: userID, SessionID: sessionID}), nil
}

// Cancel aborts the turn currently running for a session.
func (r *Runner) Cancel(userID, sessionID string) error {
	key := sessionKey(userID, sessionID)
	r.mu.Lock()
	cancel, exists := r.activeRuns[key]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("no running turn for session %s", sessionID)
	}

	cancel()

	return nil
}

func (r *Runner) resolveAgent(ctx context.Context, sub Submission) string {
	reg := r.engine.Registry()
	entry := reg.Entry().Name()

	name := strings.TrimSpace(sub.AgentName)
	if name == "" {
		stored, err := r.agentStates.LoadActiveAgent(ctx, sub.UserID, sub.SessionID)
		switch {
		case err == nil:
			name = stored
		case errors.Is(err, core.ErrNotFound):
			return entry
		default:
			r.logger.Warn("runner.agent_state.load_failed",
				"user_id", sub.UserID,
				"session_id", sub.SessionID,
				"error", err.Error(),
			)
			return entry
		}
	}

	if !reg.Has(name) {
		r.logger.Warn("runner.agent.unknown",
			"user_id", sub.UserID,
			"session_id", sub.SessionID,
			"agent", name,
			"fallback", entry,
		)
		return entry
	}
	return name
}

func (r *Runner) failed(sub Submission, agentName string, history []core.Message, err error) (Reply, error) {
	r.logger.Error("runner.turn.failed",
		"user_id", sub.UserID,
		"session_id", sub.SessionID,
		"agent", agentName,
		"programming_error", core.IsProgrammingError(err),
		"error", err.Error(),
	)
	if history == nil {
		history = sub.History
	}
	return Reply{
		Display: []DisplayMessage{
			ToDisplay(core.NewAssistantMessage(agentName, RetryMessage)),
		},
		NextAgent: agentName,
		History:   history,
	}, err
}

func (r *Runner) turnVars(extra map[string]any) map[string]any {
	if len(r.vars) == 0 && len(extra) == 0 {
		return nil
	}
	vars := make(map[string]any, len(r.vars)+len(extra))
	for k, v := range r.vars {
		vars[k] = v
	}
	for k, v := range extra {
		vars[k] = v
	}
	return vars
}

// lock serializes turns per session key and returns the matching unlock.
// Waiting ends early with ctx.Err() when ctx is done.
func (r *Runner) lock(ctx context.Context, key string) (func(), error) {
	r.mu.Lock()
	l, ok := r.locks[key]
	if !ok {
		l = &sessionLock{ch: make(chan struct{}, 1)}
		r.locks[key] = l
	}
	l.refs++
	r.mu.Unlock()

	release := func() {
		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, key)
		}
		r.mu.Unlock()
	}

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		release()
		return nil, ctx.Err()
	}

	return func() {
		<-l.ch
		release()
	}, nil
}

func sessionKey(userID, sessionID string) string {
	return userID + "\x00" + sessionID
}
