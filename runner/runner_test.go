package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/shopmesh/agent"
	"github.com/hupe1980/shopmesh/core"
	"github.com/hupe1980/shopmesh/engine"
	"github.com/hupe1980/shopmesh/model"
	"github.com/hupe1980/shopmesh/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockConversationStore for testing persistence failures
type MockConversationStore struct{ mock.Mock }

func (m *MockConversationStore) AppendBatch(ctx context.Context, userID, sessionID string, msgs []core.Message) ([]core.Message, error) {
	args := m.Called(ctx, userID, sessionID, msgs)
	out, _ := args.Get(0).([]core.Message)
	return out, args.Error(1)
}

func (m *MockConversationStore) ReadAll(ctx context.Context, userID, sessionID string) ([]core.Message, error) {
	args := m.Called(ctx, userID, sessionID)
	out, _ := args.Get(0).([]core.Message)
	return out, args.Error(1)
}

func newRegistry(t *testing.T) *agent.Registry {
	t.Helper()
	triage := agent.MustNew("Triage Agent", func(o *agent.Options) {
		o.Instruction = agent.NewInstructionFromText("Route {{ .user_id }}.")
		o.Handoffs = []agent.Handoff{{Target: "Sales Agent"}}
	})
	sales := agent.MustNew("Sales Agent", func(o *agent.Options) {
		o.Instruction = agent.NewInstructionFromText("Sell to {{ .user_id }}.")
		o.Handoffs = []agent.Handoff{{Target: "Triage Agent"}}
	})
	reg, err := agent.NewRegistry("Triage Agent", triage, sales)
	require.NoError(t, err)
	return reg
}

func TestSubmitUserMessage_PersistsAndRestores(t *testing.T) {
	m := model.NewScriptedModel(
		model.CallTool("transfer_to_sales", nil),
		model.Reply("Which product would you like?"),
		model.Reply("Great choice."),
	)
	store := session.NewInMemoryStore()
	r := New(engine.New(m, newRegistry(t)), func(o *Options) { o.Conversations = store })
	ctx := context.Background()

	reply, err := r.SubmitUserMessage(ctx, Submission{UserID: "1", SessionID: "s1", Text: "I want to buy shoes"})
	require.NoError(t, err)

	assert.Equal(t, "Sales Agent", reply.NextAgent)
	texts := make([]string, len(reply.Display))
	for i, d := range reply.Display {
		texts[i] = d.Text
	}
	assert.Equal(t, []string{
		"I want to buy shoes",
		"[Triage Agent] Preparing Transfer...",
		`[Debug Info: Tool: transfer_to_sales, Content: {"assistant":"Sales Agent"}]`,
		"[Sales Agent] Preparing Transfer...",
		"[Sales Agent] Which product would you like?",
	}, texts)

	require.Len(t, reply.History, 5)
	for _, msg := range reply.History {
		assert.NotEmpty(t, msg.ID)
		assert.Equal(t, "1", msg.UserID)
		assert.Equal(t, "s1", msg.SessionID)
	}

	stored, err := store.ReadAll(ctx, "1", "s1")
	require.NoError(t, err)
	assert.Equal(t, reply.History, stored)

	active, err := r.ActiveAgent(ctx, "1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "Sales Agent", active)

	// No agent and no history: both are restored from the stores.
	reply, err = r.SubmitUserMessage(ctx, Submission{UserID: "1", SessionID: "s1", Text: "Shoes please"})
	require.NoError(t, err)
	assert.Equal(t, "Sales Agent", reply.NextAgent)
	require.Len(t, reply.Display, 2)
	assert.Equal(t, "[Sales Agent] Great choice.", reply.Display[1].Text)
	assert.Len(t, reply.History, 7)

	reqs := m.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "Sell to 1.", reqs[2].Instructions)
	assert.Len(t, reqs[2].Messages, 6)

	display, err := r.History(ctx, "1", "s1")
	require.NoError(t, err)
	assert.Len(t, display, 7)
}

func TestSubmitUserMessage_UnknownAgentFallsBackToEntry(t *testing.T) {
	m := model.NewScriptedModel(model.Reply("How can I help?"))
	r := New(engine.New(m, newRegistry(t)))

	reply, err := r.SubmitUserMessage(context.Background(), Submission{
		UserID:    "1",
		SessionID: "s1",
		AgentName: "Retired Agent",
		Text:      "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "Triage Agent", reply.NextAgent)
	assert.Equal(t, "[Triage Agent] How can I help?", reply.Display[1].Text)
}

func TestSubmitUserMessage_CallerHistoryWins(t *testing.T) {
	m := model.NewScriptedModel(model.Reply("ok"))
	r := New(engine.New(m, newRegistry(t)))

	prior := []core.Message{core.NewUserMessage("earlier"), core.NewAssistantMessage("Sales Agent", "earlier reply")}
	reply, err := r.SubmitUserMessage(context.Background(), Submission{
		UserID:    "1",
		SessionID: "s1",
		AgentName: "Sales Agent",
		History:   prior,
		Text:      "now",
	})
	require.NoError(t, err)
	require.Len(t, reply.History, 4)
	assert.Equal(t, prior, reply.History[:2])
	assert.Len(t, m.Requests()[0].Messages, 3)
}

func TestSubmitUserMessage_EngineFailure(t *testing.T) {
	store := session.NewInMemoryStore()
	m := model.NewScriptedModel(model.Fail(errors.New("rate limited")))
	r := New(engine.New(m, newRegistry(t)), func(o *Options) { o.Conversations = store })

	prior := []core.Message{core.NewUserMessage("earlier")}
	reply, err := r.SubmitUserMessage(context.Background(), Submission{
		UserID:    "1",
		SessionID: "s1",
		AgentName: "Sales Agent",
		History:   prior,
		Text:      "hello",
	})
	require.ErrorIs(t, err, core.ErrModel)

	assert.Equal(t, "Sales Agent", reply.NextAgent)
	assert.Equal(t, prior, reply.History)
	require.Len(t, reply.Display, 1)
	assert.Equal(t, "[Sales Agent] "+RetryMessage, reply.Display[0].Text)
	assert.NotContains(t, reply.Display[0].Text, "rate limited")

	stored, err := store.ReadAll(context.Background(), "1", "s1")
	require.NoError(t, err)
	assert.Empty(t, stored)

	_, err = store.LoadActiveAgent(context.Background(), "1", "s1")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSubmitUserMessage_PersistenceFailure(t *testing.T) {
	conv := &MockConversationStore{}
	conv.On("ReadAll", mock.Anything, "1", "s1").Return([]core.Message{}, nil)
	conv.On("AppendBatch", mock.Anything, "1", "s1", mock.Anything).
		Return(nil, fmt.Errorf("%w: disk full", core.ErrPersistence))
	states := session.NewInMemoryStore()

	m := model.NewScriptedModel(model.CallTool("transfer_to_sales", nil), model.Reply("hi"))
	r := New(engine.New(m, newRegistry(t)), func(o *Options) {
		o.Conversations = conv
		o.AgentStates = states
	})

	reply, err := r.SubmitUserMessage(context.Background(), Submission{UserID: "1", SessionID: "s1", Text: "buy"})
	require.ErrorIs(t, err, core.ErrPersistence)
	assert.Equal(t, "Triage Agent", reply.NextAgent)
	assert.Empty(t, reply.History)
	require.Len(t, reply.Display, 1)
	assert.Equal(t, RetryMessage, reply.Display[0].Content)

	_, err = states.LoadActiveAgent(context.Background(), "1", "s1")
	assert.ErrorIs(t, err, core.ErrNotFound)
	conv.AssertExpectations(t)
}

func TestSubmitUserMessage_InvalidInput(t *testing.T) {
	r := New(engine.New(model.NewScriptedModel(), newRegistry(t)))
	ctx := context.Background()

	_, err := r.SubmitUserMessage(ctx, Submission{UserID: "", SessionID: "s1", Text: "hi"})
	assert.ErrorIs(t, err, core.ErrInvalidScope)

	_, err = r.SubmitUserMessage(ctx, Submission{UserID: "1", SessionID: " ", Text: "hi"})
	assert.ErrorIs(t, err, core.ErrInvalidScope)

	reply, err := r.SubmitUserMessage(ctx, Submission{UserID: "1", SessionID: "s1", AgentName: "Sales Agent", Text: "\n\t"})
	assert.ErrorIs(t, err, core.ErrEmptyMessage)
	assert.Empty(t, reply.Display)
	assert.Equal(t, "Sales Agent", reply.NextAgent)
}

func TestSubmitUserMessage_SerializesSessionTurns(t *testing.T) {
	m := model.NewScriptedModel().WithFallback(model.Reply("ack"))
	store := session.NewInMemoryStore()
	r := New(engine.New(m, newRegistry(t)), func(o *Options) { o.Conversations = store })

	const turns = 10
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.SubmitUserMessage(context.Background(), Submission{
				UserID:    "1",
				SessionID: "s1",
				Text:      fmt.Sprintf("message %d", i),
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := store.ReadAll(context.Background(), "1", "s1")
	require.NoError(t, err)
	require.Len(t, stored, 2*turns)
	for i := 0; i < turns; i++ {
		assert.Equal(t, core.RoleUser, stored[2*i].Role)
		assert.Equal(t, core.RoleAssistant, stored[2*i+1].Role)
	}

	// Every turn saw the complete history of the turns before it.
	for _, req := range m.Requests() {
		assert.Equal(t, 1, len(req.Messages)%2)
	}
	assert.Empty(t, r.locks)
}

func TestSubmitUserMessage_WaitingTurnHonorsContext(t *testing.T) {
	release := make(chan struct{})
	m := model.NewScriptedModel(func(model.Request) (core.Message, error) {
		<-release
		return core.NewAssistantMessage("", "done"), nil
	})
	store := session.NewInMemoryStore()
	r := New(engine.New(m, newRegistry(t)), func(o *Options) { o.Conversations = store })

	first := make(chan error, 1)
	go func() {
		_, err := r.SubmitUserMessage(context.Background(), Submission{UserID: "1", SessionID: "s1", Text: "slow"})
		first <- err
	}()
	require.Eventually(t, func() bool { return len(m.Requests()) == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	started := time.Now()
	reply, err := r.SubmitUserMessage(ctx, Submission{UserID: "1", SessionID: "s1", Text: "impatient"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(started), time.Second)
	assert.Empty(t, reply.Display)

	close(release)
	require.NoError(t, <-first)

	stored, err := store.ReadAll(context.Background(), "1", "s1")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "slow", stored[0].Content)
	assert.Empty(t, r.locks)
}

func TestCancel_NoRunningTurn(t *testing.T) {
	r := New(engine.New(model.NewScriptedModel(), newRegistry(t)))
	assert.Error(t, r.Cancel("1", "s1"))
}

func TestNew_DefaultStores(t *testing.T) {
	conv := &MockConversationStore{}
	r := New(engine.New(model.NewScriptedModel(), newRegistry(t)), func(o *Options) { o.Conversations = conv })
	assert.NotNil(t, r.agentStates)

	r = New(engine.New(model.NewScriptedModel(), newRegistry(t)))
	assert.Same(t, r.conversations, r.agentStates)
}
