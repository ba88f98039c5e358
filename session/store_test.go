package session

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/hupe1980/shopmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type store interface {
	core.ConversationStore
	core.AgentStateStore
}

var (
	_ store = (*InMemoryStore)(nil)
	_ store = (*SQLiteStore)(nil)
	_ store = (*PostgresStore)(nil)

	_ core.AgentStateStore = (*RedisAgentStateStore)(nil)
)

func backends(t *testing.T) map[string]func(t *testing.T) store {
	t.Helper()
	b := map[string]func(t *testing.T) store{
		"memory": func(*testing.T) store { return NewInMemoryStore() },
		"sqlite": func(t *testing.T) store {
			s, err := NewSQLiteStore(":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
	if dsn := os.Getenv("SHOPMESH_TEST_POSTGRES_DSN"); dsn != "" {
		b["postgres"] = func(t *testing.T) store {
			s, err := NewPostgresStore(context.Background(), dsn)
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		}
	}
	return b
}

func conversation() []core.Message {
	return []core.Message{
		core.NewUserMessage("I want to buy shoes"),
		core.NewAssistantMessage("Triage Agent", "", core.ToolCall{ID: "call_1", Name: "transfer_to_sales", Arguments: "{}"}),
		core.NewToolMessage("call_1", "transfer_to_sales", `{"assistant":"Sales Agent"}`),
		core.NewHandoffMessage("Sales Agent"),
		core.NewAssistantMessage("Sales Agent", "What is your user ID?"),
	}
}

func TestStores(t *testing.T) {
	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("AppendAndRead", func(t *testing.T) {
				ctx := context.Background()
				s := newStore(t)
				u, sess := "u-" + core.NewID(), "s1"

				stored, err := s.AppendBatch(ctx, u, sess, conversation())
				require.NoError(t, err)
				require.Len(t, stored, 5)
				ids := map[string]bool{}
				for _, m := range stored {
					assert.NotEmpty(t, m.ID)
					assert.False(t, m.CreatedAt.IsZero())
					assert.Equal(t, u, m.UserID)
					assert.Equal(t, sess, m.SessionID)
					ids[m.ID] = true
				}
				assert.Len(t, ids, 5)

				got, err := s.ReadAll(ctx, u, sess)
				require.NoError(t, err)
				assert.Equal(t, stored, got)

				again, err := s.ReadAll(ctx, u, sess)
				require.NoError(t, err)
				assert.Equal(t, got, again)

				assert.True(t, got[3].Handoff)
				assert.Equal(t, "Sales Agent", got[3].Sender)
				assert.Equal(t, "call_1", got[1].ToolCalls[0].ID)
				assert.Equal(t, "transfer_to_sales", got[2].ToolName)
			})

			t.Run("WriteOrderAcrossBatches", func(t *testing.T) {
				ctx := context.Background()
				s := newStore(t)
				u := "u-" + core.NewID()

				_, err := s.AppendBatch(ctx, u, "s", []core.Message{core.NewUserMessage("one")})
				require.NoError(t, err)
				_, err = s.AppendBatch(ctx, u, "s", []core.Message{core.NewUserMessage("two"), core.NewUserMessage("three")})
				require.NoError(t, err)

				got, err := s.ReadAll(ctx, u, "s")
				require.NoError(t, err)
				require.Len(t, got, 3)
				assert.Equal(t, []string{"one", "two", "three"}, []string{got[0].Content, got[1].Content, got[2].Content})
			})

			t.Run("Isolation", func(t *testing.T) {
				ctx := context.Background()
				s := newStore(t)
				u := "u-" + core.NewID()

				_, err := s.AppendBatch(ctx, u, "a", []core.Message{core.NewUserMessage("a")})
				require.NoError(t, err)

				other, err := s.ReadAll(ctx, u, "b")
				require.NoError(t, err)
				assert.NotNil(t, other)
				assert.Empty(t, other)

				otherUser, err := s.ReadAll(ctx, u+"x", "a")
				require.NoError(t, err)
				assert.Empty(t, otherUser)
			})

			t.Run("AtomicBatch", func(t *testing.T) {
				ctx := context.Background()
				s := newStore(t)
				u := "u-" + core.NewID()

				_, err := s.AppendBatch(ctx, u, "s", []core.Message{core.NewUserMessage("kept")})
				require.NoError(t, err)

				_, err = s.AppendBatch(ctx, u, "s", []core.Message{
					core.NewUserMessage("dropped"),
					{Role: core.Role("system"), Content: "not allowed"},
				})
				require.Error(t, err)
				assert.ErrorIs(t, err, core.ErrPersistence)

				got, err := s.ReadAll(ctx, u, "s")
				require.NoError(t, err)
				require.Len(t, got, 1)
				assert.Equal(t, "kept", got[0].Content)
			})

			t.Run("InvalidScope", func(t *testing.T) {
				ctx := context.Background()
				s := newStore(t)

				_, err := s.AppendBatch(ctx, "", "s", conversation())
				assert.ErrorIs(t, err, core.ErrInvalidScope)
				_, err = s.ReadAll(ctx, "u", " ")
				assert.ErrorIs(t, err, core.ErrInvalidScope)
				_, err = s.LoadActiveAgent(ctx, "", "")
				assert.ErrorIs(t, err, core.ErrInvalidScope)
				assert.ErrorIs(t, s.SaveActiveAgent(ctx, "u", "", "x"), core.ErrInvalidScope)
			})

			t.Run("ActiveAgent", func(t *testing.T) {
				ctx := context.Background()
				s := newStore(t)
				u := "u-" + core.NewID()

				_, err := s.LoadActiveAgent(ctx, u, "s")
				assert.ErrorIs(t, err, core.ErrNotFound)

				require.NoError(t, s.SaveActiveAgent(ctx, u, "s", "Sales Agent"))
				require.NoError(t, s.SaveActiveAgent(ctx, u, "s", "Refunds Agent"))

				agent, err := s.LoadActiveAgent(ctx, u, "s")
				require.NoError(t, err)
				assert.Equal(t, "Refunds Agent", agent)

				_, err = s.LoadActiveAgent(ctx, u, "other")
				assert.ErrorIs(t, err, core.ErrNotFound)
			})

			t.Run("ConcurrentAppends", func(t *testing.T) {
				ctx := context.Background()
				s := newStore(t)
				u := "u-" + core.NewID()

				var wg sync.WaitGroup
				for i := 0; i < 8; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						_, err := s.AppendBatch(ctx, u, "s", []core.Message{
							core.NewUserMessage("q"),
							core.NewAssistantMessage("Triage Agent", "a"),
						})
						assert.NoError(t, err)
					}()
				}
				wg.Wait()

				got, err := s.ReadAll(ctx, u, "s")
				require.NoError(t, err)
				require.Len(t, got, 16)
				// Batches never interleave.
				for i := 0; i < len(got); i += 2 {
					assert.Equal(t, core.RoleUser, got[i].Role)
					assert.Equal(t, core.RoleAssistant, got[i+1].Role)
				}
			})
		})
	}
}

func TestInMemoryStore_DoesNotAlias(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	in := conversation()

	stored, err := s.AppendBatch(ctx, "u", "s", in)
	require.NoError(t, err)
	in[1].ToolCalls[0].Name = "mutated"
	stored[0].Content = "mutated"

	got, err := s.ReadAll(ctx, "u", "s")
	require.NoError(t, err)
	assert.Equal(t, "transfer_to_sales", got[1].ToolCalls[0].Name)
	assert.Equal(t, "I want to buy shoes", got[0].Content)

	got[0].Content = "mutated again"
	again, err := s.ReadAll(ctx, "u", "s")
	require.NoError(t, err)
	assert.Equal(t, "I want to buy shoes", again[0].Content)
}

func TestRedisAgentStateStore_KeyIsUnambiguous(t *testing.T) {
	s := &RedisAgentStateStore{prefix: "shopmesh:agent"}

	assert.NotEqual(t, s.key("a:b", "c"), s.key("a", "b:c"))
	assert.Equal(t, "shopmesh:agent:1:1:session-9", s.key("1", "session-9"))
}

func TestRedisAgentStateStore(t *testing.T) {
	addr := os.Getenv("SHOPMESH_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SHOPMESH_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	s, err := NewRedisAgentStateStore(func(o *RedisOptions) {
		o.Addr = addr
		o.Prefix = "shopmesh:test:" + core.NewID()
	})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.LoadActiveAgent(ctx, "u", "s")
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, s.SaveActiveAgent(ctx, "u", "s", "Product Agent"))
	agent, err := s.LoadActiveAgent(ctx, "u", "s")
	require.NoError(t, err)
	assert.Equal(t, "Product Agent", agent)

	require.NoError(t, s.SaveActiveAgent(ctx, "a:b", "c", "Sales Agent"))
	_, err = s.LoadActiveAgent(ctx, "a", "b:c")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = s.LoadActiveAgent(ctx, "", "s")
	assert.ErrorIs(t, err, core.ErrInvalidScope)
}
