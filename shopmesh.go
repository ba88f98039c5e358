// Package shopmesh provides a high-level façade that assembles the shop
// assistant: a product catalog, the shop tools, the reference agents
// (triage, sales, refunds, product), the orchestration engine and the turn
// runner. Most applications interact with this package by:
//  1. Creating a ShopMesh via New() with a model (optionally overriding the
//     default in-memory stores)
//  2. Submitting user turns with Submit or SubmitUserMessage
//
// All defaults are safe for local development and testing; production
// deployments supply durable stores, a real embedder and a structured logger.
package shopmesh

import (
	"context"
	"fmt"

	"github.com/hupe1980/shopmesh/agent"
	"github.com/hupe1980/shopmesh/catalog"
	"github.com/hupe1980/shopmesh/core"
	"github.com/hupe1980/shopmesh/engine"
	"github.com/hupe1980/shopmesh/logging"
	"github.com/hupe1980/shopmesh/model"
	"github.com/hupe1980/shopmesh/runner"
	"github.com/hupe1980/shopmesh/session"
	"github.com/hupe1980/shopmesh/shop"
)

// Options configures the ShopMesh instance.
type Options struct {
	// Engine configuration (turn bounds, timeouts, streaming)
	EngineConfig engine.Config

	// Guard authorizes tool calls (optional).
	Guard engine.Guard

	// Catalog holds products, users and purchases (defaults to in-memory).
	Catalog catalog.Store
	// Seed loads the demo data into the catalog.
	Seed bool
	// Embedder vectorizes catalog descriptions and product questions
	// (defaults to the offline hash embedder).
	Embedder core.Embedder
	// Notifier delivers customer notifications (defaults to logging them).
	Notifier shop.Notifier

	// Stores (defaults to in-memory implementations if not provided)
	Conversations core.ConversationStore
	AgentStates   core.AgentStateStore

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// ShopMesh is the high-level façade aggregating the assembled components.
type ShopMesh struct {
	opts     Options
	registry *agent.Registry
	engine   *engine.Engine
	runner   *runner.Runner
}

// New assembles a ShopMesh around m. Any unset service is initialized with an
// in-memory implementation.
func New(ctx context.Context, m model.Model, optFns ...func(o *Options)) (*ShopMesh, error) {
	opts := Options{
		EngineConfig: engine.DefaultConfig,
		Seed:         true,
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Catalog == nil {
		opts.Catalog = catalog.NewMemoryStore()
	}
	if opts.Embedder == nil {
		opts.Embedder = model.NewHashEmbedder(0)
	}
	if opts.Conversations == nil {
		mem := session.NewInMemoryStore()
		opts.Conversations = mem
		if opts.AgentStates == nil {
			opts.AgentStates = mem
		}
	}

	if opts.Seed {
		if err := catalog.Seed(ctx, opts.Catalog, opts.Embedder); err != nil {
			return nil, fmt.Errorf("seed catalog: %w", err)
		}
	}

	ts := shop.NewToolset(shop.Services{
		Products:  opts.Catalog,
		Users:     opts.Catalog,
		Purchases: opts.Catalog,
		Search:    opts.Catalog,
		Embedder:  opts.Embedder,
		Notifier:  opts.Notifier,
		Logger:    opts.Logger,
	})

	reg, err := agent.NewShopRegistry(ts)
	if err != nil {
		return nil, err
	}

	eng := engine.New(m, reg, func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.Guard = opts.Guard
		o.Logger = opts.Logger
	})

	r := runner.New(eng, func(o *runner.Options) {
		o.Conversations = opts.Conversations
		o.AgentStates = opts.AgentStates
		o.Logger = opts.Logger
	})

	return &ShopMesh{opts: opts, registry: reg, engine: eng, runner: r}, nil
}

// Registry returns the reference agent registry.
func (s *ShopMesh) Registry() *agent.Registry { return s.registry }

// Runner returns the turn runner.
func (s *ShopMesh) Runner() *runner.Runner { return s.runner }

// Catalog returns the product catalog.
func (s *ShopMesh) Catalog() catalog.Store { return s.opts.Catalog }

// SubmitUserMessage runs one user turn. See runner.Runner.SubmitUserMessage.
func (s *ShopMesh) SubmitUserMessage(ctx context.Context, sub runner.Submission) (runner.Reply, error) {
	return s.runner.SubmitUserMessage(ctx, sub)
}

// Submit is a convenience wrapper that lets the stores track the active agent
// and the history of the session.
func (s *ShopMesh) Submit(ctx context.Context, userID, sessionID, text string) (runner.Reply, error) {
	return s.runner.SubmitUserMessage(ctx, runner.Submission{
		UserID:    userID,
		SessionID: sessionID,
		Text:      text,
	})
}
