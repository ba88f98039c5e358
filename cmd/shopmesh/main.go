// Command shopmesh serves the shop assistant over HTTP and WebSocket, or runs
// it as an interactive REPL with -repl.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hupe1980/shopmesh"
	"github.com/hupe1980/shopmesh/catalog"
	"github.com/hupe1980/shopmesh/config"
	"github.com/hupe1980/shopmesh/core"
	"github.com/hupe1980/shopmesh/logging"
	"github.com/hupe1980/shopmesh/model"
	"github.com/hupe1980/shopmesh/model/anthropic"
	"github.com/hupe1980/shopmesh/model/openai"
	"github.com/hupe1980/shopmesh/policy"
	"github.com/hupe1980/shopmesh/runner"
	"github.com/hupe1980/shopmesh/server"
	"github.com/hupe1980/shopmesh/session"
)

func main() {
	repl := flag.Bool("repl", false, "chat on stdin/stdout instead of serving HTTP")
	userID := flag.String("user", "1", "user id for -repl")
	sessionID := flag.String("session", "", "session id for -repl (default: new session)")

	cfg := config.MustNew[config.App](config.AppPrefix)

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:     logging.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Output:    os.Stderr,
		Component: "shopmesh",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *repl, *userID, *sessionID); err != nil {
		logger.Error("shopmesh.exit", "error", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.App, logger logging.Logger, repl bool, userID, sessionID string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.Warn("shopmesh.close_failed", "error", err.Error())
			}
		}
	}()

	m, embedder, err := newModels(cfg)
	if err != nil {
		return err
	}

	store, err := newCatalog(cfg)
	if err != nil {
		return err
	}
	if c, ok := store.(io.Closer); ok {
		closers = append(closers, c)
	}

	conversations, err := newConversationStore(ctx, cfg)
	if err != nil {
		return err
	}
	if c, ok := conversations.(io.Closer); ok {
		closers = append(closers, c)
	}

	var agentStates core.AgentStateStore
	if cfg.RedisAddr != "" {
		rs, err := session.NewRedisAgentStateStore(func(o *session.RedisOptions) {
			o.Addr = cfg.RedisAddr
			o.Password = cfg.RedisPassword
			o.DB = cfg.RedisDB
			o.TTL = cfg.AgentStateTTL
		})
		if err != nil {
			return err
		}
		closers = append(closers, rs)
		agentStates = rs
	} else if as, ok := conversations.(core.AgentStateStore); ok {
		agentStates = as
	}

	var guard *policy.Engine
	if cfg.PolicyEnabled {
		guard, err = newPolicy(ctx, cfg.PolicyFile)
		if err != nil {
			return err
		}
	}

	mesh, err := shopmesh.New(ctx, m, func(o *shopmesh.Options) {
		o.EngineConfig = cfg.EngineConfig()
		if guard != nil {
			o.Guard = guard
		}
		o.Catalog = store
		o.Seed = cfg.SeedCatalog
		o.Embedder = embedder
		o.Conversations = conversations
		o.AgentStates = agentStates
		o.Logger = logger
	})
	if err != nil {
		return err
	}

	logger.Info("shopmesh.started",
		"provider", m.Info().Provider,
		"model", m.Info().Name,
		"conversation_store", cfg.ConversationStore,
		"policy", cfg.PolicyEnabled,
	)

	if repl {
		if sessionID == "" {
			sessionID = core.NewID()
		}
		return runREPL(ctx, mesh.Runner(), userID, sessionID, os.Stdin, os.Stdout)
	}

	return serve(ctx, cfg, mesh, logger)
}

func serve(ctx context.Context, cfg *config.App, mesh *shopmesh.ShopMesh, logger logging.Logger) error {
	e := server.New(server.NewHandler(mesh.Runner(), mesh.Registry(), func(o *server.Options) {
		o.Logger = logger
	}))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server.listening", "addr", cfg.Addr)
		if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("server.shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return e.Shutdown(shutdownCtx)
}

func newModels(cfg *config.App) (model.Model, core.Embedder, error) {
	var (
		m          model.Model
		openaiConf *config.OpenAI
	)

	loadOpenAI := func() (*config.OpenAI, error) {
		if openaiConf != nil {
			return openaiConf, nil
		}
		c, err := config.New[config.OpenAI](config.OpenAIPrefix)
		if err != nil {
			return nil, err
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		openaiConf = c
		return c, nil
	}

	switch cfg.Provider {
	case "openai":
		c, err := loadOpenAI()
		if err != nil {
			return nil, nil, err
		}
		m = openai.NewModel(func(o *openai.Options) {
			o.Model = c.Model
			o.APIKey = c.APIKey
			o.BaseURL = c.BaseURL
			o.Temperature = c.Temperature
			o.MaxCompletionTokens = c.MaxCompletionTokens
		})
	case "anthropic":
		c, err := config.New[config.Anthropic](config.AnthropicPrefix)
		if err != nil {
			return nil, nil, err
		}
		if err := c.Validate(); err != nil {
			return nil, nil, err
		}
		m = anthropic.NewModel(func(o *anthropic.Options) {
			o.Model = c.Model
			o.APIKey = c.APIKey
			o.BaseURL = c.BaseURL
			o.Temperature = c.Temperature
			o.MaxTokens = c.MaxTokens
		})
	default:
		m = model.NewScriptedModel().WithFallback(model.Reply(
			"The offline demo model is active. Set SHOPMESH_PROVIDER to openai or anthropic to chat with a real model."))
	}

	if cfg.RateLimit > 0 {
		m = model.NewRateLimited(m, cfg.RateLimit, cfg.RateBurst)
	}

	var embedder core.Embedder = model.NewHashEmbedder(0)
	if cfg.Embedder == "openai" {
		c, err := loadOpenAI()
		if err != nil {
			return nil, nil, err
		}
		embedder = openai.NewEmbedder(func(o *openai.EmbedderOptions) {
			o.Model = c.EmbeddingModel
			o.Dimensions = c.EmbeddingDimensions
			o.APIKey = c.APIKey
			o.BaseURL = c.BaseURL
		})
	}

	return m, embedder, nil
}

func newCatalog(cfg *config.App) (catalog.Store, error) {
	if cfg.CatalogPath == "" {
		return catalog.NewMemoryStore(), nil
	}
	return catalog.NewBadgerStore(func(o *catalog.BadgerOptions) {
		o.Path = cfg.CatalogPath
	})
}

func newConversationStore(ctx context.Context, cfg *config.App) (core.ConversationStore, error) {
	switch cfg.ConversationStore {
	case "sqlite":
		return session.NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		return session.NewPostgresStore(ctx, cfg.PostgresDSN)
	default:
		return session.NewInMemoryStore(), nil
	}
}

func newPolicy(ctx context.Context, path string) (*policy.Engine, error) {
	content := policy.DefaultPolicy
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read policy: %w", err)
		}
		content = string(data)
	}
	return policy.NewEngine(ctx, content)
}

// runREPL chats with the assistant line by line until EOF, /quit or ctx ends.
func runREPL(ctx context.Context, r *runner.Runner, userID, sessionID string, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Personal shopping assistant (user %s, session %s)\n", userID, sessionID)
	fmt.Fprintln(out, "Type a message and press Enter. Commands: /history, /quit")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/quit":
			fmt.Fprintln(out, "Bye!")
			return nil
		case "/history":
			display, err := r.History(ctx, userID, sessionID)
			if err != nil {
				return err
			}
			for _, d := range display {
				fmt.Fprintln(out, d.Text)
			}
			continue
		}

		reply, err := r.SubmitUserMessage(ctx, runner.Submission{
			UserID:    userID,
			SessionID: sessionID,
			Text:      input,
		})
		for _, d := range reply.Display {
			if d.Role == core.RoleUser {
				continue
			}
			fmt.Fprintln(out, d.Text)
		}
		if err != nil && ctx.Err() != nil {
			return nil
		}
	}
}
