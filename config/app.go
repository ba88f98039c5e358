package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/shopmesh/engine"
)

// Prefixes of the configuration structs.
const (
	AppPrefix       = "SHOPMESH"
	OpenAIPrefix    = "OPENAI"
	AnthropicPrefix = "ANTHROPIC"
)

// App is the service configuration (SHOPMESH_*).
type App struct {
	Addr      string `envconfig:"ADDR" default:":8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// Provider selects the model backend: openai, anthropic or scripted.
	Provider string `envconfig:"PROVIDER" default:"openai"`
	// Embedder selects the embedding backend: hash or openai.
	Embedder string `envconfig:"EMBEDDER" default:"hash"`

	// ConversationStore selects the message store: memory, sqlite or postgres.
	ConversationStore string `envconfig:"CONVERSATION_STORE" default:"memory"`
	SQLitePath        string `envconfig:"SQLITE_PATH" default:"shopmesh.db"`
	PostgresDSN       string `envconfig:"POSTGRES_DSN"`

	// RedisAddr moves the active-agent marker to Redis when set.
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	AgentStateTTL time.Duration `envconfig:"AGENT_STATE_TTL" default:"24h"`

	// CatalogPath stores the catalog in Badger when set, in memory otherwise.
	CatalogPath string `envconfig:"CATALOG_PATH"`
	SeedCatalog bool   `envconfig:"SEED_CATALOG" default:"true"`

	PolicyEnabled bool   `envconfig:"POLICY_ENABLED" default:"true"`
	PolicyFile    string `envconfig:"POLICY_FILE"`

	MaxHandoffs      int           `envconfig:"MAX_HANDOFFS" default:"10"`
	MaxModelCalls    int           `envconfig:"MAX_MODEL_CALLS" default:"25"`
	MaxParallelTools int           `envconfig:"MAX_PARALLEL_TOOLS" default:"1"`
	ModelTimeout     time.Duration `envconfig:"MODEL_TIMEOUT" default:"60s"`
	ToolTimeout      time.Duration `envconfig:"TOOL_TIMEOUT" default:"30s"`
	Stream           bool          `envconfig:"STREAM" default:"false"`

	// RateLimit caps model requests per second; 0 disables throttling.
	RateLimit float64 `envconfig:"RATE_LIMIT" default:"0"`
	RateBurst int     `envconfig:"RATE_BURST" default:"1"`
}

// Validate checks enum values and store specific settings.
func (c App) Validate() error {
	if !oneOf(c.Provider, "openai", "anthropic", "scripted") {
		return fmt.Errorf("%w: unknown provider %q", ErrValidation, c.Provider)
	}
	if !oneOf(c.Embedder, "hash", "openai") {
		return fmt.Errorf("%w: unknown embedder %q", ErrValidation, c.Embedder)
	}
	switch c.ConversationStore {
	case "memory":
	case "sqlite":
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%w: sqlite path is required", ErrValidation)
		}
	case "postgres":
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("%w: postgres dsn is required", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown conversation store %q", ErrValidation, c.ConversationStore)
	}
	if c.MaxHandoffs <= 0 || c.MaxModelCalls <= 0 {
		return fmt.Errorf("%w: handoff and model call limits must be positive", ErrValidation)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate limit must not be negative", ErrValidation)
	}
	return nil
}

// EngineConfig returns the turn bounds.
func (c App) EngineConfig() engine.Config {
	return engine.Config{
		MaxHandoffs:      c.MaxHandoffs,
		MaxModelCalls:    c.MaxModelCalls,
		MaxParallelTools: c.MaxParallelTools,
		ModelTimeout:     c.ModelTimeout,
		ToolTimeout:      c.ToolTimeout,
		Stream:           c.Stream,
	}
}

// OpenAI configures the OpenAI chat and embedding adapters (OPENAI_*).
type OpenAI struct {
	APIKey              string  `envconfig:"API_KEY"`
	BaseURL             string  `envconfig:"BASE_URL"`
	Model               string  `envconfig:"MODEL" default:"gpt-4o-mini"`
	Temperature         float64 `envconfig:"TEMPERATURE" default:"0.7"`
	MaxCompletionTokens int64   `envconfig:"MAX_COMPLETION_TOKENS" default:"4096"`
	EmbeddingModel      string  `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int64   `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
}

// Validate checks the credentials.
func (c OpenAI) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openai api key is required", ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: openai model is required", ErrValidation)
	}
	return nil
}

// Anthropic configures the Anthropic adapter (ANTHROPIC_*).
type Anthropic struct {
	APIKey      string  `envconfig:"API_KEY"`
	BaseURL     string  `envconfig:"BASE_URL"`
	Model       string  `envconfig:"MODEL" default:"claude-3-5-sonnet-20241022"`
	Temperature float64 `envconfig:"TEMPERATURE" default:"0.7"`
	MaxTokens   int64   `envconfig:"MAX_TOKENS" default:"4096"`
}

// Validate checks the credentials.
func (c Anthropic) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: anthropic api key is required", ErrValidation)
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
