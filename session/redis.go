package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hupe1980/shopmesh/core"
)

// RedisOptions configures a RedisAgentStateStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// TTL bounds how long an idle session keeps its active agent. Zero keeps
	// markers forever.
	TTL time.Duration
	// Prefix namespaces the keys.
	Prefix string
}

// RedisAgentStateStore keeps the active-agent marker of each session in
// Redis. It complements a ConversationStore when several server replicas
// share sessions.
type RedisAgentStateStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisAgentStateStore connects to Redis and verifies the connection.
func NewRedisAgentStateStore(optFns ...func(o *RedisOptions)) (*RedisAgentStateStore, error) {
	opts := RedisOptions{Addr: "localhost:6379", TTL: 24 * time.Hour, Prefix: "shopmesh:agent"}
	for _, fn := range optFns {
		fn(&opts)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisAgentStateStore{client: client, ttl: opts.TTL, prefix: opts.Prefix}, nil
}

// Close closes the client.
func (s *RedisAgentStateStore) Close() error { return s.client.Close() }

// key length-prefixes the user id so ids containing ':' cannot collide.
func (s *RedisAgentStateStore) key(userID, sessionID string) string {
	return fmt.Sprintf("%s:%d:%s:%s", s.prefix, len(userID), userID, sessionID)
}

// LoadActiveAgent returns the stored active agent or core.ErrNotFound.
func (s *RedisAgentStateStore) LoadActiveAgent(ctx context.Context, userID, sessionID string) (string, error) {
	if err := core.ValidateScope(userID, sessionID); err != nil {
		return "", err
	}
	agent, err := s.client.Get(ctx, s.key(userID, sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrPersistence, err)
	}
	return agent, nil
}

// SaveActiveAgent stores the active agent and refreshes its TTL.
func (s *RedisAgentStateStore) SaveActiveAgent(ctx context.Context, userID, sessionID, agent string) error {
	if err := core.ValidateScope(userID, sessionID); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(userID, sessionID), agent, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrPersistence, err)
	}
	return nil
}
