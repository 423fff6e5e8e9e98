package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sooahkim/childcenter-chat/internal/domain/entities"
	"github.com/sooahkim/childcenter-chat/internal/domain/providers"
	redisclient "github.com/sooahkim/childcenter-chat/internal/infrastructure/clients/redis"
)

const (
	// MaxTurns bounds the retained conversation history per session.
	MaxTurns = 12

	sessionTTL = 24 * time.Hour
)

// RedisStore implements SessionStore on Redis. Keys are namespaced per
// session ID so sessions never see each other's state.
type RedisStore struct {
	client *redisclient.Client
}

// NewRedisStore creates a new Redis-backed session store
func NewRedisStore(client *redisclient.Client) providers.SessionStore {
	return &RedisStore{client: client}
}

func nameKey(sessionID string) string {
	return "session:" + sessionID + ":name"
}

func historyKey(sessionID string) string {
	return "session:" + sessionID + ":history"
}

// GetName returns the remembered display name, or "" when unset
func (s *RedisStore) GetName(ctx context.Context, sessionID string) (string, error) {
	name, err := s.client.Client().Get(ctx, nameKey(sessionID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session name: %w", err)
	}
	return name, nil
}

// SetName overwrites the remembered display name
func (s *RedisStore) SetName(ctx context.Context, sessionID, name string) error {
	if err := s.client.Client().Set(ctx, nameKey(sessionID), name, sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to store session name: %w", err)
	}
	return nil
}

// AppendTurn appends one turn and trims the history to MaxTurns
func (s *RedisStore) AppendTurn(ctx context.Context, sessionID string, turn entities.Turn) error {
	payload, err := json.Marshal(turn)
	if err != nil {
		return err
	}

	key := historyKey(sessionID)
	pipe := s.client.Client().TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, -MaxTurns, -1)
	pipe.Expire(ctx, key, sessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append session turn: %w", err)
	}
	return nil
}

// History returns the retained turns, oldest first
func (s *RedisStore) History(ctx context.Context, sessionID string) ([]entities.Turn, error) {
	raw, err := s.client.Client().LRange(ctx, historyKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session history: %w", err)
	}

	turns := make([]entities.Turn, 0, len(raw))
	for _, item := range raw {
		var turn entities.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}
