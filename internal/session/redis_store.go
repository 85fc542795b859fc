package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	tokenKey    = "portal_session:token"
	identityKey = "portal_session:identity"
)

// Compile-time check to ensure redisStore implements Store.
var _ Store = (*redisStore)(nil)

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore creates a Redis-backed session store. Entries expire
// after ttl so an abandoned session does not outlive the token it holds.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) Store {
	return &redisStore{
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisSessionStore"),
	}
}

func (s *redisStore) Get(ctx context.Context) (string, string, error) {
	vals, err := s.client.MGet(ctx, tokenKey, identityKey).Result()
	if err != nil {
		return "", "", fmt.Errorf("failed to read session from redis: %w", err)
	}
	token, tokenOK := vals[0].(string)
	identity, identityOK := vals[1].(string)
	if !tokenOK || !identityOK || token == "" {
		return "", "", ErrNoSession
	}
	return token, identity, nil
}

func (s *redisStore) Set(ctx context.Context, token, identity string) error {
	pipe := s.client.Pipeline()
	pipe.Set(ctx, tokenKey, token, s.ttl)
	pipe.Set(ctx, identityKey, identity, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("Failed to persist session", zap.Error(err))
		return fmt.Errorf("failed to persist session to redis: %w", err)
	}
	s.logger.Debug("Session persisted", zap.String("identity", identity), zap.Duration("ttl", s.ttl))
	return nil
}

func (s *redisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, tokenKey, identityKey).Err(); err != nil {
		s.logger.Error("Failed to clear session", zap.Error(err))
		return fmt.Errorf("failed to clear session in redis: %w", err)
	}
	return nil
}
