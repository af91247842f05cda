package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// SessionStore tracks which refresh token is live for a user. Logout or
// rotation invalidates everything issued before it.
type SessionStore interface {
	Store(ctx context.Context, userID, refreshToken string, ttl time.Duration) error
	Validate(ctx context.Context, userID, refreshToken string) error
	Revoke(ctx context.Context, userID string) error
}

type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func sessionKey(userID string) string {
	return fmt.Sprintf("session:refresh:%s", userID)
}

func (s *RedisSessionStore) Store(ctx context.Context, userID, refreshToken string, ttl time.Duration) error {
	return s.client.Set(ctx, sessionKey(userID), refreshToken, ttl).Err()
}

func (s *RedisSessionStore) Validate(ctx context.Context, userID, refreshToken string) error {
	stored, err := s.client.Get(ctx, sessionKey(userID)).Result()
	if err == redis.Nil {
		return ErrSessionRevoked
	}
	if err != nil {
		return err
	}
	if stored != refreshToken {
		return ErrSessionRevoked
	}
	return nil
}

func (s *RedisSessionStore) Revoke(ctx context.Context, userID string) error {
	return s.client.Del(ctx, sessionKey(userID)).Err()
}
