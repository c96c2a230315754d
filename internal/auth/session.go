package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/manara-erp/manara/internal/shared"
)

// Sessions stores bearer tokens in Redis. Each lookup slides the expiry.
type Sessions struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessions constructs a session store.
func NewSessions(client *redis.Client, ttl time.Duration) *Sessions {
	return &Sessions{client: client, ttl: ttl}
}

// TTL exposes the configured session lifetime.
func (s *Sessions) TTL() time.Duration {
	return s.ttl
}

// Create issues a token bound to actor.
func (s *Sessions) Create(ctx context.Context, actor shared.Actor) (string, error) {
	token := generateToken()
	payload, err := json.Marshal(actor)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, redisKey(token), payload, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Lookup resolves a token to its actor.
func (s *Sessions) Lookup(ctx context.Context, token string) (*shared.Actor, error) {
	if token == "" {
		return nil, shared.ErrSessionNotFound
	}
	payload, err := s.client.GetEx(ctx, redisKey(token), s.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, shared.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var actor shared.Actor
	if err := json.Unmarshal(payload, &actor); err != nil {
		return nil, err
	}
	return &actor, nil
}

// Revoke deletes a token.
func (s *Sessions) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, redisKey(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func redisKey(token string) string {
	return "session:" + token
}

func generateToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
