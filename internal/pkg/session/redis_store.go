// internal/pkg/session/redis_store.go
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// SaveState stores a pending OAuth state value
func (s *RedisStore) SaveState(ctx context.Context, state string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.stateKey(state), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to store login state: %w", err)
	}
	return nil
}

// ConsumeState removes a pending OAuth state value, reporting whether it existed
func (s *RedisStore) ConsumeState(ctx context.Context, state string) (bool, error) {
	err := s.client.GetDel(ctx, s.stateKey(state)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to consume login state: %w", err)
	}
	return true, nil
}

// Revoke blacklists a token fingerprint until ttl elapses
func (s *RedisStore) Revoke(ctx context.Context, fingerprint string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.revokedKey(fingerprint), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// IsRevoked checks if a token fingerprint is blacklisted
func (s *RedisStore) IsRevoked(ctx context.Context, fingerprint string) (bool, error) {
	exists, err := s.client.Exists(ctx, s.revokedKey(fingerprint)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return exists > 0, nil
}

func (s *RedisStore) stateKey(state string) string {
	return fmt.Sprintf("oauth:state:%s", state)
}

func (s *RedisStore) revokedKey(fingerprint string) string {
	return fmt.Sprintf("session:revoked:%s", fingerprint)
}
