// internal/pkg/session/memory_store.go
package session

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore is the single-process Store used when no Redis is configured.
type MemoryStore struct {
	mu      sync.Mutex
	states  *cache.Cache
	revoked *cache.Cache
}

func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		states:  cache.New(cache.NoExpiration, cleanupInterval),
		revoked: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

func (s *MemoryStore) SaveState(_ context.Context, state string, ttl time.Duration) error {
	s.states.Set(state, struct{}{}, ttl)
	return nil
}

func (s *MemoryStore) ConsumeState(_ context.Context, state string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.states.Get(state); !found {
		return false, nil
	}
	s.states.Delete(state)
	return true, nil
}

func (s *MemoryStore) Revoke(_ context.Context, fingerprint string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.revoked.Set(fingerprint, struct{}{}, ttl)
	return nil
}

func (s *MemoryStore) IsRevoked(_ context.Context, fingerprint string) (bool, error) {
	_, found := s.revoked.Get(fingerprint)
	return found, nil
}
