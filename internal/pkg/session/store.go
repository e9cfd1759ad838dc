// internal/pkg/session/store.go
package session

import (
	"context"
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Store keeps the little server-side state the login flow needs: single-use
// OAuth state values and fingerprints of tokens revoked by logout.
type Store interface {
	SaveState(ctx context.Context, state string, ttl time.Duration) error
	// ConsumeState reports whether state existed and removes it atomically.
	ConsumeState(ctx context.Context, state string) (bool, error)
	Revoke(ctx context.Context, fingerprint string, ttl time.Duration) error
	IsRevoked(ctx context.Context, fingerprint string) (bool, error)
}

// Fingerprint derives the key under which a revoked token is remembered, so
// raw tokens never reach the store.
func Fingerprint(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
