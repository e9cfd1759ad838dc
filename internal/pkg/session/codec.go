// internal/pkg/session/codec.go
package session

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const maxTokenLength = 4096

var (
	ErrInvalidToken     = errors.New("invalid session token")
	ErrMalformedToken   = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrInvalidSignature = fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
	ErrEmptySecret      = errors.New("session secret must not be empty")
)

// Strict decoding rejects non-zero trailing bits, so every token has exactly
// one accepted spelling.
var segmentEncoding = base64.RawURLEncoding.Strict()

var signingMethod = jwt.SigningMethodHS256

// Codec signs and verifies stateless session tokens of the form
// base64url(claims) "." base64url(HMAC-SHA256(secret, claims)).
// A Codec is immutable and safe for concurrent use.
type Codec struct {
	secret []byte
}

// NewCodec returns a codec bound to secret.
func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &Codec{secret: key}, nil
}

// Encode serializes and signs claims.
func (c *Codec) Encode(claims Claims) (string, error) {
	payload, err := marshalClaims(claims)
	if err != nil {
		return "", fmt.Errorf("failed to serialize claims: %w", err)
	}

	mac, err := signingMethod.Sign(string(payload), c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign claims: %w", err)
	}

	return segmentEncoding.EncodeToString(payload) + "." + segmentEncoding.EncodeToString(mac), nil
}

// Decode verifies token and returns its claims. Every failure wraps
// ErrInvalidToken and no claims are returned unless the MAC matches.
func (c *Codec) Decode(token string) (*Claims, error) {
	if token == "" || len(token) > maxTokenLength || !isTokenAlphabet(token) {
		return nil, ErrMalformedToken
	}

	payloadPart, macPart, ok := strings.Cut(token, ".")
	if !ok || payloadPart == "" || macPart == "" || strings.Contains(macPart, ".") {
		return nil, ErrMalformedToken
	}

	payload, err := segmentEncoding.DecodeString(payloadPart)
	if err != nil {
		return nil, ErrMalformedToken
	}
	mac, err := segmentEncoding.DecodeString(macPart)
	if err != nil {
		return nil, ErrMalformedToken
	}

	// hmac.Equal under the hood: constant time in the MAC length.
	if err := signingMethod.Verify(string(payload), mac, c.secret); err != nil {
		return nil, ErrInvalidSignature
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrMalformedToken
	}
	// A session always names a user; `null` and `{}` parse to zero claims.
	if claims.ID == "" {
		return nil, ErrMalformedToken
	}
	return &claims, nil
}

// marshalClaims matches JSON.stringify for the claims Discord produces: no HTML
// escaping, no trailing newline. It differs for U+2028/U+2029, which are always
// escaped, and for invalid UTF-8, which becomes U+FFFD.
func marshalClaims(claims Claims) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(claims); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// isTokenAlphabet reports whether s only holds base64url characters and dots.
func isTokenAlphabet(s string) bool {
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= 'A' && ch <= 'Z',
			ch >= 'a' && ch <= 'z',
			ch >= '0' && ch <= '9',
			ch == '-', ch == '_', ch == '.':
		default:
			return false
		}
	}
	return true
}
