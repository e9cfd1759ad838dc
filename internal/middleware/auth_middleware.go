// internal/middleware/auth_middleware.go
package middleware

import (
	"context"
	"errors"
	"net/http"

	"frontier-map-service/internal/pkg/response"
	"frontier-map-service/internal/pkg/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const claimsKey = "session_claims"

// SessionValidator resolves a session cookie into claims.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*session.Claims, error)
}

type AuthMiddleware struct {
	sessions SessionValidator
	cookies  *session.CookieTransport
	logger   *zap.Logger
}

func NewAuthMiddleware(sessions SessionValidator, cookies *session.CookieTransport, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
		cookies:  cookies,
		logger:   logger,
	}
}

// Session loads the caller's session from the cookie when there is one.
// It never aborts: a missing, forged or expired cookie just means anonymous.
func (m *AuthMiddleware) Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := m.cookies.Read(c.Request)
		if !ok {
			c.Next()
			return
		}

		claims, err := m.sessions.ValidateSession(c.Request.Context(), token)
		if err != nil {
			m.logger.Debug("session cookie rejected",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
			c.Next()
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireAuth rejects anonymous callers. MUST be used after Session().
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetClaims(c); !ok {
			response.Unauthorized(c, "login required")
			return
		}
		c.Next()
	}
}

// RequireEditor lets through only sessions with edit rights. MUST be used
// after Session().
func (m *AuthMiddleware) RequireEditor() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			response.Unauthorized(c, "login required")
			return
		}
		if !claims.CanEdit {
			response.Error(c, http.StatusForbidden, "editing is not allowed for this account",
				errors.New("account is not on the editor allow-list"))
			return
		}
		c.Next()
	}
}
