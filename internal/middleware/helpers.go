// internal/middleware/helpers.go
package middleware

import (
	"frontier-map-service/internal/pkg/session"

	"github.com/gin-gonic/gin"
)

// GetClaims returns the session loaded by Session(), if any.
func GetClaims(c *gin.Context) (*session.Claims, bool) {
	value, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*session.Claims)
	return claims, ok && claims != nil
}

// MustGetClaims gets the session from context or panics
func MustGetClaims(c *gin.Context) *session.Claims {
	claims, ok := GetClaims(c)
	if !ok {
		panic("session claims not found in context")
	}
	return claims
}

// IsAuthenticated checks if request is authenticated
func IsAuthenticated(c *gin.Context) bool {
	_, ok := GetClaims(c)
	return ok
}

// CanEdit checks if the caller may edit maps
func CanEdit(c *gin.Context) bool {
	claims, ok := GetClaims(c)
	return ok && claims.CanEdit
}

// GetRequestID returns the id assigned by LoggingMiddleware.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
