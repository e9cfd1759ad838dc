package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"frontier-map-service/internal/pkg/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubSessions map[string]*session.Claims

func (s stubSessions) ValidateSession(_ context.Context, token string) (*session.Claims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, errors.New("invalid session")
}

var cookies = session.NewCookieTransport("rp_session", time.Hour, false)

func newAuthRouter() *gin.Engine {
	m := NewAuthMiddleware(stubSessions{
		"editor": {ID: "42", Username: "Alice#0", CanEdit: true},
		"viewer": {ID: "7", Username: "bob#0000"},
	}, cookies, zap.NewNop())

	r := gin.New()
	r.Use(m.Session())
	r.GET("/who", func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, claims.ID)
	})
	r.GET("/me", m.RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, MustGetClaims(c).ID)
	})
	r.PUT("/edit", m.RequireEditor(), func(c *gin.Context) {
		c.String(http.StatusOK, "saved")
	})
	return r
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "rp_session", Value: token})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSession_LoadsClaims(t *testing.T) {
	r := newAuthRouter()

	assert.Equal(t, "42", do(r, http.MethodGet, "/who", "editor").Body.String())
	assert.Equal(t, "anonymous", do(r, http.MethodGet, "/who", "").Body.String())
	assert.Equal(t, "anonymous", do(r, http.MethodGet, "/who", "forged").Body.String())
}

func TestRequireAuth(t *testing.T) {
	r := newAuthRouter()

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", "forged").Code)

	w := do(r, http.MethodGet, "/me", "viewer")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "7", w.Body.String())
}

func TestRequireEditor(t *testing.T) {
	r := newAuthRouter()

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPut, "/edit", "").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPut, "/edit", "viewer").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPut, "/edit", "editor").Code)
}

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(LoggingMiddleware(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := do(r, http.MethodGet, "/ok?code=secret", "")
	id := w.Header().Get("X-Request-ID")
	assert.Len(t, id, 26)
	assert.Equal(t, id, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set("X-Request-ID", "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get("X-Request-ID"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "/ok", entries[0].ContextMap()["path"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.EqualValues(t, 404, entries[1].ContextMap()["status"])
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := gin.New()
	r.Use(RecoveryMiddleware(zap.New(core)))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := do(r, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://map.example.com"}))
	r.GET("/api/maps/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/maps/x", nil)
	req.Header.Set("Origin", "https://map.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://map.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/api/maps/x", nil)
	req.Header.Set("Origin", "https://map.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "If-Match")

	req = httptest.NewRequest(http.MethodGet, "/api/maps/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
