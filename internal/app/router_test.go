package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"frontier-map-service/internal/config"
	"frontier-map-service/internal/domain/mapdoc"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, auth config.AuthConfig) *Server {
	t.Helper()

	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>editor</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(static, "app.js"), []byte("console.log(1)"), 0o644))

	cfg := config.AppConfig{
		HTTPAddr:   "127.0.0.1:0",
		Env:        "test",
		StaticDir:  static,
		MapDataDir: t.TempDir(),
		Auth:       auth,
	}

	srv, err := newServer(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func configuredAuth() config.AuthConfig {
	return config.AuthConfig{
		DiscordClientID:     "cid",
		DiscordClientSecret: "csecret",
		DiscordRedirectURI:  "http://localhost:8000/api/login",
		DiscordAPIBase:      "http://127.0.0.1:1",
		SessionSecret:       "s3cret",
		CookieName:          "rp_session",
		SessionMaxAge:       time.Hour,
		StateTTL:            time.Minute,
		LoginRedirectPath:   "/",
	}
}

func do(srv *Server, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestRouter_Health(t *testing.T) {
	srv := newTestServer(t, configuredAuth())

	w := do(srv, http.MethodGet, "/api/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_MapRoutes(t *testing.T) {
	srv := newTestServer(t, configuredAuth())

	api := do(srv, http.MethodGet, "/api/maps/rdo_main")
	require.Equal(t, http.StatusOK, api.Code)
	assert.Equal(t, mapdoc.EmptyETag(), api.Header().Get("ETag"))

	file := do(srv, http.MethodGet, "/data/maps/rdo_main.json")
	require.Equal(t, http.StatusOK, file.Code)
	assert.Equal(t, api.Body.String(), file.Body.String())

	var doc mapdoc.Document
	require.NoError(t, json.Unmarshal(file.Body.Bytes(), &doc))
	assert.Equal(t, 1, doc.Version)
	assert.Empty(t, doc.Markers)

	assert.Equal(t, http.StatusNotFound, do(srv, http.MethodGet, "/data/maps/rdo_main.txt").Code)
	assert.Equal(t, http.StatusUnauthorized, do(srv, http.MethodPut, "/api/maps/rdo_main").Code)
	assert.Equal(t, http.StatusUnauthorized, do(srv, http.MethodGet, "/api/ws/stats").Code)
}

func TestRouter_MeAnonymous(t *testing.T) {
	srv := newTestServer(t, configuredAuth())

	w := do(srv, http.MethodGet, "/api/me")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			Authenticated bool `json:"authenticated"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Data.Authenticated)
}

func TestRouter_LoginRedirects(t *testing.T) {
	srv := newTestServer(t, configuredAuth())

	w := do(srv, http.MethodGet, "/api/login")

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "/oauth2/authorize")
}

func TestRouter_LoginWithoutConfig(t *testing.T) {
	srv := newTestServer(t, config.AuthConfig{CookieName: "rp_session", StateTTL: time.Minute})

	w := do(srv, http.MethodGet, "/api/login")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/api/health").Code)
}

func TestRouter_NoRoute(t *testing.T) {
	srv := newTestServer(t, configuredAuth())

	api := do(srv, http.MethodGet, "/api/nope")
	assert.Equal(t, http.StatusNotFound, api.Code)
	assert.Contains(t, api.Body.String(), `"success":false`)

	asset := do(srv, http.MethodGet, "/app.js")
	assert.Equal(t, http.StatusOK, asset.Code)
	assert.Equal(t, "console.log(1)", asset.Body.String())

	page := do(srv, http.MethodGet, "/maps/rdo_main")
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "editor")

	assert.Equal(t, http.StatusNotFound, do(srv, http.MethodPost, "/maps/rdo_main").Code)
}
