package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	wstypes "frontier-map-service/internal/domain/websocket"
	"frontier-map-service/internal/pkg/session"
	ws "frontier-map-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(t *testing.T, origins []string) *httptest.Server {
	t.Helper()
	hub := ws.NewHub(ws.SessionValidatorFunc(func(_ context.Context, token string) (*session.Claims, error) {
		if token == "alice-token" {
			return &session.Claims{ID: "42", Username: "Alice#0", CanEdit: true}, nil
		}
		return nil, errors.New("invalid")
	}), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})

	h := NewWebSocketHandler(hub, session.NewCookieTransport("rp_session", time.Hour, false), origins, zap.NewNop())
	r := gin.New()
	r.GET("/ws", h.HandleConnection)
	r.GET("/stats", h.GetStats)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestHandleConnection_SessionCookie(t *testing.T) {
	srv := newServer(t, nil)

	header := http.Header{}
	header.Set("Cookie", "rp_session=alice-token")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := wstypes.ParseMessage(data)
	require.NoError(t, err)

	assert.Equal(t, wstypes.EventTypeConnected, msg.Type)
	payload := msg.Data.(map[string]interface{})
	assert.Equal(t, true, payload["authenticated"])
	assert.Equal(t, "42", payload["user_id"])
}

func TestHandleConnection_RejectsForeignOrigin(t *testing.T) {
	srv := newServer(t, []string{"https://frontier.example"})

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		host    string
		want    bool
	}{
		{name: "no origin header", origin: "", host: "a.example", want: true},
		{name: "same host by default", origin: "https://a.example", host: "a.example", want: true},
		{name: "other host by default", origin: "https://b.example", host: "a.example", want: false},
		{name: "listed origin", allowed: []string{"https://b.example"}, origin: "https://B.example", host: "a.example", want: true},
		{name: "unlisted origin", allowed: []string{"https://b.example"}, origin: "https://c.example", host: "a.example", want: false},
		{name: "wildcard", allowed: []string{"*"}, origin: "https://c.example", host: "a.example", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, originChecker(tt.allowed)(r))
		})
	}
}

func TestGetStats(t *testing.T) {
	srv := newServer(t, nil)

	resp, err := http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
