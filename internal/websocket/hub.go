// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	wstypes "frontier-map-service/internal/domain/websocket"
	"frontier-map-service/internal/pkg/session"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// SessionValidator resolves a session cookie into claims.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*session.Claims, error)
}

// SessionValidatorFunc adapts a function to SessionValidator.
type SessionValidatorFunc func(ctx context.Context, token string) (*session.Claims, error)

func (f SessionValidatorFunc) ValidateSession(ctx context.Context, token string) (*session.Claims, error) {
	return f(ctx, token)
}

type Hub struct {
	// Registered clients by identity key (user id, or a per-connection key
	// for anonymous viewers)
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	// Registration/unregistration
	Register   chan *Client
	unregister chan *Client

	// Broadcasting
	broadcast chan *BroadcastMessage

	// Handler registry for modular message handling
	handlerRegistry *HandlerRegistry

	sessions SessionValidator
	logger   *zap.Logger

	done     chan struct{}
	doneOnce sync.Once
}

type BroadcastMessage struct {
	// IdentityKeys limits delivery; nil means every subscribed client.
	IdentityKeys []string
	// SessionKey further limits delivery to sockets opened with that session.
	SessionKey string
	Channel    wstypes.ChannelType
	Message    *wstypes.WSMessage
	// Disconnect closes each receiving socket once the message is written.
	Disconnect bool
}

func NewHub(sessions SessionValidator, logger *zap.Logger) *Hub {
	return &Hub{
		clients:         make(map[string]map[*Client]bool),
		Register:        make(chan *Client),
		unregister:      make(chan *Client),
		broadcast:       make(chan *BroadcastMessage, 256),
		handlerRegistry: NewHandlerRegistry(),
		sessions:        sessions,
		logger:          logger,
		done:            make(chan struct{}),
	}
}

// AuthenticateClient resolves the session cookie of a connecting socket.
// Viewers without a valid session connect anonymously.
func (h *Hub) AuthenticateClient(ctx context.Context, token string) *ClientAuth {
	anonymous := &ClientAuth{IdentityKey: "anon:" + ulid.Make().String()}
	if token == "" || h.sessions == nil {
		return anonymous
	}

	claims, err := h.sessions.ValidateSession(ctx, token)
	if err != nil {
		h.logger.Debug("websocket session rejected, connecting anonymously", zap.Error(err))
		return anonymous
	}

	return &ClientAuth{
		IdentityKey:   claims.ID,
		UserID:        claims.ID,
		Username:      claims.Username,
		CanEdit:       claims.CanEdit,
		Authenticated: true,
		SessionKey:    session.Fingerprint(token),
	}
}

// RegisterHandler registers a message handler
func (h *Hub) RegisterHandler(handler MessageHandler) {
	h.handlerRegistry.Register(handler)
}

// HandleClientMessage processes a message from a client using registered handlers
func (h *Hub) HandleClientMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) (bool, error) {
	handler, exists := h.handlerRegistry.GetHandler(msg.Type)
	if !exists {
		return false, nil
	}
	return true, handler.HandleMessage(ctx, client, msg)
}

func (h *Hub) Run(ctx context.Context) {
	defer h.doneOnce.Do(func() { close(h.done) })

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.BroadcastMessage(msg)
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.identityKey] == nil {
		h.clients[client.identityKey] = make(map[*Client]bool)
	}
	h.clients[client.identityKey][client] = true

	h.logger.Info("websocket client connected",
		zap.String("identity", client.identityKey),
		zap.Bool("authenticated", client.authenticated),
		zap.Int("total", h.totalClients()))

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"authenticated": client.authenticated,
		"user_id":       client.userID,
		"username":      client.username,
		"can_edit":      client.canEdit,
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.identityKey]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			client.Close()

			if len(clients) == 0 {
				delete(h.clients, client.identityKey)
			}

			h.logger.Info("websocket client disconnected",
				zap.String("identity", client.identityKey),
				zap.Int("total", h.totalClients()))
		}
	}
}

func (h *Hub) BroadcastMessage(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if msg.IdentityKeys == nil {
		for _, clients := range h.clients {
			for client := range clients {
				h.deliver(client, msg)
			}
		}
		return
	}

	for _, key := range msg.IdentityKeys {
		for client := range h.clients[key] {
			h.deliver(client, msg)
		}
	}
}

func (h *Hub) deliver(client *Client, msg *BroadcastMessage) {
	if !client.IsSubscribed(msg.Channel) {
		return
	}
	if msg.SessionKey != "" && client.sessionKey != msg.SessionKey {
		return
	}
	if msg.Disconnect {
		client.Revoke(msg.Message)
		return
	}
	client.SendMessage(msg.Message)
}

func (h *Hub) GetConnectedClients(identityKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.clients[identityKey]; ok {
		return len(clients)
	}
	return 0
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalClients()
}

// Public methods for broadcasting

// BroadcastMapUpdated tells everyone watching a map that it changed.
func (h *Hub) BroadcastMapUpdated(update *wstypes.MapUpdatedData) {
	h.enqueue(&BroadcastMessage{
		Channel: wstypes.MapChannel(update.Slug),
		Message: wstypes.NewMessage(wstypes.EventTypeMapUpdated, update),
	})
}

func (h *Hub) BroadcastSystemAlert(alert *wstypes.SystemAlertData) {
	h.enqueue(&BroadcastMessage{
		Channel: wstypes.ChannelSystem,
		Message: wstypes.NewMessage(wstypes.EventTypeSystemAlert, alert),
	})
}

// ForceLogout tells the sockets opened with a revoked session, identified by
// its fingerprint, that they were logged out, then closes them. The user's
// other sessions are left alone.
func (h *Hub) ForceLogout(userID, sessionKey, reason string) {
	if sessionKey == "" {
		return
	}
	h.enqueue(&BroadcastMessage{
		IdentityKeys: []string{userID},
		SessionKey:   sessionKey,
		Disconnect:   true,
		Channel:      wstypes.ChannelSystem,
		Message: wstypes.NewMessage(wstypes.EventTypeSessionRevoked, wstypes.SessionEventData{
			Reason:  reason,
			Message: "You have been logged out",
		}),
	})
}

// IsUserConnected checks if a user has any active connections
func (h *Hub) IsUserConnected(userID string) bool {
	return h.GetConnectedClients(userID) > 0
}

func (h *Hub) enqueue(msg *BroadcastMessage) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping message",
			zap.String("type", string(msg.Message.Type)),
			zap.String("channel", string(msg.Channel)))
	}
}

func (h *Hub) requestUnregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for key, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
		delete(h.clients, key)
	}
	h.logger.Info("websocket hub stopped")
}

// RegisterClient hands client to the run loop. It reports false once the hub
// has stopped.
func (h *Hub) RegisterClient(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}
