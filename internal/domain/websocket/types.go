// internal/domain/websocket/types.go
package websocket

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType represents different real-time event types
type EventType string

const (
	// Connection events
	EventTypePing         EventType = "ping"
	EventTypePong         EventType = "pong"
	EventTypeConnected    EventType = "connected"
	EventTypeDisconnected EventType = "disconnected"
	EventTypeError        EventType = "error"

	// Map events (client -> server)
	EventTypeMapGet EventType = "map:get"

	// Map events (server -> client)
	EventTypeMapSnapshot EventType = "map:snapshot"
	EventTypeMapUpdated  EventType = "map:updated"

	// Session events
	EventTypeSessionRevoked EventType = "session:revoked"

	// System events
	EventTypeSystemAlert EventType = "system:alert"

	// Subscription events
	EventTypeSubscribe   EventType = "subscribe"
	EventTypeUnsubscribe EventType = "unsubscribe"
)

// WSMessage is the universal message format
type WSMessage struct {
	Type      EventType              `json:"type"`
	Data      interface{}            `json:"data,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	ID        string                 `json:"id,omitempty"`
}

// Subscription channels that clients can subscribe to
type ChannelType string

const (
	ChannelSystem ChannelType = "system"

	mapChannelPrefix = "map:"
)

// MapChannel is the channel carrying updates for one map.
func MapChannel(slug string) ChannelType {
	return ChannelType(mapChannelPrefix + slug)
}

// MapSlug returns the slug of a map channel.
func (c ChannelType) MapSlug() (string, bool) {
	if !strings.HasPrefix(string(c), mapChannelPrefix) {
		return "", false
	}
	return strings.TrimPrefix(string(c), mapChannelPrefix), true
}

// SubscribeRequest sent by client to subscribe to specific channels
type SubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// UnsubscribeRequest sent by client to unsubscribe from channels
type UnsubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// MapRequest asks for the current state of a map.
type MapRequest struct {
	Slug string `json:"slug"`
}

// ErrorData for error events
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// MapUpdatedData tells viewers a map changed; they refetch it by ETag.
type MapUpdatedData struct {
	Slug      string `json:"slug"`
	ETag      string `json:"etag"`
	UpdatedAt string `json:"updated_at"`
	UpdatedBy string `json:"updated_by"`
	Markers   int    `json:"markers"`
}

// MapSnapshotData carries a full document.
type MapSnapshotData struct {
	Slug     string      `json:"slug"`
	ETag     string      `json:"etag"`
	Document interface{} `json:"document"`
}

// SessionEventData for session events
type SessionEventData struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// SystemAlertData for system-wide alerts
type SystemAlertData struct {
	Severity string `json:"severity"` // info, warning, critical
	Title    string `json:"title"`
	Message  string `json:"message"`
}

// Helper to create messages
func NewMessage(eventType EventType, data interface{}) *WSMessage {
	return &WSMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
		ID:        ulid.Make().String(),
	}
}

func (m *WSMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ParseMessage(data []byte) (*WSMessage, error) {
	var msg WSMessage
	err := json.Unmarshal(data, &msg)
	return &msg, err
}

// GetData returns the message payload.
func (m *WSMessage) GetData() interface{} {
	return m.Data
}
