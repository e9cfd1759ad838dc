// internal/websocket/errors.go
package websocket

import "errors"

var (
	ErrHubStopped     = errors.New("websocket hub has stopped")
	ErrInvalidRequest = errors.New("invalid websocket request")
)
