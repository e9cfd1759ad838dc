// internal/websocket/handler/mapdoc.go
package handler

import (
	"context"
	"fmt"

	"frontier-map-service/internal/domain/mapdoc"
	wstypes "frontier-map-service/internal/domain/websocket"
	ws "frontier-map-service/internal/websocket"
)

// MapReader loads the current document of a map.
type MapReader interface {
	GetDocument(ctx context.Context, slug string) (*mapdoc.Document, string, error)
}

// MapHandler answers map:get with a snapshot and subscribes the caller to the
// map's channel so it sees later updates.
type MapHandler struct {
	maps MapReader
}

func NewMapHandler(maps MapReader) *MapHandler {
	return &MapHandler{maps: maps}
}

func (h *MapHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{wstypes.EventTypeMapGet}
}

func (h *MapHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	switch msg.Type {
	case wstypes.EventTypeMapGet:
		return h.handleGet(ctx, client, msg)
	default:
		return fmt.Errorf("unsupported event type: %s", msg.Type)
	}
}

func (h *MapHandler) handleGet(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	var req wstypes.MapRequest
	if err := ws.DecodeData(msg, &req); err != nil {
		return fmt.Errorf("invalid map request: %w", err)
	}
	if !mapdoc.ValidSlug(req.Slug) {
		return mapdoc.ErrInvalidSlug
	}

	doc, etag, err := h.maps.GetDocument(ctx, req.Slug)
	if err != nil {
		return err
	}

	client.Subscribe(wstypes.MapChannel(req.Slug))
	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeMapSnapshot, wstypes.MapSnapshotData{
		Slug:     req.Slug,
		ETag:     etag,
		Document: doc,
	}))
	return nil
}
