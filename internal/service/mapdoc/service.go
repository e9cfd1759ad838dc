// internal/service/mapdoc/service.go
package mapdoc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"frontier-map-service/internal/domain/mapdoc"
	wstypes "frontier-map-service/internal/domain/websocket"
	xerrors "frontier-map-service/internal/pkg/errors"
	"frontier-map-service/internal/pkg/session"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	markerIDPrefix      = "m_"
	defaultRevisionPage = 20
	maxRevisionPage     = 100
)

// Broadcaster fans map changes out to live viewers.
type Broadcaster interface {
	BroadcastMapUpdated(update *wstypes.MapUpdatedData)
}

type MapService struct {
	repo        mapdoc.Repository
	broadcaster Broadcaster
	validate    *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

func NewMapService(repo mapdoc.Repository, broadcaster Broadcaster, logger *zap.Logger) (*MapService, error) {
	v := validator.New()
	v.SetTagName("binding")
	if err := mapdoc.RegisterValidations(v); err != nil {
		return nil, fmt.Errorf("failed to register validations: %w", err)
	}

	return &MapService{
		repo:        repo,
		broadcaster: broadcaster,
		validate:    v,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// Get returns the stored body of a map. Unknown maps come back as an empty
// document so the editor can start clean.
func (s *MapService) Get(ctx context.Context, slug string) (*mapdoc.Stored, error) {
	if !mapdoc.ValidSlug(slug) {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrInvalidInput, mapdoc.ErrInvalidSlug)
	}

	stored, err := s.repo.Get(ctx, slug)
	if errors.Is(err, xerrors.ErrNotFound) {
		body, err := mapdoc.Encode(mapdoc.Empty())
		if err != nil {
			return nil, fmt.Errorf("failed to encode empty map: %w", err)
		}
		return &mapdoc.Stored{Slug: slug, Body: body, ETag: mapdoc.ETag(body)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load map %s: %w", slug, err)
	}
	return stored, nil
}

// GetDocument is Get decoded into a Document.
func (s *MapService) GetDocument(ctx context.Context, slug string) (*mapdoc.Document, string, error) {
	stored, err := s.Get(ctx, slug)
	if err != nil {
		return nil, "", err
	}

	var doc mapdoc.Document
	if err := json.Unmarshal(stored.Body, &doc); err != nil {
		return nil, "", fmt.Errorf("stored map %s is corrupt: %w", slug, err)
	}
	doc.Normalize()
	return &doc, stored.ETag, nil
}

// Save validates and persists doc on behalf of editor. ifMatch, when set,
// must name the current ETag ("*" matches anything).
func (s *MapService) Save(ctx context.Context, slug string, doc *mapdoc.Document, ifMatch string, editor *session.Claims) (*mapdoc.Stored, error) {
	if editor == nil {
		return nil, xerrors.ErrUnauthorized
	}
	if !editor.CanEdit {
		return nil, xerrors.ErrForbidden
	}
	if !mapdoc.ValidSlug(slug) {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrInvalidInput, mapdoc.ErrInvalidSlug)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document is required", xerrors.ErrInvalidInput)
	}

	doc.Normalize()
	assignMarkerIDs(doc)
	if err := s.validate.Struct(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrInvalidInput, err)
	}
	if err := checkDuplicateIDs(doc); err != nil {
		return nil, err
	}
	doc.Touch(s.now())

	body, err := mapdoc.Encode(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode map: %w", err)
	}

	stored, err := s.repo.Put(ctx, slug, body, normalizeIfMatch(ifMatch), mapdoc.Editor{
		ID:       editor.ID,
		Username: editor.Username,
	})
	if err != nil {
		if errors.Is(err, xerrors.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save map %s: %w", slug, err)
	}

	s.logger.Info("map saved",
		zap.String("slug", slug),
		zap.String("editor_id", editor.ID),
		zap.Int("markers", len(doc.Markers)),
		zap.String("etag", stored.ETag))

	if s.broadcaster != nil {
		s.broadcaster.BroadcastMapUpdated(&wstypes.MapUpdatedData{
			Slug:      slug,
			ETag:      stored.ETag,
			UpdatedAt: doc.UpdatedAt,
			UpdatedBy: editor.Username,
			Markers:   len(doc.Markers),
		})
	}
	return stored, nil
}

// Revisions lists recent saves when the backing store keeps history.
func (s *MapService) Revisions(ctx context.Context, slug string, limit int) ([]*mapdoc.Revision, error) {
	if !mapdoc.ValidSlug(slug) {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrInvalidInput, mapdoc.ErrInvalidSlug)
	}
	lister, ok := s.repo.(mapdoc.RevisionLister)
	if !ok {
		return []*mapdoc.Revision{}, nil
	}

	if limit <= 0 {
		limit = defaultRevisionPage
	}
	if limit > maxRevisionPage {
		limit = maxRevisionPage
	}
	return lister.Revisions(ctx, slug, limit)
}

func assignMarkerIDs(doc *mapdoc.Document) {
	for i := range doc.Markers {
		if strings.TrimSpace(doc.Markers[i].ID) == "" {
			doc.Markers[i].ID = markerIDPrefix + uuid.NewString()
		}
	}
}

func checkDuplicateIDs(doc *mapdoc.Document) error {
	seen := make(map[string]struct{}, len(doc.Markers))
	for _, m := range doc.Markers {
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("%w: duplicate marker id %q", xerrors.ErrInvalidInput, m.ID)
		}
		seen[m.ID] = struct{}{}
	}
	return nil
}

func normalizeIfMatch(ifMatch string) string {
	ifMatch = strings.TrimSpace(ifMatch)
	if ifMatch == "*" {
		return ""
	}
	return strings.TrimPrefix(ifMatch, "W/")
}
