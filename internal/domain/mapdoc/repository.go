// internal/domain/mapdoc/repository.go
package mapdoc

import (
	"context"
	"time"
)

// Editor identifies who saved a revision.
type Editor struct {
	ID       string
	Username string
}

// Stored is a persisted document body with its metadata.
type Stored struct {
	Slug      string
	Body      []byte
	ETag      string
	UpdatedAt time.Time
	UpdatedBy string
}

type Repository interface {
	// Get returns xerrors.ErrNotFound for a map that was never saved.
	Get(ctx context.Context, slug string) (*Stored, error)
	// Put replaces the body. When expectETag is non-empty the current tag
	// (EmptyETag for a missing map) must equal it, else xerrors.ErrConflict.
	Put(ctx context.Context, slug string, body []byte, expectETag string, editor Editor) (*Stored, error)
}

// Revision is one entry of a map's save history.
type Revision struct {
	ID         string    `json:"id"`
	Slug       string    `json:"slug"`
	ETag       string    `json:"etag"`
	EditorID   string    `json:"editor_id"`
	EditorName string    `json:"editor_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// RevisionLister is implemented by repositories that keep history.
type RevisionLister interface {
	Revisions(ctx context.Context, slug string, limit int) ([]*Revision, error)
}
