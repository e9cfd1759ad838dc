// internal/repository/file/map_repo.go
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"frontier-map-service/internal/domain/mapdoc"
	xerrors "frontier-map-service/internal/pkg/errors"
)

// MapRepository keeps each map as <dir>/<slug>.json, the layout the static
// editor already reads from.
type MapRepository struct {
	dir string
	mu  sync.Mutex
}

func NewMapRepository(dir string) (*MapRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create map dir: %w", err)
	}
	return &MapRepository{dir: dir}, nil
}

func (r *MapRepository) Get(_ context.Context, slug string) (*mapdoc.Stored, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read(slug)
}

func (r *MapRepository) Put(_ context.Context, slug string, body []byte, expectETag string, editor mapdoc.Editor) (*mapdoc.Stored, error) {
	if !mapdoc.ValidSlug(slug) {
		return nil, mapdoc.ErrInvalidSlug
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if expectETag != "" {
		current := mapdoc.EmptyETag()
		stored, err := r.read(slug)
		switch {
		case err == nil:
			current = stored.ETag
		case !errors.Is(err, xerrors.ErrNotFound):
			return nil, err
		}
		if current != expectETag {
			return nil, xerrors.ErrConflict
		}
	}

	tmp, err := os.CreateTemp(r.dir, "."+slug+"-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write map: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to sync map: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close map: %w", err)
	}
	if err := os.Rename(tmpName, r.path(slug)); err != nil {
		return nil, fmt.Errorf("failed to replace map: %w", err)
	}

	stored, err := r.read(slug)
	if err != nil {
		return nil, err
	}
	stored.UpdatedBy = editor.ID
	return stored, nil
}

func (r *MapRepository) read(slug string) (*mapdoc.Stored, error) {
	if !mapdoc.ValidSlug(slug) {
		return nil, mapdoc.ErrInvalidSlug
	}

	path := r.path(slug)
	body, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read map: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat map: %w", err)
	}

	return &mapdoc.Stored{
		Slug:      slug,
		Body:      body,
		ETag:      mapdoc.ETag(body),
		UpdatedAt: info.ModTime().UTC(),
	}, nil
}

func (r *MapRepository) path(slug string) string {
	return filepath.Join(r.dir, slug+".json")
}
