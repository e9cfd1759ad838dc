package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"frontier-map-service/internal/domain/mapdoc"
	xerrors "frontier-map-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var editor = mapdoc.Editor{ID: "42", Username: "Alice#0"}

func TestMapRepository_GetMissing(t *testing.T) {
	repo, err := NewMapRepository(t.TempDir())
	require.NoError(t, err)

	_, err = repo.Get(context.Background(), "rdo_main")
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestMapRepository_PutAndGet(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewMapRepository(dir)
	require.NoError(t, err)
	ctx := context.Background()

	body := []byte(`{"version":1,"updatedAt":"","markers":[]}`)
	stored, err := repo.Put(ctx, "rdo_main", body, "", editor)
	require.NoError(t, err)
	assert.Equal(t, mapdoc.ETag(body), stored.ETag)
	assert.Equal(t, "42", stored.UpdatedBy)

	onDisk, err := os.ReadFile(filepath.Join(dir, "rdo_main.json"))
	require.NoError(t, err)
	assert.Equal(t, body, onDisk)

	got, err := repo.Get(ctx, "rdo_main")
	require.NoError(t, err)
	assert.Equal(t, body, got.Body)
	assert.Equal(t, stored.ETag, got.ETag)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestMapRepository_ConditionalPut(t *testing.T) {
	repo, err := NewMapRepository(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = repo.Put(ctx, "m", []byte(`{}`), `"stale"`, editor)
	assert.ErrorIs(t, err, xerrors.ErrConflict)

	first, err := repo.Put(ctx, "m", []byte(`{"a":1}`), mapdoc.EmptyETag(), editor)
	require.NoError(t, err)

	_, err = repo.Put(ctx, "m", []byte(`{"a":2}`), mapdoc.EmptyETag(), editor)
	assert.ErrorIs(t, err, xerrors.ErrConflict)

	second, err := repo.Put(ctx, "m", []byte(`{"a":2}`), first.ETag, editor)
	require.NoError(t, err)
	assert.NotEqual(t, first.ETag, second.ETag)
}

func TestMapRepository_RejectsBadSlug(t *testing.T) {
	repo, err := NewMapRepository(t.TempDir())
	require.NoError(t, err)

	_, err = repo.Put(context.Background(), "../escape", []byte(`{}`), "", editor)
	assert.ErrorIs(t, err, mapdoc.ErrInvalidSlug)

	_, err = repo.Get(context.Background(), "../escape")
	assert.ErrorIs(t, err, mapdoc.ErrInvalidSlug)
}
