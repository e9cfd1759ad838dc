// internal/repository/postgres/map_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"frontier-map-service/internal/domain/mapdoc"
	xerrors "frontier-map-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
)

const mapSchema = `
	CREATE TABLE IF NOT EXISTS map_documents (
		slug        TEXT PRIMARY KEY,
		body        TEXT NOT NULL,
		etag        TEXT NOT NULL,
		updated_by  TEXT NOT NULL DEFAULT '',
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS map_revisions (
		id           TEXT PRIMARY KEY,
		slug         TEXT NOT NULL,
		body         TEXT NOT NULL,
		etag         TEXT NOT NULL,
		editor_id    TEXT NOT NULL,
		editor_name  TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_map_revisions_slug_created
		ON map_revisions (slug, created_at DESC);
`

type MapRepository struct {
	db *DB
}

// NewMapRepository takes a *pgxpool.Pool in production.
func NewMapRepository(conn Conn) *MapRepository {
	return &MapRepository{db: NewDB(conn)}
}

// EnsureSchema creates the map tables when missing.
func (r *MapRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Conn().Exec(ctx, mapSchema); err != nil {
		return fmt.Errorf("failed to ensure map schema: %w", err)
	}
	return nil
}

// Get retrieves the current body of a map
func (r *MapRepository) Get(ctx context.Context, slug string) (*mapdoc.Stored, error) {
	query := `
		SELECT slug, body, etag, updated_by, updated_at
		FROM map_documents
		WHERE slug = $1
	`

	var (
		stored mapdoc.Stored
		body   string
	)
	err := r.db.Conn().QueryRow(ctx, query, slug).Scan(
		&stored.Slug, &body, &stored.ETag, &stored.UpdatedBy, &stored.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get map: %w", err)
	}

	stored.Body = []byte(body)
	return &stored, nil
}

// Put upserts the current body and appends a revision in one transaction.
func (r *MapRepository) Put(ctx context.Context, slug string, body []byte, expectETag string, editor mapdoc.Editor) (*mapdoc.Stored, error) {
	etag := mapdoc.ETag(body)
	now := time.Now().UTC()

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := lockKey(ctx, tx, "map:"+slug); err != nil {
			return err
		}
		if expectETag != "" {
			if err := checkETag(ctx, tx, slug, expectETag); err != nil {
				return err
			}
		}

		upsert := `
			INSERT INTO map_documents (slug, body, etag, updated_by, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (slug) DO UPDATE
			SET body = EXCLUDED.body,
			    etag = EXCLUDED.etag,
			    updated_by = EXCLUDED.updated_by,
			    updated_at = EXCLUDED.updated_at
		`
		if _, err := tx.Exec(ctx, upsert, slug, string(body), etag, editor.ID, now); err != nil {
			return fmt.Errorf("failed to save map: %w", err)
		}

		revision := `
			INSERT INTO map_revisions (id, slug, body, etag, editor_id, editor_name, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		if _, err := tx.Exec(ctx, revision, ulid.Make().String(), slug, string(body), etag, editor.ID, editor.Username, now); err != nil {
			return fmt.Errorf("failed to record map revision: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &mapdoc.Stored{
		Slug:      slug,
		Body:      body,
		ETag:      etag,
		UpdatedAt: now,
		UpdatedBy: editor.ID,
	}, nil
}

// Revisions lists the most recent saves of a map, newest first.
func (r *MapRepository) Revisions(ctx context.Context, slug string, limit int) ([]*mapdoc.Revision, error) {
	query := `
		SELECT id, etag, editor_id, editor_name, created_at
		FROM map_revisions
		WHERE slug = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.Conn().Query(ctx, query, slug, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list revisions: %w", err)
	}
	defer rows.Close()

	revisions := make([]*mapdoc.Revision, 0)
	for rows.Next() {
		rev := &mapdoc.Revision{Slug: slug}
		if err := rows.Scan(&rev.ID, &rev.ETag, &rev.EditorID, &rev.EditorName, &rev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", err)
		}
		revisions = append(revisions, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate revisions: %w", err)
	}
	return revisions, nil
}

func checkETag(ctx context.Context, tx pgx.Tx, slug, expectETag string) error {
	var current string
	err := tx.QueryRow(ctx, `SELECT etag FROM map_documents WHERE slug = $1`, slug).Scan(&current)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		current = mapdoc.EmptyETag()
	case err != nil:
		return fmt.Errorf("failed to read map etag: %w", err)
	}
	if current != expectETag {
		return xerrors.ErrConflict
	}
	return nil
}
