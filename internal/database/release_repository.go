package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ReleaseRepository stores cached releases keyed by (repo, tag).
type ReleaseRepository struct {
	ctx *Context
}

func NewReleaseRepository(dbCtx *Context) *ReleaseRepository {
	return &ReleaseRepository{ctx: dbCtx}
}

func (r *ReleaseRepository) Upsert(ctx context.Context, repoID int64, releases []ReleaseRecord) error {
	q := r.ctx.querier(ctx)

	seen := make(map[string]struct{}, len(releases))
	for _, rel := range releases {
		if _, ok := seen[rel.TagName]; ok {
			continue
		}
		seen[rel.TagName] = struct{}{}

		_, err := q.ExecContext(ctx,
			`INSERT INTO releases (repo_id, tag_name, name, published_at, total_downloads, source_updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (repo_id, tag_name) DO UPDATE SET
			     name = excluded.name,
			     published_at = excluded.published_at,
			     total_downloads = excluded.total_downloads,
			     source_updated_at = excluded.source_updated_at`,
			repoID, rel.TagName, nullString(rel.Name), nullTime(rel.PublishedAt),
			rel.TotalDownloads, nullTime(rel.SourceUpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("upsert release %s: %w", rel.TagName, err)
		}
	}
	return nil
}

func (r *ReleaseRepository) List(ctx context.Context, repoID int64, since *time.Time) ([]ReleaseRecord, error) {
	q := r.ctx.querier(ctx)

	query := `SELECT id, repo_id, tag_name, name, published_at, total_downloads, source_updated_at
	          FROM releases WHERE repo_id = $1 ORDER BY published_at DESC`
	args := []any{repoID}
	if since != nil {
		query = `SELECT id, repo_id, tag_name, name, published_at, total_downloads, source_updated_at
		         FROM releases WHERE repo_id = $1 AND published_at >= $2 ORDER BY published_at DESC`
		args = append(args, *since)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list releases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []ReleaseRecord
	for rows.Next() {
		var (
			rel                          ReleaseRecord
			name                         sql.NullString
			publishedAt, sourceUpdatedAt sql.NullTime
			totalDownloads               sql.NullInt64
		)
		if err := rows.Scan(&rel.ID, &rel.RepoID, &rel.TagName, &name, &publishedAt,
			&totalDownloads, &sourceUpdatedAt); err != nil {
			return nil, fmt.Errorf("scan release: %w", err)
		}
		rel.Name = optionalString(name)
		rel.PublishedAt = timePtr(publishedAt)
		rel.TotalDownloads = optionalInt64(totalDownloads)
		rel.SourceUpdatedAt = timePtr(sourceUpdatedAt)
		result = append(result, rel)
	}
	return result, rows.Err()
}
