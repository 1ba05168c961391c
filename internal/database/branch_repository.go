package database

import (
	"context"
	"database/sql"
	"fmt"
)

// BranchRepository stores cached branches keyed by (repo, name).
type BranchRepository struct {
	ctx *Context
}

func NewBranchRepository(dbCtx *Context) *BranchRepository {
	return &BranchRepository{ctx: dbCtx}
}

func (r *BranchRepository) Upsert(ctx context.Context, repoID int64, branches []BranchRecord) error {
	q := r.ctx.querier(ctx)

	seen := make(map[string]struct{}, len(branches))
	for _, b := range branches {
		if _, ok := seen[b.Name]; ok {
			continue
		}
		seen[b.Name] = struct{}{}

		_, err := q.ExecContext(ctx,
			`INSERT INTO branches (repo_id, name, last_commit_at, total_commits, source_updated_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (repo_id, name) DO UPDATE SET
			     last_commit_at = excluded.last_commit_at,
			     total_commits = excluded.total_commits,
			     source_updated_at = excluded.source_updated_at`,
			repoID, b.Name, nullTime(b.LastCommitAt), b.TotalCommits, nullTime(b.SourceUpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("upsert branch %s: %w", b.Name, err)
		}
	}
	return nil
}

// List returns every cached branch for a repository. Branches carry no
// creation watermark, so there is no since filter.
func (r *BranchRepository) List(ctx context.Context, repoID int64) ([]BranchRecord, error) {
	q := r.ctx.querier(ctx)

	rows, err := q.QueryContext(ctx,
		`SELECT id, repo_id, name, last_commit_at, total_commits, source_updated_at
		 FROM branches WHERE repo_id = $1 ORDER BY name`,
		repoID,
	)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []BranchRecord
	for rows.Next() {
		var (
			b                             BranchRecord
			lastCommitAt, sourceUpdatedAt sql.NullTime
			totalCommits                  sql.NullInt64
		)
		if err := rows.Scan(&b.ID, &b.RepoID, &b.Name, &lastCommitAt, &totalCommits, &sourceUpdatedAt); err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		b.LastCommitAt = timePtr(lastCommitAt)
		b.TotalCommits = optionalInt64(totalCommits)
		b.SourceUpdatedAt = timePtr(sourceUpdatedAt)
		result = append(result, b)
	}
	return result, rows.Err()
}
