package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CommitRepository stores cached commits keyed by (repo, oid).
type CommitRepository struct {
	ctx *Context
}

func NewCommitRepository(dbCtx *Context) *CommitRepository {
	return &CommitRepository{ctx: dbCtx}
}

// Upsert inserts or replaces each commit. Repeating the same batch leaves the
// stored state unchanged; last writer wins on payload fields. Duplicate keys
// within one batch collapse to the first occurrence.
func (r *CommitRepository) Upsert(ctx context.Context, repoID int64, commits []CommitRecord) error {
	q := r.ctx.querier(ctx)

	seen := make(map[string]struct{}, len(commits))
	for _, c := range commits {
		if _, ok := seen[c.OID]; ok {
			continue
		}
		seen[c.OID] = struct{}{}

		_, err := q.ExecContext(ctx,
			`INSERT INTO commits (repo_id, oid, authored_at, author_login, additions, deletions, message, source_updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (repo_id, oid) DO UPDATE SET
			     authored_at = excluded.authored_at,
			     author_login = excluded.author_login,
			     additions = excluded.additions,
			     deletions = excluded.deletions,
			     message = excluded.message,
			     source_updated_at = excluded.source_updated_at`,
			repoID, c.OID, nullTime(c.AuthoredAt), nullString(c.AuthorLogin),
			c.Additions, c.Deletions, nullString(c.Message), nullTime(c.SourceUpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("upsert commit %s: %w", c.OID, err)
		}
	}
	return nil
}

// List returns the cached commits for a repository, newest first. A non-nil
// since bounds the result to commits authored at or after it.
func (r *CommitRepository) List(ctx context.Context, repoID int64, since *time.Time) ([]CommitRecord, error) {
	q := r.ctx.querier(ctx)

	query := `SELECT id, repo_id, oid, authored_at, author_login, additions, deletions, message, source_updated_at
	          FROM commits WHERE repo_id = $1 ORDER BY authored_at DESC`
	args := []any{repoID}
	if since != nil {
		query = `SELECT id, repo_id, oid, authored_at, author_login, additions, deletions, message, source_updated_at
		         FROM commits WHERE repo_id = $1 AND authored_at >= $2 ORDER BY authored_at DESC`
		args = append(args, *since)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []CommitRecord
	for rows.Next() {
		var (
			c                           CommitRecord
			authoredAt, sourceUpdatedAt sql.NullTime
			authorLogin, message        sql.NullString
			additions, deletions        sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.RepoID, &c.OID, &authoredAt, &authorLogin,
			&additions, &deletions, &message, &sourceUpdatedAt); err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		c.AuthoredAt = timePtr(authoredAt)
		c.AuthorLogin = optionalString(authorLogin)
		c.Additions = optionalInt64(additions)
		c.Deletions = optionalInt64(deletions)
		c.Message = optionalString(message)
		c.SourceUpdatedAt = timePtr(sourceUpdatedAt)
		result = append(result, c)
	}
	return result, rows.Err()
}
