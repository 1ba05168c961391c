package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PullRequestRepository stores cached pull requests keyed by (repo, github id).
type PullRequestRepository struct {
	ctx *Context
}

func NewPullRequestRepository(dbCtx *Context) *PullRequestRepository {
	return &PullRequestRepository{ctx: dbCtx}
}

func (r *PullRequestRepository) Upsert(ctx context.Context, repoID int64, prs []PullRequestRecord) error {
	q := r.ctx.querier(ctx)

	seen := make(map[string]struct{}, len(prs))
	for _, pr := range prs {
		if _, ok := seen[pr.GitHubID]; ok {
			continue
		}
		seen[pr.GitHubID] = struct{}{}

		labels, err := encodeLabels(pr.Labels)
		if err != nil {
			return fmt.Errorf("encode labels for pr %s: %w", pr.GitHubID, err)
		}

		_, err = q.ExecContext(ctx,
			`INSERT INTO pull_requests (repo_id, github_id, created_at, merged_at, closed_at, state,
			                            author_login, first_comment_at, first_comment_author, labels, source_updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 ON CONFLICT (repo_id, github_id) DO UPDATE SET
			     created_at = excluded.created_at,
			     merged_at = excluded.merged_at,
			     closed_at = excluded.closed_at,
			     state = excluded.state,
			     author_login = excluded.author_login,
			     first_comment_at = excluded.first_comment_at,
			     first_comment_author = excluded.first_comment_author,
			     labels = excluded.labels,
			     source_updated_at = excluded.source_updated_at`,
			repoID, pr.GitHubID, nullTime(pr.CreatedAt), nullTime(pr.MergedAt), nullTime(pr.ClosedAt),
			nullString(pr.State), nullString(pr.AuthorLogin), nullTime(pr.FirstCommentAt),
			nullString(pr.FirstCommentAuthor), labels, nullTime(pr.SourceUpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("upsert pr %s: %w", pr.GitHubID, err)
		}
	}
	return nil
}

func (r *PullRequestRepository) List(ctx context.Context, repoID int64, since *time.Time) ([]PullRequestRecord, error) {
	q := r.ctx.querier(ctx)

	query := `SELECT id, repo_id, github_id, created_at, merged_at, closed_at, state, author_login,
	                 first_comment_at, first_comment_author, labels, source_updated_at
	          FROM pull_requests WHERE repo_id = $1 ORDER BY created_at DESC`
	args := []any{repoID}
	if since != nil {
		query = `SELECT id, repo_id, github_id, created_at, merged_at, closed_at, state, author_login,
		                first_comment_at, first_comment_author, labels, source_updated_at
		         FROM pull_requests WHERE repo_id = $1 AND created_at >= $2 ORDER BY created_at DESC`
		args = append(args, *since)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list prs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []PullRequestRecord
	for rows.Next() {
		var (
			pr                                         PullRequestRecord
			createdAt, mergedAt, closedAt              sql.NullTime
			firstCommentAt, sourceUpdatedAt            sql.NullTime
			state, authorLogin, firstCommentBy, labels sql.NullString
		)
		if err := rows.Scan(&pr.ID, &pr.RepoID, &pr.GitHubID, &createdAt, &mergedAt, &closedAt,
			&state, &authorLogin, &firstCommentAt, &firstCommentBy, &labels, &sourceUpdatedAt); err != nil {
			return nil, fmt.Errorf("scan pr: %w", err)
		}
		pr.CreatedAt = timePtr(createdAt)
		pr.MergedAt = timePtr(mergedAt)
		pr.ClosedAt = timePtr(closedAt)
		pr.State = optionalString(state)
		pr.AuthorLogin = optionalString(authorLogin)
		pr.FirstCommentAt = timePtr(firstCommentAt)
		pr.FirstCommentAuthor = optionalString(firstCommentBy)
		pr.SourceUpdatedAt = timePtr(sourceUpdatedAt)
		if pr.Labels, err = decodeLabels(labels); err != nil {
			return nil, fmt.Errorf("decode labels for pr %s: %w", pr.GitHubID, err)
		}
		result = append(result, pr)
	}
	return result, rows.Err()
}
