package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// IssueRepository stores cached issues keyed by (repo, github id).
type IssueRepository struct {
	ctx *Context
}

func NewIssueRepository(dbCtx *Context) *IssueRepository {
	return &IssueRepository{ctx: dbCtx}
}

func (r *IssueRepository) Upsert(ctx context.Context, repoID int64, issues []IssueRecord) error {
	q := r.ctx.querier(ctx)

	seen := make(map[string]struct{}, len(issues))
	for _, issue := range issues {
		if _, ok := seen[issue.GitHubID]; ok {
			continue
		}
		seen[issue.GitHubID] = struct{}{}

		labels, err := encodeLabels(issue.Labels)
		if err != nil {
			return fmt.Errorf("encode labels for issue %s: %w", issue.GitHubID, err)
		}

		_, err = q.ExecContext(ctx,
			`INSERT INTO issues (repo_id, github_id, created_at, closed_at, state, author_login,
			                     first_comment_at, first_comment_author, labels, source_updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (repo_id, github_id) DO UPDATE SET
			     created_at = excluded.created_at,
			     closed_at = excluded.closed_at,
			     state = excluded.state,
			     author_login = excluded.author_login,
			     first_comment_at = excluded.first_comment_at,
			     first_comment_author = excluded.first_comment_author,
			     labels = excluded.labels,
			     source_updated_at = excluded.source_updated_at`,
			repoID, issue.GitHubID, nullTime(issue.CreatedAt), nullTime(issue.ClosedAt),
			nullString(issue.State), nullString(issue.AuthorLogin), nullTime(issue.FirstCommentAt),
			nullString(issue.FirstCommentAuthor), labels, nullTime(issue.SourceUpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("upsert issue %s: %w", issue.GitHubID, err)
		}
	}
	return nil
}

func (r *IssueRepository) List(ctx context.Context, repoID int64, since *time.Time) ([]IssueRecord, error) {
	q := r.ctx.querier(ctx)

	query := `SELECT id, repo_id, github_id, created_at, closed_at, state, author_login,
	                 first_comment_at, first_comment_author, labels, source_updated_at
	          FROM issues WHERE repo_id = $1 ORDER BY created_at DESC`
	args := []any{repoID}
	if since != nil {
		query = `SELECT id, repo_id, github_id, created_at, closed_at, state, author_login,
		                first_comment_at, first_comment_author, labels, source_updated_at
		         FROM issues WHERE repo_id = $1 AND created_at >= $2 ORDER BY created_at DESC`
		args = append(args, *since)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []IssueRecord
	for rows.Next() {
		var (
			issue                                      IssueRecord
			createdAt, closedAt                        sql.NullTime
			firstCommentAt, sourceUpdatedAt            sql.NullTime
			state, authorLogin, firstCommentBy, labels sql.NullString
		)
		if err := rows.Scan(&issue.ID, &issue.RepoID, &issue.GitHubID, &createdAt, &closedAt,
			&state, &authorLogin, &firstCommentAt, &firstCommentBy, &labels, &sourceUpdatedAt); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issue.CreatedAt = timePtr(createdAt)
		issue.ClosedAt = timePtr(closedAt)
		issue.State = optionalString(state)
		issue.AuthorLogin = optionalString(authorLogin)
		issue.FirstCommentAt = timePtr(firstCommentAt)
		issue.FirstCommentAuthor = optionalString(firstCommentBy)
		issue.SourceUpdatedAt = timePtr(sourceUpdatedAt)
		if issue.Labels, err = decodeLabels(labels); err != nil {
			return nil, fmt.Errorf("decode labels for issue %s: %w", issue.GitHubID, err)
		}
		result = append(result, issue)
	}
	return result, rows.Err()
}
