package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Summary scopes as stored in summary_scope.
const (
	SummaryScopeRepo = "repo"
	SummaryScopeOrg  = "org"
)

// SummaryRepository stores narrative summaries. Generation happens outside
// the cache; this store only persists and serves them.
type SummaryRepository struct {
	ctx *Context
}

func NewSummaryRepository(dbCtx *Context) *SummaryRepository {
	return &SummaryRepository{ctx: dbCtx}
}

func (r *SummaryRepository) Insert(ctx context.Context, s SummaryRecord) (int64, error) {
	q := r.ctx.querier(ctx)

	var id int64
	err := q.QueryRowContext(ctx,
		`INSERT INTO summaries (repo_id, owner, summary_scope, run_id, model, prompt_version, summary_text)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		nullInt64Ptr(s.RepoID), s.Owner, s.SummaryScope, nullInt64Ptr(s.RunID),
		nullString(s.Model), nullString(s.PromptVersion), s.SummaryText,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert summary: %w", err)
	}
	return id, nil
}

// LatestForRepo returns the newest repo-scope summary, or nil when none exists.
func (r *SummaryRepository) LatestForRepo(ctx context.Context, repoID int64) (*SummaryRecord, error) {
	q := r.ctx.querier(ctx)

	row := q.QueryRowContext(ctx,
		selectSummary+` WHERE repo_id = $1 AND summary_scope = $2 ORDER BY created_at DESC, id DESC LIMIT 1`,
		repoID, SummaryScopeRepo,
	)
	return scanOptionalSummary(row)
}

// ListForRepo returns repo-scope summaries newest first.
func (r *SummaryRepository) ListForRepo(ctx context.Context, repoID int64, limit, offset int) ([]SummaryRecord, error) {
	q := r.ctx.querier(ctx)

	rows, err := q.QueryContext(ctx,
		selectSummary+` WHERE repo_id = $1 AND summary_scope = $2 ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`,
		repoID, SummaryScopeRepo, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectSummaries(rows)
}

// LatestForOwner returns the newest org-scope summary, or nil when none exists.
func (r *SummaryRepository) LatestForOwner(ctx context.Context, owner string) (*SummaryRecord, error) {
	q := r.ctx.querier(ctx)

	row := q.QueryRowContext(ctx,
		selectSummary+` WHERE owner = $1 AND summary_scope = $2 ORDER BY created_at DESC, id DESC LIMIT 1`,
		owner, SummaryScopeOrg,
	)
	return scanOptionalSummary(row)
}

// ListForOwner returns org-scope summaries newest first.
func (r *SummaryRepository) ListForOwner(ctx context.Context, owner string, limit, offset int) ([]SummaryRecord, error) {
	q := r.ctx.querier(ctx)

	rows, err := q.QueryContext(ctx,
		selectSummary+` WHERE owner = $1 AND summary_scope = $2 ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`,
		owner, SummaryScopeOrg, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list org summaries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectSummaries(rows)
}

const selectSummary = `SELECT id, repo_id, owner, summary_scope, run_id, created_at, model, prompt_version, summary_text FROM summaries`

func scanSummary(row rowScanner) (*SummaryRecord, error) {
	var (
		s                    SummaryRecord
		repoID, runID        sql.NullInt64
		model, promptVersion sql.NullString
	)
	if err := row.Scan(&s.ID, &repoID, &s.Owner, &s.SummaryScope, &runID, &s.CreatedAt,
		&model, &promptVersion, &s.SummaryText); err != nil {
		return nil, err
	}
	s.RepoID = int64Ptr(repoID)
	s.RunID = int64Ptr(runID)
	s.Model = optionalString(model)
	s.PromptVersion = optionalString(promptVersion)
	return &s, nil
}

func scanOptionalSummary(row rowScanner) (*SummaryRecord, error) {
	s, err := scanSummary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find summary: %w", err)
	}
	return s, nil
}

func collectSummaries(rows *sql.Rows) ([]SummaryRecord, error) {
	var result []SummaryRecord
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}
