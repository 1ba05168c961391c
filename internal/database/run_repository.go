package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// RunRepository manages the append-only runs table. Runs are the timeline
// axis for metric history: every metrics pass creates one, identical inputs
// included, and no run is ever updated or deleted.
type RunRepository struct {
	ctx *Context
}

func NewRunRepository(dbCtx *Context) *RunRepository {
	return &RunRepository{ctx: dbCtx}
}

// Create inserts a new run and returns its id. It never deduplicates.
func (r *RunRepository) Create(ctx context.Context, run RunRecord) (int64, error) {
	q := r.ctx.querier(ctx)

	var id int64
	err := q.QueryRowContext(ctx,
		`INSERT INTO runs (owner, repo_id, run_started_at, time_range, since_date, source, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		run.Owner, nullInt64Ptr(run.RepoID), run.StartedAt, nullString(run.TimeRange),
		nullTime(run.SinceDate), nullString(run.Source), nullString(run.Notes),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// FindByID returns the run or nil when unknown.
func (r *RunRepository) FindByID(ctx context.Context, id int64) (*RunRecord, error) {
	q := r.ctx.querier(ctx)

	row := q.QueryRowContext(ctx, selectRun+` WHERE id = $1`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find run: %w", err)
	}
	return run, nil
}

// LatestForRepo returns the most recent run for a repository, or nil when the
// repository has no runs yet.
func (r *RunRepository) LatestForRepo(ctx context.Context, repoID int64) (*RunRecord, error) {
	q := r.ctx.querier(ctx)

	row := q.QueryRowContext(ctx,
		selectRun+` WHERE repo_id = $1 ORDER BY run_started_at DESC, id DESC LIMIT 1`, repoID)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// LatestForOwner returns the most recent organization-scope run for an owner,
// or nil when none exists.
func (r *RunRepository) LatestForOwner(ctx context.Context, owner string) (*RunRecord, error) {
	q := r.ctx.querier(ctx)

	row := q.QueryRowContext(ctx,
		selectRun+` WHERE owner = $1 AND repo_id IS NULL ORDER BY run_started_at DESC, id DESC LIMIT 1`, owner)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest org run: %w", err)
	}
	return run, nil
}

// HistoryForRepo returns a repository's runs most-recent-first. limit/offset
// form a stable window over that order; ties on run_started_at break by id so
// the window never shifts between pages.
func (r *RunRepository) HistoryForRepo(ctx context.Context, repoID int64, limit, offset int) ([]RunRecord, error) {
	q := r.ctx.querier(ctx)

	rows, err := q.QueryContext(ctx,
		selectRun+` WHERE repo_id = $1 ORDER BY run_started_at DESC, id DESC LIMIT $2 OFFSET $3`,
		repoID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("run history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		result = append(result, *run)
	}
	return result, rows.Err()
}

const selectRun = `SELECT id, owner, repo_id, run_started_at, time_range, since_date, source, notes FROM runs`

func scanRun(row rowScanner) (*RunRecord, error) {
	var (
		run                      RunRecord
		repoID                   sql.NullInt64
		sinceDate                sql.NullTime
		timeRange, source, notes sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Owner, &repoID, &run.StartedAt, &timeRange, &sinceDate, &source, &notes); err != nil {
		return nil, err
	}
	run.RepoID = int64Ptr(repoID)
	run.TimeRange = optionalString(timeRange)
	run.SinceDate = timePtr(sinceDate)
	run.Source = optionalString(source)
	run.Notes = optionalString(notes)
	return &run, nil
}
