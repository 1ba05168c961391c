package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// FetchLogRepository is the fetch ledger: one row per (repository, entity
// type) recording the last successful upstream fetch.
type FetchLogRepository struct {
	ctx *Context
}

func NewFetchLogRepository(dbCtx *Context) *FetchLogRepository {
	return &FetchLogRepository{ctx: dbCtx}
}

// LastFetch returns the ledger row for the pair, or nil when the pair has
// never been fetched.
func (r *FetchLogRepository) LastFetch(ctx context.Context, repoID int64, entityType EntityType) (*FetchLogRecord, error) {
	q := r.ctx.querier(ctx)

	var (
		record      FetchLogRecord
		timeRange   sql.NullString
		fullHistory int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT repo_id, entity_type, fetched_at, time_range, full_history
		 FROM fetch_log WHERE repo_id = $1 AND entity_type = $2`,
		repoID, string(entityType),
	).Scan(&record.RepoID, &record.EntityType, &record.FetchedAt, &timeRange, &fullHistory)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last fetch: %w", err)
	}
	record.TimeRange = optionalString(timeRange)
	record.FullHistory = fullHistory != 0
	return &record, nil
}

// RecordFetch upserts the ledger row. fetched_at only ever advances: a write
// carrying an older timestamp than the stored row leaves the row untouched,
// so concurrent refreshers cannot regress freshness.
func (r *FetchLogRepository) RecordFetch(ctx context.Context, repoID int64, entityType EntityType, fetchedAt time.Time, timeRange string, fullHistory bool) error {
	q := r.ctx.querier(ctx)

	_, err := q.ExecContext(ctx,
		`INSERT INTO fetch_log (repo_id, entity_type, fetched_at, time_range, full_history)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (repo_id, entity_type) DO UPDATE SET
		     fetched_at = excluded.fetched_at,
		     time_range = excluded.time_range,
		     full_history = excluded.full_history
		 WHERE excluded.fetched_at > fetch_log.fetched_at`,
		repoID, string(entityType), fetchedAt, nullString(timeRange), boolToInt64(fullHistory),
	)
	if err != nil {
		return fmt.Errorf("record fetch: %w", err)
	}
	return nil
}
