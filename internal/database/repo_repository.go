package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// RepoRepository manages rows in the repos table.
type RepoRepository struct {
	ctx *Context
}

func NewRepoRepository(dbCtx *Context) *RepoRepository {
	return &RepoRepository{ctx: dbCtx}
}

// GetOrCreate returns the id of the (owner, name) repository, inserting it on
// first reference. A non-empty defaultBranch updates a stale stored value.
func (r *RepoRepository) GetOrCreate(ctx context.Context, owner, name, defaultBranch string) (int64, error) {
	q := r.ctx.querier(ctx)

	existing, err := r.FindByOwnerAndName(ctx, owner, name)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		if defaultBranch != "" && existing.DefaultBranch != defaultBranch {
			if _, err := q.ExecContext(ctx,
				`UPDATE repos SET default_branch = $1 WHERE id = $2`,
				defaultBranch, existing.ID,
			); err != nil {
				return 0, fmt.Errorf("update repo default branch: %w", err)
			}
		}
		return existing.ID, nil
	}

	var id int64
	err = q.QueryRowContext(ctx,
		`INSERT INTO repos (owner, name, default_branch) VALUES ($1, $2, $3) RETURNING id`,
		owner, name, nullString(defaultBranch),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert repo: %w", err)
	}
	return id, nil
}

// FindByOwnerAndName returns the repository or nil when unknown.
func (r *RepoRepository) FindByOwnerAndName(ctx context.Context, owner, name string) (*RepoRecord, error) {
	q := r.ctx.querier(ctx)

	row := q.QueryRowContext(ctx,
		`SELECT id, owner, name, default_branch, created_at FROM repos WHERE owner = $1 AND name = $2`,
		owner, name,
	)
	record, err := scanRepo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find repo: %w", err)
	}
	return record, nil
}

// List returns cached repositories, optionally filtered by owner, ordered by
// owner then name.
func (r *RepoRepository) List(ctx context.Context, owner string) ([]RepoRecord, error) {
	q := r.ctx.querier(ctx)

	query := `SELECT id, owner, name, default_branch, created_at FROM repos ORDER BY owner, name`
	args := []any{}
	if owner != "" {
		query = `SELECT id, owner, name, default_branch, created_at FROM repos WHERE owner = $1 ORDER BY name`
		args = append(args, owner)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list repos: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []RepoRecord
	for rows.Next() {
		record, err := scanRepo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan repo: %w", err)
		}
		result = append(result, *record)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRepo(row rowScanner) (*RepoRecord, error) {
	var (
		record        RepoRecord
		defaultBranch sql.NullString
		createdAt     sql.NullTime
	)
	if err := row.Scan(&record.ID, &record.Owner, &record.Name, &defaultBranch, &createdAt); err != nil {
		return nil, err
	}
	record.DefaultBranch = optionalString(defaultBranch)
	record.CreatedAt = optionalTime(createdAt)
	return &record, nil
}
