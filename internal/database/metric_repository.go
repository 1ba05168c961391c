package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// MetricRepository stores metric snapshots. The (run, scope, name) key is
// unique; a second write for the same key fails with ErrDuplicateMetric
// instead of overwriting, protecting historical integrity.
type MetricRepository struct {
	ctx *Context
}

func NewMetricRepository(dbCtx *Context) *MetricRepository {
	return &MetricRepository{ctx: dbCtx}
}

// Record persists one named value against a run. The dynamic value lands in
// the column matching its type: bools and ints in value_int, floats in
// value_float, everything else stringified into value_text.
func (r *MetricRepository) Record(ctx context.Context, runID int64, scope, name string, value any) error {
	q := r.ctx.querier(ctx)

	var (
		valueFloat sql.NullFloat64
		valueInt   sql.NullInt64
		valueText  sql.NullString
	)
	switch v := value.(type) {
	case nil:
		// all columns stay NULL
	case bool:
		valueInt = sql.NullInt64{Int64: boolToInt64(v), Valid: true}
	case int:
		valueInt = sql.NullInt64{Int64: int64(v), Valid: true}
	case int64:
		valueInt = sql.NullInt64{Int64: v, Valid: true}
	case float64:
		valueFloat = sql.NullFloat64{Float64: v, Valid: true}
	case string:
		valueText = sql.NullString{String: v, Valid: true}
	default:
		valueText = sql.NullString{String: fmt.Sprint(v), Valid: true}
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO metrics (run_id, scope, name, value_float, value_int, value_text)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		runID, scope, name, valueFloat, valueInt, valueText,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("metric %s/%s for run %d: %w", scope, name, runID, ErrDuplicateMetric)
		}
		return fmt.Errorf("insert metric: %w", err)
	}
	return nil
}

// ListByRun returns a run's snapshots ordered by scope then name.
func (r *MetricRepository) ListByRun(ctx context.Context, runID int64) ([]MetricRecord, error) {
	q := r.ctx.querier(ctx)

	rows, err := q.QueryContext(ctx,
		`SELECT id, run_id, scope, name, value_float, value_int, value_text
		 FROM metrics WHERE run_id = $1 ORDER BY scope, name`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectMetrics(rows)
}

// ListByRuns returns snapshots for a set of runs, grouped by run id.
func (r *MetricRepository) ListByRuns(ctx context.Context, runIDs []int64) (map[int64][]MetricRecord, error) {
	grouped := make(map[int64][]MetricRecord, len(runIDs))
	if len(runIDs) == 0 {
		return grouped, nil
	}

	q := r.ctx.querier(ctx)

	placeholders := make([]string, len(runIDs))
	args := make([]any, len(runIDs))
	for i, id := range runIDs {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = id
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, run_id, scope, name, value_float, value_int, value_text
		 FROM metrics WHERE run_id IN (`+strings.Join(placeholders, ", ")+`) ORDER BY scope, name`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list metrics by runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	metrics, err := collectMetrics(rows)
	if err != nil {
		return nil, err
	}
	for _, m := range metrics {
		grouped[m.RunID] = append(grouped[m.RunID], m)
	}
	return grouped, nil
}

func collectMetrics(rows *sql.Rows) ([]MetricRecord, error) {
	var result []MetricRecord
	for rows.Next() {
		var (
			m          MetricRecord
			valueFloat sql.NullFloat64
			valueInt   sql.NullInt64
			valueText  sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.RunID, &m.Scope, &m.Name, &valueFloat, &valueInt, &valueText); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		if valueFloat.Valid {
			v := valueFloat.Float64
			m.ValueFloat = &v
		}
		if valueInt.Valid {
			v := valueInt.Int64
			m.ValueInt = &v
		}
		if valueText.Valid {
			v := valueText.String
			m.ValueText = &v
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
