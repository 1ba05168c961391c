package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestRun(t *testing.T, dbCtx *Context, repoID int64) int64 {
	t.Helper()
	id, err := NewRunRepository(dbCtx).Create(context.Background(), RunRecord{
		Owner:     "acme",
		RepoID:    &repoID,
		StartedAt: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return id
}

func TestMetricValueDispatch(t *testing.T) {
	dbCtx := setupTestDB(t)
	ctx := context.Background()
	repoID := createTestRepo(t, dbCtx, "acme", "widgets")
	runID := createTestRun(t, dbCtx, repoID)
	metrics := NewMetricRepository(dbCtx)

	require.NoError(t, metrics.Record(ctx, runID, "commits", "total_commits", 42))
	require.NoError(t, metrics.Record(ctx, runID, "commits", "hhi", 5000.5))
	require.NoError(t, metrics.Record(ctx, runID, "commits", "last_commit_date", "2025-05-01T12:00:00Z"))
	require.NoError(t, metrics.Record(ctx, runID, "releases", "total_downloads", int64(1234)))

	records, err := metrics.ListByRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, records, 4)

	byName := make(map[string]MetricRecord)
	for _, m := range records {
		byName[m.Name] = m
	}

	assert.Equal(t, int64(42), byName["total_commits"].Value())
	assert.Nil(t, byName["total_commits"].ValueFloat)

	assert.Equal(t, 5000.5, byName["hhi"].Value())
	assert.Nil(t, byName["hhi"].ValueInt)

	assert.Equal(t, "2025-05-01T12:00:00Z", byName["last_commit_date"].Value())
	assert.Equal(t, int64(1234), byName["total_downloads"].Value())
}

func TestMetricDuplicateKeyRejected(t *testing.T) {
	dbCtx := setupTestDB(t)
	ctx := context.Background()
	repoID := createTestRepo(t, dbCtx, "acme", "widgets")
	runID := createTestRun(t, dbCtx, repoID)
	metrics := NewMetricRepository(dbCtx)

	require.NoError(t, metrics.Record(ctx, runID, "commits", "total_commits", 42))

	err := metrics.Record(ctx, runID, "commits", "total_commits", 99)
	require.ErrorIs(t, err, ErrDuplicateMetric)

	// The first value survives; the second is never silently applied.
	records, err := metrics.ListByRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(42), records[0].Value())

	// Same name under a different scope or run is fine.
	require.NoError(t, metrics.Record(ctx, runID, "prs", "total_commits", 1))
	otherRun := createTestRun(t, dbCtx, repoID)
	require.NoError(t, metrics.Record(ctx, otherRun, "commits", "total_commits", 43))
}

func TestMetricListByRuns(t *testing.T) {
	dbCtx := setupTestDB(t)
	ctx := context.Background()
	repoID := createTestRepo(t, dbCtx, "acme", "widgets")
	metrics := NewMetricRepository(dbCtx)

	first := createTestRun(t, dbCtx, repoID)
	second := createTestRun(t, dbCtx, repoID)
	require.NoError(t, metrics.Record(ctx, first, "commits", "total_commits", 10))
	require.NoError(t, metrics.Record(ctx, second, "commits", "total_commits", 20))

	grouped, err := metrics.ListByRuns(ctx, []int64{first, second})
	require.NoError(t, err)
	require.Len(t, grouped, 2)
	assert.Equal(t, int64(10), grouped[first][0].Value())
	assert.Equal(t, int64(20), grouped[second][0].Value())

	empty, err := metrics.ListByRuns(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
