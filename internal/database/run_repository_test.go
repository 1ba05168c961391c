package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCreateNeverDeduplicates(t *testing.T) {
	dbCtx := setupTestDB(t)
	ctx := context.Background()
	repoID := createTestRepo(t, dbCtx, "acme", "widgets")
	runs := NewRunRepository(dbCtx)

	record := RunRecord{
		Owner:     "acme",
		RepoID:    &repoID,
		StartedAt: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
		TimeRange: "6mo",
		Source:    "refresh",
	}

	ids := make(map[int64]struct{})
	for i := 0; i < 3; i++ {
		id, err := runs.Create(ctx, record)
		require.NoError(t, err)
		ids[id] = struct{}{}
	}
	assert.Len(t, ids, 3, "identical runs must still get distinct ids")
}

func TestRunFindByID(t *testing.T) {
	dbCtx := setupTestDB(t)
	ctx := context.Background()
	repoID := createTestRepo(t, dbCtx, "acme", "widgets")
	runs := NewRunRepository(dbCtx)

	since := time.Date(2024, 11, 2, 12, 0, 0, 0, time.UTC)
	id, err := runs.Create(ctx, RunRecord{
		Owner:     "acme",
		RepoID:    &repoID,
		StartedAt: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
		TimeRange: "6mo",
		SinceDate: &since,
		Source:    "refresh",
		Notes:     "scheduled",
	})
	require.NoError(t, err)

	run, err := runs.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "acme", run.Owner)
	require.NotNil(t, run.RepoID)
	assert.Equal(t, repoID, *run.RepoID)
	assert.Equal(t, "6mo", run.TimeRange)
	require.NotNil(t, run.SinceDate)
	assert.WithinDuration(t, since, *run.SinceDate, time.Second)
	assert.Equal(t, "scheduled", run.Notes)

	missing, err := runs.FindByID(ctx, id+1000)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRunLatestAndOrgScope(t *testing.T) {
	dbCtx := setupTestDB(t)
	ctx := context.Background()
	repoID := createTestRepo(t, dbCtx, "acme", "widgets")
	runs := NewRunRepository(dbCtx)

	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	_, err := runs.Create(ctx, RunRecord{Owner: "acme", RepoID: &repoID, StartedAt: base})
	require.NoError(t, err)
	latestID, err := runs.Create(ctx, RunRecord{Owner: "acme", RepoID: &repoID, StartedAt: base.Add(time.Hour)})
	require.NoError(t, err)

	orgID, err := runs.Create(ctx, RunRecord{Owner: "acme", StartedAt: base.Add(2 * time.Hour)})
	require.NoError(t, err)

	latest, err := runs.LatestForRepo(ctx, repoID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, latestID, latest.ID)

	// The org-scope run (NULL repo id) is invisible to the repo reader and
	// vice versa.
	org, err := runs.LatestForOwner(ctx, "acme")
	require.NoError(t, err)
	require.NotNil(t, org)
	assert.Equal(t, orgID, org.ID)
	assert.Nil(t, org.RepoID)
}

func TestRunHistoryOrdering(t *testing.T) {
	dbCtx := setupTestDB(t)
	ctx := context.Background()
	repoID := createTestRepo(t, dbCtx, "acme", "widgets")
	runs := NewRunRepository(dbCtx)

	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	var ids []int64
	for i := 0; i < 5; i++ {
		id, err := runs.Create(ctx, RunRecord{Owner: "acme", RepoID: &repoID, StartedAt: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	history, err := runs.HistoryForRepo(ctx, repoID, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 5)
	assert.Equal(t, ids[4], history[0].ID)
	assert.Equal(t, ids[0], history[4].ID)

	// limit/offset form a stable window over the same order.
	window, err := runs.HistoryForRepo(ctx, repoID, 2, 1)
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, ids[3], window[0].ID)
	assert.Equal(t, ids[2], window[1].ID)
}

func TestRunHistoryTieBreaksByID(t *testing.T) {
	dbCtx := setupTestDB(t)
	ctx := context.Background()
	repoID := createTestRepo(t, dbCtx, "acme", "widgets")
	runs := NewRunRepository(dbCtx)

	startedAt := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := runs.Create(ctx, RunRecord{Owner: "acme", RepoID: &repoID, StartedAt: startedAt})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	history, err := runs.HistoryForRepo(ctx, repoID, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, ids[2], history[0].ID)
	assert.Equal(t, ids[1], history[1].ID)
	assert.Equal(t, ids[0], history[2].ID)
}
