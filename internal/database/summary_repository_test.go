package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryScopesAreSeparate(t *testing.T) {
	dbCtx := setupTestDB(t)
	ctx := context.Background()
	repoID := createTestRepo(t, dbCtx, "acme", "widgets")
	summaries := NewSummaryRepository(dbCtx)

	_, err := summaries.Insert(ctx, SummaryRecord{
		RepoID:       &repoID,
		Owner:        "acme",
		SummaryScope: SummaryScopeRepo,
		Model:        "test-model",
		SummaryText:  "repo-level summary",
	})
	require.NoError(t, err)

	_, err = summaries.Insert(ctx, SummaryRecord{
		Owner:        "acme",
		SummaryScope: SummaryScopeOrg,
		SummaryText:  "org-level summary",
	})
	require.NoError(t, err)

	repoSummary, err := summaries.LatestForRepo(ctx, repoID)
	require.NoError(t, err)
	require.NotNil(t, repoSummary)
	assert.Equal(t, "repo-level summary", repoSummary.SummaryText)
	assert.Equal(t, "test-model", repoSummary.Model)

	orgSummary, err := summaries.LatestForOwner(ctx, "acme")
	require.NoError(t, err)
	require.NotNil(t, orgSummary)
	assert.Equal(t, "org-level summary", orgSummary.SummaryText)
	assert.Nil(t, orgSummary.RepoID)
}

func TestSummaryListPagination(t *testing.T) {
	dbCtx := setupTestDB(t)
	ctx := context.Background()
	repoID := createTestRepo(t, dbCtx, "acme", "widgets")
	summaries := NewSummaryRepository(dbCtx)

	for _, text := range []string{"first", "second", "third"} {
		_, err := summaries.Insert(ctx, SummaryRecord{
			RepoID:       &repoID,
			Owner:        "acme",
			SummaryScope: SummaryScopeRepo,
			SummaryText:  text,
		})
		require.NoError(t, err)
	}

	// created_at ties (single-transaction clock) break by id, newest first.
	list, err := summaries.ListForRepo(ctx, repoID, 2, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "third", list[0].SummaryText)
	assert.Equal(t, "second", list[1].SummaryText)

	rest, err := summaries.ListForRepo(ctx, repoID, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "first", rest[0].SummaryText)

	absent, err := summaries.LatestForOwner(ctx, "acme")
	require.NoError(t, err)
	assert.Nil(t, absent, "repo summaries must not satisfy org reads")
}
