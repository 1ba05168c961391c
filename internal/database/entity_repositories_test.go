package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(t time.Time) *time.Time { return &t }

func TestCommitUpsertIdempotence(t *testing.T) {
	dbCtx := setupTestDB(t)
	ctx := context.Background()
	repoID := createTestRepo(t, dbCtx, "acme", "widgets")
	commits := NewCommitRepository(dbCtx)

	authored := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	batch := []CommitRecord{
		{OID: "aaa111", AuthoredAt: ts(authored), AuthorLogin: "alice", Additions: 10, Deletions: 2, Message: "initial"},
	}

	require.NoError(t, commits.Upsert(ctx, repoID, batch))
	require.NoError(t, commits.Upsert(ctx, repoID, batch))

	list, err := commits.List(ctx, repoID, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "alice", list[0].AuthorLogin)
	assert.Equal(t, int64(10), list[0].Additions)
}

func TestCommitUpsertLastWriterWins(t *testing.T) {
	dbCtx := setupTestDB(t)
	ctx := context.Background()
	repoID := createTestRepo(t, dbCtx, "acme", "widgets")
	commits := NewCommitRepository(dbCtx)

	authored := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, commits.Upsert(ctx, repoID, []CommitRecord{
		{OID: "aaa111", AuthoredAt: ts(authored), AuthorLogin: "alice", Message: "draft"},
	}))
	require.NoError(t, commits.Upsert(ctx, repoID, []CommitRecord{
		{OID: "aaa111", AuthoredAt: ts(authored), AuthorLogin: "alice", Message: "amended"},
	}))

	list, err := commits.List(ctx, repoID, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "amended", list[0].Message)
}

func TestCommitListSince(t *testing.T) {
	dbCtx := setupTestDB(t)
	ctx := context.Background()
	repoID := createTestRepo(t, dbCtx, "acme", "widgets")
	commits := NewCommitRepository(dbCtx)

	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, commits.Upsert(ctx, repoID, []CommitRecord{
		{OID: "old", AuthoredAt: ts(old), AuthorLogin: "alice"},
		{OID: "new", AuthoredAt: ts(recent), AuthorLogin: "bob"},
	}))

	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	list, err := commits.List(ctx, repoID, &since)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "new", list[0].OID)

	all, err := commits.List(ctx, repoID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestIssueLabelsRoundTrip(t *testing.T) {
	dbCtx := setupTestDB(t)
	ctx := context.Background()
	repoID := createTestRepo(t, dbCtx, "acme", "widgets")
	issues := NewIssueRepository(dbCtx)

	created := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, issues.Upsert(ctx, repoID, []IssueRecord{
		{GitHubID: "I_1", CreatedAt: ts(created), State: "OPEN", AuthorLogin: "alice",
			Labels: []string{"bug", "good first issue"}},
		{GitHubID: "I_2", CreatedAt: ts(created), State: "OPEN", AuthorLogin: "bob"},
	}))

	list, err := issues.List(ctx, repoID, nil)
	require.NoError(t, err)
	require.Len(t, list, 2)

	byID := make(map[string]IssueRecord)
	for _, issue := range list {
		byID[issue.GitHubID] = issue
	}
	assert.Equal(t, []string{"bug", "good first issue"}, byID["I_1"].Labels)
	assert.Empty(t, byID["I_2"].Labels)
}

func TestBranchUpsertReplacesHead(t *testing.T) {
	dbCtx := setupTestDB(t)
	ctx := context.Background()
	repoID := createTestRepo(t, dbCtx, "acme", "widgets")
	branches := NewBranchRepository(dbCtx)

	first := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	moved := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, branches.Upsert(ctx, repoID, []BranchRecord{
		{Name: "main", LastCommitAt: ts(first), TotalCommits: 10},
	}))
	require.NoError(t, branches.Upsert(ctx, repoID, []BranchRecord{
		{Name: "main", LastCommitAt: ts(moved), TotalCommits: 12},
	}))

	list, err := branches.List(ctx, repoID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(12), list[0].TotalCommits)
	require.NotNil(t, list[0].LastCommitAt)
	assert.WithinDuration(t, moved, *list[0].LastCommitAt, time.Second)
}

func TestFetchLogMonotonicity(t *testing.T) {
	dbCtx := setupTestDB(t)
	ctx := context.Background()
	repoID := createTestRepo(t, dbCtx, "acme", "widgets")
	ledger := NewFetchLogRepository(dbCtx)

	absent, err := ledger.LastFetch(ctx, repoID, EntityCommits)
	require.NoError(t, err)
	assert.Nil(t, absent)

	newer := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, ledger.RecordFetch(ctx, repoID, EntityCommits, newer, "1y", true))

	// An older timestamp never regresses the ledger.
	older := newer.Add(-time.Hour)
	require.NoError(t, ledger.RecordFetch(ctx, repoID, EntityCommits, older, "6mo", false))

	last, err := ledger.LastFetch(ctx, repoID, EntityCommits)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.WithinDuration(t, newer, last.FetchedAt, time.Second)
	assert.Equal(t, "1y", last.TimeRange)
	assert.True(t, last.FullHistory)

	// A newer timestamp advances it.
	newest := newer.Add(time.Hour)
	require.NoError(t, ledger.RecordFetch(ctx, repoID, EntityCommits, newest, "2y", false))
	last, err = ledger.LastFetch(ctx, repoID, EntityCommits)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.WithinDuration(t, newest, last.FetchedAt, time.Second)
	assert.False(t, last.FullHistory)
}

func TestFetchLogIsPerEntityType(t *testing.T) {
	dbCtx := setupTestDB(t)
	ctx := context.Background()
	repoID := createTestRepo(t, dbCtx, "acme", "widgets")
	ledger := NewFetchLogRepository(dbCtx)

	at := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, ledger.RecordFetch(ctx, repoID, EntityCommits, at, "1y", true))

	other, err := ledger.LastFetch(ctx, repoID, EntityIssues)
	require.NoError(t, err)
	assert.Nil(t, other, "a commits fetch must not mark issues fresh")
}
