package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTxCommit(t *testing.T) {
	dbCtx := setupTestDB(t)
	ctx := context.Background()
	repoID := createTestRepo(t, dbCtx, "acme", "widgets")
	commits := NewCommitRepository(dbCtx)

	authored := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	err := dbCtx.WithTx(ctx, func(txCtx context.Context) error {
		return commits.Upsert(txCtx, repoID, []CommitRecord{
			{OID: "aaa111", AuthoredAt: &authored, AuthorLogin: "alice"},
		})
	})
	require.NoError(t, err)

	list, err := commits.List(ctx, repoID, nil)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestWithTxRollbackOnError(t *testing.T) {
	dbCtx := setupTestDB(t)
	ctx := context.Background()
	repoID := createTestRepo(t, dbCtx, "acme", "widgets")
	commits := NewCommitRepository(dbCtx)

	boom := errors.New("boom")
	authored := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	err := dbCtx.WithTx(ctx, func(txCtx context.Context) error {
		if err := commits.Upsert(txCtx, repoID, []CommitRecord{
			{OID: "aaa111", AuthoredAt: &authored, AuthorLogin: "alice"},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// The failed pass leaves no trace.
	list, err := commits.List(ctx, repoID, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
}
