package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDatabaseAppliesMigrations(t *testing.T) {
	dbCtx := setupTestDB(t)
	assert.Equal(t, DriverSQLite, dbCtx.Driver)

	// Every table from the migration set is queryable.
	for _, table := range []string{
		"repos", "fetch_log", "commits", "branches", "releases",
		"issues", "pull_requests", "runs", "metrics", "summaries",
	} {
		var count int
		err := dbCtx.DB.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
		require.NoError(t, err, "table %s", table)
		assert.Zero(t, count)
	}
}

func TestCreateDatabaseReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	dbCtx, err := CreateDatabase(path)
	require.NoError(t, err)
	repoID := createTestRepo(t, dbCtx, "acme", "widgets")
	require.NoError(t, CloseDatabase(dbCtx))

	// Reopening hits the no-pending-migrations path and keeps the data.
	dbCtx, err = CreateDatabase(path)
	require.NoError(t, err)
	defer func() { _ = CloseDatabase(dbCtx) }()

	repo, err := NewRepoRepository(dbCtx).FindByOwnerAndName(context.Background(), "acme", "widgets")
	require.NoError(t, err)
	require.NotNil(t, repo)
	assert.Equal(t, repoID, repo.ID)
}

func TestForeignKeysEnforced(t *testing.T) {
	dbCtx := setupTestDB(t)

	_, err := dbCtx.DB.Exec(
		`INSERT INTO commits (repo_id, oid) VALUES ($1, $2)`, int64(9999), "orphan")
	assert.Error(t, err, "commit without a parent repo must be rejected")
}
