package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// setupTestDB creates a fresh migrated store under a temp data dir, exercising
// the same default-path resolution the CLI uses.
func setupTestDB(t *testing.T) *Context {
	t.Helper()
	t.Setenv("MATURITYD_DATA_DIR", t.TempDir())

	dbCtx, err := CreateDatabase("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDatabase(dbCtx) })
	return dbCtx
}

func createTestRepo(t *testing.T, dbCtx *Context, owner, name string) int64 {
	t.Helper()
	repoID, err := NewRepoRepository(dbCtx).GetOrCreate(context.Background(), owner, name, "main")
	require.NoError(t, err)
	return repoID
}
