package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maturity-tools/maturityd/internal/database"
)

const testAPIKey = "test-key"

type fixture struct {
	dbCtx  *database.Context
	server *httptest.Server
	repoID int64
	runIDs []int64 // oldest first
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	dbCtx, err := database.CreateDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDatabase(dbCtx) })

	repoID, err := database.NewRepoRepository(dbCtx).GetOrCreate(ctx, "acme", "widgets", "main")
	require.NoError(t, err)

	runs := database.NewRunRepository(dbCtx)
	metrics := database.NewMetricRepository(dbCtx)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var runIDs []int64
	for i := 0; i < 3; i++ {
		startedAt := base.AddDate(0, 0, i)
		runID, err := runs.Create(ctx, database.RunRecord{
			Owner:     "acme",
			RepoID:    &repoID,
			StartedAt: startedAt,
			TimeRange: "6mo",
			Source:    "refresh",
		})
		require.NoError(t, err)
		require.NoError(t, metrics.Record(ctx, runID, "commits", "total_commits", 10+i))
		require.NoError(t, metrics.Record(ctx, runID, "commits", "hhi", 5000.0))
		runIDs = append(runIDs, runID)
	}

	orgRunID, err := runs.Create(ctx, database.RunRecord{
		Owner:     "acme",
		StartedAt: base.AddDate(0, 0, 3),
		TimeRange: "6mo",
		Source:    "refresh",
	})
	require.NoError(t, err)
	require.NoError(t, metrics.Record(ctx, orgRunID, "org", "repo_count", 1))

	server := httptest.NewServer(NewServer(dbCtx, testAPIKey, slog.New(slog.DiscardHandler)).Handler())
	t.Cleanup(server.Close)

	return &fixture{dbCtx: dbCtx, server: server, repoID: repoID, runIDs: runIDs}
}

func (f *fixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.server.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestAPIKeyRequired(t *testing.T) {
	f := setupFixture(t)

	resp, err := http.Get(f.server.URL + "/repos?owner=acme")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/repos?owner=acme", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer wrong-key")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)

	assert.Equal(t, http.StatusOK, f.get(t, "/repos?owner=acme").StatusCode)
}

func TestListRepos(t *testing.T) {
	f := setupFixture(t)

	resp := f.get(t, "/repos?owner=acme")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	repos := decode[[]repoPayload](t, resp)
	require.Len(t, repos, 1)
	assert.Equal(t, "widgets", repos[0].Name)
	assert.Equal(t, "main", repos[0].DefaultBranch)

	resp = f.get(t, "/repos?owner=unknown")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]repoPayload](t, resp))

	resp = f.get(t, "/repos")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRepoMetricsLatest(t *testing.T) {
	f := setupFixture(t)

	resp := f.get(t, "/repos/acme/widgets/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snapshot := decode[snapshotPayload](t, resp)
	assert.Equal(t, f.runIDs[2], snapshot.Run.ID)
	assert.Equal(t, float64(12), snapshot.Metrics["commits"]["total_commits"])
	assert.Equal(t, float64(5000), snapshot.Metrics["commits"]["hhi"])
}

func TestRepoMetricsByRunID(t *testing.T) {
	f := setupFixture(t)

	resp := f.get(t, fmt.Sprintf("/repos/acme/widgets/metrics?run_id=%d", f.runIDs[0]))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snapshot := decode[snapshotPayload](t, resp)
	assert.Equal(t, f.runIDs[0], snapshot.Run.ID)
	assert.Equal(t, float64(10), snapshot.Metrics["commits"]["total_commits"])

	// A run id belonging to another scope reads as absent.
	resp = f.get(t, "/repos/acme/widgets/metrics?run_id=999999")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.get(t, "/repos/acme/widgets/metrics?run_id=abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRepoMetricsUnknownRepo(t *testing.T) {
	f := setupFixture(t)

	resp := f.get(t, "/repos/acme/gadgets/metrics")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRepoMetricsHistory(t *testing.T) {
	f := setupFixture(t)

	resp := f.get(t, "/repos/acme/widgets/metrics/history")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decode[[]snapshotPayload](t, resp)
	require.Len(t, history, 3)
	assert.Equal(t, f.runIDs[2], history[0].Run.ID)
	assert.Equal(t, f.runIDs[0], history[2].Run.ID)

	resp = f.get(t, "/repos/acme/widgets/metrics/history?limit=1&offset=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	window := decode[[]snapshotPayload](t, resp)
	require.Len(t, window, 1)
	assert.Equal(t, f.runIDs[1], window[0].Run.ID)
}

func TestOrgMetrics(t *testing.T) {
	f := setupFixture(t)

	resp := f.get(t, "/orgs/acme/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	payload := decode[orgMetricsPayload](t, resp)
	require.NotNil(t, payload.Org)
	assert.Equal(t, float64(1), payload.Org.Metrics["org"]["repo_count"])
	require.Len(t, payload.Repos, 1)
	require.NotNil(t, payload.Repos[0].Snapshot)
	assert.Equal(t, f.runIDs[2], payload.Repos[0].Snapshot.Run.ID)

	resp = f.get(t, "/orgs/unknown/metrics")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSummaries(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	resp := f.get(t, "/repos/acme/widgets/summary")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	summaries := database.NewSummaryRepository(f.dbCtx)
	_, err := summaries.Insert(ctx, database.SummaryRecord{
		RepoID:       &f.repoID,
		Owner:        "acme",
		SummaryScope: database.SummaryScopeRepo,
		CreatedAt:    time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC),
		Model:        "test-model",
		SummaryText:  "steady activity, healthy review latency",
	})
	require.NoError(t, err)

	resp = f.get(t, "/repos/acme/widgets/summary")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decode[summaryPayload](t, resp)
	assert.Equal(t, "steady activity, healthy review latency", summary.Summary)

	resp = f.get(t, "/repos/acme/widgets/summaries")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]summaryPayload](t, resp), 1)

	resp = f.get(t, "/orgs/acme/summary")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
