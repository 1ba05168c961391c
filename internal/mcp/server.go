// Package mcp exposes the metrics store to agent clients over the Model
// Context Protocol. All tools are read-only views over cached data; none of
// them reach upstream.
package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/maturity-tools/maturityd/internal/database"
)

// Server wraps the MCP server with metric-store functionality
type Server struct {
	server *mcp.Server
	dbCtx  *database.Context
}

// NewServer creates a new MCP server instance over the given store target.
func NewServer(databaseURL string) (*Server, error) {
	dbCtx, err := database.CreateDatabase(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "maturityd",
		Version: "0.1.0",
	}, nil)

	s := &Server{
		server: mcpServer,
		dbCtx:  dbCtx,
	}

	// Register tools
	s.registerTools()

	return s, nil
}

// Run starts the MCP server with stdio transport
func (s *Server) Run(ctx context.Context) error {
	defer database.CloseDatabase(s.dbCtx)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	// list_repos
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_repos",
		Description: "List cached repositories for an owner",
	}, s.handleListRepos)

	// get_metrics
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_metrics",
		Description: "Get the latest (or a specific) metrics snapshot for a repository",
	}, s.handleGetMetrics)

	// get_metrics_history
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_metrics_history",
		Description: "Get historical metrics snapshots for a repository, most recent first",
	}, s.handleGetMetricsHistory)

	// get_org_metrics
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_org_metrics",
		Description: "Get the latest metrics snapshot for every cached repository of an owner",
	}, s.handleGetOrgMetrics)
}

// Input/Output types for each tool

type ListReposInput struct {
	Owner string `json:"owner" jsonschema:"required,description=Repository owner (user or organization)"`
}

type ListReposOutput struct {
	Repos []RepoEntry `json:"repos"`
}

type RepoEntry struct {
	Owner         string `json:"owner"`
	Name          string `json:"name"`
	DefaultBranch string `json:"defaultBranch,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

type GetMetricsInput struct {
	Owner string `json:"owner" jsonschema:"required,description=Repository owner"`
	Repo  string `json:"repo" jsonschema:"required,description=Repository name"`
	RunID *int64 `json:"runId,omitempty" jsonschema:"description=Specific run to read (latest if not specified)"`
}

type GetMetricsOutput struct {
	Snapshot Snapshot `json:"snapshot"`
}

// Snapshot is one run with its metric values grouped by scope.
type Snapshot struct {
	RunID     int64                     `json:"runId"`
	StartedAt string                    `json:"startedAt"`
	TimeRange string                    `json:"timeRange,omitempty"`
	Metrics   map[string]map[string]any `json:"metrics"`
}

type GetMetricsHistoryInput struct {
	Owner  string `json:"owner" jsonschema:"required,description=Repository owner"`
	Repo   string `json:"repo" jsonschema:"required,description=Repository name"`
	Limit  *int   `json:"limit,omitempty" jsonschema:"description=Maximum snapshots to return (default 20)"`
	Offset *int   `json:"offset,omitempty" jsonschema:"description=Snapshots to skip from the most recent"`
}

type GetMetricsHistoryOutput struct {
	Snapshots []Snapshot `json:"snapshots"`
}

type GetOrgMetricsInput struct {
	Owner string `json:"owner" jsonschema:"required,description=Organization or user whose repositories to read"`
}

type GetOrgMetricsOutput struct {
	Org   *Snapshot      `json:"org,omitempty"`
	Repos []OrgRepoEntry `json:"repos"`
}

type OrgRepoEntry struct {
	Repo     string    `json:"repo"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
}

// Tool handlers

func (s *Server) handleListRepos(ctx context.Context, req *mcp.CallToolRequest, input ListReposInput) (*mcp.CallToolResult, ListReposOutput, error) {
	repos, err := database.NewRepoRepository(s.dbCtx).List(ctx, input.Owner)
	if err != nil {
		return nil, ListReposOutput{}, fmt.Errorf("failed to list repositories: %w", err)
	}

	entries := make([]RepoEntry, 0, len(repos))
	for _, r := range repos {
		entries = append(entries, RepoEntry{
			Owner:         r.Owner,
			Name:          r.Name,
			DefaultBranch: r.DefaultBranch,
			CreatedAt:     r.CreatedAt.Format(time.RFC3339),
		})
	}

	return nil, ListReposOutput{Repos: entries}, nil
}

func (s *Server) handleGetMetrics(ctx context.Context, req *mcp.CallToolRequest, input GetMetricsInput) (*mcp.CallToolResult, GetMetricsOutput, error) {
	repo, err := database.NewRepoRepository(s.dbCtx).FindByOwnerAndName(ctx, input.Owner, input.Repo)
	if err != nil {
		return nil, GetMetricsOutput{}, fmt.Errorf("failed to find repository: %w", err)
	}
	if repo == nil {
		return nil, GetMetricsOutput{}, fmt.Errorf("repository not cached: %s/%s", input.Owner, input.Repo)
	}

	runs := database.NewRunRepository(s.dbCtx)
	var run *database.RunRecord
	if input.RunID != nil {
		run, err = runs.FindByID(ctx, *input.RunID)
		if err == nil && run != nil && (run.RepoID == nil || *run.RepoID != repo.ID) {
			run = nil
		}
	} else {
		run, err = runs.LatestForRepo(ctx, repo.ID)
	}
	if err != nil {
		return nil, GetMetricsOutput{}, fmt.Errorf("failed to find run: %w", err)
	}
	if run == nil {
		return nil, GetMetricsOutput{}, fmt.Errorf("no metrics recorded for %s/%s", input.Owner, input.Repo)
	}

	snapshot, err := s.loadSnapshot(ctx, *run)
	if err != nil {
		return nil, GetMetricsOutput{}, err
	}

	return nil, GetMetricsOutput{Snapshot: snapshot}, nil
}

func (s *Server) handleGetMetricsHistory(ctx context.Context, req *mcp.CallToolRequest, input GetMetricsHistoryInput) (*mcp.CallToolResult, GetMetricsHistoryOutput, error) {
	repo, err := database.NewRepoRepository(s.dbCtx).FindByOwnerAndName(ctx, input.Owner, input.Repo)
	if err != nil {
		return nil, GetMetricsHistoryOutput{}, fmt.Errorf("failed to find repository: %w", err)
	}
	if repo == nil {
		return nil, GetMetricsHistoryOutput{}, fmt.Errorf("repository not cached: %s/%s", input.Owner, input.Repo)
	}

	limit := 20
	if input.Limit != nil && *input.Limit > 0 {
		limit = *input.Limit
	}
	offset := 0
	if input.Offset != nil && *input.Offset > 0 {
		offset = *input.Offset
	}

	history, err := database.NewRunRepository(s.dbCtx).HistoryForRepo(ctx, repo.ID, limit, offset)
	if err != nil {
		return nil, GetMetricsHistoryOutput{}, fmt.Errorf("failed to read history: %w", err)
	}

	snapshots := make([]Snapshot, 0, len(history))
	for _, run := range history {
		snapshot, err := s.loadSnapshot(ctx, run)
		if err != nil {
			return nil, GetMetricsHistoryOutput{}, err
		}
		snapshots = append(snapshots, snapshot)
	}

	return nil, GetMetricsHistoryOutput{Snapshots: snapshots}, nil
}

func (s *Server) handleGetOrgMetrics(ctx context.Context, req *mcp.CallToolRequest, input GetOrgMetricsInput) (*mcp.CallToolResult, GetOrgMetricsOutput, error) {
	repos, err := database.NewRepoRepository(s.dbCtx).List(ctx, input.Owner)
	if err != nil {
		return nil, GetOrgMetricsOutput{}, fmt.Errorf("failed to list repositories: %w", err)
	}
	if len(repos) == 0 {
		return nil, GetOrgMetricsOutput{}, fmt.Errorf("no cached repositories for %s", input.Owner)
	}

	runs := database.NewRunRepository(s.dbCtx)
	output := GetOrgMetricsOutput{Repos: make([]OrgRepoEntry, 0, len(repos))}

	orgRun, err := runs.LatestForOwner(ctx, input.Owner)
	if err != nil {
		return nil, GetOrgMetricsOutput{}, fmt.Errorf("failed to find org run: %w", err)
	}
	if orgRun != nil {
		snapshot, err := s.loadSnapshot(ctx, *orgRun)
		if err != nil {
			return nil, GetOrgMetricsOutput{}, err
		}
		output.Org = &snapshot
	}

	for _, repo := range repos {
		entry := OrgRepoEntry{Repo: repo.Name}
		run, err := runs.LatestForRepo(ctx, repo.ID)
		if err != nil {
			return nil, GetOrgMetricsOutput{}, fmt.Errorf("failed to find run: %w", err)
		}
		if run != nil {
			snapshot, err := s.loadSnapshot(ctx, *run)
			if err != nil {
				return nil, GetOrgMetricsOutput{}, err
			}
			entry.Snapshot = &snapshot
		}
		output.Repos = append(output.Repos, entry)
	}

	return nil, output, nil
}

func (s *Server) loadSnapshot(ctx context.Context, run database.RunRecord) (Snapshot, error) {
	records, err := database.NewMetricRepository(s.dbCtx).ListByRun(ctx, run.ID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read metrics: %w", err)
	}

	grouped := make(map[string]map[string]any)
	for _, m := range records {
		scope, ok := grouped[m.Scope]
		if !ok {
			scope = make(map[string]any)
			grouped[m.Scope] = scope
		}
		scope[m.Name] = m.Value()
	}

	return Snapshot{
		RunID:     run.ID,
		StartedAt: run.StartedAt.Format(time.RFC3339),
		TimeRange: run.TimeRange,
		Metrics:   grouped,
	}, nil
}
