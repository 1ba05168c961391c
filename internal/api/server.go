// Package api is the read-only HTTP surface over the metrics store. It never
// triggers upstream fetches; a missing scope or run is a plain 404.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/maturity-tools/maturityd/internal/database"
)

// Server bundles the router with its repository dependencies.
type Server struct {
	apiKey    string
	logger    *slog.Logger
	repos     *database.RepoRepository
	runs      *database.RunRepository
	metrics   *database.MetricRepository
	summaries *database.SummaryRepository
}

func NewServer(dbCtx *database.Context, apiKey string, logger *slog.Logger) *Server {
	return &Server{
		apiKey:    apiKey,
		logger:    logger,
		repos:     database.NewRepoRepository(dbCtx),
		runs:      database.NewRunRepository(dbCtx),
		metrics:   database.NewMetricRepository(dbCtx),
		summaries: database.NewSummaryRepository(dbCtx),
	}
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.requireAPIKey)

	r.Get("/repos", s.handleListRepos)
	r.Route("/repos/{owner}/{repo}", func(r chi.Router) {
		r.Get("/metrics", s.handleRepoMetrics)
		r.Get("/metrics/history", s.handleRepoMetricsHistory)
		r.Get("/summary", s.handleRepoSummary)
		r.Get("/summaries", s.handleRepoSummaries)
	})
	r.Route("/orgs/{owner}", func(r chi.Router) {
		r.Get("/metrics", s.handleOrgMetrics)
		r.Get("/summary", s.handleOrgSummary)
		r.Get("/summaries", s.handleOrgSummaries)
	})
	return r
}
