package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/maturity-tools/maturityd/internal/database"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type repoPayload struct {
	Owner         string    `json:"owner"`
	Name          string    `json:"name"`
	DefaultBranch string    `json:"default_branch,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type runPayload struct {
	ID        int64      `json:"id"`
	Owner     string     `json:"owner"`
	StartedAt time.Time  `json:"run_started_at"`
	TimeRange string     `json:"time_range,omitempty"`
	SinceDate *time.Time `json:"since_date,omitempty"`
	Source    string     `json:"source,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

// snapshotPayload is one run with its metrics grouped scope -> name -> value.
type snapshotPayload struct {
	Run     runPayload                `json:"run"`
	Metrics map[string]map[string]any `json:"metrics"`
}

type orgMetricsPayload struct {
	Owner string               `json:"owner"`
	Org   *snapshotPayload     `json:"org,omitempty"`
	Repos []repoMetricsPayload `json:"repos"`
}

type repoMetricsPayload struct {
	Repo     string           `json:"repo"`
	Snapshot *snapshotPayload `json:"snapshot,omitempty"`
}

type summaryPayload struct {
	ID        int64     `json:"id"`
	Owner     string    `json:"owner"`
	Scope     string    `json:"scope"`
	RunID     *int64    `json:"run_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Model     string    `json:"model,omitempty"`
	Summary   string    `json:"summary"`
}

func (s *Server) handleListRepos(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		writeError(w, http.StatusBadRequest, "owner query parameter is required")
		return
	}

	repos, err := s.repos.List(r.Context(), owner)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	payload := make([]repoPayload, 0, len(repos))
	for _, repo := range repos {
		payload = append(payload, repoPayload{
			Owner:         repo.Owner,
			Name:          repo.Name,
			DefaultBranch: repo.DefaultBranch,
			CreatedAt:     repo.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleRepoMetrics(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.lookupRepo(w, r)
	if !ok {
		return
	}

	var run *database.RunRecord
	var err error
	if raw := r.URL.Query().Get("run_id"); raw != "" {
		runID, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, "run_id must be an integer")
			return
		}
		run, err = s.runs.FindByID(r.Context(), runID)
		if err == nil && run != nil && (run.RepoID == nil || *run.RepoID != repo.ID) {
			run = nil
		}
	} else {
		run, err = s.runs.LatestForRepo(r.Context(), repo.ID)
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "no metrics recorded for this repository")
		return
	}

	records, err := s.metrics.ListByRun(r.Context(), run.ID)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshot(*run, records))
}

func (s *Server) handleRepoMetricsHistory(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.lookupRepo(w, r)
	if !ok {
		return
	}
	limit, offset := pagination(r)

	runs, err := s.runs.HistoryForRepo(r.Context(), repo.ID, limit, offset)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	runIDs := make([]int64, 0, len(runs))
	for _, run := range runs {
		runIDs = append(runIDs, run.ID)
	}
	byRun, err := s.metrics.ListByRuns(r.Context(), runIDs)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	payload := make([]snapshotPayload, 0, len(runs))
	for _, run := range runs {
		payload = append(payload, toSnapshot(run, byRun[run.ID]))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleOrgMetrics(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")

	repos, err := s.repos.List(r.Context(), owner)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if len(repos) == 0 {
		writeError(w, http.StatusNotFound, "no cached repositories for this owner")
		return
	}

	payload := orgMetricsPayload{Owner: owner, Repos: make([]repoMetricsPayload, 0, len(repos))}

	orgRun, err := s.runs.LatestForOwner(r.Context(), owner)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if orgRun != nil {
		records, err := s.metrics.ListByRun(r.Context(), orgRun.ID)
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		snapshot := toSnapshot(*orgRun, records)
		payload.Org = &snapshot
	}

	for _, repo := range repos {
		entry := repoMetricsPayload{Repo: repo.Name}
		run, err := s.runs.LatestForRepo(r.Context(), repo.ID)
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		if run != nil {
			records, err := s.metrics.ListByRun(r.Context(), run.ID)
			if err != nil {
				s.internalError(w, r, err)
				return
			}
			snapshot := toSnapshot(*run, records)
			entry.Snapshot = &snapshot
		}
		payload.Repos = append(payload.Repos, entry)
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleRepoSummary(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.lookupRepo(w, r)
	if !ok {
		return
	}
	summary, err := s.summaries.LatestForRepo(r.Context(), repo.ID)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if summary == nil {
		writeError(w, http.StatusNotFound, "no summary recorded for this repository")
		return
	}
	writeJSON(w, http.StatusOK, toSummary(*summary))
}

func (s *Server) handleRepoSummaries(w http.ResponseWriter, r *http.Request) {
	repo, ok := s.lookupRepo(w, r)
	if !ok {
		return
	}
	limit, offset := pagination(r)
	summaries, err := s.summaries.ListForRepo(r.Context(), repo.ID, limit, offset)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaries(summaries))
}

func (s *Server) handleOrgSummary(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	summary, err := s.summaries.LatestForOwner(r.Context(), owner)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if summary == nil {
		writeError(w, http.StatusNotFound, "no summary recorded for this owner")
		return
	}
	writeJSON(w, http.StatusOK, toSummary(*summary))
}

func (s *Server) handleOrgSummaries(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	limit, offset := pagination(r)
	summaries, err := s.summaries.ListForOwner(r.Context(), owner, limit, offset)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaries(summaries))
}

// lookupRepo resolves the path scope and writes the 404 itself when the
// repository is not cached.
func (s *Server) lookupRepo(w http.ResponseWriter, r *http.Request) (*database.RepoRecord, bool) {
	owner := chi.URLParam(r, "owner")
	name := chi.URLParam(r, "repo")

	repo, err := s.repos.FindByOwnerAndName(r.Context(), owner, name)
	if err != nil {
		s.internalError(w, r, err)
		return nil, false
	}
	if repo == nil {
		writeError(w, http.StatusNotFound, "repository not cached")
		return nil, false
	}
	return repo, true
}

func pagination(r *http.Request) (limit, offset int) {
	limit = defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = min(v, maxHistoryLimit)
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			offset = v
		}
	}
	return limit, offset
}

func toSnapshot(run database.RunRecord, records []database.MetricRecord) snapshotPayload {
	grouped := make(map[string]map[string]any)
	for _, m := range records {
		scope, ok := grouped[m.Scope]
		if !ok {
			scope = make(map[string]any)
			grouped[m.Scope] = scope
		}
		scope[m.Name] = m.Value()
	}
	return snapshotPayload{
		Run: runPayload{
			ID:        run.ID,
			Owner:     run.Owner,
			StartedAt: run.StartedAt,
			TimeRange: run.TimeRange,
			SinceDate: run.SinceDate,
			Source:    run.Source,
			Notes:     run.Notes,
		},
		Metrics: grouped,
	}
}

func toSummary(s database.SummaryRecord) summaryPayload {
	return summaryPayload{
		ID:        s.ID,
		Owner:     s.Owner,
		Scope:     s.SummaryScope,
		RunID:     s.RunID,
		CreatedAt: s.CreatedAt,
		Model:     s.Model,
		Summary:   s.SummaryText,
	}
}

func toSummaries(records []database.SummaryRecord) []summaryPayload {
	payload := make([]summaryPayload, 0, len(records))
	for _, record := range records {
		payload = append(payload, toSummary(record))
	}
	return payload
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
