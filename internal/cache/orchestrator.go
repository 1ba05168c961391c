package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maturity-tools/maturityd/internal/database"
	"github.com/maturity-tools/maturityd/internal/gh"
	"github.com/maturity-tools/maturityd/internal/metrics"
	"github.com/maturity-tools/maturityd/internal/timerange"
)

// Options selects the scope and window of one refresh pass.
type Options struct {
	Owner        string
	Repo         string // optional: restrict to a single repository
	TimeRange    timerange.TimeRange
	FullHistory  bool // fetch ignores the time window; listing still honors it
	ForceRefresh bool // bypass the freshness check, still write ledger and run
}

// Outcome reports one repository's refresh. Err is nil on success; a failed
// repository never prevents its siblings from completing.
type Outcome struct {
	Owner   string
	Repo    string
	RunID   int64
	Fetched []database.EntityType
	Reused  []database.EntityType
	Err     error
}

// Orchestrator drives the reuse-or-refetch decision and the metrics pass.
type Orchestrator struct {
	dbCtx    *database.Context
	fetcher  gh.Fetcher
	logger   *slog.Logger
	repos    *database.RepoRepository
	fetchLog *database.FetchLogRepository
	commits  *database.CommitRepository
	branches *database.BranchRepository
	releases *database.ReleaseRepository
	issues   *database.IssueRepository
	prs      *database.PullRequestRepository
	runs     *database.RunRepository
	metrics  *database.MetricRepository

	threshold time.Duration
	now       func() time.Time
}

func NewOrchestrator(dbCtx *database.Context, fetcher gh.Fetcher, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		dbCtx:     dbCtx,
		fetcher:   fetcher,
		logger:    logger,
		repos:     database.NewRepoRepository(dbCtx),
		fetchLog:  database.NewFetchLogRepository(dbCtx),
		commits:   database.NewCommitRepository(dbCtx),
		branches:  database.NewBranchRepository(dbCtx),
		releases:  database.NewReleaseRepository(dbCtx),
		issues:    database.NewIssueRepository(dbCtx),
		prs:       database.NewPullRequestRepository(dbCtx),
		runs:      database.NewRunRepository(dbCtx),
		metrics:   database.NewMetricRepository(dbCtx),
		threshold: DefaultStalenessThreshold,
		now:       time.Now,
	}
}

// Refresh runs one pass over the scope. Each repository is an independent
// unit of work: its failure is recorded in the outcome and the pass moves on.
// Cancellation is honored between repositories, not mid-fetch. When the scope
// is a whole owner, a final org-level run aggregates the latest per-repo runs.
func (o *Orchestrator) Refresh(ctx context.Context, opts Options) ([]Outcome, error) {
	names := []string{opts.Repo}
	if opts.Repo == "" {
		var err error
		names, err = o.fetcher.ListRepos(ctx, opts.Owner)
		if err != nil {
			return nil, fmt.Errorf("list repositories for %s: %w", opts.Owner, err)
		}
	}

	outcomes := make([]Outcome, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		outcome := o.refreshRepo(ctx, name, opts)
		if outcome.Err != nil {
			o.logger.Error("repository refresh failed",
				"owner", opts.Owner, "repo", name, "error", outcome.Err)
		} else {
			o.logger.Info("repository refreshed",
				"owner", opts.Owner, "repo", name, "run_id", outcome.RunID,
				"fetched", len(outcome.Fetched), "reused", len(outcome.Reused))
		}
		outcomes = append(outcomes, outcome)
	}

	if opts.Repo == "" {
		if err := o.recordOrgRun(ctx, opts); err != nil {
			return outcomes, fmt.Errorf("record org run for %s: %w", opts.Owner, err)
		}
	}
	return outcomes, nil
}

// staged holds records fetched upstream before the storage transaction opens,
// so network time is never spent holding a write transaction.
type staged struct {
	commits  []database.CommitRecord
	branches []database.BranchRecord
	releases []database.ReleaseRecord
	issues   []database.IssueRecord
	prs      []database.PullRequestRecord
}

func (o *Orchestrator) refreshRepo(ctx context.Context, repo string, opts Options) Outcome {
	outcome := Outcome{Owner: opts.Owner, Repo: repo}

	info, err := o.fetcher.RepoInfo(ctx, opts.Owner, repo)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	repoID, err := o.repos.GetOrCreate(ctx, opts.Owner, repo, info.DefaultBranch)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	now := o.now().UTC()
	since := opts.TimeRange.SinceDate(now)
	fetchSince := since
	if opts.FullHistory {
		fetchSince = nil
	}

	var fetched staged
	for _, entity := range database.EntityTypes() {
		last, err := o.fetchLog.LastFetch(ctx, repoID, entity)
		if err != nil {
			outcome.Err = err
			return outcome
		}
		var lastFetchedAt *time.Time
		if last != nil {
			lastFetchedAt = &last.FetchedAt
		}
		if !opts.ForceRefresh && IsFresh(lastFetchedAt, now, o.threshold) {
			outcome.Reused = append(outcome.Reused, entity)
			continue
		}
		if err := o.fetchEntity(ctx, opts.Owner, repo, entity, info, fetchSince, &fetched); err != nil {
			outcome.Err = err
			return outcome
		}
		outcome.Fetched = append(outcome.Fetched, entity)
	}

	err = o.dbCtx.WithTx(ctx, func(txCtx context.Context) error {
		if err := o.persistFetched(txCtx, repoID, now, opts, outcome.Fetched, &fetched); err != nil {
			return err
		}

		bundle, err := o.loadBundle(txCtx, repoID, since)
		if err != nil {
			return err
		}

		runID, err := o.runs.Create(txCtx, database.RunRecord{
			Owner:     opts.Owner,
			RepoID:    &repoID,
			StartedAt: now,
			TimeRange: string(opts.TimeRange),
			SinceDate: since,
			Source:    "refresh",
		})
		if err != nil {
			return err
		}
		outcome.RunID = runID

		return o.recordSamples(txCtx, runID, metrics.Compute(bundle, now))
	})
	if err != nil {
		outcome.Err = err
	}
	return outcome
}

func (o *Orchestrator) fetchEntity(ctx context.Context, owner, repo string, entity database.EntityType, info *gh.RepoInfo, since *time.Time, dst *staged) error {
	switch entity {
	case database.EntityBranches:
		branches, err := o.fetcher.FetchBranches(ctx, owner, repo)
		if err != nil {
			return err
		}
		dst.branches = toBranchRecords(branches)
	case database.EntityCommits:
		branch := info.DefaultBranch
		if branch == "" {
			branch = "main"
		}
		commits, err := o.fetcher.FetchCommits(ctx, owner, repo, branch, since)
		if err != nil {
			return err
		}
		dst.commits = toCommitRecords(commits)
	case database.EntityIssues:
		issues, err := o.fetcher.FetchIssues(ctx, owner, repo, since)
		if err != nil {
			return err
		}
		dst.issues = toIssueRecords(issues)
	case database.EntityPullRequests:
		prs, err := o.fetcher.FetchPullRequests(ctx, owner, repo, since)
		if err != nil {
			return err
		}
		dst.prs = toPullRequestRecords(prs)
	case database.EntityReleases:
		releases, err := o.fetcher.FetchReleases(ctx, owner, repo, since)
		if err != nil {
			return err
		}
		dst.releases = toReleaseRecords(releases)
	default:
		return fmt.Errorf("unknown entity type %q", entity)
	}
	return nil
}

func (o *Orchestrator) persistFetched(ctx context.Context, repoID int64, now time.Time, opts Options, fetchedTypes []database.EntityType, fetched *staged) error {
	for _, entity := range fetchedTypes {
		var err error
		switch entity {
		case database.EntityBranches:
			err = o.branches.Upsert(ctx, repoID, fetched.branches)
		case database.EntityCommits:
			err = o.commits.Upsert(ctx, repoID, fetched.commits)
		case database.EntityIssues:
			err = o.issues.Upsert(ctx, repoID, fetched.issues)
		case database.EntityPullRequests:
			err = o.prs.Upsert(ctx, repoID, fetched.prs)
		case database.EntityReleases:
			err = o.releases.Upsert(ctx, repoID, fetched.releases)
		}
		if err != nil {
			return err
		}
		if err := o.fetchLog.RecordFetch(ctx, repoID, entity, now, string(opts.TimeRange), opts.FullHistory); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) loadBundle(ctx context.Context, repoID int64, since *time.Time) (metrics.Bundle, error) {
	var bundle metrics.Bundle
	var err error
	if bundle.Commits, err = o.commits.List(ctx, repoID, since); err != nil {
		return bundle, err
	}
	if bundle.Branches, err = o.branches.List(ctx, repoID); err != nil {
		return bundle, err
	}
	if bundle.Issues, err = o.issues.List(ctx, repoID, since); err != nil {
		return bundle, err
	}
	if bundle.PullRequests, err = o.prs.List(ctx, repoID, since); err != nil {
		return bundle, err
	}
	if bundle.Releases, err = o.releases.List(ctx, repoID, since); err != nil {
		return bundle, err
	}
	return bundle, nil
}

// recordSamples writes the snapshot set. A duplicate key is a computation bug
// upstream of the store, so it is logged and skipped rather than failing the
// whole run.
func (o *Orchestrator) recordSamples(ctx context.Context, runID int64, samples []metrics.Sample) error {
	for _, s := range samples {
		err := o.metrics.Record(ctx, runID, s.Scope, s.Name, s.Value)
		if err != nil {
			if errors.Is(err, database.ErrDuplicateMetric) {
				o.logger.Warn("duplicate metric skipped",
					"run_id", runID, "scope", s.Scope, "name", s.Name)
				continue
			}
			return err
		}
	}
	return nil
}

// recordOrgRun aggregates the latest run of every cached repository under the
// owner into one org-scope run (NULL repo id). Repositories that failed this
// pass still contribute their previous latest run.
func (o *Orchestrator) recordOrgRun(ctx context.Context, opts Options) error {
	now := o.now().UTC()

	return o.dbCtx.WithTx(ctx, func(txCtx context.Context) error {
		repos, err := o.repos.List(txCtx, opts.Owner)
		if err != nil {
			return err
		}

		var runIDs []int64
		runToRepo := make(map[int64]int64)
		for _, repo := range repos {
			latest, err := o.runs.LatestForRepo(txCtx, repo.ID)
			if err != nil {
				return err
			}
			if latest == nil {
				continue
			}
			runIDs = append(runIDs, latest.ID)
			runToRepo[latest.ID] = repo.ID
		}
		if len(runIDs) == 0 {
			return nil
		}

		byRun, err := o.metrics.ListByRuns(txCtx, runIDs)
		if err != nil {
			return err
		}
		perRepo := make(map[int64][]database.MetricRecord, len(byRun))
		for runID, records := range byRun {
			perRepo[runToRepo[runID]] = records
		}

		runID, err := o.runs.Create(txCtx, database.RunRecord{
			Owner:     opts.Owner,
			StartedAt: now,
			TimeRange: string(opts.TimeRange),
			SinceDate: opts.TimeRange.SinceDate(now),
			Source:    "refresh",
			Notes:     fmt.Sprintf("aggregated from %d repositories", len(runIDs)),
		})
		if err != nil {
			return err
		}

		return o.recordSamples(txCtx, runID, metrics.AggregateOrg(perRepo))
	})
}
