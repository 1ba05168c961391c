package database

import "time"

// EntityType names one of the raw entity kinds tracked per repository.
type EntityType string

const (
	EntityCommits      EntityType = "commits"
	EntityBranches     EntityType = "branches"
	EntityIssues       EntityType = "issues"
	EntityPullRequests EntityType = "prs"
	EntityReleases     EntityType = "releases"
)

// EntityTypes lists every tracked entity kind in refresh order.
func EntityTypes() []EntityType {
	return []EntityType{EntityBranches, EntityCommits, EntityIssues, EntityPullRequests, EntityReleases}
}

// RepoRecord represents a row in the repos table. A repository is created on
// first reference and never deleted by the cache.
type RepoRecord struct {
	ID            int64
	Owner         string
	Name          string
	DefaultBranch string
	CreatedAt     time.Time
}

// FetchLogRecord mirrors the fetch_log table: exactly one row per
// (repository, entity type), replaced in place on every successful fetch.
type FetchLogRecord struct {
	RepoID      int64
	EntityType  EntityType
	FetchedAt   time.Time
	TimeRange   string
	FullHistory bool
}

// CommitRecord is a cached commit, identified by (repo, oid).
type CommitRecord struct {
	ID              int64
	RepoID          int64
	OID             string
	AuthoredAt      *time.Time
	AuthorLogin     string
	Additions       int64
	Deletions       int64
	Message         string
	SourceUpdatedAt *time.Time
}

// BranchRecord is a cached branch, identified by (repo, name).
type BranchRecord struct {
	ID              int64
	RepoID          int64
	Name            string
	LastCommitAt    *time.Time
	TotalCommits    int64
	SourceUpdatedAt *time.Time
}

// ReleaseRecord is a cached release, identified by (repo, tag).
type ReleaseRecord struct {
	ID              int64
	RepoID          int64
	TagName         string
	Name            string
	PublishedAt     *time.Time
	TotalDownloads  int64
	SourceUpdatedAt *time.Time
}

// IssueRecord is a cached issue, identified by (repo, github id).
type IssueRecord struct {
	ID                 int64
	RepoID             int64
	GitHubID           string
	CreatedAt          *time.Time
	ClosedAt           *time.Time
	State              string
	AuthorLogin        string
	FirstCommentAt     *time.Time
	FirstCommentAuthor string
	Labels             []string
	SourceUpdatedAt    *time.Time
}

// PullRequestRecord is a cached pull request, identified by (repo, github id).
type PullRequestRecord struct {
	ID                 int64
	RepoID             int64
	GitHubID           string
	CreatedAt          *time.Time
	MergedAt           *time.Time
	ClosedAt           *time.Time
	State              string
	AuthorLogin        string
	FirstCommentAt     *time.Time
	FirstCommentAuthor string
	Labels             []string
	SourceUpdatedAt    *time.Time
}

// RunRecord is one immutable metrics pass. RepoID is nil for
// organization-scope runs, which aggregate the latest per-repo runs.
type RunRecord struct {
	ID        int64
	Owner     string
	RepoID    *int64
	StartedAt time.Time
	TimeRange string
	SinceDate *time.Time
	Source    string
	Notes     string
}

// MetricRecord is one named value recorded against a run. Exactly one of the
// Value* fields is set, matching the type the caller handed in.
type MetricRecord struct {
	ID         int64
	RunID      int64
	Scope      string
	Name       string
	ValueFloat *float64
	ValueInt   *int64
	ValueText  *string
}

// Value collapses the typed columns back into a single dynamic value.
func (m MetricRecord) Value() any {
	switch {
	case m.ValueInt != nil:
		return *m.ValueInt
	case m.ValueFloat != nil:
		return *m.ValueFloat
	case m.ValueText != nil:
		return *m.ValueText
	default:
		return nil
	}
}

// SummaryRecord is a stored narrative summary for a repo or an owner.
type SummaryRecord struct {
	ID            int64
	RepoID        *int64
	Owner         string
	SummaryScope  string
	RunID         *int64
	CreatedAt     time.Time
	Model         string
	PromptVersion string
	SummaryText   string
}
