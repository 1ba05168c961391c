package gh

import (
	"fmt"
	"time"
)

// RepoInfo is the lightweight repository metadata fetched before a refresh.
type RepoInfo struct {
	DefaultBranch string
}

// Commit is one fetched commit from the default branch history.
type Commit struct {
	OID         string
	AuthoredAt  *time.Time
	AuthorLogin string
	Additions   int64
	Deletions   int64
	Message     string
}

// Branch is one fetched branch head.
type Branch struct {
	Name         string
	LastCommitAt *time.Time
	TotalCommits int64
}

// Release is one fetched release with its asset download total.
type Release struct {
	TagName        string
	Name           string
	PublishedAt    *time.Time
	TotalDownloads int64
}

// Issue is one fetched issue, including the first non-author response when
// one exists.
type Issue struct {
	ID                 string
	CreatedAt          *time.Time
	UpdatedAt          *time.Time
	ClosedAt           *time.Time
	State              string
	AuthorLogin        string
	FirstCommentAt     *time.Time
	FirstCommentAuthor string
	Labels             []string
}

// PullRequest is one fetched pull request.
type PullRequest struct {
	ID                 string
	CreatedAt          *time.Time
	UpdatedAt          *time.Time
	MergedAt           *time.Time
	ClosedAt           *time.Time
	State              string
	AuthorLogin        string
	FirstCommentAt     *time.Time
	FirstCommentAuthor string
	Labels             []string
}

// FetchError wraps an upstream failure with the scope it happened in. The
// cache never retries these; they surface in the per-repository outcome.
type FetchError struct {
	Owner  string
	Repo   string
	Entity string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s for %s/%s: %v", e.Entity, e.Owner, e.Repo, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
