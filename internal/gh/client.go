// Package gh is the gateway to the GitHub API, abstracting away the
// underlying REST and GraphQL clients. All calls paginate to completion, so
// callers always receive the full sequence for the requested window.
package gh

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

// Fetcher defines the behavior of the upstream data source as the cache sees
// it: complete, already-paginated sequences per entity type.
type Fetcher interface {
	RepoInfo(ctx context.Context, owner, repo string) (*RepoInfo, error)
	ListRepos(ctx context.Context, owner string) ([]string, error)
	FetchBranches(ctx context.Context, owner, repo string) ([]Branch, error)
	FetchCommits(ctx context.Context, owner, repo, branch string, since *time.Time) ([]Commit, error)
	FetchIssues(ctx context.Context, owner, repo string, since *time.Time) ([]Issue, error)
	FetchPullRequests(ctx context.Context, owner, repo string, since *time.Time) ([]PullRequest, error)
	FetchReleases(ctx context.Context, owner, repo string, since *time.Time) ([]Release, error)
}

// Client is the concrete Fetcher over the GitHub REST and GraphQL APIs.
type Client struct {
	rest    *github.Client
	graphql *githubv4.Client
	logger  *slog.Logger
}

// NewClient builds an authenticated client. Secondary rate limits are handled
// by sleeping, primary limits surface as errors to the caller.
func NewClient(token string, logger *slog.Logger) (*Client, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		},
	}
	return &Client{
		rest:    github.NewClient(httpClient),
		graphql: githubv4.NewClient(httpClient),
		logger:  logger,
	}, nil
}

// RepoInfo fetches repository metadata, primarily the default branch name.
func (c *Client) RepoInfo(ctx context.Context, owner, repo string) (*RepoInfo, error) {
	r, _, err := c.rest.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, &FetchError{Owner: owner, Repo: repo, Entity: "repo-info", Err: err}
	}
	return &RepoInfo{DefaultBranch: r.GetDefaultBranch()}, nil
}

// ListRepos returns the names of all repositories belonging to an owner.
func (c *Client) ListRepos(ctx context.Context, owner string) ([]string, error) {
	opts := &github.RepositoryListByUserOptions{ListOptions: github.ListOptions{PerPage: 100}}
	var names []string
	for {
		repos, resp, err := c.rest.Repositories.ListByUser(ctx, owner, opts)
		if err != nil {
			return nil, &FetchError{Owner: owner, Entity: "repo-list", Err: err}
		}
		for _, r := range repos {
			names = append(names, r.GetName())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	c.logger.Debug("listed repositories", "owner", owner, "count", len(names))
	return names, nil
}

// FetchReleases returns releases with their summed asset download counts. A
// non-nil since drops releases published before the window.
func (c *Client) FetchReleases(ctx context.Context, owner, repo string, since *time.Time) ([]Release, error) {
	opts := &github.ListOptions{PerPage: 100}
	var releases []Release
	for {
		page, resp, err := c.rest.Repositories.ListReleases(ctx, owner, repo, opts)
		if err != nil {
			return nil, &FetchError{Owner: owner, Repo: repo, Entity: "releases", Err: err}
		}
		for _, r := range page {
			var publishedAt *time.Time
			if r.PublishedAt != nil {
				t := r.PublishedAt.Time
				publishedAt = &t
			}
			if since != nil && publishedAt != nil && publishedAt.Before(*since) {
				continue
			}
			var downloads int64
			for _, asset := range r.Assets {
				downloads += int64(asset.GetDownloadCount())
			}
			releases = append(releases, Release{
				TagName:        r.GetTagName(),
				Name:           r.GetName(),
				PublishedAt:    publishedAt,
				TotalDownloads: downloads,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	c.logger.Debug("fetched releases", "owner", owner, "repo", repo, "count", len(releases))
	return releases, nil
}
