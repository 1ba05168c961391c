package gh

import (
	"context"
	"time"

	"github.com/shurcooL/githubv4"
)

// branchesQuery walks every branch head with its commit count and last
// authored date.
type branchesQuery struct {
	Repository struct {
		Refs struct {
			Edges []struct {
				Node struct {
					Name   string
					Target struct {
						Commit struct {
							History struct {
								TotalCount int
							}
							AuthoredDate githubv4.DateTime
						} `graphql:"... on Commit"`
					}
				}
			}
			PageInfo struct {
				EndCursor   githubv4.String
				HasNextPage bool
			}
		} `graphql:"refs(first: 100, after: $cursor, refPrefix: \"refs/heads/\")"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

func (c *Client) FetchBranches(ctx context.Context, owner, repo string) ([]Branch, error) {
	variables := map[string]any{
		"owner":  githubv4.String(owner),
		"name":   githubv4.String(repo),
		"cursor": (*githubv4.String)(nil),
	}

	var branches []Branch
	for {
		var q branchesQuery
		if err := c.graphql.Query(ctx, &q, variables); err != nil {
			return nil, &FetchError{Owner: owner, Repo: repo, Entity: "branches", Err: err}
		}
		for _, edge := range q.Repository.Refs.Edges {
			node := edge.Node
			branches = append(branches, Branch{
				Name:         node.Name,
				LastCommitAt: dateTimePtr(node.Target.Commit.AuthoredDate),
				TotalCommits: int64(node.Target.Commit.History.TotalCount),
			})
		}
		if !q.Repository.Refs.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(q.Repository.Refs.PageInfo.EndCursor)
	}
	c.logger.Debug("fetched branches", "owner", owner, "repo", repo, "count", len(branches))
	return branches, nil
}

// commitHistoryQuery walks the history of one branch including line stats,
// which the REST commit listing does not expose.
type commitHistoryQuery struct {
	Repository struct {
		Ref struct {
			Target struct {
				Commit struct {
					History struct {
						Nodes []struct {
							Oid             string
							AuthoredDate    githubv4.DateTime
							MessageHeadline string
							Additions       int
							Deletions       int
							Author          struct {
								User struct {
									Login string
								}
							}
						}
						PageInfo struct {
							EndCursor   githubv4.String
							HasNextPage bool
						}
					} `graphql:"history(first: 100, after: $cursor, since: $since)"`
				} `graphql:"... on Commit"`
			}
		} `graphql:"ref(qualifiedName: $branch)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// FetchCommits walks the given branch's history. A non-nil since bounds the
// upstream query itself, not just the result.
func (c *Client) FetchCommits(ctx context.Context, owner, repo, branch string, since *time.Time) ([]Commit, error) {
	var sinceArg *githubv4.GitTimestamp
	if since != nil {
		sinceArg = &githubv4.GitTimestamp{Time: *since}
	}
	variables := map[string]any{
		"owner":  githubv4.String(owner),
		"name":   githubv4.String(repo),
		"branch": githubv4.String(branch),
		"cursor": (*githubv4.String)(nil),
		"since":  sinceArg,
	}

	var commits []Commit
	for {
		var q commitHistoryQuery
		if err := c.graphql.Query(ctx, &q, variables); err != nil {
			return nil, &FetchError{Owner: owner, Repo: repo, Entity: "commits", Err: err}
		}
		history := q.Repository.Ref.Target.Commit.History
		for _, node := range history.Nodes {
			commits = append(commits, Commit{
				OID:         node.Oid,
				AuthoredAt:  dateTimePtr(node.AuthoredDate),
				AuthorLogin: node.Author.User.Login,
				Additions:   int64(node.Additions),
				Deletions:   int64(node.Deletions),
				Message:     node.MessageHeadline,
			})
		}
		if !history.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(history.PageInfo.EndCursor)
	}
	c.logger.Debug("fetched commits", "owner", owner, "repo", repo, "count", len(commits))
	return commits, nil
}

type issuesQuery struct {
	Repository struct {
		Issues struct {
			Nodes []struct {
				ID        string
				CreatedAt githubv4.DateTime
				UpdatedAt githubv4.DateTime
				ClosedAt  *githubv4.DateTime
				State     string
				Author    struct {
					Login string
				}
				Labels struct {
					Nodes []struct {
						Name string
					}
				} `graphql:"labels(first: 20)"`
				Comments struct {
					Nodes []struct {
						CreatedAt githubv4.DateTime
						Author    struct {
							Login string
						}
					}
				} `graphql:"comments(first: 1)"`
			}
			PageInfo struct {
				EndCursor   githubv4.String
				HasNextPage bool
			}
		} `graphql:"issues(first: 100, after: $cursor, filterBy: {since: $since})"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// FetchIssues returns issues with their first comment, bounding the upstream
// query when since is set.
func (c *Client) FetchIssues(ctx context.Context, owner, repo string, since *time.Time) ([]Issue, error) {
	var sinceArg *githubv4.DateTime
	if since != nil {
		sinceArg = &githubv4.DateTime{Time: *since}
	}
	variables := map[string]any{
		"owner":  githubv4.String(owner),
		"name":   githubv4.String(repo),
		"cursor": (*githubv4.String)(nil),
		"since":  sinceArg,
	}

	var issues []Issue
	for {
		var q issuesQuery
		if err := c.graphql.Query(ctx, &q, variables); err != nil {
			return nil, &FetchError{Owner: owner, Repo: repo, Entity: "issues", Err: err}
		}
		for _, node := range q.Repository.Issues.Nodes {
			issue := Issue{
				ID:          node.ID,
				CreatedAt:   dateTimePtr(node.CreatedAt),
				UpdatedAt:   dateTimePtr(node.UpdatedAt),
				ClosedAt:    optionalDateTime(node.ClosedAt),
				State:       node.State,
				AuthorLogin: node.Author.Login,
			}
			for _, label := range node.Labels.Nodes {
				issue.Labels = append(issue.Labels, label.Name)
			}
			if len(node.Comments.Nodes) > 0 {
				first := node.Comments.Nodes[0]
				issue.FirstCommentAt = dateTimePtr(first.CreatedAt)
				issue.FirstCommentAuthor = first.Author.Login
			}
			issues = append(issues, issue)
		}
		if !q.Repository.Issues.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(q.Repository.Issues.PageInfo.EndCursor)
	}
	c.logger.Debug("fetched issues", "owner", owner, "repo", repo, "count", len(issues))
	return issues, nil
}

type pullRequestsQuery struct {
	Repository struct {
		PullRequests struct {
			Nodes []struct {
				ID        string
				CreatedAt githubv4.DateTime
				UpdatedAt githubv4.DateTime
				MergedAt  *githubv4.DateTime
				ClosedAt  *githubv4.DateTime
				State     string
				Author    struct {
					Login string
				}
				Labels struct {
					Nodes []struct {
						Name string
					}
				} `graphql:"labels(first: 20)"`
				Comments struct {
					Nodes []struct {
						CreatedAt githubv4.DateTime
						Author    struct {
							Login string
						}
					}
				} `graphql:"comments(first: 1)"`
			}
			PageInfo struct {
				EndCursor   githubv4.String
				HasNextPage bool
			}
		} `graphql:"pullRequests(first: 100, after: $cursor, orderBy: {field: CREATED_AT, direction: DESC})"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// FetchPullRequests walks pull requests newest-first. The API has no since
// filter for pull requests, so pagination stops once a whole page falls
// before the window.
func (c *Client) FetchPullRequests(ctx context.Context, owner, repo string, since *time.Time) ([]PullRequest, error) {
	variables := map[string]any{
		"owner":  githubv4.String(owner),
		"name":   githubv4.String(repo),
		"cursor": (*githubv4.String)(nil),
	}

	var prs []PullRequest
	for {
		var q pullRequestsQuery
		if err := c.graphql.Query(ctx, &q, variables); err != nil {
			return nil, &FetchError{Owner: owner, Repo: repo, Entity: "prs", Err: err}
		}
		pageExhausted := len(q.Repository.PullRequests.Nodes) > 0
		for _, node := range q.Repository.PullRequests.Nodes {
			if since != nil && node.CreatedAt.Time.Before(*since) {
				continue
			}
			pageExhausted = false
			pr := PullRequest{
				ID:          node.ID,
				CreatedAt:   dateTimePtr(node.CreatedAt),
				UpdatedAt:   dateTimePtr(node.UpdatedAt),
				MergedAt:    optionalDateTime(node.MergedAt),
				ClosedAt:    optionalDateTime(node.ClosedAt),
				State:       node.State,
				AuthorLogin: node.Author.Login,
			}
			for _, label := range node.Labels.Nodes {
				pr.Labels = append(pr.Labels, label.Name)
			}
			if len(node.Comments.Nodes) > 0 {
				first := node.Comments.Nodes[0]
				pr.FirstCommentAt = dateTimePtr(first.CreatedAt)
				pr.FirstCommentAuthor = first.Author.Login
			}
			prs = append(prs, pr)
		}
		if pageExhausted || !q.Repository.PullRequests.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(q.Repository.PullRequests.PageInfo.EndCursor)
	}
	c.logger.Debug("fetched pull requests", "owner", owner, "repo", repo, "count", len(prs))
	return prs, nil
}

func dateTimePtr(dt githubv4.DateTime) *time.Time {
	if dt.Time.IsZero() {
		return nil
	}
	t := dt.Time
	return &t
}

func optionalDateTime(dt *githubv4.DateTime) *time.Time {
	if dt == nil || dt.Time.IsZero() {
		return nil
	}
	t := dt.Time
	return &t
}
