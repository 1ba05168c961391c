package cache

import (
	"github.com/maturity-tools/maturityd/internal/database"
	"github.com/maturity-tools/maturityd/internal/gh"
)

func toCommitRecords(commits []gh.Commit) []database.CommitRecord {
	records := make([]database.CommitRecord, 0, len(commits))
	for _, c := range commits {
		records = append(records, database.CommitRecord{
			OID:             c.OID,
			AuthoredAt:      c.AuthoredAt,
			AuthorLogin:     c.AuthorLogin,
			Additions:       c.Additions,
			Deletions:       c.Deletions,
			Message:         c.Message,
			SourceUpdatedAt: c.AuthoredAt,
		})
	}
	return records
}

func toBranchRecords(branches []gh.Branch) []database.BranchRecord {
	records := make([]database.BranchRecord, 0, len(branches))
	for _, b := range branches {
		records = append(records, database.BranchRecord{
			Name:            b.Name,
			LastCommitAt:    b.LastCommitAt,
			TotalCommits:    b.TotalCommits,
			SourceUpdatedAt: b.LastCommitAt,
		})
	}
	return records
}

func toReleaseRecords(releases []gh.Release) []database.ReleaseRecord {
	records := make([]database.ReleaseRecord, 0, len(releases))
	for _, r := range releases {
		records = append(records, database.ReleaseRecord{
			TagName:         r.TagName,
			Name:            r.Name,
			PublishedAt:     r.PublishedAt,
			TotalDownloads:  r.TotalDownloads,
			SourceUpdatedAt: r.PublishedAt,
		})
	}
	return records
}

func toIssueRecords(issues []gh.Issue) []database.IssueRecord {
	records := make([]database.IssueRecord, 0, len(issues))
	for _, i := range issues {
		records = append(records, database.IssueRecord{
			GitHubID:           i.ID,
			CreatedAt:          i.CreatedAt,
			ClosedAt:           i.ClosedAt,
			State:              i.State,
			AuthorLogin:        i.AuthorLogin,
			FirstCommentAt:     i.FirstCommentAt,
			FirstCommentAuthor: i.FirstCommentAuthor,
			Labels:             i.Labels,
			SourceUpdatedAt:    i.UpdatedAt,
		})
	}
	return records
}

func toPullRequestRecords(prs []gh.PullRequest) []database.PullRequestRecord {
	records := make([]database.PullRequestRecord, 0, len(prs))
	for _, p := range prs {
		records = append(records, database.PullRequestRecord{
			GitHubID:           p.ID,
			CreatedAt:          p.CreatedAt,
			MergedAt:           p.MergedAt,
			ClosedAt:           p.ClosedAt,
			State:              p.State,
			AuthorLogin:        p.AuthorLogin,
			FirstCommentAt:     p.FirstCommentAt,
			FirstCommentAuthor: p.FirstCommentAuthor,
			Labels:             p.Labels,
			SourceUpdatedAt:    p.UpdatedAt,
		})
	}
	return records
}
