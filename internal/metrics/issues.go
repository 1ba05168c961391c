package metrics

import (
	"strings"
	"time"

	"github.com/maturity-tools/maturityd/internal/database"
)

const closureWindowDays = 90

// IssuePRMetrics derives the issue- and PR-scope samples.
func IssuePRMetrics(issues []database.IssueRecord, prs []database.PullRequestRecord, now time.Time) []Sample {
	return []Sample{
		{Scope: "issues", Name: "median_time_to_first_response_hours", Value: issueFirstResponseHours(issues)},
		{Scope: "issues", Name: "issue_closure_ratio_90d", Value: issueClosureRatio(issues, now)},
		{Scope: "issues", Name: "median_time_to_close_days", Value: issueTimeToCloseDays(issues)},
		{Scope: "issues", Name: "backlog_size", Value: backlogSize(issues)},
		{Scope: "issues", Name: "good_first_issue_velocity_90d", Value: goodFirstIssueVelocity(issues, now)},
		{Scope: "prs", Name: "median_time_to_first_response_hours", Value: prFirstResponseHours(prs)},
		{Scope: "prs", Name: "median_time_to_close_days", Value: prTimeToCloseDays(prs)},
		{Scope: "prs", Name: "median_pr_merge_time_days", Value: prMergeTimeDays(prs)},
	}
}

// Median hours until the first comment by someone other than the author.
func issueFirstResponseHours(issues []database.IssueRecord) float64 {
	var hours []float64
	for _, issue := range issues {
		if issue.FirstCommentAt == nil || issue.CreatedAt == nil {
			continue
		}
		if issue.FirstCommentAuthor == issue.AuthorLogin {
			continue
		}
		hours = append(hours, issue.FirstCommentAt.Sub(*issue.CreatedAt).Hours())
	}
	return median(hours)
}

func prFirstResponseHours(prs []database.PullRequestRecord) float64 {
	var hours []float64
	for _, pr := range prs {
		if pr.FirstCommentAt == nil || pr.CreatedAt == nil {
			continue
		}
		if pr.FirstCommentAuthor == pr.AuthorLogin {
			continue
		}
		hours = append(hours, pr.FirstCommentAt.Sub(*pr.CreatedAt).Hours())
	}
	return median(hours)
}

// Closed-to-opened ratio over the closure window. Zero opens yields zero
// rather than a division error.
func issueClosureRatio(issues []database.IssueRecord, now time.Time) float64 {
	start := now.AddDate(0, 0, -closureWindowDays)
	opened, closed := 0, 0
	for _, issue := range issues {
		if issue.CreatedAt != nil && !issue.CreatedAt.Before(start) && !issue.CreatedAt.After(now) {
			opened++
		}
		if issue.ClosedAt != nil && !issue.ClosedAt.Before(start) && !issue.ClosedAt.After(now) {
			closed++
		}
	}
	if opened == 0 {
		return 0
	}
	return float64(closed) / float64(opened)
}

func issueTimeToCloseDays(issues []database.IssueRecord) float64 {
	var days []float64
	for _, issue := range issues {
		if issue.State != "CLOSED" || issue.CreatedAt == nil || issue.ClosedAt == nil {
			continue
		}
		days = append(days, issue.ClosedAt.Sub(*issue.CreatedAt).Hours()/24)
	}
	return median(days)
}

func prTimeToCloseDays(prs []database.PullRequestRecord) float64 {
	var days []float64
	for _, pr := range prs {
		if pr.State != "MERGED" && pr.State != "CLOSED" {
			continue
		}
		if pr.CreatedAt == nil || pr.ClosedAt == nil {
			continue
		}
		days = append(days, pr.ClosedAt.Sub(*pr.CreatedAt).Hours()/24)
	}
	return median(days)
}

func prMergeTimeDays(prs []database.PullRequestRecord) float64 {
	var days []float64
	for _, pr := range prs {
		if pr.State != "MERGED" || pr.CreatedAt == nil || pr.MergedAt == nil {
			continue
		}
		days = append(days, pr.MergedAt.Sub(*pr.CreatedAt).Hours()/24)
	}
	return median(days)
}

func backlogSize(issues []database.IssueRecord) int {
	open := 0
	for _, issue := range issues {
		if issue.State == "OPEN" {
			open++
		}
	}
	return open
}

func goodFirstIssueVelocity(issues []database.IssueRecord, now time.Time) int {
	start := now.AddDate(0, 0, -closureWindowDays)
	count := 0
	for _, issue := range issues {
		if issue.State != "CLOSED" || issue.ClosedAt == nil {
			continue
		}
		if issue.ClosedAt.Before(start) || issue.ClosedAt.After(now) {
			continue
		}
		for _, label := range issue.Labels {
			if strings.EqualFold(label, "good first issue") {
				count++
				break
			}
		}
	}
	return count
}
