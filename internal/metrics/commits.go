package metrics

import (
	"sort"
	"time"

	"github.com/maturity-tools/maturityd/internal/database"
)

// newContributorWindowDays is the lookback for the new-vs-core contributor
// split, anchored at the latest commit rather than now so quiet repositories
// are not all-new by definition.
const newContributorWindowDays = 90

// CommitMetrics derives the commit-scope samples.
func CommitMetrics(commits []database.CommitRecord, now time.Time) []Sample {
	contributions := contributionCounts(commits)

	samples := []Sample{
		{Scope: "commits", Name: "total_commits", Value: len(commits)},
		{Scope: "commits", Name: "total_contributors", Value: len(contributions)},
		{Scope: "commits", Name: "bus_factor", Value: busFactor(contributions)},
		{Scope: "commits", Name: "hhi", Value: diversityHHI(contributions)},
	}

	newContribs, coreContribs := newVsCoreContributors(commits, contributions)
	samples = append(samples,
		Sample{Scope: "commits", Name: "new_contributors", Value: newContribs},
		Sample{Scope: "commits", Name: "active_core_contributors", Value: coreContribs},
	)

	if last := latestCommitDate(commits); last != nil {
		samples = append(samples,
			Sample{Scope: "commits", Name: "staleness_days", Value: int(now.Sub(*last).Hours() / 24)},
			Sample{Scope: "commits", Name: "last_commit_date", Value: last.Format(time.RFC3339)},
		)
	}
	return samples
}

// BranchMetrics splits branches into stale and alive over a 90-day window.
func BranchMetrics(branches []database.BranchRecord, now time.Time) []Sample {
	cutoff := now.AddDate(0, 0, -90)
	stale := 0
	for _, b := range branches {
		if b.LastCommitAt == nil || b.LastCommitAt.Before(cutoff) {
			stale++
		}
	}
	return []Sample{
		{Scope: "branches", Name: "stale_branches", Value: stale},
		{Scope: "branches", Name: "alive_branches", Value: len(branches) - stale},
	}
}

type contribution struct {
	login string
	count int64
}

func contributionCounts(commits []database.CommitRecord) []contribution {
	byLogin := make(map[string]int64)
	for _, c := range commits {
		byLogin[c.AuthorLogin]++
	}
	contributions := make([]contribution, 0, len(byLogin))
	for login, count := range byLogin {
		contributions = append(contributions, contribution{login: login, count: count})
	}
	sort.Slice(contributions, func(i, j int) bool {
		if contributions[i].count != contributions[j].count {
			return contributions[i].count > contributions[j].count
		}
		return contributions[i].login < contributions[j].login
	})
	return contributions
}

// busFactor counts the top contributors whose cumulative share stays within
// half of all contributions, plus one.
func busFactor(contributions []contribution) int {
	var total int64
	for _, c := range contributions {
		total += c.count
	}
	if total == 0 {
		return 0
	}

	factor := 1
	var cumulative int64
	for _, c := range contributions {
		cumulative += c.count
		if cumulative*2 <= total {
			factor++
		}
	}
	return factor
}

// diversityHHI is the Herfindahl-Hirschman index over contribution shares,
// expressed in percentage points squared (10000 = single contributor).
func diversityHHI(contributions []contribution) float64 {
	var total int64
	for _, c := range contributions {
		total += c.count
	}
	if total == 0 {
		return 0
	}

	var hhi float64
	for _, c := range contributions {
		share := float64(c.count) / float64(total) * 100
		hhi += share * share
	}
	return hhi
}

func newVsCoreContributors(commits []database.CommitRecord, contributions []contribution) (newCount, coreCount int) {
	var total int64
	for _, c := range contributions {
		total += c.count
	}
	var cumulative int64
	for _, c := range contributions {
		cumulative += c.count
		if cumulative*2 <= total {
			coreCount++
		}
	}

	latest := latestCommitDate(commits)
	if latest == nil {
		return 0, coreCount
	}
	cutoff := latest.AddDate(0, 0, -newContributorWindowDays)

	before := make(map[string]struct{})
	for _, c := range commits {
		if c.AuthoredAt != nil && c.AuthoredAt.Before(cutoff) {
			before[c.AuthorLogin] = struct{}{}
		}
	}
	newOnes := make(map[string]struct{})
	for _, c := range commits {
		if c.AuthoredAt == nil || c.AuthoredAt.Before(cutoff) {
			continue
		}
		if _, ok := before[c.AuthorLogin]; !ok {
			newOnes[c.AuthorLogin] = struct{}{}
		}
	}
	return len(newOnes), coreCount
}

func latestCommitDate(commits []database.CommitRecord) *time.Time {
	var latest *time.Time
	for _, c := range commits {
		if c.AuthoredAt == nil {
			continue
		}
		if latest == nil || c.AuthoredAt.After(*latest) {
			latest = c.AuthoredAt
		}
	}
	return latest
}
