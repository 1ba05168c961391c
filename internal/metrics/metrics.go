// Package metrics computes repository maturity indicators from cached
// entities. Every function is pure: inputs in, samples out, no storage.
package metrics

import (
	"time"

	"github.com/montanaflynn/stats"

	"github.com/maturity-tools/maturityd/internal/database"
)

// Sample is one computed value bound for the snapshot store.
type Sample struct {
	Scope string
	Name  string
	Value any
}

// Bundle carries one repository's cached entities, already filtered to the
// requested time window.
type Bundle struct {
	Commits      []database.CommitRecord
	Branches     []database.BranchRecord
	Issues       []database.IssueRecord
	PullRequests []database.PullRequestRecord
	Releases     []database.ReleaseRecord
}

// Compute derives the full sample set for a repository. Empty entity groups
// contribute nothing rather than zero-valued noise, matching how sparse
// repositories should read in a dashboard.
func Compute(bundle Bundle, now time.Time) []Sample {
	var samples []Sample
	if len(bundle.Commits) > 0 {
		samples = append(samples, CommitMetrics(bundle.Commits, now)...)
	}
	if len(bundle.Branches) > 0 {
		samples = append(samples, BranchMetrics(bundle.Branches, now)...)
	}
	if len(bundle.Issues) > 0 || len(bundle.PullRequests) > 0 {
		samples = append(samples, IssuePRMetrics(bundle.Issues, bundle.PullRequests, now)...)
	}
	if len(bundle.Releases) > 0 {
		samples = append(samples, ReleaseMetrics(bundle.Releases)...)
	}
	return samples
}

// median returns 0 for an empty series instead of an error, which is how the
// analyzers treat repositories without the relevant activity.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m, err := stats.Median(values)
	if err != nil {
		return 0
	}
	return m
}
