package metrics

import "github.com/maturity-tools/maturityd/internal/database"

// ReleaseMetrics derives the release-scope samples.
func ReleaseMetrics(releases []database.ReleaseRecord) []Sample {
	var downloads int64
	for _, r := range releases {
		downloads += r.TotalDownloads
	}
	return []Sample{
		{Scope: "releases", Name: "release_count", Value: len(releases)},
		{Scope: "releases", Name: "total_downloads", Value: downloads},
	}
}
