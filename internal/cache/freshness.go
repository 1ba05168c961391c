// Package cache is the policy layer of the store: it decides per (repository,
// entity type) whether cached raw data may be reused or must be refetched,
// then always records a new metrics run.
package cache

import "time"

// DefaultStalenessThreshold is the maximum age of cached raw data before a
// refetch is required.
const DefaultStalenessThreshold = 7 * 24 * time.Hour

// IsFresh reports whether a cached fetch is still usable. Absent (nil)
// lastFetch is always stale. Pure: the decision depends only on the inputs.
func IsFresh(lastFetch *time.Time, now time.Time, threshold time.Duration) bool {
	if lastFetch == nil {
		return false
	}
	return now.Sub(*lastFetch) < threshold
}
