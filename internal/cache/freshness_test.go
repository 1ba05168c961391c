package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsFresh(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	threshold := DefaultStalenessThreshold

	at := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	assert.False(t, IsFresh(nil, now, threshold), "absent fetch is always stale")
	assert.True(t, IsFresh(at(time.Hour), now, threshold))
	assert.True(t, IsFresh(at(threshold-time.Second), now, threshold))
	assert.False(t, IsFresh(at(threshold), now, threshold), "exactly at threshold is stale")
	assert.False(t, IsFresh(at(30*24*time.Hour), now, threshold))

	// Deterministic: same inputs, same answer.
	last := at(time.Hour)
	assert.Equal(t, IsFresh(last, now, threshold), IsFresh(last, now, threshold))
}
