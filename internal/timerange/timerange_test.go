package timerange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for _, tr := range Values() {
		parsed, err := Parse(string(tr))
		require.NoError(t, err)
		assert.Equal(t, tr, parsed)
	}

	_, err := Parse("6 months")
	assert.Error(t, err)
}

func TestSinceDate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		tr   TimeRange
		days int
	}{
		{SixMonths, 180},
		{OneYear, 365},
		{TwoYears, 730},
		{ThreeYears, 1095},
	}
	for _, tt := range tests {
		since := tt.tr.SinceDate(now)
		require.NotNil(t, since, "time range %s", tt.tr)
		assert.Equal(t, now.AddDate(0, 0, -tt.days), *since)
	}

	assert.Nil(t, All.SinceDate(now))
}
