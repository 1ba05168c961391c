// Package timerange defines the time windows a metrics pass can be computed over.
package timerange

import (
	"fmt"
	"time"
)

// TimeRange is one of the enumerated metric computation windows.
type TimeRange string

const (
	SixMonths  TimeRange = "6mo"
	OneYear    TimeRange = "1y"
	TwoYears   TimeRange = "2y"
	ThreeYears TimeRange = "3y"
	All        TimeRange = "all"
)

// Values lists every valid time range, in menu order.
func Values() []TimeRange {
	return []TimeRange{SixMonths, OneYear, TwoYears, ThreeYears, All}
}

// Parse validates a raw string against the enumerated values.
func Parse(raw string) (TimeRange, error) {
	for _, tr := range Values() {
		if raw == string(tr) {
			return tr, nil
		}
	}
	return "", fmt.Errorf("invalid time range %q (valid values: 6mo, 1y, 2y, 3y, all)", raw)
}

func (tr TimeRange) String() string {
	return string(tr)
}

// Days returns the window length in days, or 0 for All.
func (tr TimeRange) Days() int {
	switch tr {
	case SixMonths:
		return 180
	case OneYear:
		return 365
	case TwoYears:
		return 730
	case ThreeYears:
		return 1095
	default:
		return 0
	}
}

// SinceDate derives the inclusive lower bound of the window from now.
// All has no lower bound and yields nil.
func (tr TimeRange) SinceDate(now time.Time) *time.Time {
	days := tr.Days()
	if days == 0 {
		return nil
	}
	since := now.AddDate(0, 0, -days)
	return &since
}
