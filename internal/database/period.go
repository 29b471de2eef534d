package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/TobiSchelling/SocialPulse/internal/calendar"
)

// GetToday returns today's SAST date as YYYY-MM-DD.
func GetToday() string {
	return calendar.DateOf(time.Now())
}

// MakePeriodID creates a period_id from start and end dates.
// If start == end, returns just the date (e.g., "2025-01-06").
// Otherwise returns a range (e.g., "2025-01-06..2025-01-12").
func MakePeriodID(start, end string) string {
	if start == end {
		return start
	}
	return start + ".." + end
}

// FormatPeriodDisplay formats a period_id for human-readable display.
// Single day: "Jan 06, 2025"
// Range: "Jan 06 - Jan 12, 2025"
func FormatPeriodDisplay(periodID string) string {
	if start, end, ok := strings.Cut(periodID, ".."); ok {
		s, err := time.Parse(calendar.DateLayout, start)
		if err != nil {
			return periodID
		}
		e, err := time.Parse(calendar.DateLayout, end)
		if err != nil {
			return periodID
		}
		return fmt.Sprintf("%s - %s", s.Format("Jan 02"), e.Format("Jan 02, 2006"))
	}

	d, err := time.Parse(calendar.DateLayout, periodID)
	if err != nil {
		return periodID
	}
	return d.Format("Jan 02, 2006")
}

// PeriodEndDate extracts the end date from a period_id.
func PeriodEndDate(periodID string) string {
	if _, end, ok := strings.Cut(periodID, ".."); ok {
		return end
	}
	return periodID
}
