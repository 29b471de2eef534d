package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sast(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, SAST)
}

func TestPreviousWeek(t *testing.T) {
	w, err := PreviousWeek("2025-01-06")
	require.NoError(t, err)
	assert.Equal(t, Week{Start: "2024-12-30", End: "2025-01-05"}, w)

	_, err = PreviousWeek("not-a-date")
	assert.Error(t, err)
}

func TestCurrentWeek(t *testing.T) {
	// Wednesday
	w := CurrentWeek(sast(2025, 1, 8, 15, 0))
	assert.Equal(t, Week{Start: "2025-01-06", End: "2025-01-12"}, w)

	// Sunday late evening still belongs to the same week
	w = CurrentWeek(sast(2025, 1, 12, 23, 59))
	assert.Equal(t, "2025-01-06", w.Start)

	// 23:30 UTC on Sunday is already Monday in SAST
	w = CurrentWeek(time.Date(2025, 1, 12, 23, 30, 0, 0, time.UTC))
	assert.Equal(t, "2025-01-13", w.Start)
}

func TestLastCompletedWeek(t *testing.T) {
	cases := []struct {
		name string
		now  time.Time
		want Week
	}{
		{"monday", sast(2025, 1, 13, 9, 0), Week{"2025-01-06", "2025-01-12"}},
		{"wednesday", sast(2025, 1, 15, 9, 0), Week{"2025-01-06", "2025-01-12"}},
		{"sunday", sast(2025, 1, 19, 22, 0), Week{"2025-01-06", "2025-01-12"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, LastCompletedWeek(tc.now))
		})
	}
}

func TestHoursIntoWeek(t *testing.T) {
	assert.Equal(t, 0.0, HoursIntoWeek(sast(2025, 1, 6, 0, 0)))
	assert.Equal(t, 36.5, HoursIntoWeek(sast(2025, 1, 7, 12, 30)))
	h := HoursIntoWeek(sast(2025, 1, 12, 23, 59))
	assert.Less(t, h, 168.0)
	assert.GreaterOrEqual(t, h, 167.9)
}

func TestDayNumbers(t *testing.T) {
	assert.Equal(t, 1, CurrentDayNumber(sast(2025, 1, 6, 0, 0)))
	assert.Equal(t, 7, CurrentDayNumber(sast(2025, 1, 12, 12, 0)))

	d, err := DayNumber("2025-01-12")
	require.NoError(t, err)
	assert.Equal(t, 7, d)
}

func TestWeekStartFor(t *testing.T) {
	cases := map[string]string{
		"2025-01-06":           "2025-01-06",
		"2025-01-12":           "2025-01-06", // Sunday stays in its week
		"2025-01-13":           "2025-01-13",
		"2025-01-12T22:30:00Z": "2025-01-13", // already Monday in SAST
		"2025-01-12T21:30:00Z": "2025-01-06",
	}
	for in, want := range cases {
		got, err := WeekStartFor(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestPartialWeek(t *testing.T) {
	week := Week{Start: "2025-01-06", End: "2025-01-12"}
	assert.True(t, IsPartialWeek(week, sast(2025, 1, 9, 10, 0)))
	assert.True(t, IsPartialWeek(week, sast(2025, 1, 12, 23, 0)))
	assert.False(t, IsPartialWeek(week, sast(2025, 1, 13, 0, 0)))

	days, err := DaysIntoWeek("2025-01-06", sast(2025, 1, 8, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, 3, days)

	days, err = DaysIntoWeek("2025-01-06", sast(2025, 1, 20, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, 7, days)
}

func TestLastNWeeksAndDates(t *testing.T) {
	weeks := LastNWeeks(sast(2025, 1, 8, 0, 0), 3)
	require.Len(t, weeks, 3)
	assert.Equal(t, "2024-12-23", weeks[0].Start)
	assert.Equal(t, "2025-01-06", weeks[2].Start)

	dates, err := Dates("2024-12-30", "2025-01-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-12-30", "2024-12-31", "2025-01-01", "2025-01-02"}, dates)
}

func TestWeekLabel(t *testing.T) {
	w := Week{Start: "2025-01-06", End: "2025-01-12"}
	assert.Equal(t, "Jan 06 - Jan 12, 2025", w.Label())
	assert.True(t, w.Contains("2025-01-12"))
	assert.False(t, w.Contains("2025-01-13"))
}
