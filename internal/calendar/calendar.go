// Package calendar implements Monday-start week arithmetic in South Africa
// Standard Time (UTC+2), independent of the host timezone.
package calendar

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayout is the YYYY-MM-DD layout used for every date string.
const DateLayout = "2006-01-02"

// HoursPerWeek is the number of hourly buckets in a week.
const HoursPerWeek = 168

// SAST is the fixed UTC+2 zone all week and day boundaries are computed in.
var SAST = time.FixedZone("SAST", 2*60*60)

// Week is an inclusive Monday..Sunday range of YYYY-MM-DD dates.
type Week struct {
	Start string `json:"week_start"`
	End   string `json:"week_end"`
}

// Clock supplies the current time to time-dependent builders.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now returns f().
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// FixedClock returns a Clock frozen at t.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// InSAST converts t to the SAST zone.
func InSAST(t time.Time) time.Time {
	return t.In(SAST)
}

// DateOf returns the SAST calendar date of t.
func DateOf(t time.Time) string {
	return t.In(SAST).Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string as midnight SAST.
func ParseDate(date string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, date, SAST)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", date, err)
	}
	return t, nil
}

// AddDays shifts a YYYY-MM-DD date by n days.
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}

// dayNumber maps Go weekdays onto Monday=1..Sunday=7.
func dayNumber(wd time.Weekday) int {
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

func midnight(t time.Time) time.Time {
	t = t.In(SAST)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, SAST)
}

// StartOfDay returns 00:00 SAST of the day containing t.
func StartOfDay(t time.Time) time.Time {
	return midnight(t)
}

// WeekStartTime returns Monday 00:00 SAST of the week containing now.
func WeekStartTime(now time.Time) time.Time {
	day := midnight(now)
	return day.AddDate(0, 0, -(dayNumber(day.Weekday()) - 1))
}

func weekFrom(monday time.Time) Week {
	return Week{
		Start: monday.Format(DateLayout),
		End:   monday.AddDate(0, 0, 6).Format(DateLayout),
	}
}

// CurrentWeek returns the Monday..Sunday week containing now.
func CurrentWeek(now time.Time) Week {
	return weekFrom(WeekStartTime(now))
}

// LastCompletedWeek returns the most recent fully elapsed Monday..Sunday week.
// On a Monday that is the week ending yesterday.
func LastCompletedWeek(now time.Time) Week {
	day := midnight(now)
	sunday := day.AddDate(0, 0, -dayNumber(day.Weekday()))
	return weekFrom(sunday.AddDate(0, 0, -6))
}

// PreviousWeek returns the week seven days before the week starting at
// weekStart.
func PreviousWeek(weekStart string) (Week, error) {
	start, err := ParseDate(weekStart)
	if err != nil {
		return Week{}, err
	}
	return Week{
		Start: start.AddDate(0, 0, -7).Format(DateLayout),
		End:   start.AddDate(0, 0, -1).Format(DateLayout),
	}, nil
}

// WeekOf returns the full week beginning at weekStart.
func WeekOf(weekStart string) (Week, error) {
	start, err := ParseDate(weekStart)
	if err != nil {
		return Week{}, err
	}
	return weekFrom(start), nil
}

// HoursIntoWeek returns the hours elapsed since Monday 00:00 SAST, rounded to
// one decimal and kept within [0, 168).
func HoursIntoWeek(now time.Time) float64 {
	h := now.Sub(WeekStartTime(now)).Hours()
	h = math.Round(h*10) / 10
	if h >= HoursPerWeek {
		h = HoursPerWeek - 0.1
	}
	if h < 0 {
		h = 0
	}
	return h
}

// CurrentDayNumber returns 1 (Monday) through 7 (Sunday) for now in SAST.
func CurrentDayNumber(now time.Time) int {
	return dayNumber(now.In(SAST).Weekday())
}

// DayNumber returns 1 (Monday) through 7 (Sunday) for a YYYY-MM-DD date.
func DayNumber(date string) (int, error) {
	t, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	return dayNumber(t.Weekday()), nil
}

// WeekStartFor returns the Monday of the week containing value, which may be a
// YYYY-MM-DD date or an RFC3339 timestamp. Bare dates are read as UTC midnight
// and shifted two hours forward before truncating, so a date never slips into
// the neighbouring day.
func WeekStartFor(value string) (string, error) {
	var t time.Time
	if strings.Contains(value, "T") {
		ts, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return "", fmt.Errorf("parsing timestamp %q: %w", value, err)
		}
		t = ts
	} else {
		d, err := time.Parse(DateLayout, value)
		if err != nil {
			return "", fmt.Errorf("parsing date %q: %w", value, err)
		}
		t = d.Add(2 * time.Hour)
	}
	return WeekStartTime(t).Format(DateLayout), nil
}

// IsPartialWeek reports whether now's SAST date falls inside week.
func IsPartialWeek(week Week, now time.Time) bool {
	today := DateOf(now)
	return today >= week.Start && today <= week.End
}

// DaysIntoWeek returns the 1-based day index of now inside the week starting
// at weekStart, capped at 7. Dates before the week report 0.
func DaysIntoWeek(weekStart string, now time.Time) (int, error) {
	start, err := ParseDate(weekStart)
	if err != nil {
		return 0, err
	}
	elapsed := now.Sub(start)
	if elapsed < 0 {
		return 0, nil
	}
	days := int(math.Floor(elapsed.Hours()/24)) + 1
	if days > 7 {
		days = 7
	}
	return days, nil
}

// Dates returns every YYYY-MM-DD date from start to end inclusive.
func Dates(start, end string) ([]string, error) {
	s, err := ParseDate(start)
	if err != nil {
		return nil, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return nil, err
	}
	var out []string
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(DateLayout))
	}
	return out, nil
}

// LastNWeeks returns n consecutive weeks ending with the week containing now,
// oldest first.
func LastNWeeks(now time.Time, n int) []Week {
	monday := WeekStartTime(now)
	weeks := make([]Week, 0, n)
	for i := n - 1; i >= 0; i-- {
		weeks = append(weeks, weekFrom(monday.AddDate(0, 0, -7*i)))
	}
	return weeks
}

// Contains reports whether the YYYY-MM-DD date lies in the week.
func (w Week) Contains(date string) bool {
	return date >= w.Start && date <= w.End
}

// StartTime returns Monday 00:00 SAST of the week.
func (w Week) StartTime() (time.Time, error) {
	return ParseDate(w.Start)
}

// Label formats the week for display, e.g. "Jan 06 - Jan 12, 2025".
func (w Week) Label() string {
	start, err := time.Parse(DateLayout, w.Start)
	if err != nil {
		return w.Start
	}
	end, err := time.Parse(DateLayout, w.End)
	if err != nil {
		return w.Start
	}
	return fmt.Sprintf("%s - %s", start.Format("Jan 02"), end.Format("Jan 02, 2006"))
}

// ShortLabel formats the week start as "Jan 06".
func (w Week) ShortLabel() string {
	start, err := time.Parse(DateLayout, w.Start)
	if err != nil {
		return w.Start
	}
	return start.Format("Jan 02")
}

// DayName returns the short English name of a 1..7 day number.
func DayName(day int) string {
	names := [...]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	if day < 1 || day > 7 {
		return ""
	}
	return names[day-1]
}
