// Package live tracks the in-progress week hour by hour against the week
// before it.
package live

import (
	"fmt"
	"math"
	"time"

	"github.com/TobiSchelling/SocialPulse/internal/calendar"
	"github.com/TobiSchelling/SocialPulse/internal/emv"
	"github.com/TobiSchelling/SocialPulse/internal/model"
)

// Values are the tracked quantities of a bucket or a running total.
type Values struct {
	Engagements float64 `json:"engagements"`
	Views       float64 `json:"views"`
	Impressions float64 `json:"impressions"`
	EMV         float64 `json:"emv"`
	Posts       float64 `json:"posts"`
}

func (v *Values) add(o Values) {
	v.Engagements += o.Engagements
	v.Views += o.Views
	v.Impressions += o.Impressions
	v.EMV += o.EMV
	v.Posts += o.Posts
}

// HourPoint is one hour of the cumulative timeline. ThisWeek is nil for hours
// that have not happened yet.
type HourPoint struct {
	Hour     int     `json:"hour"`
	Day      int     `json:"day"`
	Label    string  `json:"label"`
	ThisWeek *Values `json:"this_week"`
	LastWeek Values  `json:"last_week"`
}

type hourly [calendar.HoursPerWeek]Values

// bucketPosts adds each post to the hour it was published in, counted from
// start. Posts outside the week are dropped.
func bucketPosts(posts []model.Post, start time.Time, calc *emv.Calculator) hourly {
	var h hourly
	for _, p := range posts {
		offset := p.CreatedAt.Sub(start)
		if offset < 0 {
			continue
		}
		hour := int(math.Floor(offset.Hours()))
		if hour >= calendar.HoursPerWeek {
			continue
		}
		h[hour].add(Values{
			Engagements: float64(p.Engagements),
			Views:       float64(p.VideoViews),
			Impressions: float64(p.Impressions),
			EMV:         calc.PostEMV(p),
			Posts:       1,
		})
	}
	return h
}

// dailyTotals sums daily rows by date across platforms.
func dailyTotals(rows []model.DailyMetricRow, calc *emv.Calculator) map[string]Values {
	out := make(map[string]Values)
	for _, r := range rows {
		v := out[r.Date]
		v.add(Values{
			Engagements: float64(r.Engagements),
			Views:       float64(r.VideoViews),
			Impressions: float64(r.Impressions),
			EMV:         calc.Calculate(r.Platform, emv.DailyCounts(r)),
		})
		out[r.Date] = v
	}
	return out
}

// reconcile lifts the last hour of each of the first completeDays days so the
// day's hourly sum is at least its independently reported daily total. The
// remainder is not spread across the day; hour 23 takes all of it.
func reconcile(h *hourly, start time.Time, completeDays int, daily map[string]Values) {
	for day := 0; day < completeDays && day < 7; day++ {
		total, ok := daily[start.AddDate(0, 0, day).Format(calendar.DateLayout)]
		if !ok {
			continue
		}
		var sum Values
		for hour := day * 24; hour < (day+1)*24; hour++ {
			sum.add(h[hour])
		}
		last := &h[day*24+23]
		if d := total.Engagements - sum.Engagements; d > 0 {
			last.Engagements += d
		}
		if d := total.Views - sum.Views; d > 0 {
			last.Views += d
		}
		if d := total.Impressions - sum.Impressions; d > 0 {
			last.Impressions += d
		}
		if d := total.EMV - sum.EMV; d > 0 {
			last.EMV += d
		}
	}
}

// currentHour is the index of the bucket now falls in.
func currentHour(now time.Time) int {
	h := int(math.Floor(now.Sub(calendar.WeekStartTime(now)).Hours()))
	if h < 0 {
		return 0
	}
	if h >= calendar.HoursPerWeek {
		return calendar.HoursPerWeek - 1
	}
	return h
}

func hourLabel(hour int) string {
	return fmt.Sprintf("%s %02d:00", calendar.DayName(hour/24+1), hour%24)
}

// TimelineInput is the raw data of the current and previous week.
type TimelineInput struct {
	Now           time.Time
	ThisWeekPosts []model.Post
	LastWeekPosts []model.Post
	ThisWeekDaily []model.DailyMetricRow
	LastWeekDaily []model.DailyMetricRow
}

// Timeline is the cumulative hourly series plus the per-hour increments it
// was built from.
type Timeline struct {
	Points      []HourPoint `json:"points"`
	CurrentHour int         `json:"current_hour"`
	thisHourly  hourly
	lastHourly  hourly
}

// Current returns this week's running total at the current hour.
func (t Timeline) Current() Values {
	if p := t.Points[t.CurrentHour].ThisWeek; p != nil {
		return *p
	}
	return Values{}
}

// LastWeekAt returns last week's running total at hour.
func (t Timeline) LastWeekAt(hour int) Values {
	return t.Points[hour].LastWeek
}

// LastWeekTotal returns last week's final total.
func (t Timeline) LastWeekTotal() Values {
	return t.Points[calendar.HoursPerWeek-1].LastWeek
}

// BuildHourlyTimeline buckets both weeks by hour from Monday 00:00 SAST and
// carries running totals forward. Last week runs through all 168 hours so it
// can be drawn past the current hour.
func BuildHourlyTimeline(in TimelineInput, calc *emv.Calculator) Timeline {
	start := calendar.WeekStartTime(in.Now)
	lastStart := start.AddDate(0, 0, -7)
	now := currentHour(in.Now)

	this := bucketPosts(in.ThisWeekPosts, start, calc)
	last := bucketPosts(in.LastWeekPosts, lastStart, calc)
	reconcile(&this, start, calendar.CurrentDayNumber(in.Now)-1, dailyTotals(in.ThisWeekDaily, calc))
	reconcile(&last, lastStart, 7, dailyTotals(in.LastWeekDaily, calc))

	points := make([]HourPoint, calendar.HoursPerWeek)
	var thisRun, lastRun Values
	for hour := 0; hour < calendar.HoursPerWeek; hour++ {
		lastRun.add(last[hour])
		p := HourPoint{Hour: hour, Day: hour/24 + 1, Label: hourLabel(hour), LastWeek: lastRun}
		if hour <= now {
			thisRun.add(this[hour])
			v := thisRun
			p.ThisWeek = &v
		}
		points[hour] = p
	}
	return Timeline{Points: points, CurrentHour: now, thisHourly: this, lastHourly: last}
}

// DayState tells where a weekday stands relative to now.
type DayState string

const (
	Complete   DayState = "complete"
	InProgress DayState = "in_progress"
	Upcoming   DayState = "upcoming"
)

// DayStatus summarizes one day of the current week.
type DayStatus struct {
	Day      int      `json:"day"`
	Name     string   `json:"name"`
	Date     string   `json:"date"`
	Status   DayState `json:"status"`
	ThisWeek Values   `json:"this_week"`
	LastWeek Values   `json:"last_week"`
}

// BuildDayStatus sums the timeline per day and marks each day complete, in
// progress or upcoming.
func BuildDayStatus(t Timeline, now time.Time) []DayStatus {
	start := calendar.WeekStartTime(now)
	today := calendar.CurrentDayNumber(now)
	out := make([]DayStatus, 7)
	for day := 1; day <= 7; day++ {
		status := Upcoming
		switch {
		case day < today:
			status = Complete
		case day == today:
			status = InProgress
		}
		var this, last Values
		for hour := (day - 1) * 24; hour < day*24; hour++ {
			last.add(t.lastHourly[hour])
			if status != Upcoming {
				this.add(t.thisHourly[hour])
			}
		}
		out[day-1] = DayStatus{
			Day:      day,
			Name:     calendar.DayName(day),
			Date:     start.AddDate(0, 0, day-1).Format(calendar.DateLayout),
			Status:   status,
			ThisWeek: this,
			LastWeek: last,
		}
	}
	return out
}
