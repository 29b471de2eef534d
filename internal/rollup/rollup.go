// Package rollup builds the show and talent overview and drill-down views
// from attributed posts.
package rollup

import (
	"errors"
	"sort"
	"time"

	"github.com/TobiSchelling/SocialPulse/internal/attribution"
	"github.com/TobiSchelling/SocialPulse/internal/calendar"
	"github.com/TobiSchelling/SocialPulse/internal/emv"
	"github.com/TobiSchelling/SocialPulse/internal/model"
	"github.com/TobiSchelling/SocialPulse/internal/registry"
)

// ErrNotFound is returned for a show or talent id that is not configured.
var ErrNotFound = errors.New("not found")

const (
	activityWeeks = 12
	topPostsLimit = 10
)

// ComputeDelta returns the percent change from previous to current. It is
// nil when there is no baseline and nothing happened, and 100 when the
// baseline is zero but current is not.
func ComputeDelta(current, previous float64) *float64 {
	var d float64
	switch {
	case previous == 0 && current == 0:
		return nil
	case previous == 0:
		d = 100
	default:
		d = (current - previous) / previous * 100
	}
	return &d
}

// Metrics are the summed counters of a set of posts.
type Metrics struct {
	Posts          int     `json:"posts"`
	Engagements    int64   `json:"engagements"`
	Impressions    int64   `json:"impressions"`
	Views          int64   `json:"views"`
	EMV            float64 `json:"emv"`
	EngagementRate float64 `json:"engagement_rate"`
	AvgEngagement  float64 `json:"avg_engagement"`
}

func summarize(posts []model.Post, calc *emv.Calculator) Metrics {
	var m Metrics
	for _, p := range posts {
		m.Posts++
		m.Engagements += p.Engagements
		m.Impressions += p.Impressions
		m.Views += p.VideoViews
		m.EMV += calc.PostEMV(p)
	}
	m.EngagementRate = model.EngagementRate(float64(m.Engagements), float64(m.Impressions))
	if m.Posts > 0 {
		m.AvgEngagement = float64(m.Engagements) / float64(m.Posts)
	}
	return m
}

// Deltas compare a period's metrics with the period before it.
type Deltas struct {
	Posts       *float64 `json:"posts"`
	Engagements *float64 `json:"engagements"`
	EMV         *float64 `json:"emv"`
}

func deltas(cur, prev Metrics) Deltas {
	return Deltas{
		Posts:       ComputeDelta(float64(cur.Posts), float64(prev.Posts)),
		Engagements: ComputeDelta(float64(cur.Engagements), float64(prev.Engagements)),
		EMV:         ComputeDelta(cur.EMV, prev.EMV),
	}
}

// LeaderboardEntry ranks one show or talent by engagements.
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	Posts       int     `json:"posts"`
	Engagements int64   `json:"engagements"`
	EMV         float64 `json:"emv"`
}

// rank sorts entries by descending engagements, keeping configuration order
// on ties, and numbers them from 1.
func rank(entries []LeaderboardEntry) []LeaderboardEntry {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Engagements > entries[j].Engagements })
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// ActivityCell is one week of an entity's activity.
type ActivityCell struct {
	WeekStart   string `json:"week_start"`
	Label       string `json:"label"`
	Posts       int    `json:"posts"`
	Engagements int64  `json:"engagements"`
}

// ActivityRow is an entity's activity over the grid's weeks, oldest first.
type ActivityRow struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Color string         `json:"color"`
	Cells []ActivityCell `json:"cells"`
}

// weekIndex returns the index of the week containing t, or -1.
func weekIndex(weeks []calendar.Week, t time.Time) int {
	date := calendar.DateOf(t)
	for i, w := range weeks {
		if w.Contains(date) {
			return i
		}
	}
	return -1
}

func activityCells(weeks []calendar.Week, posts []model.Post) []ActivityCell {
	cells := make([]ActivityCell, len(weeks))
	for i, w := range weeks {
		cells[i] = ActivityCell{WeekStart: w.Start, Label: w.ShortLabel()}
	}
	for _, p := range posts {
		if i := weekIndex(weeks, p.CreatedAt); i >= 0 {
			cells[i].Posts++
			cells[i].Engagements += p.Engagements
		}
	}
	return cells
}

// WeekValue is one point of a weekly chart.
type WeekValue struct {
	WeekStart string  `json:"week_start"`
	Label     string  `json:"label"`
	Value     float64 `json:"value"`
}

// weeklySeries returns per-week post counts and engagement totals.
func weeklySeries(weeks []calendar.Week, posts []model.Post) (frequency, engagement []WeekValue) {
	for _, c := range activityCells(weeks, posts) {
		frequency = append(frequency, WeekValue{WeekStart: c.WeekStart, Label: c.Label, Value: float64(c.Posts)})
		engagement = append(engagement, WeekValue{WeekStart: c.WeekStart, Label: c.Label, Value: float64(c.Engagements)})
	}
	return frequency, engagement
}

// PlatformSplit is one platform's share of an entity's engagements.
type PlatformSplit struct {
	Platform    string  `json:"platform"`
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	Posts       int     `json:"posts"`
	Engagements int64   `json:"engagements"`
	EMV         float64 `json:"emv"`
	Share       float64 `json:"share"`
}

// platformSplit lists configured platforms with at least one post, in
// configuration order.
func platformSplit(reg *registry.Registry, calc *emv.Calculator, posts []model.Post) []PlatformSplit {
	byPlatform := make(map[string][]model.Post)
	var total int64
	for _, p := range posts {
		byPlatform[p.Platform] = append(byPlatform[p.Platform], p)
		total += p.Engagements
	}
	out := []PlatformSplit{}
	for _, pl := range reg.Platforms() {
		group, ok := byPlatform[pl.ID]
		if !ok {
			continue
		}
		m := summarize(group, calc)
		s := PlatformSplit{
			Platform:    pl.ID,
			Name:        pl.Name,
			Color:       pl.Color,
			Posts:       m.Posts,
			Engagements: m.Engagements,
			EMV:         m.EMV,
		}
		if total > 0 {
			s.Share = float64(m.Engagements) / float64(total) * 100
		}
		out = append(out, s)
	}
	return out
}

func topPosts(posts []model.Post, calc *emv.Calculator, n int) []model.Post {
	out := make([]model.Post, len(posts))
	for i, p := range posts {
		p.EMV = calc.PostEMV(p)
		out[i] = p
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Engagements > out[j].Engagements })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Input is the post data a rollup is built from. Posts and PreviousPosts
// cover two equal-length consecutive periods; HistoryPosts covers the
// activity grid's weeks and defaults to Posts when nil.
type Input struct {
	Now           time.Time
	Posts         []model.Post
	PreviousPosts []model.Post
	HistoryPosts  []model.Post
}

func (in Input) history() []model.Post {
	if in.HistoryPosts == nil {
		return in.Posts
	}
	return in.HistoryPosts
}

// Builder builds show and talent rollups for the configured entities.
type Builder struct {
	registry *registry.Registry
	calc     *emv.Calculator
	matcher  *attribution.Matcher
	weeks    int
}

// New creates a Builder whose activity grids span twelve weeks.
func New(reg *registry.Registry) *Builder {
	return &Builder{
		registry: reg,
		calc:     reg.Calculator(),
		matcher:  attribution.FromRegistry(reg),
		weeks:    activityWeeks,
	}
}

// Weeks is the number of weeks the activity grids and charts span.
func (b *Builder) Weeks() int {
	return b.weeks
}
