package rollup

import (
	"fmt"

	"github.com/TobiSchelling/SocialPulse/internal/attribution"
	"github.com/TobiSchelling/SocialPulse/internal/calendar"
	"github.com/TobiSchelling/SocialPulse/internal/model"
	"github.com/TobiSchelling/SocialPulse/internal/registry"
)

// Show alert thresholds on the engagement delta, in percent.
const (
	surgeDelta = 50
	dropDelta  = -30
)

// ShowSummary is one show's metrics for the period.
type ShowSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Metrics
	Deltas Deltas `json:"deltas"`
}

// ShowValue pairs a show id with a value.
type ShowValue struct {
	ShowID string  `json:"show_id"`
	Value  float64 `json:"value"`
}

// TimelinePoint is one week of engagements per show, in configuration order.
type TimelinePoint struct {
	WeekStart string      `json:"week_start"`
	Label     string      `json:"label"`
	Shows     []ShowValue `json:"shows"`
}

// Value returns the value recorded for showID, if any.
func (tp TimelinePoint) Value(showID string) (float64, bool) {
	for _, sv := range tp.Shows {
		if sv.ShowID == showID {
			return sv.Value, true
		}
	}
	return 0, false
}

// ShowsOverview compares every configured show.
type ShowsOverview struct {
	Currency    string             `json:"currency"`
	Summaries   []ShowSummary      `json:"summaries"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	Activity    []ActivityRow      `json:"activity"`
	Timeline    []TimelinePoint    `json:"timeline"`
	Attribution attribution.Counts `json:"attribution"`
}

// Alert is a notice about a show's period-over-period performance.
type Alert struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// ShowDetail drills into one show.
type ShowDetail struct {
	Show       registry.Show   `json:"show"`
	Summary    ShowSummary     `json:"summary"`
	Platforms  []PlatformSplit `json:"platforms"`
	Frequency  []WeekValue     `json:"frequency"`
	Engagement []WeekValue     `json:"engagement"`
	TopPosts   []model.Post    `json:"top_posts"`
	Alerts     []Alert         `json:"alerts"`
}

func (b *Builder) showSummary(s registry.Show, cur, prev []model.Post) ShowSummary {
	m := summarize(cur, b.calc)
	return ShowSummary{
		ID:      s.ID,
		Name:    s.Name,
		Color:   s.Color,
		Metrics: m,
		Deltas:  deltas(m, summarize(prev, b.calc)),
	}
}

// ShowsOverview summarizes and ranks every configured show.
func (b *Builder) ShowsOverview(in Input) ShowsOverview {
	cur := b.matcher.GetAttributedPosts(in.Posts)
	prev := b.matcher.GetAttributedPosts(in.PreviousPosts)
	hist := b.matcher.GetAttributedPosts(in.history())
	weeks := calendar.LastNWeeks(in.Now, b.weeks)

	out := ShowsOverview{
		Currency:    b.calc.Currency(),
		Summaries:   []ShowSummary{},
		Activity:    []ActivityRow{},
		Timeline:    make([]TimelinePoint, len(weeks)),
		Attribution: b.matcher.CountAttributedPosts(in.Posts),
	}
	for i, w := range weeks {
		out.Timeline[i] = TimelinePoint{WeekStart: w.Start, Label: w.ShortLabel(), Shows: []ShowValue{}}
	}

	var board []LeaderboardEntry
	for _, s := range b.registry.Shows() {
		sum := b.showSummary(s, cur[s.ID], prev[s.ID])
		out.Summaries = append(out.Summaries, sum)
		board = append(board, LeaderboardEntry{
			ID:          s.ID,
			Name:        s.Name,
			Color:       s.Color,
			Posts:       sum.Posts,
			Engagements: sum.Engagements,
			EMV:         sum.EMV,
		})

		cells := activityCells(weeks, hist[s.ID])
		out.Activity = append(out.Activity, ActivityRow{ID: s.ID, Name: s.Name, Color: s.Color, Cells: cells})
		for i, c := range cells {
			out.Timeline[i].Shows = append(out.Timeline[i].Shows, ShowValue{ShowID: s.ID, Value: float64(c.Engagements)})
		}
	}
	out.Leaderboard = rank(board)
	if out.Leaderboard == nil {
		out.Leaderboard = []LeaderboardEntry{}
	}
	return out
}

// ShowDetail drills into one show. It returns ErrNotFound for an unknown id.
func (b *Builder) ShowDetail(id string, in Input) (*ShowDetail, error) {
	show, ok := b.registry.Show(id)
	if !ok {
		return nil, fmt.Errorf("show %q: %w", id, ErrNotFound)
	}
	cur := b.matcher.GetAttributedPosts(in.Posts)[id]
	prev := b.matcher.GetAttributedPosts(in.PreviousPosts)[id]
	hist := b.matcher.GetAttributedPosts(in.history())[id]

	summary := b.showSummary(show, cur, prev)
	frequency, engagement := weeklySeries(calendar.LastNWeeks(in.Now, b.weeks), hist)
	return &ShowDetail{
		Show:       show,
		Summary:    summary,
		Platforms:  platformSplit(b.registry, b.calc, cur),
		Frequency:  frequency,
		Engagement: engagement,
		TopPosts:   topPosts(cur, b.calc, topPostsLimit),
		Alerts:     showAlerts(summary),
	}, nil
}

func showAlerts(s ShowSummary) []Alert {
	alerts := []Alert{}
	if s.Posts == 0 {
		alerts = append(alerts, Alert{
			Type:     "inactive",
			Severity: "warning",
			Message:  fmt.Sprintf("No %s posts in this period.", s.Name),
		})
	}
	if d := s.Deltas.Engagements; d != nil {
		switch {
		case *d >= surgeDelta:
			alerts = append(alerts, Alert{
				Type:     "surge",
				Severity: "success",
				Message:  fmt.Sprintf("%s engagements are up %.0f%% on the previous period.", s.Name, *d),
			})
		case *d <= dropDelta:
			alerts = append(alerts, Alert{
				Type:     "engagement_drop",
				Severity: "warning",
				Message:  fmt.Sprintf("%s engagements are down %.0f%% on the previous period.", s.Name, -*d),
			})
		}
	}
	return alerts
}
