package live

import (
	"sort"
	"time"

	"github.com/TobiSchelling/SocialPulse/internal/calendar"
	"github.com/TobiSchelling/SocialPulse/internal/emv"
	"github.com/TobiSchelling/SocialPulse/internal/model"
	"github.com/TobiSchelling/SocialPulse/internal/registry"
)

// PaceStatus classifies a projection against last week's total.
type PaceStatus string

const (
	Ahead               PaceStatus = "ahead"
	OnTrack             PaceStatus = "on_track"
	Behind              PaceStatus = "behind"
	SignificantlyBehind PaceStatus = "significantly_behind"
)

// PaceCard projects one metric to the end of the week.
type PaceCard struct {
	Metric        string     `json:"metric"`
	Label         string     `json:"label"`
	Current       float64    `json:"current"`
	Projected     float64    `json:"projected"`
	LastWeekTotal float64    `json:"last_week_total"`
	PacePercent   float64    `json:"pace_percent"`
	Status        PaceStatus `json:"status"`
}

var paceMetrics = []struct {
	key   string
	label string
	value func(Values) float64
}{
	{"engagements", "Engagements", func(v Values) float64 { return v.Engagements }},
	{"views", "Views", func(v Values) float64 { return v.Views }},
	{"impressions", "Impressions", func(v Values) float64 { return v.Impressions }},
	{"emv", "Earned Media Value", func(v Values) float64 { return v.EMV }},
	{"posts", "Posts", func(v Values) float64 { return v.Posts }},
}

// Project extrapolates current linearly to a full week. At or before the
// start of the week the multiplier is 1.
func Project(current, hoursElapsed float64) float64 {
	if hoursElapsed <= 0 {
		return current
	}
	return current * (calendar.HoursPerWeek / hoursElapsed)
}

// ClassifyPace compares a projection with last week's total.
func ClassifyPace(projected, lastWeekTotal float64) (float64, PaceStatus) {
	if lastWeekTotal == 0 {
		if projected > 0 {
			return 100, Ahead
		}
		return 0, OnTrack
	}
	pct := (projected - lastWeekTotal) / lastWeekTotal * 100
	switch {
	case pct >= 10:
		return pct, Ahead
	case pct >= -5:
		return pct, OnTrack
	case pct >= -20:
		return pct, Behind
	default:
		return pct, SignificantlyBehind
	}
}

// BuildPaceMetricCards projects every tracked metric.
func BuildPaceMetricCards(current, lastWeekTotal Values, hoursElapsed float64) []PaceCard {
	cards := make([]PaceCard, 0, len(paceMetrics))
	for _, m := range paceMetrics {
		cur := m.value(current)
		last := m.value(lastWeekTotal)
		projected := Project(cur, hoursElapsed)
		pct, status := ClassifyPace(projected, last)
		cards = append(cards, PaceCard{
			Metric:        m.key,
			Label:         m.label,
			Current:       cur,
			Projected:     projected,
			LastWeekTotal: last,
			PacePercent:   pct,
			Status:        status,
		})
	}
	return cards
}

// RaceEntry is one platform's standing this week.
type RaceEntry struct {
	Rank              int     `json:"rank"`
	Platform          string  `json:"platform"`
	Name              string  `json:"name"`
	Color             string  `json:"color"`
	Engagements       float64 `json:"engagements"`
	Posts             int     `json:"posts"`
	EMV               float64 `json:"emv"`
	LastWeekSamePoint float64 `json:"last_week_same_point"`
	Change            float64 `json:"change"`
}

// BuildPlatformRace ranks configured platforms by engagements so far,
// alongside what each had reached at the same point last week.
func BuildPlatformRace(reg *registry.Registry, calc *emv.Calculator, thisWeek, lastWeek []model.Post, now time.Time) []RaceEntry {
	start := calendar.WeekStartTime(now)
	elapsed := now.Sub(start)
	lastStart := start.AddDate(0, 0, -7)

	index := make(map[string]int)
	entries := make([]RaceEntry, 0, len(reg.Platforms()))
	for _, p := range reg.Platforms() {
		index[p.ID] = len(entries)
		entries = append(entries, RaceEntry{Platform: p.ID, Name: p.Name, Color: p.Color})
	}
	for _, p := range thisWeek {
		i, ok := index[p.Platform]
		if !ok {
			continue
		}
		entries[i].Engagements += float64(p.Engagements)
		entries[i].Posts++
		entries[i].EMV += calc.PostEMV(p)
	}
	for _, p := range lastWeek {
		i, ok := index[p.Platform]
		if !ok {
			continue
		}
		if offset := p.CreatedAt.Sub(lastStart); offset >= 0 && offset <= elapsed {
			entries[i].LastWeekSamePoint += float64(p.Engagements)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Engagements > entries[j].Engagements })
	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].Change = model.PercentChange(entries[i].Engagements, entries[i].LastWeekSamePoint)
	}
	return entries
}
