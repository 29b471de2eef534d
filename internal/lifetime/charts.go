package lifetime

import (
	"sort"
	"time"

	"github.com/TobiSchelling/SocialPulse/internal/calendar"
	"github.com/TobiSchelling/SocialPulse/internal/emv"
	"github.com/TobiSchelling/SocialPulse/internal/model"
)

const (
	sparklineDays = 90
	growthDays    = 30
	heatmapDays   = 365
	// growthDeadband keeps tiny changes from flipping the arrow.
	growthDeadband = 0.5
)

// Direction of a growth indicator.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
	Flat Direction = "flat"
)

// Hero card metric keys, in display order.
const (
	MetricViews          = "views"
	MetricImpressions    = "impressions"
	MetricEngagements    = "engagements"
	MetricEngagementRate = "engagement_rate"
	MetricPosts          = "posts"
	MetricFollowers      = "followers"
	MetricEMV            = "emv"
)

var heroMetrics = []struct {
	key   string
	label string
}{
	{MetricViews, "Total Views"},
	{MetricImpressions, "Impressions"},
	{MetricEngagements, "Engagements"},
	{MetricEngagementRate, "Engagement Rate"},
	{MetricPosts, "Posts Published"},
	{MetricFollowers, "Followers"},
	{MetricEMV, "Earned Media Value"},
}

// SparkPoint is one dated value of a sparkline.
type SparkPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Growth compares the last 30 days with the 30 before them.
type Growth struct {
	Percent   float64   `json:"percent"`
	Direction Direction `json:"direction"`
}

// HeroCard is a headline metric with its recent trend.
type HeroCard struct {
	Metric    string       `json:"metric"`
	Label     string       `json:"label"`
	Value     float64      `json:"value"`
	Sparkline []SparkPoint `json:"sparkline"`
	Growth    Growth       `json:"growth"`
}

// dayTotals are the cross-platform sums of one date.
type dayTotals struct {
	date string
	sum  model.DailyMetricRow
	emv  float64
}

func (d dayTotals) value(metric string) float64 {
	switch metric {
	case MetricViews:
		return float64(d.sum.VideoViews)
	case MetricImpressions:
		return float64(d.sum.Impressions)
	case MetricEngagements:
		return float64(d.sum.Engagements)
	case MetricEngagementRate:
		return model.EngagementRate(float64(d.sum.Engagements), float64(d.sum.Impressions))
	case MetricPosts:
		return float64(d.sum.PostsPublished)
	case MetricFollowers:
		return float64(d.sum.Followers)
	case MetricEMV:
		return d.emv
	}
	return 0
}

// dailyTotals sums rows per date, oldest first. Followers are summed across
// the platforms reporting that date.
func (a *Aggregator) dailyTotals(rows []model.DailyMetricRow) []dayTotals {
	index := make(map[string]int)
	var days []dayTotals
	for _, r := range rows {
		i, ok := index[r.Date]
		if !ok {
			i = len(days)
			index[r.Date] = i
			days = append(days, dayTotals{date: r.Date})
		}
		days[i].sum.Add(r)
		days[i].sum.Followers += r.Followers
		days[i].emv += a.calc.Calculate(r.Platform, emv.DailyCounts(r))
	}
	sort.Slice(days, func(i, j int) bool { return days[i].date < days[j].date })
	return days
}

// windowValue reduces the days in [from, to] to a single metric value.
// Followers take the last day in the window; the rate is recomputed from
// the window's sums.
func windowValue(days []dayTotals, from, to, metric string) float64 {
	var total dayTotals
	var last *dayTotals
	for i := range days {
		d := &days[i]
		if d.date < from || d.date > to {
			continue
		}
		total.sum.Add(d.sum)
		total.emv += d.emv
		last = d
	}
	if metric == MetricFollowers {
		if last == nil {
			return 0
		}
		return float64(last.sum.Followers)
	}
	return total.value(metric)
}

func growthOf(current, previous float64) Growth {
	pct := model.PercentChange(current, previous)
	dir := Flat
	switch {
	case pct > growthDeadband:
		dir = Up
	case pct < -growthDeadband:
		dir = Down
	}
	return Growth{Percent: pct, Direction: dir}
}

// BuildHeroCards builds the seven headline cards. Sparklines cover the 90 days
// up to today and only carry dates that have data.
func (a *Aggregator) BuildHeroCards(rows []model.DailyMetricRow, totals Aggregate, now time.Time) []HeroCard {
	today := calendar.StartOfDay(now)
	todayStr := today.Format(calendar.DateLayout)
	sparkFrom := today.AddDate(0, 0, -(sparklineDays - 1)).Format(calendar.DateLayout)
	curFrom := today.AddDate(0, 0, -(growthDays - 1)).Format(calendar.DateLayout)
	prevTo := today.AddDate(0, 0, -growthDays).Format(calendar.DateLayout)
	prevFrom := today.AddDate(0, 0, -(2*growthDays - 1)).Format(calendar.DateLayout)

	days := a.dailyTotals(rows)
	values := map[string]float64{
		MetricViews:          float64(totals.Views),
		MetricImpressions:    float64(totals.Impressions),
		MetricEngagements:    float64(totals.Engagements),
		MetricEngagementRate: totals.EngagementRate,
		MetricPosts:          float64(totals.Posts),
		MetricFollowers:      float64(totals.Followers),
		MetricEMV:            totals.EMV,
	}

	cards := make([]HeroCard, 0, len(heroMetrics))
	for _, m := range heroMetrics {
		spark := []SparkPoint{}
		for _, d := range days {
			if d.date >= sparkFrom && d.date <= todayStr {
				spark = append(spark, SparkPoint{Date: d.date, Value: d.value(m.key)})
			}
		}
		cards = append(cards, HeroCard{
			Metric:    m.key,
			Label:     m.label,
			Value:     values[m.key],
			Sparkline: spark,
			Growth: growthOf(
				windowValue(days, curFrom, todayStr, m.key),
				windowValue(days, prevFrom, prevTo, m.key),
			),
		})
	}
	return cards
}

// HeatmapDay is one cell of the year-long posting heatmap.
type HeatmapDay struct {
	Date        string `json:"date"`
	Posts       int    `json:"posts"`
	Engagements int64  `json:"engagements"`
	DayOfWeek   int    `json:"day_of_week"`
	WeekIndex   int    `json:"week_index"`
}

// HeatmapData emits exactly 365 days ending today. WeekIndex counts Monday
// based columns from the first day, so the grid is stable for a given today.
func HeatmapData(posts []model.Post, now time.Time) []HeatmapDay {
	today := calendar.StartOfDay(now)
	anchor := today.AddDate(0, 0, -(heatmapDays - 1))
	offset := calendar.CurrentDayNumber(anchor) - 1

	type cell struct {
		posts       int
		engagements int64
	}
	byDate := make(map[string]cell)
	for _, p := range posts {
		d := calendar.DateOf(p.CreatedAt)
		c := byDate[d]
		c.posts++
		c.engagements += p.Engagements
		byDate[d] = c
	}

	out := make([]HeatmapDay, heatmapDays)
	for i := range out {
		day := anchor.AddDate(0, 0, i)
		date := day.Format(calendar.DateLayout)
		c := byDate[date]
		out[i] = HeatmapDay{
			Date:        date,
			Posts:       c.posts,
			Engagements: c.engagements,
			DayOfWeek:   calendar.CurrentDayNumber(day),
			WeekIndex:   (i + offset) / 7,
		}
	}
	return out
}

// DonutSlice is one platform's share of total engagements.
type DonutSlice struct {
	Platform string  `json:"platform"`
	Name     string  `json:"name"`
	Color    string  `json:"color"`
	Value    float64 `json:"value"`
	Percent  float64 `json:"percent"`
}

// DonutData splits engagements across platforms. Platforms without
// engagements are left out.
func DonutData(breakdowns []PlatformBreakdown) []DonutSlice {
	var total float64
	for _, b := range breakdowns {
		total += float64(b.Engagements)
	}
	slices := []DonutSlice{}
	if total == 0 {
		return slices
	}
	for _, b := range breakdowns {
		if b.Engagements == 0 {
			continue
		}
		v := float64(b.Engagements)
		slices = append(slices, DonutSlice{
			Platform: b.Platform.ID,
			Name:     b.Platform.Name,
			Color:    b.Platform.Color,
			Value:    v,
			Percent:  v / total * 100,
		})
	}
	return slices
}

// EMVBar is one platform's EMV split into categories.
type EMVBar struct {
	Platform string `json:"platform"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	emv.Breakdown
	EMV float64 `json:"total"`
}

// EMVBars lists available platforms by descending EMV.
func EMVBars(breakdowns []PlatformBreakdown) []EMVBar {
	bars := []EMVBar{}
	for _, b := range breakdowns {
		if !b.Available {
			continue
		}
		bars = append(bars, EMVBar{
			Platform:  b.Platform.ID,
			Name:      b.Platform.Name,
			Color:     b.Platform.Color,
			Breakdown: b.EMVBreakdown,
			EMV:       b.EMVBreakdown.Total(),
		})
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].EMV > bars[j].EMV })
	return bars
}
