package weekly

import (
	"sort"
	"time"

	"github.com/TobiSchelling/SocialPulse/internal/calendar"
	"github.com/TobiSchelling/SocialPulse/internal/emv"
	"github.com/TobiSchelling/SocialPulse/internal/model"
	"github.com/TobiSchelling/SocialPulse/internal/registry"
)

// DefaultBenchmarkEngagementRate is the industry engagement rate the gauge is
// drawn against, in percent.
const DefaultBenchmarkEngagementRate = 1.5

const (
	growthCurveWeeks = 12
	rollingWeeks     = 4
	heatmapTopPosts  = 10
)

// Metric keys used by cards, tables and insights.
const (
	MetricEngagements    = "engagements"
	MetricImpressions    = "impressions"
	MetricViews          = "views"
	MetricEngagementRate = "engagement_rate"
	MetricFollowers      = "followers"
	MetricPosts          = "posts"
	MetricEMV            = "emv"
)

var cardMetrics = []struct {
	key   string
	label string
}{
	{MetricEngagements, "Engagements"},
	{MetricImpressions, "Impressions"},
	{MetricViews, "Video Views"},
	{MetricEngagementRate, "Engagement Rate"},
	{MetricFollowers, "Followers"},
	{MetricPosts, "Posts"},
	{MetricEMV, "Earned Media Value"},
}

// MetricValue reads a metric off a snapshot row.
func MetricValue(r model.WeeklySnapshotRow, metric string) float64 {
	switch metric {
	case MetricEngagements:
		return float64(r.Engagements)
	case MetricImpressions:
		return float64(r.Impressions)
	case MetricViews:
		return float64(r.VideoViews)
	case MetricEngagementRate:
		return r.EngagementRate
	case MetricFollowers:
		return float64(r.FollowersEnd)
	case MetricPosts:
		return float64(r.PostsCount)
	case MetricEMV:
		return r.EMVTotal
	}
	return 0
}

// StatusLabel describes a week-over-week change in words.
func StatusLabel(change float64) string {
	switch {
	case change > 20:
		return "Strong Growth"
	case change >= 5:
		return "Healthy Growth"
	case change >= 0:
		return "Stable"
	case change >= -5:
		return "Slight Decline"
	default:
		return "Needs Attention"
	}
}

// HeroCard compares one total metric across two weeks.
type HeroCard struct {
	Metric   string  `json:"metric"`
	Label    string  `json:"label"`
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	Change   float64 `json:"change"`
	Status   string  `json:"status"`
}

// Gauge is the engagement-rate gauge.
type Gauge struct {
	Current        float64 `json:"current"`
	Previous       float64 `json:"previous"`
	RollingAverage float64 `json:"rolling_average"`
	Benchmark      float64 `json:"benchmark"`
}

// EMVComparison stacks this week's EMV categories against last week's.
type EMVComparison struct {
	Current       emv.Breakdown `json:"current"`
	Previous      emv.Breakdown `json:"previous"`
	CurrentTotal  float64       `json:"current_total"`
	PreviousTotal float64       `json:"previous_total"`
	Change        float64       `json:"change"`
}

// MetricCell is one platform-metric cell of the comparison table.
type MetricCell struct {
	Metric    string    `json:"metric"`
	Current   float64   `json:"current"`
	Previous  float64   `json:"previous"`
	Change    float64   `json:"change"`
	Sparkline []float64 `json:"sparkline"`
}

// PlatformRow is one platform line of the comparison table.
type PlatformRow struct {
	Platform string       `json:"platform"`
	Name     string       `json:"name"`
	Color    string       `json:"color"`
	Metrics  []MetricCell `json:"metrics"`
}

// PlatformValue pairs a platform id with a value.
type PlatformValue struct {
	Platform string  `json:"platform"`
	Value    float64 `json:"value"`
}

// GrowthPoint is one week of the growth curve.
type GrowthPoint struct {
	WeekStart string          `json:"week_start"`
	Label     string          `json:"label"`
	Total     float64         `json:"total"`
	Platforms []PlatformValue `json:"platforms"`
}

// HeatmapCell is the engagement of one platform on one weekday.
type HeatmapCell struct {
	Day         int    `json:"day"`
	DayName     string `json:"day_name"`
	Platform    string `json:"platform"`
	Posts       int    `json:"posts"`
	Engagements int64  `json:"engagements"`
}

// Comparison is the full week-over-week view.
type Comparison struct {
	Week          calendar.Week `json:"week"`
	PreviousWeek  calendar.Week `json:"previous_week"`
	Label         string        `json:"label"`
	Partial       bool          `json:"partial"`
	DaysIntoWeek  int           `json:"days_into_week"`
	Currency      string        `json:"currency"`
	HeroCards     []HeroCard    `json:"hero_cards"`
	Gauge         Gauge         `json:"gauge"`
	EMV           EMVComparison `json:"emv"`
	PlatformTable []PlatformRow `json:"platform_table"`
	GrowthCurve   []GrowthPoint `json:"growth_curve"`
	Heatmap       []HeatmapCell `json:"heatmap"`
	Insights      []Insight     `json:"insights"`
}

// Input is what the comparison is derived from.
type Input struct {
	Week calendar.Week
	// Snapshots holds rows of the trailing weeks, including Week and the
	// week before it, in any order.
	Snapshots []model.WeeklySnapshotRow
	// Posts are the posts published during Week.
	Posts []model.Post
	Now   time.Time
}

// Options configures a Comparator.
type Options struct {
	Templates               Templates
	BenchmarkEngagementRate float64
}

// Comparator builds weekly views for the configured platforms.
type Comparator struct {
	registry  *registry.Registry
	calc      *emv.Calculator
	templates Templates
	benchmark float64
}

// New creates a Comparator. Missing templates fall back to the defaults.
func New(reg *registry.Registry, opts Options) *Comparator {
	benchmark := opts.BenchmarkEngagementRate
	if benchmark <= 0 {
		benchmark = DefaultBenchmarkEngagementRate
	}
	return &Comparator{
		registry:  reg,
		calc:      reg.Calculator(),
		templates: opts.Templates.WithDefaults(),
		benchmark: benchmark,
	}
}

// BuildSnapshot builds the snapshot rows of week for every configured
// platform.
func (c *Comparator) BuildSnapshot(rows []model.DailyMetricRow, week calendar.Week) []model.WeeklySnapshotRow {
	return BuildSnapshotFromDailyMetrics(rows, week, c.registry.PlatformIDs(), c.calc)
}

// history is the snapshot rows of n consecutive weeks ending with the
// comparison week, oldest first. Weeks without rows are kept and read as zero.
type history struct {
	weeks []calendar.Week
	rows  map[string][]model.WeeklySnapshotRow
}

func newHistory(week calendar.Week, snapshots []model.WeeklySnapshotRow, n int) history {
	h := history{rows: GroupByWeek(snapshots)}
	start, err := week.StartTime()
	if err != nil {
		return h
	}
	for i := n - 1; i >= 0; i-- {
		h.weeks = append(h.weeks, calendar.Week{
			Start: start.AddDate(0, 0, -7*i).Format(calendar.DateLayout),
			End:   start.AddDate(0, 0, -7*i+6).Format(calendar.DateLayout),
		})
	}
	return h
}

// present drops the weeks that have no snapshot rows.
func (h history) present() history {
	out := history{rows: h.rows}
	for _, w := range h.weeks {
		if len(h.rows[w.Start]) > 0 {
			out.weeks = append(out.weeks, w)
		}
	}
	return out
}

func (h history) series(platform, metric string) []float64 {
	out := make([]float64, 0, len(h.weeks))
	for _, w := range h.weeks {
		r, _ := FindRow(h.rows[w.Start], platform)
		out = append(out, MetricValue(r, metric))
	}
	return out
}

// BuildWeeklyComparison assembles the comparison of in.Week against the
// week before it.
func (c *Comparator) BuildWeeklyComparison(in Input) Comparison {
	prevWeek, err := calendar.PreviousWeek(in.Week.Start)
	if err != nil {
		prevWeek = in.Week
	}
	byWeek := GroupByWeek(in.Snapshots)
	current := byWeek[in.Week.Start]
	previous := byWeek[prevWeek.Start]
	hist := newHistory(in.Week, in.Snapshots, growthCurveWeeks)

	days, _ := calendar.DaysIntoWeek(in.Week.Start, in.Now)

	return Comparison{
		Week:          in.Week,
		PreviousWeek:  prevWeek,
		Label:         in.Week.Label(),
		Partial:       calendar.IsPartialWeek(in.Week, in.Now),
		DaysIntoWeek:  days,
		Currency:      c.calc.Currency(),
		HeroCards:     BuildHeroCards(current, previous),
		Gauge:         c.buildGauge(in.Week, current, previous, in.Snapshots),
		EMV:           BuildEMVComparison(current, previous),
		PlatformTable: c.buildPlatformTable(current, previous, hist),
		GrowthCurve:   c.buildGrowthCurve(hist),
		Heatmap:       c.BuildDayOfWeekHeatmap(TopPosts(in.Posts, heatmapTopPosts)),
		Insights: c.GenerateInsights(InsightInput{
			Week:      in.Week,
			Current:   current,
			Previous:  previous,
			Snapshots: in.Snapshots,
			Posts:     in.Posts,
		}),
	}
}

// BuildHeroCards compares the total rows of two weeks.
func BuildHeroCards(current, previous []model.WeeklySnapshotRow) []HeroCard {
	cur, _ := FindRow(current, model.TotalPlatform)
	prev, _ := FindRow(previous, model.TotalPlatform)
	cards := make([]HeroCard, 0, len(cardMetrics))
	for _, m := range cardMetrics {
		cv, pv := MetricValue(cur, m.key), MetricValue(prev, m.key)
		change := model.PercentChange(cv, pv)
		cards = append(cards, HeroCard{
			Metric:   m.key,
			Label:    m.label,
			Current:  cv,
			Previous: pv,
			Change:   change,
			Status:   StatusLabel(change),
		})
	}
	return cards
}

func (c *Comparator) buildGauge(week calendar.Week, current, previous, snapshots []model.WeeklySnapshotRow) Gauge {
	cur, _ := FindRow(current, model.TotalPlatform)
	prev, _ := FindRow(previous, model.TotalPlatform)
	rates := newHistory(week, snapshots, rollingWeeks).present().series(model.TotalPlatform, MetricEngagementRate)
	var avg float64
	if len(rates) > 0 {
		for _, r := range rates {
			avg += r
		}
		avg /= float64(len(rates))
	}
	return Gauge{
		Current:        cur.EngagementRate,
		Previous:       prev.EngagementRate,
		RollingAverage: avg,
		Benchmark:      c.benchmark,
	}
}

// BuildEMVComparison compares the EMV categories of the total rows.
func BuildEMVComparison(current, previous []model.WeeklySnapshotRow) EMVComparison {
	cur, _ := FindRow(current, model.TotalPlatform)
	prev, _ := FindRow(previous, model.TotalPlatform)
	return EMVComparison{
		Current:       EMVBreakdown(cur),
		Previous:      EMVBreakdown(prev),
		CurrentTotal:  cur.EMVTotal,
		PreviousTotal: prev.EMVTotal,
		Change:        model.PercentChange(cur.EMVTotal, prev.EMVTotal),
	}
}

func (c *Comparator) buildPlatformTable(current, previous []model.WeeklySnapshotRow, hist history) []PlatformRow {
	rows := make([]PlatformRow, 0, len(c.registry.Platforms()))
	for _, p := range c.registry.Platforms() {
		cur, _ := FindRow(current, p.ID)
		prev, _ := FindRow(previous, p.ID)
		cells := make([]MetricCell, 0, len(cardMetrics))
		for _, m := range cardMetrics {
			cv, pv := MetricValue(cur, m.key), MetricValue(prev, m.key)
			cells = append(cells, MetricCell{
				Metric:    m.key,
				Current:   cv,
				Previous:  pv,
				Change:    model.PercentChange(cv, pv),
				Sparkline: hist.series(p.ID, m.key),
			})
		}
		rows = append(rows, PlatformRow{Platform: p.ID, Name: p.Name, Color: p.Color, Metrics: cells})
	}
	return rows
}

func (c *Comparator) buildGrowthCurve(hist history) []GrowthPoint {
	points := make([]GrowthPoint, 0, len(hist.weeks))
	for _, w := range hist.weeks {
		rows := hist.rows[w.Start]
		total, _ := FindRow(rows, model.TotalPlatform)
		values := make([]PlatformValue, 0, len(c.registry.Platforms()))
		for _, id := range c.registry.PlatformIDs() {
			r, _ := FindRow(rows, id)
			values = append(values, PlatformValue{Platform: id, Value: float64(r.Engagements)})
		}
		points = append(points, GrowthPoint{
			WeekStart: w.Start,
			Label:     w.ShortLabel(),
			Total:     float64(total.Engagements),
			Platforms: values,
		})
	}
	return points
}

// BuildDayOfWeekHeatmap sums post engagements per weekday and platform.
// Every weekday and configured platform gets a cell. The weekly comparison
// passes the week's top posts.
func (c *Comparator) BuildDayOfWeekHeatmap(posts []model.Post) []HeatmapCell {
	ids := c.registry.PlatformIDs()
	col := make(map[string]int, len(ids))
	for i, id := range ids {
		col[id] = i
	}
	cells := make([]HeatmapCell, 0, 7*len(ids))
	for day := 1; day <= 7; day++ {
		for _, id := range ids {
			cells = append(cells, HeatmapCell{Day: day, DayName: calendar.DayName(day), Platform: id})
		}
	}
	for _, p := range posts {
		i, ok := col[p.Platform]
		if !ok {
			continue
		}
		day := calendar.CurrentDayNumber(p.CreatedAt)
		cell := &cells[(day-1)*len(ids)+i]
		cell.Posts++
		cell.Engagements += p.Engagements
	}
	return cells
}

// TopPosts returns the n most engaging posts, highest first.
func TopPosts(posts []model.Post, n int) []model.Post {
	sorted := make([]model.Post, len(posts))
	copy(sorted, posts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Engagements > sorted[j].Engagements })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
