package weekly

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/SocialPulse/internal/calendar"
	"github.com/TobiSchelling/SocialPulse/internal/config"
	"github.com/TobiSchelling/SocialPulse/internal/emv"
	"github.com/TobiSchelling/SocialPulse/internal/model"
	"github.com/TobiSchelling/SocialPulse/internal/registry"
)

func testRegistry() *registry.Registry {
	return registry.FromConfig(&config.Config{
		Platforms: []config.Platform{
			{ID: "instagram", Name: "Instagram"},
			{ID: "tiktok", Name: "TikTok"},
		},
		EMV: config.EMV{
			Currency: "ZAR",
			Rates: map[string]map[string]float64{
				"instagram": {"like": 0.5},
				"tiktok":    {"view": 0.1},
			},
		},
	})
}

func testComparator(opts Options) *Comparator {
	return New(testRegistry(), opts)
}

func snap(week, platform string, eng, imp, posts int64) model.WeeklySnapshotRow {
	return model.WeeklySnapshotRow{
		WeekStart:      week,
		Platform:       platform,
		Engagements:    eng,
		Impressions:    imp,
		PostsCount:     posts,
		EngagementRate: model.EngagementRate(float64(eng), float64(imp)),
	}
}

func withTotal(rows ...model.WeeklySnapshotRow) []model.WeeklySnapshotRow {
	total := model.WeeklySnapshotRow{WeekStart: rows[0].WeekStart, Platform: model.TotalPlatform}
	for _, r := range rows {
		addSnapshot(&total, r)
	}
	total.EngagementRate = model.EngagementRate(float64(total.Engagements), float64(total.Impressions))
	return append(rows, total)
}

func TestBuildSnapshotFromDailyMetrics(t *testing.T) {
	week := calendar.Week{Start: "2025-01-06", End: "2025-01-12"}
	rows := []model.DailyMetricRow{
		{Date: "2025-01-08", Platform: "instagram", Engagements: 20, Reactions: 20, Impressions: 100, Followers: 105, FollowerGrowth: 5, PostsPublished: 2},
		{Date: "2025-01-06", Platform: "instagram", Engagements: 10, Reactions: 10, Impressions: 100, Followers: 100, FollowerGrowth: 2, PostsPublished: 1},
		{Date: "2025-01-13", Platform: "instagram", Engagements: 999},
		{Date: "2025-01-07", Platform: "threads", Engagements: 500},
	}

	out := testComparator(Options{}).BuildSnapshot(rows, week)

	require.Len(t, out, 3)
	ig, tt, total := out[0], out[1], out[2]

	assert.Equal(t, "instagram", ig.Platform)
	assert.Equal(t, int64(30), ig.Engagements)
	assert.Equal(t, int64(200), ig.Impressions)
	assert.InDelta(t, 15, ig.EngagementRate, 1e-9)
	assert.Equal(t, int64(100), ig.FollowersStart)
	assert.Equal(t, int64(105), ig.FollowersEnd)
	assert.Equal(t, int64(7), ig.FollowerGrowth)
	assert.Equal(t, int64(3), ig.PostsCount)
	assert.InDelta(t, 15, ig.EMVTotal, 1e-9)
	assert.InDelta(t, 15, ig.EMVLikes, 1e-9)

	assert.Equal(t, model.WeeklySnapshotRow{WeekStart: week.Start, WeekEnd: week.End, Platform: "tiktok"}, tt)

	assert.Equal(t, model.TotalPlatform, total.Platform)
	assert.Equal(t, int64(30), total.Engagements)
	assert.InDelta(t, 15, total.EngagementRate, 1e-9)
	assert.Equal(t, "2025-01-12", total.WeekEnd)
}

func TestSnapshotTotalIsSumOfPlatforms(t *testing.T) {
	reg := testRegistry()
	calc := reg.Calculator()
	platforms := []string{"instagram", "tiktok", "youtube"}
	week := calendar.Week{Start: "2025-02-03", End: "2025-02-09"}
	dates, err := calendar.Dates("2025-02-01", "2025-02-12")
	require.NoError(t, err)

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		var rows []model.DailyMetricRow
		for _, d := range dates {
			for _, p := range platforms {
				if r.Intn(2) == 0 {
					continue
				}
				rows = append(rows, model.DailyMetricRow{
					Date:        d,
					Platform:    p,
					Engagements: r.Int63n(1000),
					Impressions: r.Int63n(10000),
					VideoViews:  r.Int63n(5000),
				})
			}
		}

		out := BuildSnapshotFromDailyMetrics(rows, week, platforms, calc)
		require.Len(t, out, len(platforms)+1)

		var eng, imp int64
		var emvSum float64
		for _, row := range out[:len(platforms)] {
			eng += row.Engagements
			imp += row.Impressions
			emvSum += row.EMVTotal
		}
		total := out[len(out)-1]
		assert.Equal(t, eng, total.Engagements)
		assert.Equal(t, imp, total.Impressions)
		assert.InDelta(t, emvSum, total.EMVTotal, 1e-6)
	}
}

func TestStatusLabel(t *testing.T) {
	cases := []struct {
		change float64
		want   string
	}{
		{25, "Strong Growth"},
		{20, "Healthy Growth"},
		{5, "Healthy Growth"},
		{4.9, "Stable"},
		{0, "Stable"},
		{-5, "Slight Decline"},
		{-5.1, "Needs Attention"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusLabel(tc.change), "change %v", tc.change)
	}
}

// comparisonInput covers five consecutive weeks ending 2025-01-27.
func comparisonInput() Input {
	var snapshots []model.WeeklySnapshotRow
	history := []struct {
		week   string
		ig, tt int64
	}{
		{"2024-12-30", 100, 100},
		{"2025-01-06", 90, 100},
		{"2025-01-13", 110, 100},
	}
	for _, h := range history {
		snapshots = append(snapshots, withTotal(snap(h.week, "instagram", h.ig, 10000, 2), snap(h.week, "tiktok", h.tt, 1000, 4))...)
	}
	snapshots = append(snapshots, withTotal(snap("2025-01-20", "instagram", 100, 10000, 2), snap("2025-01-20", "tiktok", 100, 1000, 4))...)
	snapshots = append(snapshots, withTotal(snap("2025-01-27", "instagram", 200, 10000, 2), snap("2025-01-27", "tiktok", 50, 1000, 1))...)

	return Input{
		Week:      calendar.Week{Start: "2025-01-27", End: "2025-02-02"},
		Snapshots: snapshots,
		Posts: []model.Post{
			{ID: "p1", Platform: "tiktok", Engagements: 40, Content: "Behind the scenes", CreatedAt: time.Date(2025, 1, 29, 9, 0, 0, 0, calendar.SAST)},
			{ID: "p2", Platform: "instagram", Engagements: 120, Content: "Sunrise   on set\nwith the crew", CreatedAt: time.Date(2025, 1, 27, 10, 0, 0, 0, calendar.SAST)},
		},
		Now: time.Date(2025, 1, 29, 12, 0, 0, 0, calendar.SAST),
	}
}

func TestBuildWeeklyComparison(t *testing.T) {
	c := testComparator(Options{})
	cmp := c.BuildWeeklyComparison(comparisonInput())

	assert.Equal(t, "2025-01-20", cmp.PreviousWeek.Start)
	assert.True(t, cmp.Partial)
	assert.Equal(t, 3, cmp.DaysIntoWeek)
	assert.Equal(t, "ZAR", cmp.Currency)

	require.NotEmpty(t, cmp.HeroCards)
	eng := cmp.HeroCards[0]
	assert.Equal(t, MetricEngagements, eng.Metric)
	assert.InDelta(t, 250, eng.Current, 1e-9)
	assert.InDelta(t, 200, eng.Previous, 1e-9)
	assert.InDelta(t, 25, eng.Change, 1e-9)
	assert.Equal(t, "Strong Growth", eng.Status)

	assert.InDelta(t, 250.0/11000*100, cmp.Gauge.Current, 1e-9)
	assert.InDelta(t, 200.0/11000*100, cmp.Gauge.Previous, 1e-9)
	assert.InDelta(t, (190.0+210+200+250)/4/11000*100, cmp.Gauge.RollingAverage, 1e-9)
	assert.InDelta(t, DefaultBenchmarkEngagementRate, cmp.Gauge.Benchmark, 1e-9)

	require.Len(t, cmp.PlatformTable, 2)
	igEng := cmp.PlatformTable[0].Metrics[0]
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0, 0, 100, 90, 110, 100, 200}, igEng.Sparkline)

	require.Len(t, cmp.GrowthCurve, 12)
	assert.Equal(t, "2024-11-11", cmp.GrowthCurve[0].WeekStart)
	assert.Zero(t, cmp.GrowthCurve[0].Total)
	assert.Equal(t, []PlatformValue{{Platform: "instagram"}, {Platform: "tiktok"}}, cmp.GrowthCurve[0].Platforms)
	assert.Equal(t, "2024-12-30", cmp.GrowthCurve[7].WeekStart)
	last := cmp.GrowthCurve[11]
	assert.InDelta(t, 250, last.Total, 1e-9)
	assert.Equal(t, []PlatformValue{{Platform: "instagram", Value: 200}, {Platform: "tiktok", Value: 50}}, last.Platforms)

	require.Len(t, cmp.Heatmap, 14)
	assert.Equal(t, int64(120), cmp.Heatmap[0].Engagements)
	assert.Equal(t, "Mon", cmp.Heatmap[0].DayName)
	assert.Equal(t, HeatmapCell{Day: 3, DayName: "Wed", Platform: "tiktok", Posts: 1, Engagements: 40}, cmp.Heatmap[5])

	assert.Len(t, cmp.Insights, 5)
}

func TestGrowthCurveKeepsGapWeeks(t *testing.T) {
	in := comparisonInput()
	var snapshots []model.WeeklySnapshotRow
	for _, r := range in.Snapshots {
		if r.WeekStart != "2025-01-13" {
			snapshots = append(snapshots, r)
		}
	}
	in.Snapshots = snapshots

	cmp := testComparator(Options{}).BuildWeeklyComparison(in)

	require.Len(t, cmp.GrowthCurve, 12)
	gap := cmp.GrowthCurve[9]
	assert.Equal(t, "2025-01-13", gap.WeekStart)
	assert.Zero(t, gap.Total)
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0, 0, 100, 90, 0, 100, 200}, cmp.PlatformTable[0].Metrics[0].Sparkline)
	assert.InDelta(t, (190.0+200+250)/3/11000*100, cmp.Gauge.RollingAverage, 1e-9)
}

func TestHeatmapUsesTopPosts(t *testing.T) {
	in := comparisonInput()
	in.Posts = nil
	for i := 1; i <= 11; i++ {
		in.Posts = append(in.Posts, model.Post{
			ID:          fmt.Sprintf("p%d", i),
			Platform:    "tiktok",
			Engagements: int64(i),
			CreatedAt:   time.Date(2025, 1, 29, 9, 0, 0, 0, calendar.SAST),
		})
	}

	cmp := testComparator(Options{}).BuildWeeklyComparison(in)

	assert.Equal(t, HeatmapCell{Day: 3, DayName: "Wed", Platform: "tiktok", Posts: 10, Engagements: 65}, cmp.Heatmap[5])
}

func TestGenerateInsights(t *testing.T) {
	in := comparisonInput()
	c := testComparator(Options{})
	cmp := c.BuildWeeklyComparison(in)
	insights := cmp.Insights

	require.Len(t, insights, 5)

	assert.Equal(t, TemplateBiggestGrowth, insights[0].Type)
	assert.Equal(t, "Biggest Growth: Instagram", insights[0].Title)
	assert.Equal(t, "Instagram engagements grew 100.0% week over week (100 to 200).", insights[0].Body)

	assert.Equal(t, TemplateBiggestDecline, insights[1].Type)
	assert.Equal(t, "TikTok engagements fell 50.0% week over week (100 to 50). Posting frequency also dropped from 4 to 1 posts.", insights[1].Body)

	assert.Equal(t, TemplateTopPerformer, insights[2].Type)
	assert.Equal(t, "The top post this week was on Instagram with 120 engagements: \"Sunrise on set with the crew\"", insights[2].Body)

	assert.Equal(t, TemplateAnomaly, insights[3].Type)
	assert.Equal(t, "Unusual spike on Instagram", insights[3].Title)
	assert.Equal(t, "Instagram engagements of 200 are 14.1 standard deviations from the 4-week average of 100.", insights[3].Body)

	assert.Equal(t, TemplateRecommendation, insights[4].Type)
	assert.Equal(t, "Instagram had the lowest engagement rate this week (2.0%) while TikTok led with 5.0%. Consider adapting what works on TikTok.", insights[4].Body)

	again := c.BuildWeeklyComparison(in).Insights
	for i := range insights {
		assert.Equal(t, insights[i].ID, again[i].ID)
		assert.NotEmpty(t, insights[i].ID)
	}
}

func TestInsightTemplatesAreSwappable(t *testing.T) {
	c := testComparator(Options{Templates: Templates{
		TemplateTopPerformer: {Body: "Best: {platform} ({engagements})"},
	}})

	insights := c.GenerateInsights(InsightInput{
		Week:  calendar.Week{Start: "2025-01-27", End: "2025-02-02"},
		Posts: []model.Post{{Platform: "tiktok", Engagements: 1200}},
	})

	require.Len(t, insights, 1)
	assert.Equal(t, "Top Performer", insights[0].Title)
	assert.Equal(t, "Best: TikTok (1,200)", insights[0].Body)
}

func TestNoInsightsWithoutData(t *testing.T) {
	insights := testComparator(Options{}).GenerateInsights(InsightInput{Week: calendar.Week{Start: "2025-01-27", End: "2025-02-02"}})
	assert.NotNil(t, insights)
	assert.Empty(t, insights)
}

func TestFillAndSnippet(t *testing.T) {
	assert.Equal(t, "1 and 2 and {c}", Fill("{a} and {b} and {c}", map[string]string{"a": "1", "b": "2"}))
	assert.Equal(t, "plain", Fill("plain", map[string]string{"a": "1"}))
	assert.Equal(t, "hello world...", Snippet("hello   world\nagain", 11))
	assert.Equal(t, "short", Snippet("short", 11))
}

func TestEMVComparison(t *testing.T) {
	cur := []model.WeeklySnapshotRow{{Platform: model.TotalPlatform, EMVTotal: 150, EMVLikes: 100, EMVViews: 50}}
	prev := []model.WeeklySnapshotRow{{Platform: model.TotalPlatform, EMVTotal: 100, EMVLikes: 100}}

	out := BuildEMVComparison(cur, prev)

	assert.Equal(t, emv.Breakdown{Likes: 100, Views: 50}, out.Current)
	assert.InDelta(t, 50, out.Change, 1e-9)
}
