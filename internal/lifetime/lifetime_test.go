package lifetime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/SocialPulse/internal/anomaly"
	"github.com/TobiSchelling/SocialPulse/internal/calendar"
	"github.com/TobiSchelling/SocialPulse/internal/config"
	"github.com/TobiSchelling/SocialPulse/internal/model"
	"github.com/TobiSchelling/SocialPulse/internal/registry"
)

// 2025-03-12 is a Wednesday.
var now = time.Date(2025, 3, 12, 10, 0, 0, 0, calendar.SAST)

func testAggregator() *Aggregator {
	cfg := &config.Config{
		Platforms: []config.Platform{
			{ID: "instagram", Name: "Instagram"},
			{ID: "tiktok", Name: "TikTok"},
			{ID: "linkedin", Name: "LinkedIn"},
		},
		EMV: config.EMV{
			Currency: "ZAR",
			Rates: map[string]map[string]float64{
				"instagram": {"impression": 0.05, "like": 0.35},
				"tiktok":    {"view": 0.05, "like": 0.2},
			},
		},
	}
	return New(registry.FromConfig(cfg))
}

func TestAggregateMetricsFollowersAreSnapshots(t *testing.T) {
	a := testAggregator()
	rows := []model.DailyMetricRow{
		{Date: "2025-03-10", Platform: "instagram", Impressions: 1000, Engagements: 50, Reactions: 50, VideoViews: 10, Followers: 500, PostsPublished: 1},
		{Date: "2025-03-11", Platform: "instagram", Impressions: 1000, Engagements: 30, Reactions: 30, VideoViews: 20, Followers: 510, PostsPublished: 2},
		{Date: "2025-03-11", Platform: "tiktok", Impressions: 0, Engagements: 20, Reactions: 20, VideoViews: 100, Followers: 90},
	}

	agg := a.AggregateMetrics(rows)

	assert.Equal(t, int64(130), agg.Views)
	assert.Equal(t, int64(2000), agg.Impressions)
	assert.Equal(t, int64(100), agg.Engagements)
	assert.Equal(t, int64(3), agg.Posts)
	assert.Equal(t, int64(600), agg.Followers)
	assert.InDelta(t, 5, agg.EngagementRate, 1e-9)
	// instagram: 2000*0.05 + 80*0.35 = 128; tiktok: 100*0.05 + 20*0.2 = 9
	assert.InDelta(t, 137, agg.EMV, 1e-9)
	assert.InDelta(t, agg.EMV, agg.EMVBreakdown.Total(), 1e-9)
}

func TestAggregateMetricsEmpty(t *testing.T) {
	agg := testAggregator().AggregateMetrics(nil)
	assert.Equal(t, Aggregate{}, agg)
}

func TestPerPlatformBreakdown(t *testing.T) {
	a := testAggregator()
	rows := []model.DailyMetricRow{
		{Date: "2025-03-10", Platform: "instagram", Impressions: 100, Engagements: 10},
	}
	var posts []model.Post
	for i := 0; i < 7; i++ {
		posts = append(posts, model.Post{ID: string(rune('a' + i)), Platform: "instagram", Engagements: int64(i), Reactions: int64(i), Impressions: 100})
	}

	out := a.PerPlatformBreakdown(rows, posts)

	require.Len(t, out, 3)
	assert.True(t, out[0].Available)
	assert.False(t, out[1].Available)
	assert.False(t, out[2].Available)
	require.Len(t, out[0].TopPosts, TopPostsPerPlatform)
	assert.Equal(t, "g", out[0].TopPosts[0].ID)
	assert.InDelta(t, 5+6*0.35, out[0].TopPosts[0].EMV, 1e-9)
	assert.Empty(t, out[1].TopPosts)
}

func TestBuildHeroCardsGrowth(t *testing.T) {
	a := testAggregator()
	rows := []model.DailyMetricRow{
		// previous 30-day window
		{Date: "2025-01-20", Platform: "instagram", Engagements: 100, Impressions: 1000, Followers: 100},
		// current 30-day window
		{Date: "2025-03-01", Platform: "instagram", Engagements: 150, Impressions: 1000, Followers: 100},
		{Date: "2025-03-12", Platform: "instagram", Engagements: 50, Impressions: 1000, Followers: 100},
		// outside both windows
		{Date: "2024-10-01", Platform: "instagram", Engagements: 999, Impressions: 1},
	}

	cards := a.BuildHeroCards(rows, a.AggregateMetrics(rows), now)
	require.Len(t, cards, 7)

	byKey := map[string]HeroCard{}
	for _, c := range cards {
		byKey[c.Metric] = c
	}

	eng := byKey[MetricEngagements]
	assert.InDelta(t, 100, eng.Growth.Percent, 1e-9)
	assert.Equal(t, Up, eng.Growth.Direction)
	assert.Len(t, eng.Sparkline, 3)
	assert.Equal(t, "2025-01-20", eng.Sparkline[0].Date)

	assert.Equal(t, Flat, byKey[MetricFollowers].Growth.Direction)
	assert.Equal(t, Up, byKey[MetricImpressions].Growth.Direction)
	assert.InDelta(t, 1299, byKey[MetricEngagements].Value, 1e-9)
}

func TestGrowthDeadband(t *testing.T) {
	assert.Equal(t, Flat, growthOf(100.4, 100).Direction)
	assert.Equal(t, Up, growthOf(101, 100).Direction)
	assert.Equal(t, Down, growthOf(99, 100).Direction)
	assert.Equal(t, Flat, growthOf(0, 0).Direction)
}

func TestHeatmapDataAlwaysCoversAYear(t *testing.T) {
	posts := []model.Post{
		{CreatedAt: time.Date(2025, 3, 11, 23, 30, 0, 0, time.UTC), Engagements: 7},
		{CreatedAt: time.Date(2025, 3, 12, 8, 0, 0, 0, calendar.SAST), Engagements: 3},
		{CreatedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, calendar.SAST), Engagements: 100},
	}

	days := HeatmapData(posts, now)

	require.Len(t, days, 365)
	assert.Equal(t, "2024-03-13", days[0].Date)
	last := days[364]
	assert.Equal(t, "2025-03-12", last.Date)
	// 23:30 UTC on the 11th is 01:30 SAST on the 12th.
	assert.Equal(t, 2, last.Posts)
	assert.Equal(t, int64(10), last.Engagements)

	// 2024-03-13 is a Wednesday, so the first Monday starts column 1.
	assert.Equal(t, 3, days[0].DayOfWeek)
	assert.Equal(t, 0, days[0].WeekIndex)
	assert.Equal(t, 0, days[4].WeekIndex)
	assert.Equal(t, 1, days[5].WeekIndex)
	assert.Equal(t, 1, days[5].DayOfWeek)
}

func TestDonutAndEMVBars(t *testing.T) {
	a := testAggregator()
	rows := []model.DailyMetricRow{
		{Date: "2025-03-10", Platform: "instagram", Engagements: 75, Reactions: 75, Impressions: 100},
		{Date: "2025-03-10", Platform: "tiktok", Engagements: 25, Reactions: 25, VideoViews: 1000},
	}
	breakdowns := a.PerPlatformBreakdown(rows, nil)

	donut := DonutData(breakdowns)
	require.Len(t, donut, 2)
	assert.InDelta(t, 75, donut[0].Percent, 1e-9)
	assert.InDelta(t, 25, donut[1].Percent, 1e-9)

	bars := EMVBars(breakdowns)
	require.Len(t, bars, 2)
	// tiktok: 1000*0.05 + 25*0.2 = 55; instagram: 100*0.05 + 75*0.35 = 31.25
	assert.Equal(t, "tiktok", bars[0].Platform)
	assert.InDelta(t, 55, bars[0].EMV, 1e-9)
	assert.InDelta(t, 31.25, bars[1].EMV, 1e-9)

	assert.Empty(t, DonutData(nil))
}

func TestBuildIncludesDiagnostics(t *testing.T) {
	a := testAggregator()
	rows := []model.DailyMetricRow{
		{Date: "2025-03-10", Platform: "instagram", Engagements: 10, Impressions: 100, VideoViews: 0},
		{Date: "2025-03-10", Platform: "threads", Engagements: 90, Impressions: 900, VideoViews: 50},
	}

	d := a.Build(rows, nil, now, BuildOptions{Anomaly: anomaly.DefaultOptions(), DiscrepancyThreshold: 0.1})

	assert.Equal(t, "ZAR", d.Currency)
	assert.Len(t, d.Heatmap, 365)
	require.NotEmpty(t, d.Diagnostics.Discrepancies)
	assert.Equal(t, "engagements", d.Diagnostics.Discrepancies[0].Metric)
	assert.Contains(t, d.Diagnostics.ZeroValues, anomaly.ZeroValueAlert{Platform: "instagram", Metric: anomaly.MetricTotalViews})
}
