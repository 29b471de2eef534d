package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngagementRate(t *testing.T) {
	assert.InDelta(t, 2.5, EngagementRate(25, 1000), 1e-9)
	assert.Zero(t, EngagementRate(25, 0))
}

func TestPercentChange(t *testing.T) {
	assert.InDelta(t, -50, PercentChange(10, 20), 1e-9)
	assert.InDelta(t, 100, PercentChange(5, 0), 1e-9)
	assert.Zero(t, PercentChange(0, 0))
}

func TestFollowerSnapshots(t *testing.T) {
	rows := []DailyMetricRow{
		{Date: "2025-01-03", Followers: 130},
		{Date: "2025-01-01", Followers: 100},
		{Date: "2025-01-02", Followers: 120},
	}
	assert.Equal(t, int64(130), LatestFollowers(rows))
	assert.Equal(t, int64(100), EarliestFollowers(rows))
	assert.Zero(t, LatestFollowers(nil))
}

func TestAddLeavesFollowers(t *testing.T) {
	sum := DailyMetricRow{Followers: 7}
	sum.Add(DailyMetricRow{Engagements: 3, Impressions: 10, Followers: 99, PostsPublished: 1})
	sum.Add(DailyMetricRow{Engagements: 2, VideoViews: 4})

	assert.Equal(t, int64(5), sum.Engagements)
	assert.Equal(t, int64(10), sum.Impressions)
	assert.Equal(t, int64(4), sum.VideoViews)
	assert.Equal(t, int64(1), sum.PostsPublished)
	assert.Equal(t, int64(7), sum.Followers)
}
