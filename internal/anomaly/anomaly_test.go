package anomaly

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/SocialPulse/internal/model"
)

func engagementRows(platform string, values ...int64) []model.DailyMetricRow {
	rows := make([]model.DailyMetricRow, len(values))
	for i, v := range values {
		rows[i] = model.DailyMetricRow{
			Date:        fmt.Sprintf("2025-01-%02d", i+1),
			Platform:    platform,
			Engagements: v,
		}
	}
	return rows
}

func TestDetectSpikeOnTenthDay(t *testing.T) {
	rows := engagementRows("x", 100, 100, 100, 100, 100, 100, 100, 100, 100, 1000)

	flags := DetectAnomalies(rows, 7, 3)

	require.Len(t, flags, 1)
	f := flags[0]
	assert.Equal(t, "2025-01-10", f.Date)
	assert.Equal(t, "x", f.Platform)
	assert.Equal(t, MetricEngagements, f.Metric)
	assert.Equal(t, Spike, f.Direction)
	assert.Greater(t, f.Deviations, 3.0)
	assert.InDelta(t, 100, f.Mean, 1e-9)
}

func TestFlatWindowNeverFlags(t *testing.T) {
	rows := engagementRows("instagram", 50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50)
	assert.Empty(t, DetectAnomalies(rows, 7, 0.5))
}

func TestSmallMoveAfterFlatWindow(t *testing.T) {
	assert.Empty(t, DetectAnomalies(engagementRows("x", 100, 100, 100, 100, 100, 100, 100, 104), 7, 3))

	flags := DetectAnomalies(engagementRows("x", 100, 100, 100, 100, 100, 100, 100, 140), 7, 3)
	require.Len(t, flags, 1)
	assert.Equal(t, Spike, flags[0].Direction)
	assert.Zero(t, flags[0].StdDev)
	assert.InDelta(t, 4, flags[0].Deviations, 1e-9)
}

func TestDetectDrop(t *testing.T) {
	rows := engagementRows("tiktok", 90, 110, 95, 105, 100, 98, 102, 101, 0)

	flags := DetectAnomalies(rows, 7, 2.5)

	require.Len(t, flags, 1)
	assert.Equal(t, Drop, flags[0].Direction)
	assert.Equal(t, "2025-01-09", flags[0].Date)
}

func TestTooFewDataPointsSkipsPlatform(t *testing.T) {
	rows := engagementRows("x", 100, 100, 100, 100, 100, 100, 100, 1000)

	assert.Empty(t, Detect(rows, Options{WindowDays: 7, SigmaThreshold: 3, MinDataPoints: 9}))
	assert.Len(t, Detect(rows, Options{WindowDays: 7, SigmaThreshold: 3}), 1)
}

func TestDetectSortsUnorderedInput(t *testing.T) {
	rows := engagementRows("x", 100, 100, 100, 100, 100, 100, 100, 100, 100, 1000)
	rows[0], rows[9] = rows[9], rows[0]

	flags := DetectAnomalies(rows, 7, 3)
	require.Len(t, flags, 1)
	assert.Equal(t, "2025-01-10", flags[0].Date)
}

func TestMeanStdDev(t *testing.T) {
	mean, sd := MeanStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5, mean, 1e-9)
	assert.InDelta(t, 2, sd, 1e-9)

	mean, sd = MeanStdDev(nil)
	assert.Zero(t, mean)
	assert.Zero(t, sd)
}

func TestCheckDiscrepancies(t *testing.T) {
	aggregate := Totals{Engagements: 1000, Impressions: 5000, Views: 0}
	platforms := []PlatformTotals{
		{Platform: "instagram", Available: true, Totals: Totals{Engagements: 400, Impressions: 2600, Views: 10}},
		{Platform: "facebook", Available: true, Totals: Totals{Engagements: 300, Impressions: 2400}},
		{Platform: "tiktok", Available: false, Totals: Totals{Engagements: 300}},
	}

	warnings := CheckDiscrepancies(aggregate, platforms, 0.1)

	require.Len(t, warnings, 1)
	w := warnings[0]
	assert.Equal(t, MetricEngagements, w.Metric)
	assert.InDelta(t, 1000, w.AggregateValue, 1e-9)
	assert.InDelta(t, 700, w.PlatformSum, 1e-9)
	assert.InDelta(t, 30, w.DeviationPercent, 1e-9)
}

func TestCheckDiscrepanciesWithinThreshold(t *testing.T) {
	aggregate := Totals{Engagements: 1000}
	platforms := []PlatformTotals{{Platform: "x", Available: true, Totals: Totals{Engagements: 950}}}
	assert.Empty(t, CheckDiscrepancies(aggregate, platforms, 0.1))
}

func TestDetectZeroValues(t *testing.T) {
	platforms := []PlatformTotals{
		{Platform: "youtube", Available: true, Totals: Totals{Views: 0, Impressions: 10, Engagements: 0}},
		{Platform: "linkedin", Available: false},
		{Platform: "x", Available: true, Totals: Totals{Views: 1, Impressions: 1, Engagements: 1}},
	}

	alerts := DetectZeroValues(platforms)

	assert.Equal(t, []ZeroValueAlert{
		{Platform: "youtube", Metric: MetricTotalViews},
		{Platform: "youtube", Metric: MetricTotalEngagements},
	}, alerts)
}
