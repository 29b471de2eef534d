// Package anomaly flags unusual daily metrics with a rolling z-score and
// cross-checks aggregate totals against per-platform sums.
//
// The detector is a plain, non-robust z-score over a trailing window. It does
// not model seasonality.
package anomaly

import (
	"math"
	"sort"

	"github.com/TobiSchelling/SocialPulse/internal/model"
)

// Direction tells whether a flagged value sits above or below the baseline.
type Direction string

const (
	Spike Direction = "spike"
	Drop  Direction = "drop"
)

// Metric names used in flags, warnings and alerts.
const (
	MetricEngagements      = "engagements"
	MetricImpressions      = "impressions"
	MetricVideoViews       = "videoViews"
	MetricViews            = "views"
	MetricTotalViews       = "totalViews"
	MetricTotalImpressions = "totalImpressions"
	MetricTotalEngagements = "totalEngagements"
)

// Flag marks one platform-day whose metric deviates from its trailing window.
type Flag struct {
	Date       string    `json:"date"`
	Platform   string    `json:"platform"`
	Metric     string    `json:"metric"`
	Value      float64   `json:"value"`
	Mean       float64   `json:"mean"`
	StdDev     float64   `json:"std_dev"`
	Deviations float64   `json:"deviations"`
	Direction  Direction `json:"direction"`
}

// Options configures the rolling detector.
type Options struct {
	WindowDays     int
	SigmaThreshold float64
	// MinDataPoints is the fewest rows a platform needs before it is scanned.
	// Zero means WindowDays+1.
	MinDataPoints int
}

// DefaultOptions returns a 7-day window with a 2.5 sigma threshold.
func DefaultOptions() Options {
	return Options{WindowDays: 7, SigmaThreshold: 2.5}
}

// flatWindowFloor is the fraction of the mean used as the deviation scale of a
// window with zero variance.
const flatWindowFloor = 0.1

type series struct {
	metric string
	value  func(model.DailyMetricRow) float64
}

var scannedSeries = []series{
	{MetricEngagements, func(r model.DailyMetricRow) float64 { return float64(r.Engagements) }},
	{MetricImpressions, func(r model.DailyMetricRow) float64 { return float64(r.Impressions) }},
	{MetricVideoViews, func(r model.DailyMetricRow) float64 { return float64(r.VideoViews) }},
}

// DetectAnomalies scans rows with the given window and sigma threshold.
func DetectAnomalies(rows []model.DailyMetricRow, windowDays int, sigmaThreshold float64) []Flag {
	return Detect(rows, Options{WindowDays: windowDays, SigmaThreshold: sigmaThreshold})
}

// Detect groups rows by platform, sorts each group by date and compares every
// day against the WindowDays days before it. A day is flagged when it lies more
// than SigmaThreshold population standard deviations from the window mean.
//
// A window with zero variance never flags a value equal to its mean. A value
// that departs from a perfectly flat window is measured against a floor of
// 10% of the mean (at least 1) instead of the zero deviation, so after a flat
// week only a move larger than SigmaThreshold tenths of the mean flags.
func Detect(rows []model.DailyMetricRow, opts Options) []Flag {
	if opts.WindowDays <= 0 {
		return nil
	}
	minPoints := opts.MinDataPoints
	if minPoints <= 0 {
		minPoints = opts.WindowDays + 1
	}

	byPlatform := make(map[string][]model.DailyMetricRow)
	var platforms []string
	for _, r := range rows {
		if _, ok := byPlatform[r.Platform]; !ok {
			platforms = append(platforms, r.Platform)
		}
		byPlatform[r.Platform] = append(byPlatform[r.Platform], r)
	}
	sort.Strings(platforms)

	var flags []Flag
	for _, platform := range platforms {
		group := byPlatform[platform]
		if len(group) < minPoints {
			continue
		}
		sorted := make([]model.DailyMetricRow, len(group))
		copy(sorted, group)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

		for _, s := range scannedSeries {
			values := make([]float64, len(sorted))
			for i, r := range sorted {
				values[i] = s.value(r)
			}
			for i := opts.WindowDays; i < len(values); i++ {
				mean, sd := MeanStdDev(values[i-opts.WindowDays : i])
				v := values[i]
				scale := sd
				if sd == 0 {
					if v == mean {
						continue
					}
					scale = math.Max(math.Abs(mean)*flatWindowFloor, 1)
				}
				dev := math.Abs(v-mean) / scale
				if dev <= opts.SigmaThreshold {
					continue
				}
				dir := Spike
				if v < mean {
					dir = Drop
				}
				flags = append(flags, Flag{
					Date:       sorted[i].Date,
					Platform:   platform,
					Metric:     s.metric,
					Value:      v,
					Mean:       mean,
					StdDev:     sd,
					Deviations: dev,
					Direction:  dir,
				})
			}
		}
	}
	return flags
}

// MeanStdDev returns the mean and population standard deviation of values.
func MeanStdDev(values []float64) (mean, stddev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

// Totals carries the three reconciled metrics.
type Totals struct {
	Views       float64 `json:"views"`
	Impressions float64 `json:"impressions"`
	Engagements float64 `json:"engagements"`
}

// PlatformTotals is one platform's totals with its availability.
type PlatformTotals struct {
	Platform  string `json:"platform"`
	Available bool   `json:"available"`
	Totals
}

// DiscrepancyWarning reports an aggregate that disagrees with the sum of its
// platforms.
type DiscrepancyWarning struct {
	Metric           string  `json:"metric"`
	AggregateValue   float64 `json:"aggregate_value"`
	PlatformSum      float64 `json:"platform_sum"`
	DeviationPercent float64 `json:"deviation_percent"`
}

// CheckDiscrepancies compares aggregate against the summed totals of the
// available platforms. A warning is raised when the aggregate is non-zero and
// the relative deviation exceeds threshold (a fraction, e.g. 0.1).
func CheckDiscrepancies(aggregate Totals, platforms []PlatformTotals, threshold float64) []DiscrepancyWarning {
	var sum Totals
	for _, p := range platforms {
		if !p.Available {
			continue
		}
		sum.Views += p.Views
		sum.Impressions += p.Impressions
		sum.Engagements += p.Engagements
	}

	checks := []struct {
		metric string
		agg    float64
		sum    float64
	}{
		{MetricEngagements, aggregate.Engagements, sum.Engagements},
		{MetricImpressions, aggregate.Impressions, sum.Impressions},
		{MetricViews, aggregate.Views, sum.Views},
	}

	var warnings []DiscrepancyWarning
	for _, c := range checks {
		if c.agg == 0 {
			continue
		}
		deviation := math.Abs(c.agg-c.sum) / math.Abs(c.agg)
		if deviation <= threshold {
			continue
		}
		warnings = append(warnings, DiscrepancyWarning{
			Metric:           c.metric,
			AggregateValue:   c.agg,
			PlatformSum:      c.sum,
			DeviationPercent: deviation * 100,
		})
	}
	return warnings
}

// ZeroValueAlert flags an available platform reporting exactly zero on a key
// metric, which usually means a permissions or mapping failure upstream.
type ZeroValueAlert struct {
	Platform string `json:"platform"`
	Metric   string `json:"metric"`
}

// DetectZeroValues flags exact zeros on views, impressions and engagements.
// A genuinely quiet platform is flagged too.
func DetectZeroValues(platforms []PlatformTotals) []ZeroValueAlert {
	var alerts []ZeroValueAlert
	for _, p := range platforms {
		if !p.Available {
			continue
		}
		if p.Views == 0 {
			alerts = append(alerts, ZeroValueAlert{Platform: p.Platform, Metric: MetricTotalViews})
		}
		if p.Impressions == 0 {
			alerts = append(alerts, ZeroValueAlert{Platform: p.Platform, Metric: MetricTotalImpressions})
		}
		if p.Engagements == 0 {
			alerts = append(alerts, ZeroValueAlert{Platform: p.Platform, Metric: MetricTotalEngagements})
		}
	}
	return alerts
}
