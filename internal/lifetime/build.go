package lifetime

import (
	"time"

	"github.com/TobiSchelling/SocialPulse/internal/anomaly"
	"github.com/TobiSchelling/SocialPulse/internal/model"
)

// Diagnostics collects data-quality signals computed alongside the payload.
type Diagnostics struct {
	Anomalies     []anomaly.Flag               `json:"anomalies"`
	Discrepancies []anomaly.DiscrepancyWarning `json:"discrepancies"`
	ZeroValues    []anomaly.ZeroValueAlert     `json:"zero_values"`
}

// Dashboard is the full lifetime view.
type Dashboard struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Currency    string              `json:"currency"`
	Totals      Aggregate           `json:"totals"`
	Platforms   []PlatformBreakdown `json:"platforms"`
	HeroCards   []HeroCard          `json:"hero_cards"`
	Heatmap     []HeatmapDay        `json:"heatmap"`
	Donut       []DonutSlice        `json:"donut"`
	EMVBars     []EMVBar            `json:"emv_bars"`
	Diagnostics Diagnostics         `json:"diagnostics"`
}

// BuildOptions tunes the diagnostics.
type BuildOptions struct {
	Anomaly              anomaly.Options
	DiscrepancyThreshold float64
}

// Build assembles the lifetime dashboard from all daily rows and posts.
func (a *Aggregator) Build(rows []model.DailyMetricRow, posts []model.Post, now time.Time, opts BuildOptions) Dashboard {
	totals := a.AggregateMetrics(rows)
	platforms := a.PerPlatformBreakdown(rows, posts)

	return Dashboard{
		GeneratedAt: now,
		Currency:    a.calc.Currency(),
		Totals:      totals,
		Platforms:   platforms,
		HeroCards:   a.BuildHeroCards(rows, totals, now),
		Heatmap:     HeatmapData(posts, now),
		Donut:       DonutData(platforms),
		EMVBars:     EMVBars(platforms),
		Diagnostics: Diagnose(rows, totals, platforms, opts),
	}
}

// PlatformTotals converts breakdowns into the detector's input.
func PlatformTotals(platforms []PlatformBreakdown) []anomaly.PlatformTotals {
	out := make([]anomaly.PlatformTotals, len(platforms))
	for i, p := range platforms {
		out[i] = anomaly.PlatformTotals{
			Platform:  p.Platform.ID,
			Available: p.Available,
			Totals: anomaly.Totals{
				Views:       float64(p.Views),
				Impressions: float64(p.Impressions),
				Engagements: float64(p.Engagements),
			},
		}
	}
	return out
}

// Diagnose runs anomaly, discrepancy and zero-value checks.
func Diagnose(rows []model.DailyMetricRow, totals Aggregate, platforms []PlatformBreakdown, opts BuildOptions) Diagnostics {
	pt := PlatformTotals(platforms)
	aggregate := anomaly.Totals{
		Views:       float64(totals.Views),
		Impressions: float64(totals.Impressions),
		Engagements: float64(totals.Engagements),
	}
	return Diagnostics{
		Anomalies:     anomaly.Detect(rows, opts.Anomaly),
		Discrepancies: anomaly.CheckDiscrepancies(aggregate, pt, opts.DiscrepancyThreshold),
		ZeroValues:    anomaly.DetectZeroValues(pt),
	}
}
