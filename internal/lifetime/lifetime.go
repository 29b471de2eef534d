// Package lifetime rolls all-time daily metrics and posts into totals,
// per-platform breakdowns and chart datasets.
package lifetime

import (
	"sort"

	"github.com/TobiSchelling/SocialPulse/internal/emv"
	"github.com/TobiSchelling/SocialPulse/internal/model"
	"github.com/TobiSchelling/SocialPulse/internal/registry"
)

// TopPostsPerPlatform is how many posts a platform breakdown carries.
const TopPostsPerPlatform = 5

// Aggregate is the rolled-up total of a set of daily rows.
type Aggregate struct {
	Views          int64         `json:"views"`
	Impressions    int64         `json:"impressions"`
	Engagements    int64         `json:"engagements"`
	Posts          int64         `json:"posts"`
	Followers      int64         `json:"followers"`
	EngagementRate float64       `json:"engagement_rate"`
	EMV            float64       `json:"emv"`
	EMVBreakdown   emv.Breakdown `json:"emv_breakdown"`
}

// PlatformBreakdown is the aggregate of a single platform.
type PlatformBreakdown struct {
	Platform  registry.Platform `json:"platform"`
	Available bool              `json:"available"`
	Aggregate
	TopPosts []model.Post `json:"top_posts"`
}

// Aggregator derives lifetime views for the configured platforms.
type Aggregator struct {
	registry *registry.Registry
	calc     *emv.Calculator
}

// New creates an aggregator backed by the registry's platforms and rates.
func New(reg *registry.Registry) *Aggregator {
	return &Aggregator{registry: reg, calc: reg.Calculator()}
}

// AggregateMetrics sums flows across every row. Followers are a snapshot:
// the latest date's value is taken per platform and those are summed. EMV is
// valued per platform on the platform's summed counts.
func (a *Aggregator) AggregateMetrics(rows []model.DailyMetricRow) Aggregate {
	var agg Aggregate
	groups := model.GroupByPlatform(rows)
	for _, platform := range sortedKeys(groups) {
		p := a.platformAggregate(platform, groups[platform])
		agg.Views += p.Views
		agg.Impressions += p.Impressions
		agg.Engagements += p.Engagements
		agg.Posts += p.Posts
		agg.Followers += p.Followers
		agg.EMVBreakdown = agg.EMVBreakdown.Add(p.EMVBreakdown)
	}
	agg.EMV = agg.EMVBreakdown.Total()
	agg.EngagementRate = model.EngagementRate(float64(agg.Engagements), float64(agg.Impressions))
	return agg
}

func (a *Aggregator) platformAggregate(platform string, rows []model.DailyMetricRow) Aggregate {
	var sum model.DailyMetricRow
	for _, r := range rows {
		sum.Add(r)
	}
	breakdown := a.calc.Breakdown(platform, emv.DailyCounts(sum))
	return Aggregate{
		Views:          sum.VideoViews,
		Impressions:    sum.Impressions,
		Engagements:    sum.Engagements,
		Posts:          sum.PostsPublished,
		Followers:      model.LatestFollowers(rows),
		EngagementRate: model.EngagementRate(float64(sum.Engagements), float64(sum.Impressions)),
		EMV:            breakdown.Total(),
		EMVBreakdown:   breakdown,
	}
}

// PerPlatformBreakdown aggregates each configured platform separately. A
// platform is available iff it has at least one daily row.
func (a *Aggregator) PerPlatformBreakdown(rows []model.DailyMetricRow, posts []model.Post) []PlatformBreakdown {
	groups := model.GroupByPlatform(rows)
	postsByPlatform := make(map[string][]model.Post)
	for _, p := range posts {
		postsByPlatform[p.Platform] = append(postsByPlatform[p.Platform], p)
	}

	out := make([]PlatformBreakdown, 0, len(a.registry.Platforms()))
	for _, platform := range a.registry.Platforms() {
		platformRows := groups[platform.ID]
		out = append(out, PlatformBreakdown{
			Platform:  platform,
			Available: len(platformRows) > 0,
			Aggregate: a.platformAggregate(platform.ID, platformRows),
			TopPosts:  a.TopPosts(postsByPlatform[platform.ID], TopPostsPerPlatform),
		})
	}
	return out
}

// TopPosts returns the n most engaging posts with EMV filled in. Ties keep
// their input order.
func (a *Aggregator) TopPosts(posts []model.Post, n int) []model.Post {
	sorted := make([]model.Post, len(posts))
	copy(sorted, posts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Engagements > sorted[j].Engagements })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	for i := range sorted {
		sorted[i].EMV = a.calc.PostEMV(sorted[i])
	}
	return sorted
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
