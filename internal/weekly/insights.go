package weekly

import (
	"math"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/TobiSchelling/SocialPulse/internal/anomaly"
	"github.com/TobiSchelling/SocialPulse/internal/calendar"
	"github.com/TobiSchelling/SocialPulse/internal/model"
)

const (
	anomalySigma       = 2.0
	anomalyHistory     = 4
	minAnomalyHistory  = 2
	minRecommendations = 2
	snippetLength      = 80
)

var insightMetrics = []struct {
	key  string
	noun string
}{
	{MetricEngagements, "engagements"},
	{MetricViews, "video views"},
	{MetricImpressions, "impressions"},
}

// Insight is one generated analyst note.
type Insight struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	Title    string  `json:"title"`
	Body     string  `json:"body"`
	Platform string  `json:"platform,omitempty"`
	Metric   string  `json:"metric,omitempty"`
	Value    float64 `json:"value"`
}

// InsightInput is the data insights are generated from.
type InsightInput struct {
	Week     calendar.Week
	Current  []model.WeeklySnapshotRow
	Previous []model.WeeklySnapshotRow
	// Snapshots are the trailing weeks used for the anomaly check.
	Snapshots []model.WeeklySnapshotRow
	Posts     []model.Post
}

type insightWriter struct {
	templates Templates
	printer   *message.Printer
	week      string
}

func (w insightWriter) note(kind, platform, metric string, value float64, values map[string]string) Insight {
	tmpl := w.templates[kind]
	return Insight{
		ID:       uuid.NewSHA1(uuid.NameSpaceURL, []byte("insight:"+w.week+":"+kind+":"+platform+":"+metric)).String(),
		Type:     kind,
		Title:    Fill(tmpl.Title, values),
		Body:     Fill(tmpl.Body, values),
		Platform: platform,
		Metric:   metric,
		Value:    value,
	}
}

func (w insightWriter) count(v float64) string {
	return w.printer.Sprintf("%.0f", v)
}

func (w insightWriter) decimal(v float64) string {
	return w.printer.Sprintf("%.1f", v)
}

// GenerateInsights produces rule-based insights in a fixed order: biggest
// growth, biggest decline, top performer, engagement anomalies, then one
// recommendation. Every text comes from the configured templates.
func (c *Comparator) GenerateInsights(in InsightInput) []Insight {
	w := insightWriter{
		templates: c.templates,
		printer:   message.NewPrinter(language.English),
		week:      in.Week.Start,
	}
	insights := []Insight{}

	growth, decline := c.biggestChanges(in.Current, in.Previous)
	if growth != nil {
		insights = append(insights, w.note(TemplateBiggestGrowth, growth.platform, growth.metric, growth.change, c.changeValues(w, *growth)))
	}
	if decline != nil {
		values := c.changeValues(w, *decline)
		ins := w.note(TemplateBiggestDecline, decline.platform, decline.metric, decline.change, values)
		cur, _ := FindRow(in.Current, decline.platform)
		prev, _ := FindRow(in.Previous, decline.platform)
		if cur.PostsCount < prev.PostsCount {
			values["posts_previous"] = w.count(float64(prev.PostsCount))
			values["posts_current"] = w.count(float64(cur.PostsCount))
			ins.Body += Fill(c.templates[TemplatePostingContext].Body, values)
		}
		insights = append(insights, ins)
	}

	if top := TopPosts(in.Posts, 1); len(top) == 1 {
		p := top[0]
		insights = append(insights, w.note(TemplateTopPerformer, p.Platform, MetricEngagements, float64(p.Engagements), map[string]string{
			"platform":    c.registry.PlatformName(p.Platform),
			"engagements": w.count(float64(p.Engagements)),
			"snippet":     Snippet(p.Content, snippetLength),
		}))
	}

	insights = append(insights, c.engagementAnomalies(w, in)...)

	if rec, ok := c.recommendation(w, in.Current); ok {
		insights = append(insights, rec)
	}
	return insights
}

type metricChange struct {
	platform string
	metric   string
	noun     string
	current  float64
	previous float64
	change   float64
}

// biggestChanges finds the largest rise and the largest fall across every
// platform and metric. Platforms without a previous value are skipped.
func (c *Comparator) biggestChanges(current, previous []model.WeeklySnapshotRow) (growth, decline *metricChange) {
	for _, id := range c.registry.PlatformIDs() {
		cur, ok := FindRow(current, id)
		if !ok {
			continue
		}
		prev, ok := FindRow(previous, id)
		if !ok {
			continue
		}
		for _, m := range insightMetrics {
			cv, pv := MetricValue(cur, m.key), MetricValue(prev, m.key)
			if pv == 0 {
				continue
			}
			mc := metricChange{platform: id, metric: m.key, noun: m.noun, current: cv, previous: pv, change: model.PercentChange(cv, pv)}
			if mc.change > 0 && (growth == nil || mc.change > growth.change) {
				g := mc
				growth = &g
			}
			if mc.change < 0 && (decline == nil || mc.change < decline.change) {
				d := mc
				decline = &d
			}
		}
	}
	return growth, decline
}

func (c *Comparator) changeValues(w insightWriter, mc metricChange) map[string]string {
	return map[string]string{
		"platform": c.registry.PlatformName(mc.platform),
		"metric":   mc.noun,
		"change":   w.decimal(math.Abs(mc.change)),
		"previous": w.count(mc.previous),
		"current":  w.count(mc.current),
	}
}

// engagementAnomalies compares each platform's engagements against the four
// weeks before the comparison week.
func (c *Comparator) engagementAnomalies(w insightWriter, in InsightInput) []Insight {
	prevWeek, err := calendar.PreviousWeek(in.Week.Start)
	if err != nil {
		return nil
	}
	hist := newHistory(prevWeek, in.Snapshots, anomalyHistory).present()
	if len(hist.weeks) < minAnomalyHistory {
		return nil
	}

	var out []Insight
	for _, id := range c.registry.PlatformIDs() {
		cur, ok := FindRow(in.Current, id)
		if !ok {
			continue
		}
		mean, sd := anomaly.MeanStdDev(hist.series(id, MetricEngagements))
		if sd == 0 {
			continue
		}
		value := float64(cur.Engagements)
		dev := math.Abs(value-mean) / sd
		if dev <= anomalySigma {
			continue
		}
		direction := string(anomaly.Spike)
		if value < mean {
			direction = string(anomaly.Drop)
		}
		out = append(out, w.note(TemplateAnomaly, id, MetricEngagements, dev, map[string]string{
			"platform":   c.registry.PlatformName(id),
			"direction":  direction,
			"current":    w.count(value),
			"deviations": w.decimal(dev),
			"mean":       w.count(mean),
		}))
	}
	return out
}

// recommendation contrasts the lowest and highest engagement rates among
// platforms with engagement this week.
func (c *Comparator) recommendation(w insightWriter, current []model.WeeklySnapshotRow) (Insight, bool) {
	var active []model.WeeklySnapshotRow
	for _, id := range c.registry.PlatformIDs() {
		if r, ok := FindRow(current, id); ok && r.Engagements > 0 {
			active = append(active, r)
		}
	}
	if len(active) < minRecommendations {
		return Insight{}, false
	}
	low, high := active[0], active[0]
	for _, r := range active[1:] {
		if r.EngagementRate < low.EngagementRate {
			low = r
		}
		if r.EngagementRate > high.EngagementRate {
			high = r
		}
	}
	if low.Platform == high.Platform {
		return Insight{}, false
	}
	return w.note(TemplateRecommendation, high.Platform, MetricEngagementRate, high.EngagementRate, map[string]string{
		"low_platform":  c.registry.PlatformName(low.Platform),
		"low_rate":      w.decimal(low.EngagementRate),
		"high_platform": c.registry.PlatformName(high.Platform),
		"high_rate":     w.decimal(high.EngagementRate),
	}), true
}
