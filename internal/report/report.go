// Package report composes the weekly markdown digest and stores it.
package report

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/TobiSchelling/SocialPulse/internal/dashboard"
	"github.com/TobiSchelling/SocialPulse/internal/database"
	"github.com/TobiSchelling/SocialPulse/internal/emv"
	"github.com/TobiSchelling/SocialPulse/internal/registry"
	"github.com/TobiSchelling/SocialPulse/internal/weekly"
)

const snippetLength = 80

// Digest is a composed weekly report.
type Digest struct {
	WeekStart    string
	Title        string
	Body         string
	InsightCount int
}

// Composer composes digests and writes them to the store.
type Composer struct {
	db       *database.DB
	registry *registry.Registry
	log      logrus.FieldLogger
}

// NewComposer creates a new digest composer.
func NewComposer(db *database.DB, reg *registry.Registry, log logrus.FieldLogger) *Composer {
	return &Composer{db: db, registry: reg, log: log}
}

// ComposeReport composes the digest for v and stores it, replacing any
// earlier digest of the same week.
func (c *Composer) ComposeReport(v *dashboard.WeeklyView) (*database.WeeklyReport, error) {
	d := Compose(v, c.registry)
	if _, err := c.db.InsertWeeklyReport(d.WeekStart, d.Title, d.Body, d.InsightCount); err != nil {
		return nil, fmt.Errorf("storing report for %s: %w", d.WeekStart, err)
	}
	r, err := c.db.GetWeeklyReport(d.WeekStart)
	if err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{"week": d.WeekStart, "insights": d.InsightCount}).Info("weekly report composed")
	return r, nil
}

// Compose renders v as markdown.
func Compose(v *dashboard.WeeklyView, reg *registry.Registry) Digest {
	p := message.NewPrinter(language.English)
	title := "Weekly digest: " + v.Label

	var sections []string
	headline := "# " + title
	if v.Partial {
		headline += fmt.Sprintf("\n\n_Week in progress: day %d of 7._", v.DaysIntoWeek)
	}
	sections = append(sections, headline)
	sections = append(sections, headlineTable(v, p))
	sections = append(sections, insightsSection(v.Insights))
	sections = append(sections, topPostsSection(v, reg, p))
	sections = append(sections, anomaliesSection(v, reg, p))

	return Digest{
		WeekStart:    v.Week.Start,
		Title:        title,
		Body:         strings.Join(sections, "\n\n"),
		InsightCount: len(v.Insights),
	}
}

func formatValue(p *message.Printer, metric string, value float64, currency string) string {
	switch metric {
	case weekly.MetricEngagementRate:
		return p.Sprintf("%.2f%%", value)
	case weekly.MetricEMV:
		return emv.FormatMoney(value, currency)
	default:
		return p.Sprintf("%.0f", value)
	}
}

func formatChange(change float64) string {
	if change > 0 {
		return fmt.Sprintf("+%.1f%%", change)
	}
	return fmt.Sprintf("%.1f%%", change)
}

func headlineTable(v *dashboard.WeeklyView, p *message.Printer) string {
	lines := []string{
		"## Headline metrics",
		"",
		"| Metric | This week | Last week | Change |",
		"|---|---:|---:|---:|",
	}
	for _, c := range v.HeroCards {
		lines = append(lines, fmt.Sprintf("| %s | %s | %s | %s |",
			c.Label,
			formatValue(p, c.Metric, c.Current, v.Currency),
			formatValue(p, c.Metric, c.Previous, v.Currency),
			formatChange(c.Change),
		))
	}
	return strings.Join(lines, "\n")
}

func insightsSection(insights []weekly.Insight) string {
	if len(insights) == 0 {
		return "## Insights\n\nNothing stood out this week."
	}
	parts := []string{"## Insights"}
	for _, in := range insights {
		parts = append(parts, fmt.Sprintf("### %s\n\n%s", in.Title, in.Body))
	}
	return strings.Join(parts, "\n\n")
}

func topPostsSection(v *dashboard.WeeklyView, reg *registry.Registry, p *message.Printer) string {
	if len(v.TopPosts) == 0 {
		return "## Top posts\n\nNo posts were published this week."
	}
	lines := []string{"## Top posts", ""}
	for i, post := range v.TopPosts {
		text := weekly.Snippet(post.Content, snippetLength)
		if text == "" {
			text = "(no text)"
		}
		line := fmt.Sprintf("%d. **%s** with %s engagements: %q",
			i+1, reg.PlatformName(post.Platform), p.Sprintf("%d", post.Engagements), text)
		if post.Permalink != "" {
			line += fmt.Sprintf(" ([view](%s))", post.Permalink)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func anomaliesSection(v *dashboard.WeeklyView, reg *registry.Registry, p *message.Printer) string {
	if len(v.Anomalies) == 0 {
		return "## Anomalies\n\nNo unusual days this week."
	}
	lines := []string{"## Anomalies", ""}
	for _, f := range v.Anomalies {
		lines = append(lines, fmt.Sprintf("- %s, %s %s: %s against a mean of %s (%s, %.1f standard deviations)",
			f.Date, reg.PlatformName(f.Platform), f.Metric,
			p.Sprintf("%.0f", f.Value), p.Sprintf("%.0f", f.Mean), f.Direction, f.Deviations))
	}
	return strings.Join(lines, "\n")
}
