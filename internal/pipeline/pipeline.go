package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/TobiSchelling/SocialPulse/internal/calendar"
	"github.com/TobiSchelling/SocialPulse/internal/collect"
	"github.com/TobiSchelling/SocialPulse/internal/config"
	"github.com/TobiSchelling/SocialPulse/internal/dashboard"
	"github.com/TobiSchelling/SocialPulse/internal/database"
	"github.com/TobiSchelling/SocialPulse/internal/fetch"
	"github.com/TobiSchelling/SocialPulse/internal/logging"
	"github.com/TobiSchelling/SocialPulse/internal/metrics"
	"github.com/TobiSchelling/SocialPulse/internal/report"
)

const (
	defaultDaysBack = 7
	fetchTimeout    = 15 * time.Second
	fetchLimit      = 100
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	PeriodID string
	Steps    []StepResult
}

// Failed reports whether any step returned an error.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Options are the collaborators of a Pipeline. Zero values fall back to the
// system clock, no metrics and a discarded log.
type Options struct {
	Clock   calendar.Clock
	Metrics *metrics.Collector
	Log     logrus.FieldLogger
}

// Pipeline runs collect, fetch, snapshot and report in order.
type Pipeline struct {
	cfg     *config.Config
	db      *database.DB
	service *dashboard.Service
	clock   calendar.Clock
	metrics *metrics.Collector
	log     logrus.FieldLogger
}

// New creates a new pipeline.
func New(cfg *config.Config, db *database.DB, opts Options) *Pipeline {
	if opts.Clock == nil {
		opts.Clock = calendar.SystemClock
	}
	if opts.Log == nil {
		opts.Log = logging.Discard()
	}
	return &Pipeline{
		cfg: cfg,
		db:  db,
		service: dashboard.New(cfg, db, dashboard.Options{
			Clock:   opts.Clock,
			Metrics: opts.Metrics,
			Log:     opts.Log,
		}),
		clock:   opts.Clock,
		metrics: opts.Metrics,
		log:     opts.Log,
	}
}

// since returns the collection start: daysBack days ago, or when daysBack is
// zero, the end date of the last run (a week back when there is none).
func (p *Pipeline) since(now time.Time, daysBack int) time.Time {
	if daysBack > 0 {
		return calendar.StartOfDay(now.AddDate(0, 0, -daysBack))
	}
	if last, err := p.db.GetLastRunDate(); err == nil && last != "" {
		if t, err := calendar.ParseDate(last); err == nil && t.Before(now) {
			return t
		}
	}
	return calendar.StartOfDay(now.AddDate(0, 0, -defaultDaysBack))
}

func (p *Pipeline) record(r *Result, step StepResult) StepResult {
	p.metrics.StepDone(strings.ToLower(step.Name), step.Err)
	r.Steps = append(r.Steps, step)
	return step
}

// Run executes the full pipeline. A collect or snapshot failure stops the
// run; fetch never fails it.
func (p *Pipeline) Run(ctx context.Context, daysBack int) *Result {
	now := calendar.InSAST(p.clock.Now())
	since := p.since(now, daysBack)
	r := &Result{PeriodID: database.MakePeriodID(calendar.DateOf(since), calendar.DateOf(now))}
	p.log.WithField("period", r.PeriodID).Info("starting pipeline")

	collected, step := p.runCollect(ctx, since)
	if p.record(r, step).Err != nil {
		return r
	}

	p.record(r, p.runFetch(ctx))

	snapshots, step := p.runSnapshot(ctx, now)
	if p.record(r, step).Err != nil {
		return r
	}

	step = p.runReport(ctx, now)
	if p.record(r, step).Err == nil {
		if _, err := p.db.InsertRunReport(r.PeriodID, collected, snapshots); err != nil {
			p.log.WithError(err).Warn("failed to record run")
		}
	}
	return r
}

// DryRun shows what would be done without executing.
func (p *Pipeline) DryRun(daysBack int) *Result {
	now := calendar.InSAST(p.clock.Now())
	since := p.since(now, daysBack)
	r := &Result{PeriodID: database.MakePeriodID(calendar.DateOf(since), calendar.DateOf(now))}

	r.Steps = append(r.Steps, StepResult{
		Name: "Collect",
		Summary: fmt.Sprintf("[dry-run] Would read %d feeds for posts since %s",
			len(p.cfg.Sources.Feeds), calendar.DateOf(since)),
	})

	needing, _ := p.db.GetPostsNeedingFetch(0)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("[dry-run] %d posts need content fetching", len(needing)),
	})

	last, current := calendar.LastCompletedWeek(now), calendar.CurrentWeek(now)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Snapshot",
		Summary: fmt.Sprintf("[dry-run] Would rebuild snapshots for weeks %s and %s", last.Start, current.Start),
	})

	existing, _ := p.db.GetWeeklyReport(last.Start)
	if existing != nil {
		r.Steps = append(r.Steps, StepResult{
			Name:    "Report",
			Summary: fmt.Sprintf("[dry-run] Report already exists for %s and would be replaced", last.Start),
		})
	} else {
		r.Steps = append(r.Steps, StepResult{
			Name:    "Report",
			Summary: fmt.Sprintf("[dry-run] Would compose report for %s", last.Start),
		})
	}
	return r
}

func (p *Pipeline) runCollect(ctx context.Context, since time.Time) (int, StepResult) {
	p.log.Info("step 1/4: collecting posts")
	collector := collect.NewCollector(p.cfg, p.db, p.service.Registry().Calculator(), p.metrics, p.log)
	if !collector.HasSources() {
		return 0, StepResult{Name: "Collect", Summary: "No feeds configured"}
	}
	result := collector.Collect(ctx, since)
	if err := ctx.Err(); err != nil {
		return 0, StepResult{Name: "Collect", Err: err}
	}
	return result.NewPosts, StepResult{
		Name: "Collect",
		Summary: fmt.Sprintf("Found %d new posts (%d total, %d updated, %d failed)",
			result.NewPosts, result.TotalFound, result.Updated, result.Failed),
	}
}

func (p *Pipeline) runFetch(ctx context.Context) StepResult {
	p.log.Info("step 2/4: fetching post content")
	fetcher := fetch.NewContentFetcher(p.db, fetchTimeout, p.log)
	result := fetcher.FetchMissingContent(ctx, fetchLimit)
	return StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("Fetched %d posts, %d failed, %d skipped", result.Fetched, result.Failed, result.Skipped),
	}
}

func (p *Pipeline) runSnapshot(ctx context.Context, now time.Time) (int, StepResult) {
	p.log.Info("step 3/4: building weekly snapshots")
	last, current := calendar.LastCompletedWeek(now), calendar.CurrentWeek(now)
	n, err := p.service.RefreshSnapshots(ctx, last, current)
	if err != nil {
		return 0, StepResult{Name: "Snapshot", Err: err}
	}
	return n, StepResult{
		Name:    "Snapshot",
		Summary: fmt.Sprintf("Stored %d snapshot rows for weeks %s and %s", n, last.Start, current.Start),
	}
}

func (p *Pipeline) runReport(ctx context.Context, now time.Time) StepResult {
	p.log.Info("step 4/4: composing weekly report")
	week := calendar.LastCompletedWeek(now)
	view, err := p.service.Weekly(ctx, week.Start)
	if err != nil {
		return StepResult{Name: "Report", Err: err}
	}
	composer := report.NewComposer(p.db, p.service.Registry(), p.log)
	stored, err := composer.ComposeReport(view)
	if err != nil {
		return StepResult{Name: "Report", Err: err}
	}
	return StepResult{
		Name:    "Report",
		Summary: fmt.Sprintf("Report composed for %s: %d insights", stored.WeekStart, stored.InsightCount),
	}
}
