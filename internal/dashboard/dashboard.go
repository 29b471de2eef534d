// Package dashboard reads ranges from the store and runs the analytics
// builders behind each view.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/SocialPulse/internal/anomaly"
	"github.com/TobiSchelling/SocialPulse/internal/calendar"
	"github.com/TobiSchelling/SocialPulse/internal/config"
	"github.com/TobiSchelling/SocialPulse/internal/database"
	"github.com/TobiSchelling/SocialPulse/internal/lifetime"
	"github.com/TobiSchelling/SocialPulse/internal/live"
	"github.com/TobiSchelling/SocialPulse/internal/logging"
	"github.com/TobiSchelling/SocialPulse/internal/metrics"
	"github.com/TobiSchelling/SocialPulse/internal/model"
	"github.com/TobiSchelling/SocialPulse/internal/registry"
	"github.com/TobiSchelling/SocialPulse/internal/rollup"
	"github.com/TobiSchelling/SocialPulse/internal/weekly"
)

// DefaultRollupDays is the rollup period when the caller passes zero.
const DefaultRollupDays = 30

const liveHistoryWeeks = 4

// AnomalyOptions maps the anomaly config section onto detector options.
func AnomalyOptions(cfg *config.Config) anomaly.Options {
	opts := anomaly.DefaultOptions()
	if cfg.Anomaly.WindowDays > 0 {
		opts.WindowDays = cfg.Anomaly.WindowDays
	}
	if cfg.Anomaly.SigmaThreshold > 0 {
		opts.SigmaThreshold = cfg.Anomaly.SigmaThreshold
	}
	opts.MinDataPoints = cfg.Anomaly.MinDataPoints
	return opts
}

// AlertConfig maps the alerts config section onto the live alert rules.
func AlertConfig(cfg *config.Config) live.AlertConfig {
	a := cfg.Alerts
	return live.AlertConfig{
		Viral:          live.ViralRule{Enabled: a.Viral.Enabled, Multiplier: a.Viral.Multiplier},
		PostingGap:     live.PostingGapRule{Enabled: a.PostingGap.Enabled, Hours: a.PostingGap.Hours},
		EngagementDrop: live.EngagementDropRule{Enabled: a.EngagementDrop.Enabled, Threshold: a.EngagementDrop.Threshold},
		Milestone:      live.MilestoneRule{Enabled: a.Milestone.Enabled, Thresholds: a.Milestone.Thresholds},
	}
}

// InsightTemplates maps configured insight texts onto weekly templates,
// filling gaps from the defaults.
func InsightTemplates(cfg *config.Config) weekly.Templates {
	t := make(weekly.Templates, len(cfg.Insights.Templates))
	for key, tmpl := range cfg.Insights.Templates {
		t[key] = weekly.Template{Title: tmpl.Title, Body: tmpl.Body}
	}
	return t.WithDefaults()
}

// Options are the collaborators of a Service. Zero values fall back to the
// system clock, no metrics and a discarded log.
type Options struct {
	Clock   calendar.Clock
	Metrics *metrics.Collector
	Log     logrus.FieldLogger
}

// Service builds dashboard views from stored data.
type Service struct {
	db       *database.DB
	registry *registry.Registry

	lifetime *lifetime.Aggregator
	weekly   *weekly.Comparator
	live     *live.Tracker
	rollup   *rollup.Builder

	buildOpts    lifetime.BuildOptions
	historyWeeks int

	clock   calendar.Clock
	metrics *metrics.Collector
	log     logrus.FieldLogger
}

// New creates a Service for cfg backed by db.
func New(cfg *config.Config, db *database.DB, opts Options) *Service {
	reg := registry.FromConfig(cfg)
	if opts.Clock == nil {
		opts.Clock = calendar.SystemClock
	}
	if opts.Log == nil {
		opts.Log = logging.Discard()
	}
	historyWeeks := cfg.Weekly.HistoryWeeks
	if historyWeeks <= 0 {
		historyWeeks = 12
	}
	return &Service{
		db:       db,
		registry: reg,
		lifetime: lifetime.New(reg),
		weekly: weekly.New(reg, weekly.Options{
			Templates:               InsightTemplates(cfg),
			BenchmarkEngagementRate: cfg.Weekly.BenchmarkEngagementRate,
		}),
		live:   live.New(reg, AlertConfig(cfg)),
		rollup: rollup.New(reg),
		buildOpts: lifetime.BuildOptions{
			Anomaly:              AnomalyOptions(cfg),
			DiscrepancyThreshold: cfg.Anomaly.DiscrepancyThreshold,
		},
		historyWeeks: historyWeeks,
		clock:        opts.Clock,
		metrics:      opts.Metrics,
		log:          opts.Log,
	}
}

// Registry returns the configured platforms, shows and talent.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// Now returns the service clock's current time in SAST.
func (s *Service) Now() time.Time {
	return calendar.InSAST(s.clock.Now())
}

func (s *Service) observe(view string, start time.Time) {
	s.metrics.ObserveView(view, time.Since(start))
}

// Lifetime builds the all-time dashboard.
func (s *Service) Lifetime(ctx context.Context) (*lifetime.Dashboard, error) {
	defer s.observe("lifetime", time.Now())

	var (
		rows  []model.DailyMetricRow
		posts []model.Post
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.db.GetDailyMetrics("", "")
		if err != nil {
			return fmt.Errorf("reading daily metrics: %w", err)
		}
		return gctx.Err()
	})
	g.Go(func() error {
		var err error
		posts, err = s.db.GetPosts(time.Time{}, time.Time{})
		if err != nil {
			return fmt.Errorf("reading posts: %w", err)
		}
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := s.lifetime.Build(rows, posts, s.Now(), s.buildOpts)
	return &d, nil
}

// Anomalies runs the rolling detector over every stored daily row.
func (s *Service) Anomalies(ctx context.Context) ([]anomaly.Flag, error) {
	defer s.observe("anomalies", time.Now())

	rows, err := s.db.GetDailyMetrics("", "")
	if err != nil {
		return nil, fmt.Errorf("reading daily metrics: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	flags := anomaly.Detect(rows, s.buildOpts.Anomaly)
	if flags == nil {
		flags = []anomaly.Flag{}
	}
	return flags, nil
}

// Live builds the in-progress week tracker.
func (s *Service) Live(ctx context.Context) (*live.View, error) {
	defer s.observe("live", time.Now())

	now := s.Now()
	start := calendar.WeekStartTime(now)
	thisWeek := calendar.CurrentWeek(now)
	lastWeek, err := calendar.PreviousWeek(thisWeek.Start)
	if err != nil {
		return nil, err
	}

	in := live.Input{Now: now}
	g, gctx := errgroup.WithContext(ctx)
	read := func(dst *[]model.Post, from, to time.Time) {
		g.Go(func() error {
			posts, err := s.db.GetPosts(from, to)
			if err != nil {
				return fmt.Errorf("reading posts: %w", err)
			}
			*dst = posts
			return gctx.Err()
		})
	}
	readDaily := func(dst *[]model.DailyMetricRow, week calendar.Week) {
		g.Go(func() error {
			rows, err := s.db.GetDailyMetrics(week.Start, week.End)
			if err != nil {
				return fmt.Errorf("reading daily metrics: %w", err)
			}
			*dst = rows
			return gctx.Err()
		})
	}
	read(&in.ThisWeekPosts, start, start.AddDate(0, 0, 7))
	read(&in.LastWeekPosts, start.AddDate(0, 0, -7), start)
	read(&in.HistoryPosts, start.AddDate(0, 0, -7*liveHistoryWeeks), start)
	readDaily(&in.ThisWeekDaily, thisWeek)
	readDaily(&in.LastWeekDaily, lastWeek)
	if err := g.Wait(); err != nil {
		return nil, err
	}

	v := s.live.Build(in)
	return &v, nil
}

// rollupInput reads two consecutive periods of days each ending now, plus the
// activity grid's weeks.
func (s *Service) rollupInput(ctx context.Context, days int) (rollup.Input, error) {
	if days <= 0 {
		days = DefaultRollupDays
	}
	now := s.Now()
	periodStart := now.AddDate(0, 0, -days)
	weeks := calendar.LastNWeeks(now, s.rollup.Weeks())
	historyStart, err := weeks[0].StartTime()
	if err != nil {
		return rollup.Input{}, err
	}
	historyEnd := calendar.WeekStartTime(now).AddDate(0, 0, 7)

	in := rollup.Input{Now: now}
	g, gctx := errgroup.WithContext(ctx)
	read := func(dst *[]model.Post, from, to time.Time) {
		g.Go(func() error {
			posts, err := s.db.GetPosts(from, to)
			if err != nil {
				return fmt.Errorf("reading posts: %w", err)
			}
			if posts == nil {
				posts = []model.Post{}
			}
			*dst = posts
			return gctx.Err()
		})
	}
	read(&in.Posts, periodStart, now)
	read(&in.PreviousPosts, periodStart.AddDate(0, 0, -days), periodStart)
	read(&in.HistoryPosts, historyStart, historyEnd)
	if err := g.Wait(); err != nil {
		return rollup.Input{}, err
	}
	return in, nil
}

// Shows builds the show overview for the last days days.
func (s *Service) Shows(ctx context.Context, days int) (*rollup.ShowsOverview, error) {
	defer s.observe("shows", time.Now())

	in, err := s.rollupInput(ctx, days)
	if err != nil {
		return nil, err
	}
	ov := s.rollup.ShowsOverview(in)
	return &ov, nil
}

// ShowDetail drills into one show. Unknown ids return rollup.ErrNotFound.
func (s *Service) ShowDetail(ctx context.Context, id string, days int) (*rollup.ShowDetail, error) {
	defer s.observe("show_detail", time.Now())

	if _, ok := s.registry.Show(id); !ok {
		return nil, fmt.Errorf("show %q: %w", id, rollup.ErrNotFound)
	}
	in, err := s.rollupInput(ctx, days)
	if err != nil {
		return nil, err
	}
	return s.rollup.ShowDetail(id, in)
}

// Talent builds the talent overview for the last days days.
func (s *Service) Talent(ctx context.Context, days int) (*rollup.TalentOverview, error) {
	defer s.observe("talent", time.Now())

	in, err := s.rollupInput(ctx, days)
	if err != nil {
		return nil, err
	}
	ov := s.rollup.TalentOverview(in)
	return &ov, nil
}

// TalentDetail drills into one person. Unknown ids return
// rollup.ErrNotFound.
func (s *Service) TalentDetail(ctx context.Context, id string, days int) (*rollup.TalentDetail, error) {
	defer s.observe("talent_detail", time.Now())

	if _, ok := s.registry.TalentByID(id); !ok {
		return nil, fmt.Errorf("talent %q: %w", id, rollup.ErrNotFound)
	}
	in, err := s.rollupInput(ctx, days)
	if err != nil {
		return nil, err
	}
	return s.rollup.TalentDetail(id, in)
}
