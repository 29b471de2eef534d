package dashboard

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/SocialPulse/internal/anomaly"
	"github.com/TobiSchelling/SocialPulse/internal/calendar"
	"github.com/TobiSchelling/SocialPulse/internal/model"
	"github.com/TobiSchelling/SocialPulse/internal/weekly"
)

const weeklyTopPosts = 5

// WeeklyView is the week-over-week comparison plus the week's best posts
// and flagged days.
type WeeklyView struct {
	weekly.Comparison
	TopPosts  []model.Post   `json:"top_posts"`
	Anomalies []anomaly.Flag `json:"anomalies"`
}

// ResolveWeek returns the week containing value, a YYYY-MM-DD date or an
// RFC3339 timestamp. An empty value selects the current week.
func (s *Service) ResolveWeek(value string) (calendar.Week, error) {
	if value == "" {
		return calendar.CurrentWeek(s.Now()), nil
	}
	start, err := calendar.WeekStartFor(value)
	if err != nil {
		return calendar.Week{}, err
	}
	return calendar.WeekOf(start)
}

// historyOf returns the configured number of weeks ending with week,
// oldest first.
func (s *Service) historyOf(week calendar.Week) ([]calendar.Week, error) {
	start, err := week.StartTime()
	if err != nil {
		return nil, err
	}
	return calendar.LastNWeeks(start, s.historyWeeks), nil
}

// Weekly builds the comparison of the week containing weekStart against the
// week before it. Completed weeks missing from the snapshot table are built
// from daily rows and cached.
func (s *Service) Weekly(ctx context.Context, weekStart string) (*WeeklyView, error) {
	defer s.observe("weekly", time.Now())

	week, err := s.ResolveWeek(weekStart)
	if err != nil {
		return nil, err
	}
	weeks, err := s.historyOf(week)
	if err != nil {
		return nil, err
	}
	first := weeks[0]

	var (
		snapshots []model.WeeklySnapshotRow
		daily     []model.DailyMetricRow
		posts     []model.Post
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snapshots, err = s.db.GetSnapshotsRange(first.Start, week.Start)
		if err != nil {
			return fmt.Errorf("reading snapshots: %w", err)
		}
		return gctx.Err()
	})
	g.Go(func() error {
		var err error
		daily, err = s.db.GetDailyMetrics(first.Start, week.End)
		if err != nil {
			return fmt.Errorf("reading daily metrics: %w", err)
		}
		return gctx.Err()
	})
	g.Go(func() error {
		start, err := week.StartTime()
		if err != nil {
			return err
		}
		posts, err = s.db.GetPosts(start, start.AddDate(0, 0, 7))
		if err != nil {
			return fmt.Errorf("reading posts: %w", err)
		}
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snapshots = s.fillSnapshots(weeks, snapshots, daily)

	cmp := s.weekly.BuildWeeklyComparison(weekly.Input{
		Week:      week,
		Snapshots: snapshots,
		Posts:     posts,
		Now:       s.Now(),
	})

	flags := []anomaly.Flag{}
	for _, f := range anomaly.Detect(daily, s.buildOpts.Anomaly) {
		if week.Contains(f.Date) {
			flags = append(flags, f)
		}
	}

	return &WeeklyView{
		Comparison: cmp,
		TopPosts:   weekly.TopPosts(posts, weeklyTopPosts),
		Anomalies:  flags,
	}, nil
}

// fillSnapshots adds rows for weeks that have daily data but no stored
// snapshot. Completed weeks are written back to the store; the week in
// progress is always rebuilt.
func (s *Service) fillSnapshots(weeks []calendar.Week, stored []model.WeeklySnapshotRow, daily []model.DailyMetricRow) []model.WeeklySnapshotRow {
	byWeek := weekly.GroupByWeek(stored)
	today := calendar.DateOf(s.Now())

	var cache []model.WeeklySnapshotRow
	out := make([]model.WeeklySnapshotRow, 0, len(stored))
	for _, w := range weeks {
		complete := w.End < today
		if rows := byWeek[w.Start]; len(rows) > 0 && complete {
			out = append(out, rows...)
			continue
		}
		if !hasDaily(daily, w) {
			out = append(out, byWeek[w.Start]...)
			continue
		}
		built := s.weekly.BuildSnapshot(daily, w)
		out = append(out, built...)
		if complete {
			cache = append(cache, built...)
		}
	}

	if len(cache) > 0 {
		if err := s.db.UpsertWeeklySnapshots(cache); err != nil {
			s.log.WithError(err).Warn("failed to cache weekly snapshots")
		} else {
			s.metrics.SnapshotsCached(len(cache))
			s.log.WithField("rows", len(cache)).Debug("cached weekly snapshots")
		}
	}
	return out
}

func hasDaily(rows []model.DailyMetricRow, w calendar.Week) bool {
	for _, r := range rows {
		if w.Contains(r.Date) {
			return true
		}
	}
	return false
}

// RefreshSnapshots rebuilds and stores the snapshot rows of each week from
// its daily rows. Weeks without daily rows are skipped. It returns the
// number of rows written.
func (s *Service) RefreshSnapshots(ctx context.Context, weeks ...calendar.Week) (int, error) {
	var rows []model.WeeklySnapshotRow
	for _, w := range weeks {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		daily, err := s.db.GetDailyMetrics(w.Start, w.End)
		if err != nil {
			return 0, fmt.Errorf("reading daily metrics for %s: %w", w.Start, err)
		}
		if len(daily) == 0 {
			continue
		}
		rows = append(rows, s.weekly.BuildSnapshot(daily, w)...)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if err := s.db.UpsertWeeklySnapshots(rows); err != nil {
		return 0, fmt.Errorf("storing snapshots: %w", err)
	}
	s.metrics.SnapshotsCached(len(rows))
	return len(rows), nil
}
