// Package collect ingests posts from configured platform feeds into the
// store.
package collect

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/TobiSchelling/SocialPulse/internal/config"
	"github.com/TobiSchelling/SocialPulse/internal/database"
	"github.com/TobiSchelling/SocialPulse/internal/emv"
	"github.com/TobiSchelling/SocialPulse/internal/metrics"
)

// Result holds the results of a collection run.
type Result struct {
	TotalFound int
	NewPosts   int
	Updated    int
	Failed     int
	Platforms  map[string]int
}

// Collector stores feed posts with their EMV.
type Collector struct {
	db         *database.DB
	feedParser *FeedParser
	calc       *emv.Calculator
	metrics    *metrics.Collector
	log        logrus.FieldLogger
}

// NewCollector creates a collector for the configured feeds. metrics may be
// nil.
func NewCollector(cfg *config.Config, db *database.DB, calc *emv.Calculator, m *metrics.Collector, log logrus.FieldLogger) *Collector {
	c := &Collector{db: db, calc: calc, metrics: m, log: log}
	if len(cfg.Sources.Feeds) > 0 {
		feeds := make([]FeedConfig, len(cfg.Sources.Feeds))
		for i, f := range cfg.Sources.Feeds {
			feeds[i] = FeedConfig{URL: f.URL, Name: f.Name, Platform: f.Platform, ProfileID: f.ProfileID, TalentID: f.TalentID}
		}
		c.feedParser = NewFeedParser(feeds, log)
	}
	return c
}

// HasSources reports whether any feed is configured.
func (c *Collector) HasSources() bool {
	return c.feedParser != nil
}

// Collect fetches posts published since the given time. New posts are
// inserted; posts already stored get their counters refreshed.
func (c *Collector) Collect(ctx context.Context, since time.Time) *Result {
	r := &Result{Platforms: make(map[string]int)}
	if c.feedParser == nil {
		return r
	}

	c.log.Info("collecting from feeds")
	posts := c.feedParser.ParseAll(ctx, since)
	r.TotalFound = len(posts)

	for _, p := range posts {
		p.EMV = c.calc.Calculate(p.Platform, emv.PostCounts(p))

		n, err := c.db.InsertPost(p)
		if err != nil {
			c.log.WithError(err).WithField("post", p.ID).Warn("failed to store post")
			r.Failed++
			continue
		}
		if n > 0 {
			r.NewPosts++
			r.Platforms[p.Platform]++
			continue
		}
		if err := c.db.UpsertPost(p); err != nil {
			c.log.WithError(err).WithField("post", p.ID).Warn("failed to refresh post")
			r.Failed++
			continue
		}
		r.Updated++
	}

	for platform, n := range r.Platforms {
		c.metrics.PostsCollected(platform, n)
	}
	c.log.WithFields(logrus.Fields{
		"found":   r.TotalFound,
		"new":     r.NewPosts,
		"updated": r.Updated,
	}).Info("collection complete")
	return r
}
