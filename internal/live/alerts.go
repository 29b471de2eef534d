package live

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/TobiSchelling/SocialPulse/internal/calendar"
	"github.com/TobiSchelling/SocialPulse/internal/model"
	"github.com/TobiSchelling/SocialPulse/internal/registry"
)

// Alert types.
const (
	AlertViral          = "viral"
	AlertPostingGap     = "posting_gap"
	AlertEngagementDrop = "engagement_drop"
	AlertMilestone      = "milestone"
)

// Severity of an alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeveritySuccess  Severity = "success"
	SeverityCritical Severity = "critical"
)

// Alert is a rule-triggered notice about the current week.
type Alert struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Severity  Severity  `json:"severity"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Platform  string    `json:"platform,omitempty"`
	PostID    string    `json:"post_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ViralRule flags posts far above their platform's average.
type ViralRule struct {
	Enabled    bool
	Multiplier float64
}

// PostingGapRule flags a quiet spell with no posts.
type PostingGapRule struct {
	Enabled bool
	Hours   float64
}

// EngagementDropRule flags engagements trailing last week's pace.
type EngagementDropRule struct {
	Enabled bool
	// Threshold is the fraction of last week's pace-equivalent engagements
	// below which the rule fires.
	Threshold float64
}

// MilestoneRule celebrates engagement thresholds last week did not reach.
type MilestoneRule struct {
	Enabled    bool
	Thresholds []float64
}

// AlertConfig toggles and tunes the four alert rules.
type AlertConfig struct {
	Viral          ViralRule
	PostingGap     PostingGapRule
	EngagementDrop EngagementDropRule
	Milestone      MilestoneRule
}

// DefaultAlertConfig enables every rule with stock thresholds.
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		Viral:          ViralRule{Enabled: true, Multiplier: 3},
		PostingGap:     PostingGapRule{Enabled: true, Hours: 48},
		EngagementDrop: EngagementDropRule{Enabled: true, Threshold: 0.7},
		Milestone:      MilestoneRule{Enabled: true, Thresholds: []float64{1000, 5000, 10000, 50000, 100000}},
	}
}

// AlertInput is the data the alert rules read.
type AlertInput struct {
	Now           time.Time
	ThisWeekPosts []model.Post
	// PlatformAverages is the mean engagements per post over recent weeks.
	PlatformAverages map[string]float64
	// LastPostAt is the most recent post across all platforms, zero if none.
	LastPostAt    time.Time
	Current       float64
	LastWeekTotal float64
	HoursElapsed  float64
}

func alertID(parts ...string) string {
	key := "alert"
	for _, p := range parts {
		key += ":" + p
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// GenerateAlerts evaluates each enabled rule and returns the alerts newest
// first.
func GenerateAlerts(cfg AlertConfig, reg *registry.Registry, in AlertInput) []Alert {
	alerts := []Alert{}
	week := calendar.DateOf(calendar.WeekStartTime(in.Now))

	if cfg.Viral.Enabled && cfg.Viral.Multiplier > 0 {
		for _, p := range in.ThisWeekPosts {
			avg := in.PlatformAverages[p.Platform]
			if avg <= 0 || float64(p.Engagements) <= avg*cfg.Viral.Multiplier {
				continue
			}
			alerts = append(alerts, Alert{
				ID:        alertID(AlertViral, p.ID),
				Type:      AlertViral,
				Severity:  SeveritySuccess,
				Title:     fmt.Sprintf("Viral post on %s", reg.PlatformName(p.Platform)),
				Message:   fmt.Sprintf("A post reached %d engagements, %.1fx the platform average of %.0f.", p.Engagements, float64(p.Engagements)/avg, avg),
				Platform:  p.Platform,
				PostID:    p.ID,
				Timestamp: p.CreatedAt,
			})
		}
	}

	if cfg.PostingGap.Enabled && cfg.PostingGap.Hours > 0 && !in.LastPostAt.IsZero() {
		gap := in.Now.Sub(in.LastPostAt).Hours()
		if gap > cfg.PostingGap.Hours {
			alerts = append(alerts, Alert{
				ID:        alertID(AlertPostingGap, in.LastPostAt.UTC().Format(time.RFC3339)),
				Type:      AlertPostingGap,
				Severity:  SeverityWarning,
				Title:     "Posting gap",
				Message:   fmt.Sprintf("No posts in the last %.0f hours.", gap),
				Timestamp: in.Now,
			})
		}
	}

	if cfg.EngagementDrop.Enabled && in.LastWeekTotal > 0 && in.HoursElapsed > 0 {
		expected := in.LastWeekTotal * in.HoursElapsed / calendar.HoursPerWeek
		if in.Current < expected*cfg.EngagementDrop.Threshold {
			alerts = append(alerts, Alert{
				ID:        alertID(AlertEngagementDrop, week),
				Type:      AlertEngagementDrop,
				Severity:  SeverityCritical,
				Title:     "Engagement below last week's pace",
				Message:   fmt.Sprintf("%.0f engagements so far against %.0f at this point last week.", in.Current, expected),
				Timestamp: in.Now,
			})
		}
	}

	if cfg.Milestone.Enabled {
		if m, ok := highestNewMilestone(cfg.Milestone.Thresholds, in.Current, in.LastWeekTotal); ok {
			alerts = append(alerts, Alert{
				ID:        alertID(AlertMilestone, week, fmt.Sprintf("%.0f", m)),
				Type:      AlertMilestone,
				Severity:  SeverityInfo,
				Title:     fmt.Sprintf("Milestone: %.0f engagements", m),
				Message:   fmt.Sprintf("This week passed %.0f engagements, a mark last week did not reach.", m),
				Timestamp: in.Now,
			})
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].Timestamp.After(alerts[j].Timestamp) })
	return alerts
}

// highestNewMilestone returns the largest threshold current has reached and
// lastWeek has not.
func highestNewMilestone(thresholds []float64, current, lastWeek float64) (float64, bool) {
	var best float64
	found := false
	for _, t := range thresholds {
		if current >= t && lastWeek < t && (!found || t > best) {
			best = t
			found = true
		}
	}
	return best, found
}
