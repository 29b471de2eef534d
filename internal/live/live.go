package live

import (
	"sort"
	"time"

	"github.com/TobiSchelling/SocialPulse/internal/calendar"
	"github.com/TobiSchelling/SocialPulse/internal/emv"
	"github.com/TobiSchelling/SocialPulse/internal/model"
	"github.com/TobiSchelling/SocialPulse/internal/registry"
)

const (
	postLogLimit       = 50
	outperformingRatio = 1.5
	underperformRatio  = 0.5
)

// Performance classifies a post's velocity.
type Performance string

const (
	Outperforming   Performance = "outperforming"
	Normal          Performance = "normal"
	Underperforming Performance = "underperforming"
)

// PostLogEntry is a post with its velocity against the platform average.
type PostLogEntry struct {
	model.Post
	PlatformAverage float64     `json:"platform_average"`
	Velocity        float64     `json:"velocity"`
	Performance     Performance `json:"performance"`
}

// PlatformAverages returns the mean engagements per post for each platform.
func PlatformAverages(posts []model.Post) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, p := range posts {
		sums[p.Platform] += float64(p.Engagements)
		counts[p.Platform]++
	}
	out := make(map[string]float64, len(sums))
	for platform, sum := range sums {
		out[platform] = sum / float64(counts[platform])
	}
	return out
}

// BuildPostLog scores this week's posts against the platform averages and
// returns the 50 most recent.
func BuildPostLog(posts []model.Post, averages map[string]float64, calc *emv.Calculator) []PostLogEntry {
	entries := make([]PostLogEntry, 0, len(posts))
	for _, p := range posts {
		p.EMV = calc.PostEMV(p)
		avg := averages[p.Platform]
		var velocity float64
		if avg > 0 {
			velocity = float64(p.Engagements) / avg
		}
		perf := Normal
		switch {
		case velocity >= outperformingRatio:
			perf = Outperforming
		case velocity < underperformRatio:
			perf = Underperforming
		}
		entries = append(entries, PostLogEntry{Post: p, PlatformAverage: avg, Velocity: velocity, Performance: perf})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	if len(entries) > postLogLimit {
		entries = entries[:postLogLimit]
	}
	return entries
}

// Input is everything the live view is built from. History covers the four
// weeks before the current one.
type Input struct {
	Now           time.Time
	ThisWeekPosts []model.Post
	LastWeekPosts []model.Post
	HistoryPosts  []model.Post
	ThisWeekDaily []model.DailyMetricRow
	LastWeekDaily []model.DailyMetricRow
}

// View is the full live tracker payload.
type View struct {
	GeneratedAt  time.Time      `json:"generated_at"`
	Week         calendar.Week  `json:"week"`
	HoursElapsed float64        `json:"hours_elapsed"`
	DayNumber    int            `json:"day_number"`
	Currency     string         `json:"currency"`
	Timeline     Timeline       `json:"timeline"`
	Days         []DayStatus    `json:"days"`
	Pace         []PaceCard     `json:"pace"`
	Race         []RaceEntry    `json:"race"`
	PostLog      []PostLogEntry `json:"post_log"`
	Alerts       []Alert        `json:"alerts"`
}

// Tracker builds the live view for the configured platforms.
type Tracker struct {
	registry *registry.Registry
	calc     *emv.Calculator
	alerts   AlertConfig
}

// New creates a Tracker.
func New(reg *registry.Registry, alerts AlertConfig) *Tracker {
	return &Tracker{registry: reg, calc: reg.Calculator(), alerts: alerts}
}

// Build assembles the live view as of in.Now.
func (t *Tracker) Build(in Input) View {
	hours := calendar.HoursIntoWeek(in.Now)
	timeline := BuildHourlyTimeline(TimelineInput{
		Now:           in.Now,
		ThisWeekPosts: in.ThisWeekPosts,
		LastWeekPosts: in.LastWeekPosts,
		ThisWeekDaily: in.ThisWeekDaily,
		LastWeekDaily: in.LastWeekDaily,
	}, t.calc)
	current := timeline.Current()
	lastTotal := timeline.LastWeekTotal()
	averages := PlatformAverages(in.HistoryPosts)

	return View{
		GeneratedAt:  in.Now,
		Week:         calendar.CurrentWeek(in.Now),
		HoursElapsed: hours,
		DayNumber:    calendar.CurrentDayNumber(in.Now),
		Currency:     t.calc.Currency(),
		Timeline:     timeline,
		Days:         BuildDayStatus(timeline, in.Now),
		Pace:         BuildPaceMetricCards(current, lastTotal, hours),
		Race:         BuildPlatformRace(t.registry, t.calc, in.ThisWeekPosts, in.LastWeekPosts, in.Now),
		PostLog:      BuildPostLog(in.ThisWeekPosts, averages, t.calc),
		Alerts: GenerateAlerts(t.alerts, t.registry, AlertInput{
			Now:              in.Now,
			ThisWeekPosts:    in.ThisWeekPosts,
			PlatformAverages: averages,
			LastPostAt:       lastPostAt(in.ThisWeekPosts, in.LastWeekPosts, in.HistoryPosts),
			Current:          current.Engagements,
			LastWeekTotal:    lastTotal.Engagements,
			HoursElapsed:     hours,
		}),
	}
}

func lastPostAt(sets ...[]model.Post) time.Time {
	var latest time.Time
	for _, posts := range sets {
		for _, p := range posts {
			if p.CreatedAt.After(latest) {
				latest = p.CreatedAt
			}
		}
	}
	return latest
}
