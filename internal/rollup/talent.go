package rollup

import (
	"fmt"
	"sort"

	"github.com/TobiSchelling/SocialPulse/internal/attribution"
	"github.com/TobiSchelling/SocialPulse/internal/calendar"
	"github.com/TobiSchelling/SocialPulse/internal/model"
	"github.com/TobiSchelling/SocialPulse/internal/registry"
)

// TalentSummary is one person's advocacy for the period.
type TalentSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Metrics
	Deltas Deltas `json:"deltas"`
	// BrandPosts carry a brand hashtag; ShowPosts mention at least one show.
	BrandPosts  int     `json:"brand_posts"`
	ShowPosts   int     `json:"show_posts"`
	MentionRate float64 `json:"mention_rate"`
	Platforms   int     `json:"platforms"`
}

// MatrixRow counts one person's posts per show, in show configuration order.
type MatrixRow struct {
	TalentID string      `json:"talent_id"`
	Name     string      `json:"name"`
	Shows    []ShowValue `json:"shows"`
	Total    int         `json:"total"`
}

// TalentOverview compares every configured person.
type TalentOverview struct {
	Currency    string             `json:"currency"`
	Summaries   []TalentSummary    `json:"summaries"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	Activity    []ActivityRow      `json:"activity"`
	Matrix      []MatrixRow        `json:"matrix"`
	BrandPosts  int                `json:"brand_posts"`
	TotalPosts  int                `json:"total_posts"`
}

// TalentDetail drills into one person.
type TalentDetail struct {
	Talent     registry.Talent          `json:"talent"`
	Summary    TalentSummary            `json:"summary"`
	Platforms  []PlatformSplit          `json:"platforms"`
	Shows      []ShowValue              `json:"shows"`
	Frequency  []WeekValue              `json:"frequency"`
	Engagement []WeekValue              `json:"engagement"`
	TopPosts   []attribution.TalentPost `json:"top_posts"`
}

// groupTalent attributes and dedupes talent posts and groups them by
// talent id.
func (b *Builder) groupTalent(posts []model.Post) map[string][]attribution.TalentPost {
	out := make(map[string][]attribution.TalentPost)
	for _, tp := range b.matcher.AttributeTalentPosts(posts) {
		out[tp.TalentID] = append(out[tp.TalentID], tp)
	}
	return out
}

func plain(tps []attribution.TalentPost) []model.Post {
	out := make([]model.Post, len(tps))
	for i, tp := range tps {
		out[i] = tp.Post
	}
	return out
}

func (b *Builder) talentSummary(t registry.Talent, cur, prev []attribution.TalentPost) TalentSummary {
	m := summarize(plain(cur), b.calc)
	s := TalentSummary{
		ID:      t.ID,
		Name:    t.Name,
		Color:   t.Color,
		Metrics: m,
		Deltas:  deltas(m, summarize(plain(prev), b.calc)),
	}
	platforms := make(map[string]bool)
	mentions := 0
	for _, tp := range cur {
		if tp.Brand {
			s.BrandPosts++
		}
		if len(tp.Shows) > 0 {
			s.ShowPosts++
		}
		if tp.Mentions() {
			mentions++
		}
		platforms[tp.Platform] = true
	}
	if m.Posts > 0 {
		s.MentionRate = float64(mentions) / float64(m.Posts) * 100
	}
	s.Platforms = len(platforms)
	return s
}

// showCounts counts posts per configured show. A post tagged with several
// shows counts once for each.
func (b *Builder) showCounts(tps []attribution.TalentPost) []ShowValue {
	counts := make(map[string]int)
	for _, tp := range tps {
		for _, id := range tp.Shows {
			counts[id]++
		}
	}
	out := make([]ShowValue, 0, len(b.registry.Shows()))
	for _, s := range b.registry.Shows() {
		out = append(out, ShowValue{ShowID: s.ID, Value: float64(counts[s.ID])})
	}
	return out
}

// TalentOverview summarizes, ranks and cross-tabulates every configured
// person.
func (b *Builder) TalentOverview(in Input) TalentOverview {
	cur := b.groupTalent(in.Posts)
	prev := b.groupTalent(in.PreviousPosts)
	hist := b.groupTalent(in.history())
	weeks := calendar.LastNWeeks(in.Now, b.weeks)

	out := TalentOverview{
		Currency:  b.calc.Currency(),
		Summaries: []TalentSummary{},
		Activity:  []ActivityRow{},
		Matrix:    []MatrixRow{},
	}
	var board []LeaderboardEntry
	for _, t := range b.registry.Talent() {
		sum := b.talentSummary(t, cur[t.ID], prev[t.ID])
		out.Summaries = append(out.Summaries, sum)
		out.BrandPosts += sum.BrandPosts
		out.TotalPosts += sum.Posts
		board = append(board, LeaderboardEntry{
			ID:          t.ID,
			Name:        t.Name,
			Color:       t.Color,
			Posts:       sum.Posts,
			Engagements: sum.Engagements,
			EMV:         sum.EMV,
		})
		out.Activity = append(out.Activity, ActivityRow{
			ID:    t.ID,
			Name:  t.Name,
			Color: t.Color,
			Cells: activityCells(weeks, plain(hist[t.ID])),
		})

		row := MatrixRow{TalentID: t.ID, Name: t.Name, Shows: b.showCounts(cur[t.ID])}
		for _, sv := range row.Shows {
			row.Total += int(sv.Value)
		}
		out.Matrix = append(out.Matrix, row)
	}
	out.Leaderboard = rank(board)
	if out.Leaderboard == nil {
		out.Leaderboard = []LeaderboardEntry{}
	}
	return out
}

// TalentDetail drills into one person. It returns ErrNotFound for an unknown
// id.
func (b *Builder) TalentDetail(id string, in Input) (*TalentDetail, error) {
	t, ok := b.registry.TalentByID(id)
	if !ok {
		return nil, fmt.Errorf("talent %q: %w", id, ErrNotFound)
	}
	cur := b.groupTalent(in.Posts)[id]
	prev := b.groupTalent(in.PreviousPosts)[id]
	hist := b.groupTalent(in.history())[id]

	frequency, engagement := weeklySeries(calendar.LastNWeeks(in.Now, b.weeks), plain(hist))

	top := make([]attribution.TalentPost, len(cur))
	copy(top, cur)
	for i := range top {
		top[i].EMV = b.calc.PostEMV(top[i].Post)
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Engagements > top[j].Engagements })
	if len(top) > topPostsLimit {
		top = top[:topPostsLimit]
	}

	return &TalentDetail{
		Talent:     t,
		Summary:    b.talentSummary(t, cur, prev),
		Platforms:  platformSplit(b.registry, b.calc, plain(cur)),
		Shows:      b.showCounts(cur),
		Frequency:  frequency,
		Engagement: engagement,
		TopPosts:   top,
	}, nil
}
