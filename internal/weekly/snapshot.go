// Package weekly builds per-week snapshots and the week-over-week comparison
// view with its generated insights.
package weekly

import (
	"github.com/TobiSchelling/SocialPulse/internal/calendar"
	"github.com/TobiSchelling/SocialPulse/internal/emv"
	"github.com/TobiSchelling/SocialPulse/internal/model"
)

// BuildSnapshotFromDailyMetrics sums the week's daily rows per platform.
// Every platform in platforms gets a row, zero-valued when it has no data,
// followed by one total row that sums them. Rows outside the week or for
// other platforms are ignored.
func BuildSnapshotFromDailyMetrics(rows []model.DailyMetricRow, week calendar.Week, platforms []string, calc *emv.Calculator) []model.WeeklySnapshotRow {
	inWeek := make(map[string][]model.DailyMetricRow, len(platforms))
	for _, r := range rows {
		if week.Contains(r.Date) {
			inWeek[r.Platform] = append(inWeek[r.Platform], r)
		}
	}

	out := make([]model.WeeklySnapshotRow, 0, len(platforms)+1)
	total := model.WeeklySnapshotRow{WeekStart: week.Start, WeekEnd: week.End, Platform: model.TotalPlatform}
	for _, platform := range platforms {
		row := platformSnapshot(inWeek[platform], week, platform, calc)
		addSnapshot(&total, row)
		out = append(out, row)
	}
	total.EngagementRate = model.EngagementRate(float64(total.Engagements), float64(total.Impressions))
	return append(out, total)
}

func platformSnapshot(rows []model.DailyMetricRow, week calendar.Week, platform string, calc *emv.Calculator) model.WeeklySnapshotRow {
	var sum model.DailyMetricRow
	for _, r := range rows {
		sum.Add(r)
	}
	b := calc.Breakdown(platform, emv.DailyCounts(sum))
	return model.WeeklySnapshotRow{
		WeekStart:      week.Start,
		WeekEnd:        week.End,
		Platform:       platform,
		Impressions:    sum.Impressions,
		Engagements:    sum.Engagements,
		Reactions:      sum.Reactions,
		Comments:       sum.Comments,
		Shares:         sum.Shares,
		Saves:          sum.Saves,
		VideoViews:     sum.VideoViews,
		Clicks:         sum.Clicks,
		EngagementRate: model.EngagementRate(float64(sum.Engagements), float64(sum.Impressions)),
		PostsCount:     sum.PostsPublished,
		FollowersStart: model.EarliestFollowers(rows),
		FollowersEnd:   model.LatestFollowers(rows),
		FollowerGrowth: sum.FollowerGrowth,
		EMVTotal:       b.Total(),
		EMVViews:       b.Views,
		EMVLikes:       b.Likes,
		EMVComments:    b.Comments,
		EMVShares:      b.Shares,
		EMVOther:       b.Other,
	}
}

func addSnapshot(dst *model.WeeklySnapshotRow, r model.WeeklySnapshotRow) {
	dst.Impressions += r.Impressions
	dst.Engagements += r.Engagements
	dst.Reactions += r.Reactions
	dst.Comments += r.Comments
	dst.Shares += r.Shares
	dst.Saves += r.Saves
	dst.VideoViews += r.VideoViews
	dst.Clicks += r.Clicks
	dst.PostsCount += r.PostsCount
	dst.FollowersStart += r.FollowersStart
	dst.FollowersEnd += r.FollowersEnd
	dst.FollowerGrowth += r.FollowerGrowth
	dst.EMVTotal += r.EMVTotal
	dst.EMVViews += r.EMVViews
	dst.EMVLikes += r.EMVLikes
	dst.EMVComments += r.EMVComments
	dst.EMVShares += r.EMVShares
	dst.EMVOther += r.EMVOther
}

// EMVBreakdown returns the snapshot's EMV categories.
func EMVBreakdown(r model.WeeklySnapshotRow) emv.Breakdown {
	return emv.Breakdown{
		Views:    r.EMVViews,
		Likes:    r.EMVLikes,
		Comments: r.EMVComments,
		Shares:   r.EMVShares,
		Other:    r.EMVOther,
	}
}

// FindRow returns the row for platform, or a zero row and false.
func FindRow(rows []model.WeeklySnapshotRow, platform string) (model.WeeklySnapshotRow, bool) {
	for _, r := range rows {
		if r.Platform == platform {
			return r, true
		}
	}
	return model.WeeklySnapshotRow{Platform: platform}, false
}

// GroupByWeek splits snapshot rows by week start.
func GroupByWeek(rows []model.WeeklySnapshotRow) map[string][]model.WeeklySnapshotRow {
	out := make(map[string][]model.WeeklySnapshotRow)
	for _, r := range rows {
		out[r.WeekStart] = append(out[r.WeekStart], r)
	}
	return out
}
