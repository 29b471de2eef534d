// Package model holds the row types shared by the store and the analytics
// builders.
package model

import "time"

// TotalPlatform is the synthetic platform id of the per-week sum row.
const TotalPlatform = "total"

// DailyMetricRow is one day of metrics for one platform.
//
// Engagements is expected to equal Reactions+Comments+Shares+Saves+Clicks,
// but nothing downstream re-validates it.
type DailyMetricRow struct {
	Date           string `json:"date"` // YYYY-MM-DD
	Platform       string `json:"platform"`
	Impressions    int64  `json:"impressions"`
	Engagements    int64  `json:"engagements"`
	Reactions      int64  `json:"reactions"`
	Comments       int64  `json:"comments"`
	Shares         int64  `json:"shares"`
	Saves          int64  `json:"saves"`
	VideoViews     int64  `json:"video_views"`
	Clicks         int64  `json:"clicks"`
	Followers      int64  `json:"followers"`
	FollowerGrowth int64  `json:"follower_growth"`
	PostsPublished int64  `json:"posts_published"`
}

// Post is a single published post with its engagement counters.
type Post struct {
	ID          string    `json:"id"`
	Platform    string    `json:"platform"`
	ProfileID   string    `json:"profile_id"`
	TalentID    string    `json:"talent_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Content     string    `json:"content"`
	Permalink   string    `json:"permalink"`
	Impressions int64     `json:"impressions"`
	Engagements int64     `json:"engagements"`
	Reactions   int64     `json:"reactions"`
	Comments    int64     `json:"comments"`
	Shares      int64     `json:"shares"`
	Saves       int64     `json:"saves"`
	VideoViews  int64     `json:"video_views"`
	Clicks      int64     `json:"clicks"`
	EMV         float64   `json:"emv"`
}

// WeeklySnapshotRow is a pre-aggregated week of metrics for one platform, or
// for all platforms when Platform is TotalPlatform.
type WeeklySnapshotRow struct {
	WeekStart      string  `json:"week_start"`
	WeekEnd        string  `json:"week_end"`
	Platform       string  `json:"platform"`
	Impressions    int64   `json:"impressions"`
	Engagements    int64   `json:"engagements"`
	Reactions      int64   `json:"reactions"`
	Comments       int64   `json:"comments"`
	Shares         int64   `json:"shares"`
	Saves          int64   `json:"saves"`
	VideoViews     int64   `json:"video_views"`
	Clicks         int64   `json:"clicks"`
	EngagementRate float64 `json:"engagement_rate"`
	PostsCount     int64   `json:"posts_count"`
	FollowersStart int64   `json:"followers_start"`
	FollowersEnd   int64   `json:"followers_end"`
	FollowerGrowth int64   `json:"follower_growth"`
	EMVTotal       float64 `json:"emv_total"`
	EMVViews       float64 `json:"emv_views"`
	EMVLikes       float64 `json:"emv_likes"`
	EMVComments    float64 `json:"emv_comments"`
	EMVShares      float64 `json:"emv_shares"`
	EMVOther       float64 `json:"emv_other"`
}

// EngagementRate returns engagements/impressions as a percentage, or 0 when
// there were no impressions.
func EngagementRate(engagements, impressions float64) float64 {
	if impressions == 0 {
		return 0
	}
	return engagements / impressions * 100
}

// PercentChange returns the change from previous to current in percent.
// A zero baseline reports 100 when current grew and 0 otherwise.
func PercentChange(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return (current - previous) / previous * 100
}

// Add accumulates the flow counters of o into r. Followers is a snapshot and
// is left untouched.
func (r *DailyMetricRow) Add(o DailyMetricRow) {
	r.Impressions += o.Impressions
	r.Engagements += o.Engagements
	r.Reactions += o.Reactions
	r.Comments += o.Comments
	r.Shares += o.Shares
	r.Saves += o.Saves
	r.VideoViews += o.VideoViews
	r.Clicks += o.Clicks
	r.FollowerGrowth += o.FollowerGrowth
	r.PostsPublished += o.PostsPublished
}

// LatestFollowers returns the follower snapshot of the most recent date in
// rows, or 0 when rows is empty. Rows may be unordered.
func LatestFollowers(rows []DailyMetricRow) int64 {
	var latest string
	var followers int64
	for _, r := range rows {
		if r.Date >= latest {
			latest = r.Date
			followers = r.Followers
		}
	}
	return followers
}

// EarliestFollowers returns the follower snapshot of the oldest date in rows.
func EarliestFollowers(rows []DailyMetricRow) int64 {
	var earliest string
	var followers int64
	for i, r := range rows {
		if i == 0 || r.Date < earliest {
			earliest = r.Date
			followers = r.Followers
		}
	}
	return followers
}

// GroupByPlatform splits rows by platform id.
func GroupByPlatform(rows []DailyMetricRow) map[string][]DailyMetricRow {
	out := make(map[string][]DailyMetricRow)
	for _, r := range rows {
		out[r.Platform] = append(out[r.Platform], r)
	}
	return out
}
