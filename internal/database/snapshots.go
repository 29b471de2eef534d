package database

import (
	"database/sql"
	"fmt"

	"github.com/TobiSchelling/SocialPulse/internal/model"
)

const snapshotColumns = `week_start, week_end, platform, impressions, engagements, reactions,
	comments, shares, saves, video_views, clicks, engagement_rate, posts_count, followers_start,
	followers_end, follower_growth, emv_total, emv_views, emv_likes, emv_comments, emv_shares, emv_other`

// GetWeeklySnapshots returns the snapshot rows of one week ordered by
// platform.
func (db *DB) GetWeeklySnapshots(weekStart string) ([]model.WeeklySnapshotRow, error) {
	rows, err := db.conn.Query(
		`SELECT `+snapshotColumns+` FROM weekly_snapshots WHERE week_start = ? ORDER BY platform`,
		weekStart,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

// GetSnapshotsRange returns snapshot rows for weeks starting within
// [start, end], ordered by week then platform.
func (db *DB) GetSnapshotsRange(start, end string) ([]model.WeeklySnapshotRow, error) {
	rows, err := db.conn.Query(
		`SELECT `+snapshotColumns+` FROM weekly_snapshots
		WHERE week_start >= ? AND week_start <= ? ORDER BY week_start, platform`,
		start, end,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

// UpsertWeeklySnapshots writes a batch of snapshot rows keyed by week_start
// and platform. The batch is all-or-nothing.
func (db *DB) UpsertWeeklySnapshots(rows []model.WeeklySnapshotRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO weekly_snapshots (` + snapshotColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(week_start, platform) DO UPDATE SET
			week_end = excluded.week_end,
			impressions = excluded.impressions,
			engagements = excluded.engagements,
			reactions = excluded.reactions,
			comments = excluded.comments,
			shares = excluded.shares,
			saves = excluded.saves,
			video_views = excluded.video_views,
			clicks = excluded.clicks,
			engagement_rate = excluded.engagement_rate,
			posts_count = excluded.posts_count,
			followers_start = excluded.followers_start,
			followers_end = excluded.followers_end,
			follower_growth = excluded.follower_growth,
			emv_total = excluded.emv_total,
			emv_views = excluded.emv_views,
			emv_likes = excluded.emv_likes,
			emv_comments = excluded.emv_comments,
			emv_shares = excluded.emv_shares,
			emv_other = excluded.emv_other`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(r.WeekStart, r.WeekEnd, r.Platform, r.Impressions, r.Engagements,
			r.Reactions, r.Comments, r.Shares, r.Saves, r.VideoViews, r.Clicks, r.EngagementRate,
			r.PostsCount, r.FollowersStart, r.FollowersEnd, r.FollowerGrowth, r.EMVTotal, r.EMVViews,
			r.EMVLikes, r.EMVComments, r.EMVShares, r.EMVOther); err != nil {
			tx.Rollback()
			return fmt.Errorf("upserting snapshot %s/%s: %w", r.WeekStart, r.Platform, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	db.log.WithField("rows", len(rows)).Debug("upserted weekly snapshots")
	return nil
}

func scanSnapshots(rows *sql.Rows) ([]model.WeeklySnapshotRow, error) {
	var out []model.WeeklySnapshotRow
	for rows.Next() {
		var r model.WeeklySnapshotRow
		if err := rows.Scan(&r.WeekStart, &r.WeekEnd, &r.Platform, &r.Impressions, &r.Engagements,
			&r.Reactions, &r.Comments, &r.Shares, &r.Saves, &r.VideoViews, &r.Clicks, &r.EngagementRate,
			&r.PostsCount, &r.FollowersStart, &r.FollowersEnd, &r.FollowerGrowth, &r.EMVTotal, &r.EMVViews,
			&r.EMVLikes, &r.EMVComments, &r.EMVShares, &r.EMVOther); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
