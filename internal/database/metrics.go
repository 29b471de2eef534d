package database

import (
	"database/sql"
	"fmt"

	"github.com/TobiSchelling/SocialPulse/internal/model"
)

const dailyColumns = `date, platform, impressions, engagements, reactions, comments, shares,
	saves, video_views, clicks, followers, follower_growth, posts_published`

const upsertDailySQL = `INSERT INTO daily_metrics (` + dailyColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(date, platform) DO UPDATE SET
		impressions = excluded.impressions,
		engagements = excluded.engagements,
		reactions = excluded.reactions,
		comments = excluded.comments,
		shares = excluded.shares,
		saves = excluded.saves,
		video_views = excluded.video_views,
		clicks = excluded.clicks,
		followers = excluded.followers,
		follower_growth = excluded.follower_growth,
		posts_published = excluded.posts_published,
		updated_at = datetime('now')`

func dailyArgs(r model.DailyMetricRow) []any {
	return []any{r.Date, r.Platform, r.Impressions, r.Engagements, r.Reactions, r.Comments,
		r.Shares, r.Saves, r.VideoViews, r.Clicks, r.Followers, r.FollowerGrowth, r.PostsPublished}
}

// UpsertDailyMetric inserts or replaces one day of one platform's metrics.
func (db *DB) UpsertDailyMetric(r model.DailyMetricRow) error {
	_, err := db.conn.Exec(upsertDailySQL, dailyArgs(r)...)
	return err
}

// UpsertDailyMetrics writes rows in a single transaction and returns how many
// were written.
func (db *DB) UpsertDailyMetrics(rows []model.DailyMetricRow) (int, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	stmt, err := tx.Prepare(upsertDailySQL)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(dailyArgs(r)...); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("upserting %s/%s: %w", r.Date, r.Platform, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// GetDailyMetrics returns rows with start <= date <= end, ordered by date then
// platform. Empty bounds are open.
func (db *DB) GetDailyMetrics(start, end string) ([]model.DailyMetricRow, error) {
	query := `SELECT ` + dailyColumns + ` FROM daily_metrics WHERE 1=1`
	var args []any
	if start != "" {
		query += " AND date >= ?"
		args = append(args, start)
	}
	if end != "" {
		query += " AND date <= ?"
		args = append(args, end)
	}
	query += " ORDER BY date, platform"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDailyMetrics(rows)
}

// GetDailyMetricDateRange returns the earliest and latest stored dates, or
// two empty strings when there are none.
func (db *DB) GetDailyMetricDateRange() (string, string, error) {
	var first, last sql.NullString
	if err := db.conn.QueryRow("SELECT MIN(date), MAX(date) FROM daily_metrics").Scan(&first, &last); err != nil {
		return "", "", err
	}
	return first.String, last.String, nil
}

func scanDailyMetrics(rows *sql.Rows) ([]model.DailyMetricRow, error) {
	var out []model.DailyMetricRow
	for rows.Next() {
		var r model.DailyMetricRow
		if err := rows.Scan(&r.Date, &r.Platform, &r.Impressions, &r.Engagements, &r.Reactions,
			&r.Comments, &r.Shares, &r.Saves, &r.VideoViews, &r.Clicks, &r.Followers,
			&r.FollowerGrowth, &r.PostsPublished); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
