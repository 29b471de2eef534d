package database

import (
	"database/sql"
)

// InsertWeeklyReport inserts or replaces the digest for a week.
func (db *DB) InsertWeeklyReport(weekStart, title, bodyMarkdown string, insightCount int) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT OR REPLACE INTO weekly_reports (week_start, title, body_markdown, insight_count)
		VALUES (?, ?, ?, ?)`,
		weekStart, title, bodyMarkdown, insightCount,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetWeeklyReport returns the digest for a week, or nil if none was stored.
func (db *DB) GetWeeklyReport(weekStart string) (*WeeklyReport, error) {
	row := db.conn.QueryRow(
		`SELECT id, week_start, title, body_markdown, insight_count, generated_at
		FROM weekly_reports WHERE week_start = ?`, weekStart,
	)

	var r WeeklyReport
	if err := row.Scan(&r.ID, &r.WeekStart, &r.Title, &r.BodyMarkdown, &r.InsightCount, &r.GeneratedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// GetAllWeeklyReports returns all digests ordered by week_start DESC.
func (db *DB) GetAllWeeklyReports() ([]WeeklyReport, error) {
	rows, err := db.conn.Query(
		"SELECT id, week_start, title, body_markdown, insight_count, generated_at FROM weekly_reports ORDER BY week_start DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []WeeklyReport
	for rows.Next() {
		var r WeeklyReport
		if err := rows.Scan(&r.ID, &r.WeekStart, &r.Title, &r.BodyMarkdown, &r.InsightCount, &r.GeneratedAt); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// InsertRunReport inserts or replaces a pipeline run report.
func (db *DB) InsertRunReport(periodID string, postCount, snapshotCount int) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT OR REPLACE INTO run_reports (period_id, post_count, snapshot_count)
		VALUES (?, ?, ?)`,
		periodID, postCount, snapshotCount,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetLastRunDate returns the end date from the most recent run report.
// Returns empty string if no runs exist.
func (db *DB) GetLastRunDate() (string, error) {
	row := db.conn.QueryRow(
		"SELECT period_id FROM run_reports ORDER BY period_id DESC LIMIT 1",
	)

	var periodID string
	if err := row.Scan(&periodID); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return PeriodEndDate(periodID), nil
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM daily_metrics", &s.DailyRows},
		{"SELECT COUNT(DISTINCT platform) FROM daily_metrics", &s.Platforms},
		{"SELECT COUNT(*) FROM posts", &s.Posts},
		{"SELECT COUNT(*) FROM posts WHERE talent_id IS NOT NULL AND talent_id != ''", &s.TalentPosts},
		{"SELECT COUNT(DISTINCT week_start) FROM weekly_snapshots", &s.SnapshotWeeks},
		{"SELECT COUNT(*) FROM weekly_reports", &s.Reports},
		{"SELECT COUNT(*) FROM run_reports", &s.Runs},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	first, last, err := db.GetDailyMetricDateRange()
	if err != nil {
		return nil, err
	}
	s.FirstDate, s.LastDate = first, last
	return s, nil
}
