package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/TobiSchelling/SocialPulse/internal/calendar"
	"github.com/TobiSchelling/SocialPulse/internal/model"
)

// timeLayout stores timestamps as UTC so they sort lexically.
const timeLayout = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

const postColumns = `id, platform, COALESCE(profile_id, ''), COALESCE(talent_id, ''), created_at,
	COALESCE(content, ''), COALESCE(permalink, ''), impressions, engagements, reactions, comments,
	shares, saves, video_views, clicks, emv`

const postInsertColumns = `id, platform, profile_id, talent_id, created_at, content, permalink,
	impressions, engagements, reactions, comments, shares, saves, video_views, clicks, emv`

func postArgs(p model.Post) []any {
	return []any{p.ID, p.Platform, nullable(p.ProfileID), nullable(p.TalentID), formatTime(p.CreatedAt),
		p.Content, nullable(p.Permalink), p.Impressions, p.Engagements, p.Reactions, p.Comments,
		p.Shares, p.Saves, p.VideoViews, p.Clicks, p.EMV}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// InsertPost inserts a post. Returns 1 on success, 0 if the id already exists.
func (db *DB) InsertPost(p model.Post) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT OR IGNORE INTO posts (`+postInsertColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		postArgs(p)...,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// UpsertPost inserts a post or refreshes the counters of an existing one.
// Fetched content is kept when the update carries none.
func (db *DB) UpsertPost(p model.Post) error {
	_, err := db.conn.Exec(
		`INSERT INTO posts (`+postInsertColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = CASE WHEN excluded.content = '' THEN posts.content ELSE excluded.content END,
			impressions = excluded.impressions,
			engagements = excluded.engagements,
			reactions = excluded.reactions,
			comments = excluded.comments,
			shares = excluded.shares,
			saves = excluded.saves,
			video_views = excluded.video_views,
			clicks = excluded.clicks,
			emv = excluded.emv`,
		postArgs(p)...,
	)
	return err
}

// GetPosts returns posts created in [start, end), newest first. A zero bound
// is open.
func (db *DB) GetPosts(start, end time.Time) ([]model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE 1=1`
	var args []any
	if !start.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, formatTime(start))
	}
	if !end.IsZero() {
		query += " AND created_at < ?"
		args = append(args, formatTime(end))
	}
	query += " ORDER BY created_at DESC"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows)
}

// GetPostByID returns a single post, or nil if it does not exist.
func (db *DB) GetPostByID(id string) (*model.Post, error) {
	rows, err := db.conn.Query(`SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	posts, err := scanPosts(rows)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, nil
	}
	return &posts[0], nil
}

// GetPostsNeedingFetch returns posts with a permalink but no content that
// have not been fetched yet, newest first. limit <= 0 means no limit.
func (db *DB) GetPostsNeedingFetch(limit int) ([]model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE (content IS NULL OR content = '') AND permalink IS NOT NULL AND permalink != ''
		AND content_fetched = 0
		ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows)
}

// UpdatePostContent stores fetched content and marks the post fetched.
func (db *DB) UpdatePostContent(id, content string) error {
	_, err := db.conn.Exec(
		"UPDATE posts SET content = ?, content_fetched = 1 WHERE id = ?",
		content, id,
	)
	return err
}

// MarkPostFetchAttempted marks that we tried to fetch content.
func (db *DB) MarkPostFetchAttempted(id string) error {
	_, err := db.conn.Exec("UPDATE posts SET content_fetched = 1 WHERE id = ?", id)
	return err
}

// GetLastPostTime returns the newest created_at across all posts, or the
// zero time when there are none.
func (db *DB) GetLastPostTime() (time.Time, error) {
	var last sql.NullString
	if err := db.conn.QueryRow("SELECT MAX(created_at) FROM posts").Scan(&last); err != nil {
		return time.Time{}, err
	}
	if !last.Valid {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, last.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing created_at %q: %w", last.String, err)
	}
	return t.In(calendar.SAST), nil
}

func scanPosts(rows *sql.Rows) ([]model.Post, error) {
	var posts []model.Post
	for rows.Next() {
		var p model.Post
		var created string
		if err := rows.Scan(&p.ID, &p.Platform, &p.ProfileID, &p.TalentID, &created,
			&p.Content, &p.Permalink, &p.Impressions, &p.Engagements, &p.Reactions, &p.Comments,
			&p.Shares, &p.Saves, &p.VideoViews, &p.Clicks, &p.EMV); err != nil {
			return nil, err
		}
		t, err := time.Parse(timeLayout, created)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at of post %s: %w", p.ID, err)
		}
		p.CreatedAt = t.In(calendar.SAST)
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
