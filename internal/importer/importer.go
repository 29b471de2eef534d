// Package importer loads daily metric exports into the store.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/TobiSchelling/SocialPulse/internal/calendar"
	"github.com/TobiSchelling/SocialPulse/internal/database"
	"github.com/TobiSchelling/SocialPulse/internal/model"
)

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing required column")

// Header names and the aliases accepted for them.
var columnAliases = map[string]string{
	"date":            "date",
	"day":             "date",
	"platform":        "platform",
	"impressions":     "impressions",
	"engagements":     "engagements",
	"reactions":       "reactions",
	"likes":           "reactions",
	"comments":        "comments",
	"shares":          "shares",
	"saves":           "saves",
	"video_views":     "video_views",
	"videoviews":      "video_views",
	"views":           "video_views",
	"clicks":          "clicks",
	"followers":       "followers",
	"follower_growth": "follower_growth",
	"followergrowth":  "follower_growth",
	"posts_published": "posts_published",
	"postspublished":  "posts_published",
	"posts":           "posts_published",
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ReplaceAll(h, " ", "_")
}

// ParseDailyMetrics reads daily metric rows from CSV with a header line.
// Columns are matched by name in any order; date and platform are required
// and missing counters read as zero. When engagements is absent it is the sum
// of reactions, comments, shares, saves and clicks.
func ParseDailyMetrics(r io.Reader) ([]model.DailyMetricRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	index := make(map[string]int)
	for i, h := range header {
		if name, ok := columnAliases[normalizeHeader(h)]; ok {
			if _, seen := index[name]; !seen {
				index[name] = i
			}
		}
	}
	for _, required := range []string{"date", "platform"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}
	_, hasEngagements := index["engagements"]

	var rows []model.DailyMetricRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row, err := parseRecord(record, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !hasEngagements {
			row.Engagements = row.Reactions + row.Comments + row.Shares + row.Saves + row.Clicks
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRecord(record []string, index map[string]int) (model.DailyMetricRow, error) {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var row model.DailyMetricRow
	date := field("date")
	if _, err := calendar.ParseDate(date); err != nil {
		return row, err
	}
	row.Date = date
	row.Platform = strings.ToLower(field("platform"))
	if row.Platform == "" {
		return row, errors.New("empty platform")
	}

	counters := []struct {
		name string
		dst  *int64
	}{
		{"impressions", &row.Impressions},
		{"engagements", &row.Engagements},
		{"reactions", &row.Reactions},
		{"comments", &row.Comments},
		{"shares", &row.Shares},
		{"saves", &row.Saves},
		{"video_views", &row.VideoViews},
		{"clicks", &row.Clicks},
		{"followers", &row.Followers},
		{"follower_growth", &row.FollowerGrowth},
		{"posts_published", &row.PostsPublished},
	}
	for _, c := range counters {
		v := strings.ReplaceAll(field(c.name), ",", "")
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(v, 64)
			if ferr != nil {
				return row, fmt.Errorf("%s: invalid number %q", c.name, v)
			}
			n = int64(f)
		}
		*c.dst = n
	}
	return row, nil
}

// Result summarizes an import.
type Result struct {
	Rows      int
	Platforms []string
	FirstDate string
	LastDate  string
}

// Importer writes parsed exports to the store.
type Importer struct {
	db  *database.DB
	log logrus.FieldLogger
}

// New creates an Importer.
func New(db *database.DB, log logrus.FieldLogger) *Importer {
	return &Importer{db: db, log: log}
}

// ImportDailyMetrics parses r and upserts its rows in one transaction.
func (im *Importer) ImportDailyMetrics(r io.Reader) (*Result, error) {
	rows, err := ParseDailyMetrics(r)
	if err != nil {
		return nil, err
	}
	result := &Result{}
	if len(rows) == 0 {
		return result, nil
	}

	n, err := im.db.UpsertDailyMetrics(rows)
	if err != nil {
		return nil, fmt.Errorf("storing daily metrics: %w", err)
	}
	result.Rows = n

	seen := make(map[string]bool)
	for _, row := range rows {
		if !seen[row.Platform] {
			seen[row.Platform] = true
			result.Platforms = append(result.Platforms, row.Platform)
		}
		if result.FirstDate == "" || row.Date < result.FirstDate {
			result.FirstDate = row.Date
		}
		if row.Date > result.LastDate {
			result.LastDate = row.Date
		}
	}
	im.log.WithFields(logrus.Fields{
		"rows":  result.Rows,
		"first": result.FirstDate,
		"last":  result.LastDate,
	}).Info("imported daily metrics")
	return result, nil
}

// ImportDailyMetricsFile imports the CSV file at path.
func (im *Importer) ImportDailyMetricsFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return im.ImportDailyMetrics(f)
}
