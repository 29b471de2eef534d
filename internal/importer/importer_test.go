package importer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TobiSchelling/SocialPulse/internal/database"
	"github.com/TobiSchelling/SocialPulse/internal/logging"
)

func TestParseDailyMetrics(t *testing.T) {
	input := "Date,Platform,Impressions,Engagements,Likes,Video Views,Followers\n" +
		"2025-01-06,Instagram,\"1,200\",80,60,300,5000\n" +
		"2025-01-07,tiktok,900,,,,\n"

	rows, err := ParseDailyMetrics(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	r := rows[0]
	if r.Date != "2025-01-06" || r.Platform != "instagram" {
		t.Errorf("unexpected key %s/%s", r.Date, r.Platform)
	}
	if r.Impressions != 1200 || r.Engagements != 80 || r.Reactions != 60 || r.VideoViews != 300 || r.Followers != 5000 {
		t.Errorf("unexpected counters %+v", r)
	}
	if rows[1].Impressions != 900 || rows[1].Engagements != 0 {
		t.Errorf("expected blank counters to read as zero, got %+v", rows[1])
	}
}

func TestParseDailyMetricsDerivesEngagements(t *testing.T) {
	input := "date,platform,reactions,comments,shares,saves,clicks\n2025-01-06,facebook,10,5,3,2,1\n"

	rows, err := ParseDailyMetrics(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows[0].Engagements != 21 {
		t.Errorf("expected derived engagements 21, got %d", rows[0].Engagements)
	}
}

func TestParseDailyMetricsErrors(t *testing.T) {
	_, err := ParseDailyMetrics(strings.NewReader("platform,impressions\ninstagram,1\n"))
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}

	_, err = ParseDailyMetrics(strings.NewReader("date,platform\n06/01/2025,instagram\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected line 2 date error, got %v", err)
	}

	_, err = ParseDailyMetrics(strings.NewReader("date,platform,impressions\n2025-01-06,instagram,lots\n"))
	if err == nil || !strings.Contains(err.Error(), "impressions") {
		t.Errorf("expected impressions error, got %v", err)
	}

	rows, err := ParseDailyMetrics(strings.NewReader(""))
	if err != nil || rows != nil {
		t.Errorf("expected empty input to give no rows, got %v, %v", rows, err)
	}
}

func TestImportDailyMetricsFile(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	defer db.Close()

	path := filepath.Join(t.TempDir(), "daily.csv")
	content := "date,platform,engagements\n" +
		"2025-01-07,instagram,20\n" +
		"2025-01-06,instagram,10\n" +
		"2025-01-06,tiktok,5\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write csv: %v", err)
	}

	im := New(db, logging.Discard())
	result, err := im.ImportDailyMetricsFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Rows != 3 {
		t.Errorf("expected 3 rows, got %d", result.Rows)
	}
	if result.FirstDate != "2025-01-06" || result.LastDate != "2025-01-07" {
		t.Errorf("unexpected range %s..%s", result.FirstDate, result.LastDate)
	}
	if len(result.Platforms) != 2 || result.Platforms[0] != "instagram" {
		t.Errorf("unexpected platforms %v", result.Platforms)
	}

	stored, err := db.GetDailyMetrics("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stored) != 3 {
		t.Errorf("expected 3 stored rows, got %d", len(stored))
	}

	if _, err := im.ImportDailyMetricsFile(path); err != nil {
		t.Fatalf("unexpected error on reimport: %v", err)
	}
	stored, _ = db.GetDailyMetrics("", "")
	if len(stored) != 3 {
		t.Errorf("expected reimport to upsert, got %d rows", len(stored))
	}
}
