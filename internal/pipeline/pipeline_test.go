package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TobiSchelling/SocialPulse/internal/calendar"
	"github.com/TobiSchelling/SocialPulse/internal/config"
	"github.com/TobiSchelling/SocialPulse/internal/database"
	"github.com/TobiSchelling/SocialPulse/internal/model"
)

var now = time.Date(2025, 1, 15, 12, 0, 0, 0, calendar.SAST)

func setup(t *testing.T) (*Pipeline, *database.DB) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.UpsertDailyMetrics([]model.DailyMetricRow{
		{Date: "2025-01-07", Platform: "instagram", Engagements: 120, Impressions: 3000},
		{Date: "2025-01-08", Platform: "tiktok", Engagements: 80, Impressions: 1000},
		{Date: "2025-01-14", Platform: "instagram", Engagements: 30, Impressions: 900},
	}); err != nil {
		t.Fatalf("failed to seed daily metrics: %v", err)
	}
	if _, err := db.InsertPost(model.Post{
		ID:          "p1",
		Platform:    "instagram",
		Content:     "Behind the scenes",
		Engagements: 90,
		CreatedAt:   time.Date(2025, 1, 8, 18, 0, 0, 0, calendar.SAST),
	}); err != nil {
		t.Fatalf("failed to seed post: %v", err)
	}

	cfg := &config.Config{
		Currency:  "ZAR",
		Platforms: []config.Platform{{ID: "instagram", Name: "Instagram"}, {ID: "tiktok", Name: "TikTok"}},
		EMV:       config.EMV{Currency: "ZAR"},
	}
	return New(cfg, db, Options{Clock: calendar.FixedClock(now)}), db
}

func TestRun(t *testing.T) {
	p, db := setup(t)

	result := p.Run(context.Background(), 7)

	if result.PeriodID != "2025-01-08..2025-01-15" {
		t.Errorf("unexpected period %q", result.PeriodID)
	}
	if result.Failed() {
		t.Fatalf("expected no failed steps, got %+v", result.Steps)
	}
	names := make([]string, len(result.Steps))
	for i, s := range result.Steps {
		names[i] = s.Name
	}
	if strings.Join(names, ",") != "Collect,Fetch,Snapshot,Report" {
		t.Errorf("unexpected steps %v", names)
	}
	if result.Steps[0].Summary != "No feeds configured" {
		t.Errorf("unexpected collect summary %q", result.Steps[0].Summary)
	}
	if !strings.Contains(result.Steps[2].Summary, "Stored 6 snapshot rows") {
		t.Errorf("unexpected snapshot summary %q", result.Steps[2].Summary)
	}

	for _, week := range []string{"2025-01-06", "2025-01-13"} {
		rows, err := db.GetWeeklySnapshots(week)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(rows) != 3 {
			t.Errorf("expected 3 snapshot rows for %s, got %d", week, len(rows))
		}
	}

	report, err := db.GetWeeklyReport("2025-01-06")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report == nil {
		t.Fatal("expected a stored report")
	}
	if !strings.Contains(report.BodyMarkdown, "Behind the scenes") {
		t.Error("expected the week's top post in the report")
	}

	last, err := db.GetLastRunDate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if last != "2025-01-15" {
		t.Errorf("expected last run date 2025-01-15, got %q", last)
	}
}

func TestDryRun(t *testing.T) {
	p, _ := setup(t)

	result := p.DryRun(0)
	if result.PeriodID != "2025-01-08..2025-01-15" {
		t.Errorf("expected a week back without prior runs, got %q", result.PeriodID)
	}
	if len(result.Steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(result.Steps))
	}
	for _, s := range result.Steps {
		if !strings.HasPrefix(s.Summary, "[dry-run]") {
			t.Errorf("expected dry-run summary, got %q", s.Summary)
		}
	}
	if !strings.Contains(result.Steps[3].Summary, "Would compose report for 2025-01-06") {
		t.Errorf("unexpected report summary %q", result.Steps[3].Summary)
	}

	p.Run(context.Background(), 0)

	result = p.DryRun(0)
	if result.PeriodID != "2025-01-15" {
		t.Errorf("expected collection to resume from the last run, got %q", result.PeriodID)
	}
	if !strings.Contains(result.Steps[3].Summary, "already exists") {
		t.Errorf("unexpected report summary %q", result.Steps[3].Summary)
	}
}
