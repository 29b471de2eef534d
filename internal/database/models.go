package database

// WeeklyReport is a stored markdown digest for one week.
type WeeklyReport struct {
	ID           int64
	WeekStart    string
	Title        string
	BodyMarkdown string
	InsightCount int
	GeneratedAt  *string
}

// RunReport holds metadata about a pipeline run.
type RunReport struct {
	ID            int64
	PeriodID      string
	GeneratedAt   *string
	PostCount     int
	SnapshotCount int
}

// Stats contains aggregate database statistics.
type Stats struct {
	DailyRows     int
	Platforms     int
	Posts         int
	TalentPosts   int
	SnapshotWeeks int
	Reports       int
	Runs          int
	FirstDate     string
	LastDate      string
}
