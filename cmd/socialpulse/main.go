package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/SocialPulse/internal/calendar"
	"github.com/TobiSchelling/SocialPulse/internal/collect"
	"github.com/TobiSchelling/SocialPulse/internal/config"
	"github.com/TobiSchelling/SocialPulse/internal/dashboard"
	"github.com/TobiSchelling/SocialPulse/internal/database"
	"github.com/TobiSchelling/SocialPulse/internal/importer"
	"github.com/TobiSchelling/SocialPulse/internal/logging"
	"github.com/TobiSchelling/SocialPulse/internal/metrics"
	"github.com/TobiSchelling/SocialPulse/internal/pipeline"
	"github.com/TobiSchelling/SocialPulse/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     *logrus.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "socialpulse",
	Short:   "Social media analytics dashboard",
	Long:    "SocialPulse stores daily platform metrics and posts, and serves lifetime, weekly, live, show and talent views over them.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		config.LoadEnvFiles()
		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		logger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		}
		logger.WithField("config", path).Debug("config loaded")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(lifetimeCmd)
	rootCmd.AddCommand(weeklyCmd)
	rootCmd.AddCommand(liveCmd)
	rootCmd.AddCommand(showsCmd)
	rootCmd.AddCommand(talentCmd)
	rootCmd.AddCommand(anomaliesCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("socialpulse", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/socialpulse/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure platforms, EMV rates, shows, talent and feeds.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}
		lastRun, err := db.GetLastRunDate()
		if err != nil {
			return fmt.Errorf("getting last run: %w", err)
		}

		fmt.Printf("Today: %s\n\n", database.GetToday())
		fmt.Println("Daily metrics:")
		fmt.Printf("  Rows: %d\n", stats.DailyRows)
		fmt.Printf("  Platforms: %d\n", stats.Platforms)
		if stats.FirstDate != "" {
			fmt.Printf("  Range: %s to %s\n", stats.FirstDate, stats.LastDate)
		}
		fmt.Println("\nPosts:")
		fmt.Printf("  Total: %d\n", stats.Posts)
		fmt.Printf("  Attributed to talent: %d\n", stats.TalentPosts)
		fmt.Println("\nOutput:")
		fmt.Printf("  Snapshot weeks: %d\n", stats.SnapshotWeeks)
		fmt.Printf("  Weekly reports: %d\n", stats.Reports)
		fmt.Printf("  Pipeline runs: %d\n", stats.Runs)
		if lastRun != "" {
			fmt.Printf("  Last run: %s\n", lastRun)
		}
		return nil
	},
}

// --- collect command ---

var collectDays int

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect posts from configured feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		svc := newService(db, nil)
		collector := collect.NewCollector(cfg, db, svc.Registry().Calculator(), nil, logger)
		if !collector.HasSources() {
			fmt.Println("No feeds configured. Add some under sources.feeds in the config.")
			return nil
		}

		since := calendar.StartOfDay(svc.Now().AddDate(0, 0, -collectDays))
		fmt.Printf("Collecting posts since %s...\n", calendar.DateOf(since))
		result := collector.Collect(cmd.Context(), since)

		fmt.Println("\nCollection complete:")
		fmt.Printf("  Total found: %d\n", result.TotalFound)
		fmt.Printf("  New posts: %d\n", result.NewPosts)
		fmt.Printf("  Updated: %d\n", result.Updated)
		fmt.Printf("  Failed: %d\n", result.Failed)

		if len(result.Platforms) > 0 {
			fmt.Println("\nPosts by platform:")
			type kv struct {
				key string
				val int
			}
			var sorted []kv
			for k, v := range result.Platforms {
				sorted = append(sorted, kv{k, v})
			}
			sort.Slice(sorted, func(i, j int) bool { return sorted[i].val > sorted[j].val })
			for _, p := range sorted {
				fmt.Printf("  %s: %d\n", svc.Registry().PlatformName(p.key), p.val)
			}
		}
		return nil
	},
}

func init() {
	collectCmd.Flags().IntVar(&collectDays, "days", 7, "Collect posts published in the last N days")
}

// --- run command ---

var (
	dryRun   bool
	daysBack int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: collect -> fetch -> snapshot -> report",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(cfg, db, pipeline.Options{Log: logger})

		var result *pipeline.Result
		if dryRun {
			result = pipe.DryRun(daysBack)
		} else {
			result = pipe.Run(cmd.Context(), daysBack)
		}

		fmt.Printf("Period: %s\n", database.FormatPeriodDisplay(result.PeriodID))
		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/4: %s\n", i+1, step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if result.Failed() {
			return fmt.Errorf("pipeline failed")
		}
		if !dryRun {
			fmt.Println("\nPipeline complete! Run 'socialpulse serve' to view the report.")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
	runCmd.Flags().IntVar(&daysBack, "days", 0, "Override lookback window (days); 0 resumes from the last run")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		m := metrics.NewCollector()
		srv, err := server.New(db, newService(db, m), m, logger)
		if err != nil {
			return err
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return srv.ListenAndServe(ctx, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

// --- import command ---

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import exported metrics into the store",
}

var importDailyCmd = &cobra.Command{
	Use:   "daily [file.csv]",
	Short: "Import daily platform metrics from a CSV export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := importer.New(db, logger).ImportDailyMetricsFile(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d rows for %d platforms", result.Rows, len(result.Platforms))
		if result.Rows > 0 {
			fmt.Printf(" (%s to %s)", result.FirstDate, result.LastDate)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	importCmd.AddCommand(importDailyCmd)
}

// --- view commands ---

var (
	viewDays int
	viewWeek string
)

var lifetimeCmd = &cobra.Command{
	Use:   "lifetime",
	Short: "Print the lifetime dashboard as JSON",
	RunE: viewRunner(func(ctx context.Context, svc *dashboard.Service, args []string) (any, error) {
		return svc.Lifetime(ctx)
	}),
}

var weeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Print the week-over-week comparison as JSON",
	RunE: viewRunner(func(ctx context.Context, svc *dashboard.Service, args []string) (any, error) {
		week, err := svc.ResolveWeek(viewWeek)
		if err != nil {
			return nil, err
		}
		return svc.Weekly(ctx, week.Start)
	}),
}

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Print today's live view as JSON",
	RunE: viewRunner(func(ctx context.Context, svc *dashboard.Service, args []string) (any, error) {
		return svc.Live(ctx)
	}),
}

var showsCmd = &cobra.Command{
	Use:   "shows [id]",
	Short: "Print the show rollup, or one show's detail, as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: viewRunner(func(ctx context.Context, svc *dashboard.Service, args []string) (any, error) {
		if len(args) == 1 {
			return svc.ShowDetail(ctx, args[0], viewDays)
		}
		return svc.Shows(ctx, viewDays)
	}),
}

var talentCmd = &cobra.Command{
	Use:   "talent [id]",
	Short: "Print the talent rollup, or one person's detail, as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: viewRunner(func(ctx context.Context, svc *dashboard.Service, args []string) (any, error) {
		if len(args) == 1 {
			return svc.TalentDetail(ctx, args[0], viewDays)
		}
		return svc.Talent(ctx, viewDays)
	}),
}

var anomaliesCmd = &cobra.Command{
	Use:   "anomalies",
	Short: "List days that deviate from their trailing baseline",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		svc := newService(db, nil)
		flags, err := svc.Anomalies(cmd.Context())
		if err != nil {
			return err
		}
		if len(flags) == 0 {
			fmt.Println("No anomalies found.")
			return nil
		}
		for _, f := range flags {
			fmt.Printf("%s  %-10s %-12s %10.0f  mean %10.0f  %s %.1f sd\n",
				f.Date, svc.Registry().PlatformName(f.Platform), f.Metric, f.Value, f.Mean, f.Direction, f.Deviations)
		}
		return nil
	},
}

func init() {
	weeklyCmd.Flags().StringVar(&viewWeek, "week", "", "Any date in the week (YYYY-MM-DD); defaults to the current week")
	showsCmd.Flags().IntVar(&viewDays, "days", dashboard.DefaultRollupDays, "Rollup period in days")
	talentCmd.Flags().IntVar(&viewDays, "days", dashboard.DefaultRollupDays, "Rollup period in days")
}

type viewFunc func(ctx context.Context, svc *dashboard.Service, args []string) (any, error)

// viewRunner opens the store, builds one view and prints it as indented JSON.
func viewRunner(build viewFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		v, err := build(cmd.Context(), newService(db, nil), args)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

func newService(db *database.DB, m *metrics.Collector) *dashboard.Service {
	return dashboard.New(cfg, db, dashboard.Options{Metrics: m, Log: logger})
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "socialpulse.db")
	return database.Open(dbPath, logger)
}
