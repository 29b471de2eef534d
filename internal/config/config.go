package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Currency      string     `yaml:"currency"`
	Platforms     []Platform `yaml:"platforms"`
	EMV           EMV        `yaml:"emv"`
	Shows         []Show     `yaml:"shows"`
	Talent        []Talent   `yaml:"talent"`
	BrandHashtags []string   `yaml:"brand_hashtags"`
	Anomaly       Anomaly    `yaml:"anomaly"`
	Alerts        Alerts     `yaml:"alerts"`
	Insights      Insights   `yaml:"insights"`
	Weekly        Weekly     `yaml:"weekly"`
	Sources       Sources    `yaml:"sources"`
	Output        Output     `yaml:"output"`
	Server        Server     `yaml:"server"`
	Logging       Logging    `yaml:"logging"`
}

type Platform struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Color   string `yaml:"color"`
	Handle  string `yaml:"handle"`
	RateKey string `yaml:"rate_key"`
}

type EMV struct {
	Currency string                        `yaml:"currency"`
	Rates    map[string]map[string]float64 `yaml:"rates"`
}

type Show struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Color    string   `yaml:"color"`
	Hashtags []string `yaml:"hashtags"`
	Keywords []string `yaml:"keywords"`
}

type Talent struct {
	ID       string            `yaml:"id"`
	Name     string            `yaml:"name"`
	Color    string            `yaml:"color"`
	Accounts map[string]string `yaml:"accounts"`
}

type Anomaly struct {
	WindowDays           int     `yaml:"window_days"`
	SigmaThreshold       float64 `yaml:"sigma_threshold"`
	MinDataPoints        int     `yaml:"min_data_points"`
	DiscrepancyThreshold float64 `yaml:"discrepancy_threshold"`
}

type Alerts struct {
	Viral          ViralAlert          `yaml:"viral"`
	PostingGap     PostingGapAlert     `yaml:"posting_gap"`
	EngagementDrop EngagementDropAlert `yaml:"engagement_drop"`
	Milestone      MilestoneAlert      `yaml:"milestone"`
}

type ViralAlert struct {
	Enabled    bool    `yaml:"enabled"`
	Multiplier float64 `yaml:"multiplier"`
}

type PostingGapAlert struct {
	Enabled bool    `yaml:"enabled"`
	Hours   float64 `yaml:"hours"`
}

type EngagementDropAlert struct {
	Enabled   bool    `yaml:"enabled"`
	Threshold float64 `yaml:"threshold"`
}

type MilestoneAlert struct {
	Enabled    bool      `yaml:"enabled"`
	Thresholds []float64 `yaml:"thresholds"`
}

type Insights struct {
	Templates map[string]Template `yaml:"templates"`
}

type Template struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

type Weekly struct {
	BenchmarkEngagementRate float64 `yaml:"benchmark_engagement_rate"`
	HistoryWeeks            int     `yaml:"history_weeks"`
}

type Sources struct {
	Feeds []Feed `yaml:"feeds"`
}

type Feed struct {
	URL       string `yaml:"url"`
	Name      string `yaml:"name"`
	Platform  string `yaml:"platform"`
	ProfileID string `yaml:"profile_id"`
	TalentID  string `yaml:"talent_id"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ConfigDir returns the XDG config directory for socialpulse.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "socialpulse")
}

// DataDir returns the XDG data directory for socialpulse.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "socialpulse")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/socialpulse/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'socialpulse init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file, then applies environment
// overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadEnvFiles loads .env and .env.dev from the working directory when
// present. It returns the files that were loaded.
func LoadEnvFiles() []string {
	var loaded []string
	for _, file := range []string{".env", ".env.dev"} {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			continue
		}
		loaded = append(loaded, file)
	}
	return loaded
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Currency: "ZAR",
		Anomaly: Anomaly{
			WindowDays:           7,
			SigmaThreshold:       2.5,
			DiscrepancyThreshold: 0.1,
		},
		Alerts: Alerts{
			Viral:          ViralAlert{Enabled: true, Multiplier: 3},
			PostingGap:     PostingGapAlert{Enabled: true, Hours: 48},
			EngagementDrop: EngagementDropAlert{Enabled: true, Threshold: 0.7},
			Milestone:      MilestoneAlert{Enabled: true, Thresholds: []float64{1000, 5000, 10000, 50000, 100000}},
		},
		Weekly:  Weekly{BenchmarkEngagementRate: 1.5, HistoryWeeks: 12},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "info", Format: "text"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.EMV.Currency == "" {
		cfg.EMV.Currency = cfg.Currency
	}
	return cfg, nil
}

// applyEnv overrides selected settings from the process environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("SOCIALPULSE_DATA_DIR"); v != "" {
		c.Output.DataDir = v
	}
	if v := os.Getenv("SOCIALPULSE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
