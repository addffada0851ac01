// Package config loads the agent configuration from the environment (plus an
// optional .env file and a .taskpulse.yaml override file) into one explicit
// Config value that is passed to every component. There is no process-wide
// configuration state.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values for agent configuration. Load() references them and no
// other code should duplicate them.
const (
	DefaultLMBaseURL     = "http://127.0.0.1:1234"
	DefaultLMModel       = "openai/gpt-oss-20b"
	DefaultLMTemperature = 0.2

	DefaultHistoryPath    = "reports/assessments.md"
	DefaultHistoryLimit   = 5
	DefaultReportTimezone = "UTC"

	overrideFileName = ".taskpulse.yaml"
)

var (
	defaultCompletedStatuses = []string{"closed", "complete", "completed"}
	defaultActiveStatuses    = []string{"open", "in progress", "to do"}
)

// Config holds every setting the agent needs. Built once by Load at process
// start and handed to component constructors.
type Config struct {
	APIToken       string
	SpeedFieldID   string
	QualityFieldID string

	// Exactly one of ListID / TeamID scopes the task source.
	ListID string
	TeamID string

	TargetStatuses    []string
	AutoCloseStatuses []string
	ClosedStatus      string
	MaxTasks          int // 0 means no cap

	HistoryPath  string
	HistoryLimit int

	LMBaseURL     string
	LMModel       string
	LMAPIKey      string
	LMTemperature float64

	ReportTimezone          string
	ReportCompletedStatuses []string
	ReportActiveStatuses    []string
}

// fileOverrides is the subset of settings that may come from .taskpulse.yaml.
// Environment variables always win over file values.
type fileOverrides struct {
	LMBaseURL      string   `yaml:"lm_base_url,omitempty"`
	LMModel        string   `yaml:"lm_model,omitempty"`
	LMTemperature  *float64 `yaml:"lm_temperature,omitempty"`
	HistoryPath    string   `yaml:"history_path,omitempty"`
	HistoryLimit   *int     `yaml:"history_limit,omitempty"`
	ReportTimezone string   `yaml:"report_timezone,omitempty"`
}

// Load builds the configuration: defaults, then .taskpulse.yaml overrides,
// then environment variables (with .env loaded first when present).
// Missing required settings or a contradictory task-source scope are fatal.
func Load() (*Config, error) {
	// Like the dotenv convention: absence is fine, other errors are not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		LMBaseURL:               DefaultLMBaseURL,
		LMModel:                 DefaultLMModel,
		LMTemperature:           DefaultLMTemperature,
		HistoryPath:             DefaultHistoryPath,
		HistoryLimit:            DefaultHistoryLimit,
		ReportTimezone:          DefaultReportTimezone,
		ReportCompletedStatuses: defaultCompletedStatuses,
		ReportActiveStatuses:    defaultActiveStatuses,
	}

	if err := applyFileOverrides(cfg); err != nil {
		return nil, err
	}
	if err := applyEnv(cfg, os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFileOverrides(cfg *Config) error {
	data, err := os.ReadFile(overrideFileName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", overrideFileName, err)
	}
	var file fileOverrides
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing %s: %w", overrideFileName, err)
	}
	if file.LMBaseURL != "" {
		cfg.LMBaseURL = file.LMBaseURL
	}
	if file.LMModel != "" {
		cfg.LMModel = file.LMModel
	}
	if file.LMTemperature != nil {
		cfg.LMTemperature = *file.LMTemperature
	}
	if file.HistoryPath != "" {
		cfg.HistoryPath = file.HistoryPath
	}
	if file.HistoryLimit != nil {
		cfg.HistoryLimit = *file.HistoryLimit
	}
	if file.ReportTimezone != "" {
		cfg.ReportTimezone = file.ReportTimezone
	}
	return nil
}

// applyEnv reads settings from getenv. Split out for testing.
func applyEnv(cfg *Config, getenv func(string) string) error {
	cfg.APIToken = getenv("CLICKUP_API_TOKEN")
	cfg.SpeedFieldID = getenv("CLICKUP_SPEED_FIELD_ID")
	cfg.QualityFieldID = getenv("CLICKUP_QUALITY_FIELD_ID")
	cfg.ListID = strings.TrimSpace(getenv("CLICKUP_LIST_ID"))
	cfg.TeamID = strings.TrimSpace(getenv("CLICKUP_TEAM_ID"))
	cfg.ClosedStatus = strings.TrimSpace(getenv("CLICKUP_CLOSED_STATUS"))

	if v := getenv("CLICKUP_TARGET_STATUSES"); v != "" {
		cfg.TargetStatuses = SplitList(v)
	}
	if v := getenv("CLICKUP_AUTO_CLOSE_STATUSES"); v != "" {
		cfg.AutoCloseStatuses = SplitList(v)
	}

	var err error
	if cfg.MaxTasks, err = intEnv(getenv, "CLICKUP_MAX_TASKS", 0); err != nil {
		return err
	}
	if cfg.MaxTasks < 0 {
		cfg.MaxTasks = 0
	}
	if cfg.HistoryLimit, err = intEnv(getenv, "ASSESSMENT_HISTORY_LIMIT", cfg.HistoryLimit); err != nil {
		return err
	}
	if v := getenv("ASSESSMENT_HISTORY_PATH"); v != "" {
		cfg.HistoryPath = v
	}

	if v := getenv("LM_BASE_URL"); v != "" {
		cfg.LMBaseURL = v
	}
	if v := getenv("LM_MODEL"); v != "" {
		cfg.LMModel = v
	}
	cfg.LMAPIKey = getenv("LM_API_KEY")
	if v := getenv("LM_TEMPERATURE"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("cannot parse LM_TEMPERATURE %q as a number", v)
		}
		cfg.LMTemperature = t
	}

	if v := getenv("REPORT_TIMEZONE"); v != "" {
		cfg.ReportTimezone = v
	}
	if v := getenv("REPORT_COMPLETED_STATUSES"); v != "" {
		if extra := SplitList(v); len(extra) > 0 {
			cfg.ReportCompletedStatuses = append(append([]string{}, defaultCompletedStatuses...), extra...)
		}
	}
	if v := getenv("REPORT_ACTIVE_STATUSES"); v != "" {
		if statuses := SplitList(v); len(statuses) > 0 {
			cfg.ReportActiveStatuses = statuses
		}
	}

	return nil
}

func (c *Config) validate() error {
	var missing []string
	for _, required := range []struct {
		key   string
		value string
	}{
		{"CLICKUP_API_TOKEN", c.APIToken},
		{"CLICKUP_SPEED_FIELD_ID", c.SpeedFieldID},
		{"CLICKUP_QUALITY_FIELD_ID", c.QualityFieldID},
	} {
		if strings.TrimSpace(required.value) == "" {
			missing = append(missing, required.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if (c.ListID == "") == (c.TeamID == "") {
		return errors.New("exactly one task source must be set: CLICKUP_LIST_ID or CLICKUP_TEAM_ID")
	}

	if _, err := time.LoadLocation(c.ReportTimezone); err != nil {
		return fmt.Errorf("invalid REPORT_TIMEZONE %q: %w", c.ReportTimezone, err)
	}

	return nil
}

// ReportLocation returns the report timezone, which Load has already
// validated.
func (c *Config) ReportLocation() *time.Location {
	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NormalizedTargetStatuses returns the target status allow-list lowercased,
// or nil when no filter is configured.
func (c *Config) NormalizedTargetStatuses() []string {
	return lowerAll(c.TargetStatuses)
}

// NormalizedAutoCloseStatuses returns the auto-close allow-list lowercased,
// or nil when auto-close is not configured.
func (c *Config) NormalizedAutoCloseStatuses() []string {
	return lowerAll(c.AutoCloseStatuses)
}

func lowerAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.ToLower(strings.TrimSpace(v)); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SplitList splits a comma-separated setting into trimmed non-empty items.
func SplitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func intEnv(getenv func(string) string, key string, fallback int) (int, error) {
	raw := getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("cannot parse %s %q as an integer", key, raw)
	}
	return value, nil
}
