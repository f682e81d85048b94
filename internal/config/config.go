// Package config loads the planner's startup configuration.
//
// The file is flat JSON or YAML. Every field is optional; the Get* accessors supply
// defaults for anything the file leaves out, so partial configs are safe.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is where the CLI looks for configuration when -config is not given.
const DefaultConfigPath = "config/drops.json"

// Planner variants accepted by planner_variant.
const (
	VariantIncremental = "incremental"
	VariantAnytime     = "anytime"
)

// Config is the root configuration consumed once at startup.
type Config struct {
	// Grid source
	ServerURL      *string `json:"server_url,omitempty" yaml:"server_url,omitempty"`
	EnvPath        *string `json:"env_path,omitempty" yaml:"env_path,omitempty"`
	RequestTimeout *string `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty"` // duration string like "2s"
	FetchTimeout   *string `json:"fetch_timeout,omitempty" yaml:"fetch_timeout,omitempty"`     // bound on waiting for a fetch

	// Planner
	PlanningTime             *string  `json:"planning_time,omitempty" yaml:"planning_time,omitempty"` // replan wall-clock budget
	InitialEpsilon           *float64 `json:"initial_epsilon,omitempty" yaml:"initial_epsilon,omitempty"`
	SearchForward            *bool    `json:"search_forward,omitempty" yaml:"search_forward,omitempty"`
	SearchUntilFirstSolution *bool    `json:"search_until_first_solution,omitempty" yaml:"search_until_first_solution,omitempty"`
	PlannerVariant           *string  `json:"planner_variant,omitempty" yaml:"planner_variant,omitempty"`

	// Runtime
	WatchInterval *string `json:"watch_interval,omitempty" yaml:"watch_interval,omitempty"`
	JournalPath   *string `json:"journal_path,omitempty" yaml:"journal_path,omitempty"`
	RenderGrid    *bool   `json:"render_grid,omitempty" yaml:"render_grid,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }

// DefaultConfig returns a Config with every field populated with its default.
func DefaultConfig() *Config {
	return &Config{
		ServerURL:                ptrString(""),
		EnvPath:                  ptrString("/env"),
		RequestTimeout:           ptrString("5s"),
		FetchTimeout:             ptrString("30s"),
		PlanningTime:             ptrString("10s"),
		InitialEpsilon:           ptrFloat64(3.0),
		SearchForward:            ptrBool(false),
		SearchUntilFirstSolution: ptrBool(false),
		PlannerVariant:           ptrString(VariantIncremental),
		WatchInterval:            ptrString("1s"),
		JournalPath:              ptrString(""),
		RenderGrid:               ptrBool(false),
	}
}

// LoadConfig loads a Config from a JSON or YAML file, chosen by extension
// (.json, .yaml or .yml). The file must be under 1MB.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	if c.ServerURL != nil && *c.ServerURL != "" {
		u, err := url.Parse(*c.ServerURL)
		if err != nil {
			return fmt.Errorf("invalid server_url %q: %w", *c.ServerURL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("server_url must be http or https, got %q", u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("server_url %q has no host", *c.ServerURL)
		}
	}

	durations := map[string]*string{
		"request_timeout": c.RequestTimeout,
		"fetch_timeout":   c.FetchTimeout,
		"planning_time":   c.PlanningTime,
		"watch_interval":  c.WatchInterval,
	}
	for name, v := range durations {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", name, *v)
		}
	}

	if c.PlanningTime != nil && *c.PlanningTime != "" {
		if d, _ := time.ParseDuration(*c.PlanningTime); d == 0 {
			return fmt.Errorf("planning_time must be positive")
		}
	}

	if c.InitialEpsilon != nil && *c.InitialEpsilon < 1.0 {
		return fmt.Errorf("initial_epsilon must be >= 1.0, got %f", *c.InitialEpsilon)
	}

	if c.PlannerVariant != nil && *c.PlannerVariant != "" {
		switch strings.ToLower(*c.PlannerVariant) {
		case VariantIncremental, VariantAnytime:
		default:
			return fmt.Errorf("planner_variant must be %q or %q, got %q", VariantIncremental, VariantAnytime, *c.PlannerVariant)
		}
	}
	return nil
}

func parseDurationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}

// GetServerURL returns the grid server base URL, or "" when unset.
func (c *Config) GetServerURL() string {
	if c.ServerURL == nil {
		return ""
	}
	return strings.TrimRight(*c.ServerURL, "/")
}

// GetEnvPath returns the path of the environment endpoint on the grid server.
func (c *Config) GetEnvPath() string {
	if c.EnvPath == nil || *c.EnvPath == "" {
		return "/env"
	}
	if !strings.HasPrefix(*c.EnvPath, "/") {
		return "/" + *c.EnvPath
	}
	return *c.EnvPath
}

// GetEnvURL joins the server URL and environment path.
func (c *Config) GetEnvURL() string {
	return c.GetServerURL() + c.GetEnvPath()
}

// GetRequestTimeout returns the per-request HTTP timeout.
func (c *Config) GetRequestTimeout() time.Duration {
	return parseDurationOr(c.RequestTimeout, 5*time.Second)
}

// GetFetchTimeout returns how long a caller waits for a fetch to complete.
// Zero means wait without a deadline.
func (c *Config) GetFetchTimeout() time.Duration {
	return parseDurationOr(c.FetchTimeout, 30*time.Second)
}

// GetPlanningTime returns the wall-clock budget of a single replan.
func (c *Config) GetPlanningTime() time.Duration {
	return parseDurationOr(c.PlanningTime, 10*time.Second)
}

// GetInitialEpsilon returns the suboptimality bound of the first solution.
func (c *Config) GetInitialEpsilon() float64 {
	if c.InitialEpsilon == nil {
		return 3.0
	}
	return *c.InitialEpsilon
}

// GetSearchForward reports whether the search expands from start to goal.
func (c *Config) GetSearchForward() bool {
	if c.SearchForward == nil {
		return false
	}
	return *c.SearchForward
}

// GetSearchUntilFirstSolution reports whether the anytime search stops at its first solution.
func (c *Config) GetSearchUntilFirstSolution() bool {
	if c.SearchUntilFirstSolution == nil {
		return false
	}
	return *c.SearchUntilFirstSolution
}

// GetPlannerVariant returns the normalized planner variant.
func (c *Config) GetPlannerVariant() string {
	if c.PlannerVariant == nil || *c.PlannerVariant == "" {
		return VariantIncremental
	}
	return strings.ToLower(*c.PlannerVariant)
}

// GetWatchInterval returns the pause between cycles in watch mode.
func (c *Config) GetWatchInterval() time.Duration {
	return parseDurationOr(c.WatchInterval, time.Second)
}

// GetJournalPath returns the sqlite journal path, or "" when journaling is off.
func (c *Config) GetJournalPath() string {
	if c.JournalPath == nil {
		return ""
	}
	return *c.JournalPath
}

// GetRenderGrid reports whether the console grid rendering is printed.
func (c *Config) GetRenderGrid() bool {
	if c.RenderGrid == nil {
		return false
	}
	return *c.RenderGrid
}
