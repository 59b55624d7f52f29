package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Logger   LoggerConfig   `yaml:"logger"`
	Tracer   TracerConfig   `yaml:"tracer"`
	Browser  BrowserConfig  `yaml:"browser"`
	Search   SearchConfig   `yaml:"search"`
	Approval ApprovalConfig `yaml:"approval"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// BrowserConfig holds headless browser settings.
type BrowserConfig struct {
	// RemoteURL is a CDP WebSocket endpoint. Empty launches a local Chrome.
	RemoteURL        string        `yaml:"remote_url"`
	ExecPath         string        `yaml:"exec_path"`
	Headless         bool          `yaml:"headless"`
	LaunchTimeout    time.Duration `yaml:"launch_timeout"`
	UserAgent        string        `yaml:"user_agent"`
	BlockedResources []string      `yaml:"blocked_resources"`
	// BlockPrivateHosts skips detail extraction for URLs that resolve to
	// private or reserved addresses.
	BlockPrivateHosts bool `yaml:"block_private_hosts"`
}

// SearchConfig holds search pipeline settings.
type SearchConfig struct {
	Engine            string        `yaml:"engine"`
	MaxResults        int           `yaml:"max_results"`
	SlidingWindowSize int           `yaml:"sliding_window_size"`
	OutputDir         string        `yaml:"output_dir"`
	ResultsTimeout    time.Duration `yaml:"results_timeout"`
	DetailTimeout     time.Duration `yaml:"detail_timeout"`
}

// ApprovalConfig holds tool approval gating settings.
type ApprovalConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Interactive   bool     `yaml:"interactive"`
	AlwaysApprove []string `yaml:"always_approve"`
	AlwaysDeny    []string `yaml:"always_deny"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
		Browser: BrowserConfig{
			Headless:         true,
			LaunchTimeout:    30 * time.Second,
			BlockedResources: []string{"image", "stylesheet", "font"},
		},
		Search: SearchConfig{
			Engine:            "duckduckgo",
			MaxResults:        5,
			SlidingWindowSize: 100,
			OutputDir:         "./web-search-results",
			ResultsTimeout:    30 * time.Second,
			DetailTimeout:     10 * time.Second,
		},
		Approval: ApprovalConfig{
			Enabled:     true,
			Interactive: true,
		},
	}
}

// Load reads a YAML config file and applies env var overrides.
// A missing file is not an error: defaults plus overrides are returned.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	if err := validatePermissions(absPath); err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnvOverrides maps WEBSIFT_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WEBSIFT_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("WEBSIFT_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("WEBSIFT_LOGGER_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	if v := os.Getenv("WEBSIFT_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("WEBSIFT_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("WEBSIFT_BROWSER_REMOTE_URL"); v != "" {
		cfg.Browser.RemoteURL = v
	}
	if v := os.Getenv("WEBSIFT_BROWSER_EXEC_PATH"); v != "" {
		cfg.Browser.ExecPath = v
	}
	if v := os.Getenv("WEBSIFT_BROWSER_HEADLESS"); v == "false" {
		cfg.Browser.Headless = false
	}
	if v := os.Getenv("WEBSIFT_BROWSER_LAUNCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Browser.LaunchTimeout = d
		}
	}
	if v := os.Getenv("WEBSIFT_BROWSER_USER_AGENT"); v != "" {
		cfg.Browser.UserAgent = v
	}
	if v := os.Getenv("WEBSIFT_BROWSER_BLOCKED_RESOURCES"); v != "" {
		cfg.Browser.BlockedResources = splitList(v)
	}
	if v := os.Getenv("WEBSIFT_BROWSER_BLOCK_PRIVATE_HOSTS"); v == "true" {
		cfg.Browser.BlockPrivateHosts = true
	}
	if v := os.Getenv("WEBSIFT_SEARCH_ENGINE"); v != "" {
		cfg.Search.Engine = v
	}
	if v := os.Getenv("WEBSIFT_SEARCH_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.MaxResults = n
		}
	}
	if v := os.Getenv("WEBSIFT_SEARCH_SLIDING_WINDOW_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.SlidingWindowSize = n
		}
	}
	if v := os.Getenv("WEBSIFT_SEARCH_OUTPUT_DIR"); v != "" {
		cfg.Search.OutputDir = v
	}
	if v := os.Getenv("WEBSIFT_SEARCH_RESULTS_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Search.ResultsTimeout = d
		}
	}
	if v := os.Getenv("WEBSIFT_SEARCH_DETAIL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Search.DetailTimeout = d
		}
	}
	if v := os.Getenv("WEBSIFT_APPROVAL_ENABLED"); v == "false" {
		cfg.Approval.Enabled = false
	}
	if v := os.Getenv("WEBSIFT_APPROVAL_INTERACTIVE"); v == "false" {
		cfg.Approval.Interactive = false
	}
	if v := os.Getenv("WEBSIFT_APPROVAL_ALWAYS_APPROVE"); v != "" {
		cfg.Approval.AlwaysApprove = splitList(v)
	}
	if v := os.Getenv("WEBSIFT_APPROVAL_ALWAYS_DENY"); v != "" {
		cfg.Approval.AlwaysDeny = splitList(v)
	}
}

// splitList parses a comma-separated env value, dropping empty items.
func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	// Allow 0600 and 0644 (readable by others but not writable)
	if mode&0o077 > 0o044 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
