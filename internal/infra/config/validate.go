package config

import (
	"fmt"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	validateBrowser(cfg, ve)
	validateSearch(cfg, ve)
	validateApproval(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

var validLogFormats = map[string]bool{
	"text": true, "json": true,
}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLogLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is invalid (want: debug, info, warn, error)", cfg.Logger.Level)
	}
	if !validLogFormats[strings.ToLower(cfg.Logger.Format)] {
		ve.Add("logger.format %q is invalid (want: text, json)", cfg.Logger.Format)
	}
}

var validExporters = map[string]bool{
	"noop": true, "stdout": true, "": true,
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if cfg.Tracer.Enabled && !validExporters[cfg.Tracer.Exporter] {
		ve.Add("tracer.exporter %q is invalid (want: noop, stdout)", cfg.Tracer.Exporter)
	}
}

// validResourceTypes are the CDP resource types a network filter may abort.
var validResourceTypes = map[string]bool{
	"document": true, "stylesheet": true, "image": true, "media": true,
	"font": true, "script": true, "texttrack": true, "xhr": true,
	"fetch": true, "eventsource": true, "websocket": true, "manifest": true,
	"other": true,
}

func validateBrowser(cfg *Config, ve *ValidationError) {
	if cfg.Browser.LaunchTimeout <= 0 {
		ve.Add("browser.launch_timeout must be > 0")
	}
	for _, rt := range cfg.Browser.BlockedResources {
		if !validResourceTypes[strings.ToLower(rt)] {
			ve.Add("browser.blocked_resources: unknown resource type %q", rt)
		}
		if strings.EqualFold(rt, "document") {
			ve.Add("browser.blocked_resources must not include document")
		}
	}
}

var validEngines = map[string]bool{
	"duckduckgo": true, "google": true,
}

func validateSearch(cfg *Config, ve *ValidationError) {
	if !validEngines[cfg.Search.Engine] {
		ve.Add("search.engine %q is invalid (want: duckduckgo, google)", cfg.Search.Engine)
	}
	if cfg.Search.MaxResults <= 0 {
		ve.Add("search.max_results must be > 0")
	}
	if cfg.Search.SlidingWindowSize <= 0 {
		ve.Add("search.sliding_window_size must be > 0")
	}
	if strings.TrimSpace(cfg.Search.OutputDir) == "" {
		ve.Add("search.output_dir must not be empty")
	}
	if cfg.Search.ResultsTimeout <= 0 {
		ve.Add("search.results_timeout must be > 0")
	}
	if cfg.Search.DetailTimeout <= 0 {
		ve.Add("search.detail_timeout must be > 0")
	}
}

func validateApproval(cfg *Config, ve *ValidationError) {
	deny := make(map[string]bool, len(cfg.Approval.AlwaysDeny))
	for _, name := range cfg.Approval.AlwaysDeny {
		deny[name] = true
	}
	for _, name := range cfg.Approval.AlwaysApprove {
		if deny[name] {
			ve.Add("approval: tool %q is in both always_approve and always_deny", name)
		}
	}
}
