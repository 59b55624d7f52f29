package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"websift/internal/adapter/extract"
	"websift/internal/infra/config"
)

// CheckStatus is the outcome class of a health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string
}

// Check is a named health check.
type Check struct {
	Name string
	Fn   func(cfg *config.Config) CheckResult
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that config, browser, output directory and network are usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd.OutOrStdout(), configFlag(cmd))
		},
	}
}

func runDoctor(w io.Writer, cfgPath string) error {
	cfg, cfgErr := config.Load(cfgPath)

	checks := []Check{
		{Name: "Config file", Fn: checkConfigFile(cfgPath, cfgErr)},
		{Name: "Browser", Fn: checkBrowser},
		{Name: "Output directory", Fn: checkOutputDir},
		{Name: "Search engine", Fn: checkEngine(http.DefaultClient)},
	}

	st := newStatus(w)
	fmt.Fprintln(w, "websift doctor")
	fmt.Fprintln(w)

	var pass, warn, fail int
	for _, check := range checks {
		result := check.Fn(cfg)
		result.Name = check.Name

		switch result.Status {
		case StatusPass:
			pass++
			st.OK("%s: %s", result.Name, result.Message)
		case StatusWarn:
			warn++
			st.Warn("%s: %s", result.Name, result.Message)
		default:
			fail++
			st.Fail("%s: %s", result.Name, result.Message)
		}
		if result.Fix != "" {
			st.Hint("Fix: %s", result.Fix)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)
	if fail > 0 {
		return fmt.Errorf("%d check(s) failed", fail)
	}
	return nil
}

// checkConfigFile reports on the config file. A missing file is only a
// warning since defaults apply.
func checkConfigFile(cfgPath string, cfgErr error) func(*config.Config) CheckResult {
	return func(_ *config.Config) CheckResult {
		if cfgErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("config error: %v", cfgErr),
				Fix:     fmt.Sprintf("Check the YAML syntax and values in %s", cfgPath),
			}
		}
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("no config at %s, using defaults", cfgPath),
			}
		}
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("config loaded from %s", cfgPath),
		}
	}
}

var browserBinaries = []string{"chromium", "chromium-browser", "google-chrome", "google-chrome-stable"}

// checkBrowser verifies a remote CDP endpoint answers, or that a local
// Chrome binary can be found.
func checkBrowser(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "cannot check, config not loaded"}
	}

	if cfg.Browser.RemoteURL != "" {
		u, err := url.Parse(cfg.Browser.RemoteURL)
		if err != nil || u.Host == "" {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("invalid remote_url %q", cfg.Browser.RemoteURL),
				Fix:     "Use a CDP endpoint such as ws://127.0.0.1:9222",
			}
		}
		conn, err := net.DialTimeout("tcp", u.Host, 3*time.Second)
		if err != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("cannot reach remote browser at %s: %v", u.Host, err),
				Fix:     "Start Chrome with --remote-debugging-port or fix browser.remote_url",
			}
		}
		conn.Close()
		return CheckResult{Status: StatusPass, Message: fmt.Sprintf("remote browser reachable at %s", u.Host)}
	}

	if cfg.Browser.ExecPath != "" {
		if _, err := os.Stat(cfg.Browser.ExecPath); err != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("browser.exec_path %s not found", cfg.Browser.ExecPath),
			}
		}
		return CheckResult{Status: StatusPass, Message: fmt.Sprintf("using %s", cfg.Browser.ExecPath)}
	}

	for _, name := range browserBinaries {
		if path, err := exec.LookPath(name); err == nil {
			return CheckResult{Status: StatusPass, Message: fmt.Sprintf("found %s at %s", name, path)}
		}
	}
	return CheckResult{
		Status:  StatusFail,
		Message: "Chrome or Chromium not found",
		Fix:     "Install Chromium (apt install chromium) or set browser.remote_url",
	}
}

// checkOutputDir verifies the artifact directory exists or can be created,
// and is writable.
func checkOutputDir(cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "cannot check, config not loaded"}
	}

	absDir, err := filepath.Abs(cfg.Search.OutputDir)
	if err != nil {
		return CheckResult{Status: StatusFail, Message: fmt.Sprintf("bad output_dir: %v", err)}
	}

	info, err := os.Stat(absDir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(absDir, 0o755); mkErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("%s does not exist and cannot be created: %v", absDir, mkErr),
				Fix:     fmt.Sprintf("mkdir -p %s", absDir),
			}
		}
	case err != nil:
		return CheckResult{Status: StatusFail, Message: fmt.Sprintf("cannot stat %s: %v", absDir, err)}
	case !info.IsDir():
		return CheckResult{Status: StatusFail, Message: fmt.Sprintf("%s exists but is not a directory", absDir)}
	}

	probe := filepath.Join(absDir, ".doctor-check")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("%s is not writable: %v", absDir, err),
			Fix:     fmt.Sprintf("chmod 755 %s", absDir),
		}
	}
	os.Remove(probe)

	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("%s writable", absDir)}
}

// checkEngine verifies the configured engine's endpoint answers over HTTP.
func checkEngine(client *http.Client) func(*config.Config) CheckResult {
	return func(cfg *config.Config) CheckResult {
		if cfg == nil {
			return CheckResult{Status: StatusWarn, Message: "cannot check, config not loaded"}
		}
		engine, err := extract.EngineByName(cfg.Search.Engine)
		if err != nil {
			return CheckResult{Status: StatusFail, Message: err.Error()}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, engine.Endpoint, nil)
		if err != nil {
			return CheckResult{Status: StatusFail, Message: fmt.Sprintf("invalid endpoint: %v", err)}
		}
		start := time.Now()
		resp, err := client.Do(req)
		if err != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("cannot reach %s: %v", engine.Endpoint, err),
				Fix:     "Check your network connection, proxy and firewall settings",
			}
		}
		resp.Body.Close()

		msg := fmt.Sprintf("%s reachable (%s, %dms)", engine.Name, strings.ToLower(resp.Status), time.Since(start).Milliseconds())
		if resp.StatusCode >= 500 {
			return CheckResult{Status: StatusWarn, Message: msg}
		}
		return CheckResult{Status: StatusPass, Message: msg}
	}
}
