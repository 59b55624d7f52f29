package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"websift/internal/adapter/artifact"
	"websift/internal/adapter/browser"
	"websift/internal/adapter/extract"
	"websift/internal/adapter/tool"
	"websift/internal/domain"
	"websift/internal/infra/config"
	"websift/internal/infra/logger"
	"websift/internal/infra/tracer"
	"websift/internal/security"
	"websift/internal/usecase"
	"websift/internal/usecase/eventbus"
	"websift/internal/usecase/search"
)

// approvalMode says who may answer approval requests.
type approvalMode int

const (
	// approvalPrompt asks on the terminal for unlisted tools.
	approvalPrompt approvalMode = iota
	// approvalHost leaves unlisted tools to the calling host.
	approvalHost
	// approvalSkip disables the gate.
	approvalSkip
)

// runtime holds everything a command needs and how to release it.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *tool.Registry
	runner   *recordingRunner
	events   *eventbus.Bus

	closers []func(context.Context) error
}

// newRuntime loads config and wires the search pipeline behind the
// web_search tool.
func newRuntime(ctx context.Context, configPath string, mode approvalMode, prompt io.Reader, promptOut io.Writer) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfigLoad, err)
	}
	if mode == approvalHost && cfg.Logger.Output == "stdout" {
		// stdout carries the MCP protocol.
		cfg.Logger.Output = "stderr"
	}

	log, closeLog, err := logger.New(cfg.Logger, logger.WithVersion(version))
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, logger: log}
	rt.closers = append(rt.closers, func(context.Context) error { return closeLog() })

	shutdown, err := tracer.Setup(ctx, cfg.Tracer, version)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("setup tracer: %w", err)
	}
	rt.closers = append(rt.closers, shutdown)

	engine, err := extract.EngineByName(cfg.Search.Engine)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}

	launcher := browser.NewChromeDPLauncher(browser.ChromeDPConfig{
		RemoteURL:     cfg.Browser.RemoteURL,
		ExecPath:      cfg.Browser.ExecPath,
		Headless:      cfg.Browser.Headless,
		LaunchTimeout: cfg.Browser.LaunchTimeout,
		UserAgent:     cfg.Browser.UserAgent,
	}, log.With("component", "browser"))

	rt.events = eventbus.New(log)
	rt.closers = append(rt.closers, func(context.Context) error {
		rt.events.Close()
		return nil
	})
	rt.events.SubscribeAll(func(ctx context.Context, e domain.Event) {
		log.DebugContext(ctx, "search event", "type", string(e.Type), "run_id", e.RunID)
	})

	scfg := search.Config{
		ResultsTimeout:   cfg.Search.ResultsTimeout,
		DetailTimeout:    cfg.Search.DetailTimeout,
		BlockedResources: cfg.Browser.BlockedResources,
		Events:           rt.events,
	}
	if cfg.Browser.BlockPrivateHosts {
		scfg.URLGuard = security.NewURLGuard().Check
	}

	searcher := search.NewSearcher(
		launcher,
		extract.NewExtractor(engine),
		artifact.NewFileStore(log.With("component", "artifact")),
		scfg,
		log.With("component", "search"),
	)
	rt.runner = &recordingRunner{inner: searcher}

	rt.registry = tool.NewRegistry(log)
	webSearch := tool.NewWebSearchTool(
		rt.runner,
		newApprover(cfg.Approval, mode, prompt, promptOut),
		usecase.NewLogReporter(log),
		tool.WebSearchDefaults{
			MaxResults:        cfg.Search.MaxResults,
			SlidingWindowSize: cfg.Search.SlidingWindowSize,
			OutputDirectory:   cfg.Search.OutputDir,
		},
		log.With("component", "tool"),
	)
	if err := rt.registry.Register(webSearch); err != nil {
		rt.Close(ctx)
		return nil, err
	}
	return rt, nil
}

// Close releases resources in reverse order of acquisition.
func (r *runtime) Close(ctx context.Context) {
	for i := len(r.closers) - 1; i >= 0; i-- {
		_ = r.closers[i](ctx)
	}
	r.closers = nil
}

// newApprover builds the approval gate. A nil approver lets every call run.
func newApprover(cfg config.ApprovalConfig, mode approvalMode, in io.Reader, out io.Writer) domain.ToolApprover {
	if !cfg.Enabled || mode == approvalSkip {
		return nil
	}
	a := usecase.NewConfigApprover(cfg.AlwaysApprove, cfg.AlwaysDeny)
	switch {
	case mode == approvalHost:
		a.WithFallback(usecase.AutoApprover{})
	case cfg.Interactive:
		a.WithFallback(usecase.NewPromptApprover(in, out))
	}
	return a
}

// recordingRunner keeps the last outcome so the CLI can print a summary
// next to the tool's report.
type recordingRunner struct {
	inner tool.SearchRunner

	mu   sync.Mutex
	last *search.Outcome
}

func (r *recordingRunner) Run(ctx context.Context, req domain.SearchRequest) (*search.Outcome, error) {
	out, err := r.inner.Run(ctx, req)
	if err == nil {
		r.mu.Lock()
		r.last = out
		r.mu.Unlock()
	}
	return out, err
}

// Last returns the most recent successful outcome, or nil.
func (r *recordingRunner) Last() *search.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
