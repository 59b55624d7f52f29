// Package browser drives headless Chrome over the DevTools protocol.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"websift/internal/domain"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

var _ domain.BrowserLauncher = (*ChromeDPLauncher)(nil)

// ChromeDPConfig holds configuration for the chromedp launcher.
type ChromeDPConfig struct {
	// RemoteURL is the CDP WebSocket endpoint of an already running Chrome.
	// If empty, a local Chrome instance is launched.
	RemoteURL string
	// ExecPath overrides the Chrome binary used for local launches.
	ExecPath string
	// Headless controls whether a locally launched Chrome runs headless.
	Headless bool
	// LaunchTimeout bounds browser start-up and page attachment.
	LaunchTimeout time.Duration
	UserAgent     string
}

// ChromeDPLauncher implements domain.BrowserLauncher using chromedp.
type ChromeDPLauncher struct {
	cfg    ChromeDPConfig
	logger *slog.Logger
}

// NewChromeDPLauncher creates a launcher. Nothing is started until Launch.
func NewChromeDPLauncher(cfg ChromeDPConfig, logger *slog.Logger) *ChromeDPLauncher {
	if cfg.LaunchTimeout <= 0 {
		cfg.LaunchTimeout = 30 * time.Second
	}
	return &ChromeDPLauncher{cfg: cfg, logger: logger}
}

// Launch starts (or connects to) a browser and waits until it is usable.
func (l *ChromeDPLauncher) Launch(ctx context.Context) (domain.Browser, error) {
	b := &chromeBrowser{
		timeout: l.cfg.LaunchTimeout,
		logger:  l.logger,
		pages:   make(map[*chromePage]struct{}),
	}

	// The allocator is rooted at Background so a cancelled request context
	// cannot kill the browser mid-cleanup; ctx only bounds start-up.
	var allocCtx context.Context
	if l.cfg.RemoteURL != "" {
		allocCtx, b.allocCancel = chromedp.NewRemoteAllocator(context.Background(), l.cfg.RemoteURL)
		l.logger.Info("chromedp connecting to remote browser", "url", l.cfg.RemoteURL)
	} else {
		opts := make([]chromedp.ExecAllocatorOption, len(chromedp.DefaultExecAllocatorOptions))
		copy(opts, chromedp.DefaultExecAllocatorOptions[:])
		opts = append(opts,
			chromedp.Flag("headless", l.cfg.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.WindowSize(1280, 720),
		)
		if l.cfg.ExecPath != "" {
			opts = append(opts, chromedp.ExecPath(l.cfg.ExecPath))
		}
		if l.cfg.UserAgent != "" {
			opts = append(opts, chromedp.UserAgent(l.cfg.UserAgent))
		}
		allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
		l.logger.Info("chromedp launching local browser", "headless", l.cfg.Headless)
	}

	b.browserCtx, b.browserCancel = chromedp.NewContext(allocCtx)

	// The first Run binds the browser to browserCtx, so it must not see a
	// derived timeout context.
	if err := runBounded(ctx, b.browserCtx, l.cfg.LaunchTimeout); err != nil {
		b.Close()
		return nil, fmt.Errorf("%w: start browser: %w", domain.ErrBrowser, err)
	}

	l.logger.Info("chromedp browser started")
	return b, nil
}

// runBounded performs the first, attaching Run on a chromedp context while
// respecting ctx and timeout without deriving from the chromedp context.
func runBounded(ctx, cdpCtx context.Context, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(cdpCtx) }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("%w: timed out after %v", domain.ErrTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

type chromeBrowser struct {
	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	pages         map[*chromePage]struct{}
	timeout       time.Duration
	logger        *slog.Logger
	closed        bool
}

func (b *chromeBrowser) NewPage(ctx context.Context, opts domain.PageOptions) (domain.BrowserPage, error) {
	filter, err := newResourceFilter(opts.BlockedResources)
	if err != nil {
		return nil, fmt.Errorf("%w: new page: %w", domain.ErrBrowser, err)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: browser closed", domain.ErrBrowser)
	}
	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	b.mu.Unlock()

	if err := runBounded(ctx, tabCtx, b.timeout); err != nil {
		tabCancel()
		return nil, fmt.Errorf("%w: open page: %w", domain.ErrBrowser, err)
	}

	p := &chromePage{
		ctx:    tabCtx,
		cancel: tabCancel,
		owner:  b,
		idle:   make(map[cdp.LoaderID]bool),
		notify: make(chan struct{}, 1),
	}
	chromedp.ListenTarget(tabCtx, p.onEvent(filter))

	actions := []chromedp.Action{page.SetLifecycleEventsEnabled(true)}
	if !filter.empty() {
		actions = append(actions, fetch.Enable().WithPatterns(filter.patterns()))
	}
	sctx, cancel := p.scope(ctx, b.timeout)
	defer cancel()
	if err := chromedp.Run(sctx, actions...); err != nil {
		tabCancel()
		return nil, fmt.Errorf("%w: configure page: %w", domain.ErrBrowser, err)
	}

	b.mu.Lock()
	b.pages[p] = struct{}{}
	b.mu.Unlock()
	return p, nil
}

func (b *chromeBrowser) forget(p *chromePage) {
	b.mu.Lock()
	delete(b.pages, p)
	b.mu.Unlock()
}

func (b *chromeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for p := range b.pages {
		p.cancel()
	}
	b.pages = nil
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	b.logger.Info("chromedp browser closed")
	return nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
	owner  *chromeBrowser
	once   sync.Once

	mu     sync.Mutex
	idle   map[cdp.LoaderID]bool
	notify chan struct{}
}

// onEvent handles target events. Listeners run on chromedp's event loop and
// must not block, so CDP commands are issued from a new goroutine.
func (p *chromePage) onEvent(filter *resourceFilter) func(ev any) {
	return func(ev any) {
		switch e := ev.(type) {
		case *fetch.EventRequestPaused:
			go p.resolvePaused(filter, e)
		case *page.EventLifecycleEvent:
			if e.Name != "networkIdle" {
				return
			}
			p.mu.Lock()
			p.idle[e.LoaderID] = true
			p.mu.Unlock()
			select {
			case p.notify <- struct{}{}:
			default:
			}
		}
	}
}

func (p *chromePage) resolvePaused(filter *resourceFilter, e *fetch.EventRequestPaused) {
	exec := cdp.WithExecutor(p.ctx, chromedp.FromContext(p.ctx).Target)
	if filter.blocks(e.ResourceType) {
		_ = fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient).Do(exec)
		return
	}
	_ = fetch.ContinueRequest(e.RequestID).Do(exec)
}

// scope derives an action context from the tab context that ends with ctx
// (and at ctx's deadline) or after fallback when ctx has no deadline.
func (p *chromePage) scope(ctx context.Context, fallback time.Duration) (context.Context, context.CancelFunc) {
	var (
		sctx   context.Context
		cancel context.CancelFunc
	)
	if dl, ok := ctx.Deadline(); ok {
		sctx, cancel = context.WithDeadline(p.ctx, dl)
	} else {
		sctx, cancel = context.WithTimeout(p.ctx, fallback)
	}
	stop := context.AfterFunc(ctx, cancel)
	return sctx, func() {
		stop()
		cancel()
	}
}

func (p *chromePage) Navigate(ctx context.Context, url string, wait domain.WaitCondition) error {
	sctx, cancel := p.scope(ctx, p.owner.timeout)
	defer cancel()

	var err error
	switch wait {
	case domain.WaitNetworkIdle:
		err = chromedp.Run(sctx, chromedp.ActionFunc(func(actx context.Context) error {
			_, loaderID, errText, _, err := page.Navigate(url).Do(actx)
			if err != nil {
				return err
			}
			if errText != "" {
				return errors.New(errText)
			}
			return p.waitIdle(actx, loaderID)
		}))
	default:
		err = chromedp.Run(sctx,
			chromedp.Navigate(url),
			chromedp.WaitReady("body", chromedp.ByQuery),
		)
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(sctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w: %w", domain.ErrNavigation, url, domain.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrNavigation, url, err)
}

// waitIdle blocks until the networkIdle lifecycle event for loaderID has
// been seen. Same-document navigations carry no loader and return at once.
func (p *chromePage) waitIdle(ctx context.Context, loaderID cdp.LoaderID) error {
	if loaderID == "" {
		return nil
	}
	for {
		p.mu.Lock()
		seen := p.idle[loaderID]
		p.mu.Unlock()
		if seen {
			return nil
		}
		select {
		case <-p.notify:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	sctx, cancel := p.scope(ctx, p.owner.timeout)
	defer cancel()

	var html string
	if err := chromedp.Run(sctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("%w: read document: %w", domain.ErrExtraction, err)
	}
	return html, nil
}

// Close closes the tab by cancelling its context. It is idempotent.
func (p *chromePage) Close() error {
	p.once.Do(func() {
		p.cancel()
		p.owner.forget(p)
	})
	return nil
}
