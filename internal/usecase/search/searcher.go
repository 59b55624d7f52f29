// Package search runs the web search pipeline: listing navigation,
// per-result detail extraction, key phrase and summary derivation,
// artifact persistence and report rendering.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"websift/internal/domain"
	"websift/internal/infra/tracer"
)

// Default stage timeouts.
const (
	DefaultResultsTimeout = 30 * time.Second
	DefaultDetailTimeout  = 10 * time.Second
)

// Config tunes a Searcher.
type Config struct {
	ResultsTimeout time.Duration // listing page navigation (default: 30s)
	DetailTimeout  time.Duration // per-result navigation and extraction (default: 10s)
	// BlockedResources is applied to every page the searcher opens.
	BlockedResources []string
	// URLGuard, when set, vets a result URL before its page is opened. A
	// rejected URL yields a partial result.
	URLGuard func(rawURL string) error
	// Events, when set, receives progress events for every run.
	Events domain.EventBus
	Now    func() time.Time
}

// Outcome is everything a completed search produced.
type Outcome struct {
	RunID        string
	Report       string
	ArtifactPath string
	Processed    domain.ProcessedResults
	// Extractions carries the per-result status alongside each result.
	Extractions []domain.Extraction
}

// Partial returns how many results carry listing fields only.
func (o *Outcome) Partial() int {
	n := 0
	for _, x := range o.Extractions {
		if x.Status.Partial() {
			n++
		}
	}
	return n
}

// Searcher runs one search per call. It keeps no state between runs.
type Searcher struct {
	launcher  domain.BrowserLauncher
	extractor domain.ResultExtractor
	store     domain.ArtifactStore
	cfg       Config
	logger    *slog.Logger
}

// NewSearcher creates a Searcher.
func NewSearcher(launcher domain.BrowserLauncher, extractor domain.ResultExtractor, store domain.ArtifactStore, cfg Config, logger *slog.Logger) *Searcher {
	if cfg.ResultsTimeout <= 0 {
		cfg.ResultsTimeout = DefaultResultsTimeout
	}
	if cfg.DetailTimeout <= 0 {
		cfg.DetailTimeout = DefaultDetailTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Searcher{
		launcher:  launcher,
		extractor: extractor,
		store:     store,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run executes a search. Validation failures return before any side
// effect. The browser is closed on every path once launched.
func (s *Searcher) Run(ctx context.Context, req domain.SearchRequest) (*Outcome, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	runID := s.newRunID()
	ctx = domain.ContextWithRunID(ctx, runID)
	log := s.logger.With("run_id", runID)

	ctx, span := tracer.StartSpan(ctx, "search.run",
		trace.WithAttributes(
			tracer.StringAttr("search.query", req.Query),
			tracer.StringAttr("search.domain", req.Domain),
			tracer.IntAttr("search.max_results", req.MaxResults),
		),
	)
	defer span.End()

	s.publish(ctx, domain.EventSearchStarted, domain.SearchProgress{Query: req.Query})

	out, err := s.run(ctx, req, runID, log)
	if err != nil {
		tracer.RecordError(span, err)
		s.publish(ctx, domain.EventSearchFailed, domain.SearchProgress{Query: req.Query, Error: err.Error()})
		return nil, err
	}
	s.publish(ctx, domain.EventSearchCompleted, domain.SearchProgress{
		Query:        req.Query,
		Total:        len(out.Processed.Results),
		ArtifactPath: out.ArtifactPath,
	})
	span.SetAttributes(
		tracer.IntAttr("search.results", len(out.Processed.Results)),
		tracer.IntAttr("search.partial", out.Partial()),
	)
	tracer.SetOK(span)
	return out, nil
}

func (s *Searcher) run(ctx context.Context, req domain.SearchRequest, runID string, log *slog.Logger) (*Outcome, error) {
	dir, err := s.store.Prepare(req.OutputDirectory)
	if err != nil {
		return nil, ensureCategory("prepare output directory", domain.ErrIO, err)
	}

	log.Info("web search started", "query", req.Query, "domain", req.Domain, "max_results", req.MaxResults)

	b, err := s.launcher.Launch(ctx)
	if err != nil {
		return nil, ensureCategory("launch browser", domain.ErrBrowser, err)
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			log.Warn("browser close failed", "error", cerr)
		}
	}()

	candidates, err := s.listing(ctx, b, req, log)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventListingLoaded, domain.SearchProgress{Query: req.Query, Total: len(candidates)})

	extractions := make([]domain.Extraction, 0, len(candidates))
	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, domain.WrapOp("search", err)
		}
		x := s.detail(ctx, b, c, log)
		extractions = append(extractions, x)
		s.publish(ctx, domain.EventResultExtracted, domain.SearchProgress{
			URL:    c.URL,
			Index:  i + 1,
			Total:  len(candidates),
			Status: x.Status.Kind.String(),
			Reason: x.Status.Reason,
		})
	}

	results := domain.Results(extractions)
	processed := domain.ProcessedResults{
		Query:         req.Query,
		Domain:        req.Domain,
		Results:       results,
		KeyPhrases:    DeriveKeyPhrases(results, req.SlidingWindowSize),
		SearchSummary: DeriveSummary(results),
		Timestamp:     domain.FormatTimestamp(s.cfg.Now()),
	}

	path, err := s.store.Persist(ctx, dir, processed)
	if err != nil {
		return nil, ensureCategory("persist artifact", domain.ErrIO, err)
	}

	out := &Outcome{
		RunID:        runID,
		Report:       FormatReport(processed, path),
		ArtifactPath: path,
		Processed:    processed,
		Extractions:  extractions,
	}
	log.Info("web search completed",
		"results", len(results),
		"partial", out.Partial(),
		"key_phrases", len(processed.KeyPhrases),
		"path", path,
	)
	return out, nil
}

// listing loads the engine results page and reads up to MaxResults
// candidates from it.
func (s *Searcher) listing(ctx context.Context, b domain.Browser, req domain.SearchRequest, log *slog.Logger) ([]domain.Candidate, error) {
	ctx, span := tracer.StartSpan(ctx, "search.listing")
	defer span.End()

	target := s.extractor.SearchURL(req.EffectiveQuery(), req.MaxResults)
	span.SetAttributes(tracer.StringAttr("search.url", target))

	page, err := b.NewPage(ctx, domain.PageOptions{BlockedResources: s.cfg.BlockedResources})
	if err != nil {
		err = ensureCategory("open results page", domain.ErrBrowser, err)
		tracer.RecordError(span, err)
		return nil, err
	}
	defer page.Close()

	nctx, cancel := context.WithTimeout(ctx, s.cfg.ResultsTimeout)
	defer cancel()

	if err := page.Navigate(nctx, target, domain.WaitNetworkIdle); err != nil {
		err = ensureCategory("load results page", domain.ErrNavigation, err)
		tracer.RecordError(span, err)
		return nil, err
	}
	html, err := page.HTML(nctx)
	if err != nil {
		err = ensureCategory("read results page", domain.ErrNavigation, err)
		tracer.RecordError(span, err)
		return nil, err
	}

	candidates, skipped, err := s.extractor.ParseListing(html, req.MaxResults)
	if err != nil {
		err = ensureCategory("parse results page", domain.ErrExtraction, err)
		tracer.RecordError(span, err)
		return nil, err
	}
	if skipped > 0 {
		log.Debug("listing entries skipped", "skipped", skipped)
	}
	span.SetAttributes(tracer.IntAttr("search.candidates", len(candidates)))
	tracer.SetOK(span)
	return candidates, nil
}

// detail visits one candidate's page. Any failure degrades the result to
// its listing fields; it never fails the search.
func (s *Searcher) detail(ctx context.Context, b domain.Browser, c domain.Candidate, log *slog.Logger) domain.Extraction {
	ctx, span := tracer.StartSpan(ctx, "search.detail",
		trace.WithAttributes(tracer.StringAttr("search.url", c.URL)),
	)
	defer span.End()

	d, err := s.fetchDetail(ctx, b, c.URL)
	if err != nil {
		tracer.RecordError(span, err)
		log.Warn("detail extraction failed, keeping listing fields",
			"url", c.URL, "code", domain.ErrorCodeOf(err), "error", err)
		return domain.PartialExtraction(c, err.Error())
	}
	span.SetAttributes(
		tracer.IntAttr("search.code_snippets", len(d.CodeSnippets)),
		tracer.IntAttr("search.headings", len(d.Headings)),
	)
	tracer.SetOK(span)
	return domain.FullExtraction(c, d)
}

func (s *Searcher) fetchDetail(ctx context.Context, b domain.Browser, url string) (domain.PageDetail, error) {
	if s.cfg.URLGuard != nil {
		if err := s.cfg.URLGuard(url); err != nil {
			return domain.PageDetail{}, ensureCategory("check url", domain.ErrURLBlocked, err)
		}
	}

	dctx, cancel := context.WithTimeout(ctx, s.cfg.DetailTimeout)
	defer cancel()

	page, err := b.NewPage(dctx, domain.PageOptions{BlockedResources: s.cfg.BlockedResources})
	if err != nil {
		return domain.PageDetail{}, ensureCategory("open result page", domain.ErrBrowser, err)
	}
	defer page.Close()

	if err := page.Navigate(dctx, url, domain.WaitDOMReady); err != nil {
		return domain.PageDetail{}, ensureCategory("load result page", domain.ErrNavigation, err)
	}
	html, err := page.HTML(dctx)
	if err != nil {
		return domain.PageDetail{}, ensureCategory("read result page", domain.ErrExtraction, err)
	}
	d, err := s.extractor.ExtractDetail(html)
	if err != nil {
		return domain.PageDetail{}, ensureCategory("extract result page", domain.ErrExtraction, err)
	}
	return d, nil
}

func (s *Searcher) publish(ctx context.Context, t domain.EventType, p domain.SearchProgress) {
	if s.cfg.Events == nil {
		return
	}
	s.cfg.Events.Publish(ctx, domain.NewSearchEvent(t, domain.RunIDFromContext(ctx), s.cfg.Now(), p))
}

func (s *Searcher) newRunID() string {
	t := s.cfg.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// ensureCategory prefixes err with op and makes sure it matches sentinel.
// Deadline overruns additionally match domain.ErrTimeout.
func ensureCategory(op string, sentinel, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout) {
		err = fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	if errors.Is(err, sentinel) {
		return domain.WrapOp(op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, sentinel, err)
}
