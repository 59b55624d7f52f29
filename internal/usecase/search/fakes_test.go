package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	"websift/internal/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Date(2026, 10, 18, 9, 15, 30, 123_000_000, time.UTC)

// --- browser ---

type fakeLauncher struct {
	browser  *fakeBrowser
	err      error
	launches int
}

func (l *fakeLauncher) Launch(ctx context.Context) (domain.Browser, error) {
	l.launches++
	if l.err != nil {
		return nil, l.err
	}
	return l.browser, nil
}

type fakeBrowser struct {
	mu        sync.Mutex
	navErr    map[string]error
	delay     map[string]time.Duration
	htmlErr   map[string]error
	opened    int
	closed    int
	navigated []string
	waits     []domain.WaitCondition
	opts      []domain.PageOptions
	shut      bool
	maxOpen   int
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		navErr:  map[string]error{},
		delay:   map[string]time.Duration{},
		htmlErr: map[string]error{},
	}
}

func (b *fakeBrowser) NewPage(ctx context.Context, opts domain.PageOptions) (domain.BrowserPage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.shut {
		return nil, errors.New("browser closed")
	}
	b.opened++
	if open := b.opened - b.closed; open > b.maxOpen {
		b.maxOpen = open
	}
	b.opts = append(b.opts, opts)
	return &fakePage{b: b}, nil
}

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shut = true
	return nil
}

func (b *fakeBrowser) openPages() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opened - b.closed
}

type fakePage struct {
	b      *fakeBrowser
	url    string
	closed bool
}

func (p *fakePage) Navigate(ctx context.Context, u string, wait domain.WaitCondition) error {
	p.b.mu.Lock()
	p.b.navigated = append(p.b.navigated, u)
	p.b.waits = append(p.b.waits, wait)
	d := p.b.delay[u]
	err := p.b.navErr[u]
	p.b.mu.Unlock()

	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err != nil {
		return err
	}
	p.url = u
	return nil
}

// HTML returns the page URL; fakeExtractor keys its fixtures on it.
func (p *fakePage) HTML(ctx context.Context) (string, error) {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	if err := p.b.htmlErr[p.url]; err != nil {
		return "", err
	}
	return p.url, nil
}

func (p *fakePage) Close() error {
	p.b.mu.Lock()
	defer p.b.mu.Unlock()
	if !p.closed {
		p.closed = true
		p.b.closed++
	}
	return nil
}

// --- extractor ---

type fakeExtractor struct {
	listing    []domain.Candidate
	listingErr error
	details    map[string]domain.PageDetail
}

func (x *fakeExtractor) SearchURL(query string, max int) string {
	return "https://search.test/html/?q=" + url.QueryEscape(query)
}

func (x *fakeExtractor) ParseListing(html string, max int) ([]domain.Candidate, int, error) {
	if x.listingErr != nil {
		return nil, 0, x.listingErr
	}
	var out []domain.Candidate
	skipped := 0
	for _, c := range x.listing {
		if len(out) >= max {
			break
		}
		if c.Title == "" || c.Snippet == "" || c.URL == "" {
			skipped++
			continue
		}
		out = append(out, c)
	}
	return out, skipped, nil
}

func (x *fakeExtractor) ExtractDetail(html string) (domain.PageDetail, error) {
	d, ok := x.details[html]
	if !ok {
		return domain.PageDetail{}, fmt.Errorf("%w: no fixture for %s", domain.ErrExtraction, html)
	}
	return d, nil
}

// --- store ---

type fakeStore struct {
	prepareErr error
	persistErr error
	prepared   []string
	persisted  []domain.ProcessedResults
}

func (s *fakeStore) Prepare(dir string) (string, error) {
	if s.prepareErr != nil {
		return "", s.prepareErr
	}
	abs := filepath.Join("/abs", dir)
	s.prepared = append(s.prepared, abs)
	return abs, nil
}

func (s *fakeStore) Persist(ctx context.Context, dir string, p domain.ProcessedResults) (string, error) {
	if s.persistErr != nil {
		return "", s.persistErr
	}
	s.persisted = append(s.persisted, p)
	return filepath.Join(dir, "search-"+p.Timestamp+".json"), nil
}
