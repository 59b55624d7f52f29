package search

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"websift/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	launcher  *fakeLauncher
	browser   *fakeBrowser
	extractor *fakeExtractor
	store     *fakeStore
}

func newHarness() *harness {
	b := newFakeBrowser()
	return &harness{
		launcher: &fakeLauncher{browser: b},
		browser:  b,
		extractor: &fakeExtractor{
			listing: []domain.Candidate{
				{Title: "First", URL: "https://a.test/1", Snippet: "one"},
				{Title: "Second", URL: "https://b.test/2", Snippet: "two"},
				{Title: "Third", URL: "https://c.test/3", Snippet: "three"},
			},
			details: map[string]domain.PageDetail{
				"https://a.test/1": {Content: "alpha body", CodeSnippets: []string{"x := 1"}, Headings: []string{"A", "B"}},
				"https://b.test/2": {Content: "beta body", CodeSnippets: []string{}, Headings: []string{"C"}},
				"https://c.test/3": {Content: "gamma body", CodeSnippets: []string{}, Headings: []string{}},
			},
		},
		store: &fakeStore{},
	}
}

func (h *harness) searcher(cfg Config) *Searcher {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return fixedNow }
	}
	return NewSearcher(h.launcher, h.extractor, h.store, cfg, newTestLogger())
}

func TestRunTwoOfThree(t *testing.T) {
	h := newHarness()
	s := h.searcher(Config{})

	out, err := s.Run(context.Background(), domain.SearchRequest{Query: "foo", MaxResults: 2})
	require.NoError(t, err)

	require.Len(t, out.Processed.Results, 2)
	assert.Equal(t, "A > B\nC", out.Processed.SearchSummary)
	assert.Equal(t, "First", out.Processed.Results[0].Title)
	assert.Equal(t, "Second", out.Processed.Results[1].Title)
	assert.Equal(t, "2026-10-18T09:15:30.123Z", out.Processed.Timestamp)
	assert.Equal(t, "foo", out.Processed.Query)
	assert.Empty(t, out.Processed.Domain)
	assert.NotEmpty(t, out.RunID)
	assert.Zero(t, out.Partial())

	require.Len(t, h.store.persisted, 1)
	assert.Equal(t, out.Processed, h.store.persisted[0])
	assert.Equal(t, "/abs/web-search-results/search-2026-10-18T09:15:30.123Z.json", out.ArtifactPath)
	assert.Equal(t, FormatReport(out.Processed, out.ArtifactPath), out.Report)

	assert.True(t, h.browser.shut, "browser must be closed")
	assert.Zero(t, h.browser.openPages(), "every page must be closed")
	assert.Equal(t, 3, h.browser.opened)
	assert.LessOrEqual(t, h.browser.maxOpen, 2)
}

func TestRunEveryResultComplete(t *testing.T) {
	h := newHarness()
	h.extractor.listing = append([]domain.Candidate{{Title: "", URL: "https://x.test", Snippet: "no title"}}, h.extractor.listing...)

	out, err := h.searcher(Config{}).Run(context.Background(), domain.SearchRequest{Query: "foo", MaxResults: 5})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out.Processed.Results), 5)
	require.Len(t, out.Processed.Results, 3)
	for _, r := range out.Processed.Results {
		assert.NotEmpty(t, r.Title)
		assert.NotEmpty(t, r.URL)
		assert.NotEmpty(t, r.Snippet)
	}
}

func TestRunNavigationOrderAndWaits(t *testing.T) {
	h := newHarness()
	_, err := h.searcher(Config{}).Run(context.Background(), domain.SearchRequest{Query: "generics", Domain: "go.dev", MaxResults: 2})
	require.NoError(t, err)

	require.Len(t, h.browser.navigated, 3)
	assert.Equal(t, "https://search.test/html/?q=site%3Ago.dev+generics", h.browser.navigated[0])
	assert.Equal(t, []string{"https://a.test/1", "https://b.test/2"}, h.browser.navigated[1:])
	assert.Equal(t, []domain.WaitCondition{domain.WaitNetworkIdle, domain.WaitDOMReady, domain.WaitDOMReady}, h.browser.waits)
}

func TestRunBlockedResourcesOnEveryPage(t *testing.T) {
	h := newHarness()
	blocked := []string{"image", "stylesheet", "font"}
	_, err := h.searcher(Config{BlockedResources: blocked}).Run(context.Background(), domain.SearchRequest{Query: "foo", MaxResults: 3})
	require.NoError(t, err)

	require.Len(t, h.browser.opts, 4)
	for _, o := range h.browser.opts {
		assert.Equal(t, blocked, o.BlockedResources)
	}
}

func TestRunDetailTimeoutKeepsPartialResult(t *testing.T) {
	h := newHarness()
	h.browser.delay["https://b.test/2"] = 2 * time.Second
	s := h.searcher(Config{DetailTimeout: 50 * time.Millisecond})

	out, err := s.Run(context.Background(), domain.SearchRequest{Query: "foo", MaxResults: 2})
	require.NoError(t, err)
	require.Len(t, out.Processed.Results, 2)

	slow := out.Processed.Results[1]
	assert.Equal(t, "Second", slow.Title)
	assert.Equal(t, "https://b.test/2", slow.URL)
	assert.Equal(t, "two", slow.Snippet)
	assert.Nil(t, slow.Content)
	assert.Nil(t, slow.CodeSnippets)
	assert.Nil(t, slow.Headings)

	assert.Equal(t, domain.ExtractionFull, out.Extractions[0].Status.Kind)
	assert.True(t, out.Extractions[1].Status.Partial())
	assert.Contains(t, out.Extractions[1].Status.Reason, "load result page")
	assert.Equal(t, 1, out.Partial())

	assert.Equal(t, "A > B", out.Processed.SearchSummary)
	require.Len(t, h.store.persisted, 1)
	assert.Zero(t, h.browser.openPages())
}

func TestRunDetailFailuresAreSoft(t *testing.T) {
	h := newHarness()
	h.browser.navErr["https://a.test/1"] = errors.New("net::ERR_NAME_NOT_RESOLVED")
	h.browser.htmlErr["https://b.test/2"] = errors.New("node detached")
	delete(h.extractor.details, "https://c.test/3")

	out, err := h.searcher(Config{}).Run(context.Background(), domain.SearchRequest{Query: "foo", MaxResults: 3})
	require.NoError(t, err)
	require.Len(t, out.Extractions, 3)
	for _, x := range out.Extractions {
		assert.True(t, x.Status.Partial(), x.Result.URL)
		assert.Nil(t, x.Result.Content)
	}
	assert.Equal(t, domain.NoSummaryText, out.Processed.SearchSummary)
	assert.Empty(t, out.Processed.KeyPhrases)
}

func TestRunURLGuard(t *testing.T) {
	h := newHarness()
	guard := func(raw string) error {
		if strings.Contains(raw, "b.test") {
			return domain.ErrURLBlocked
		}
		return nil
	}

	out, err := h.searcher(Config{URLGuard: guard}).Run(context.Background(), domain.SearchRequest{Query: "foo", MaxResults: 2})
	require.NoError(t, err)
	assert.True(t, out.Extractions[1].Status.Partial())
	assert.NotContains(t, h.browser.navigated, "https://b.test/2")
}

func TestRunValidationTouchesNothing(t *testing.T) {
	h := newHarness()
	_, err := h.searcher(Config{}).Run(context.Background(), domain.SearchRequest{Query: "   "})
	require.Error(t, err)

	var mpe *domain.MissingParameterError
	require.True(t, errors.As(err, &mpe))
	assert.Equal(t, "query", mpe.Name)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	assert.Zero(t, h.launcher.launches)
	assert.Empty(t, h.store.prepared)
	assert.Empty(t, h.store.persisted)
}

func TestRunNegativeMaxResults(t *testing.T) {
	h := newHarness()
	_, err := h.searcher(Config{}).Run(context.Background(), domain.SearchRequest{Query: "foo", MaxResults: -1})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, h.launcher.launches)
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(h *harness)
		want      error
		launched  bool
		wantClose bool
	}{
		{
			name:  "output dir",
			setup: func(h *harness) { h.store.prepareErr = errors.New("read-only file system") },
			want:  domain.ErrIO,
		},
		{
			name:     "launch",
			setup:    func(h *harness) { h.launcher.err = errors.New("chrome not found") },
			want:     domain.ErrBrowser,
			launched: true,
		},
		{
			name: "results page",
			setup: func(h *harness) {
				h.browser.navErr["https://search.test/html/?q=foo"] = errors.New("net::ERR_CONNECTION_REFUSED")
			},
			want:      domain.ErrNavigation,
			launched:  true,
			wantClose: true,
		},
		{
			name:      "listing parse",
			setup:     func(h *harness) { h.extractor.listingErr = errors.New("bad markup") },
			want:      domain.ErrExtraction,
			launched:  true,
			wantClose: true,
		},
		{
			name:      "persist",
			setup:     func(h *harness) { h.store.persistErr = errors.New("disk full") },
			want:      domain.ErrIO,
			launched:  true,
			wantClose: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			tt.setup(h)

			out, err := h.searcher(Config{}).Run(context.Background(), domain.SearchRequest{Query: "foo"})
			require.Error(t, err)
			assert.Nil(t, out)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, tt.launched, h.launcher.launches > 0)
			assert.Equal(t, tt.wantClose, h.browser.shut)
			assert.Zero(t, h.browser.openPages())
			if tt.name != "persist" {
				assert.Empty(t, h.store.persisted)
			}
		})
	}
}

func TestRunCancelledContext(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.searcher(Config{}).Run(ctx, domain.SearchRequest{Query: "foo"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, h.browser.shut)
	assert.Empty(t, h.store.persisted)
}

func TestRunKeyPhrases(t *testing.T) {
	h := newHarness()
	words := "alphabet bravado charlie deltoid echoing foxtrot golfing hotelier indiana juliet kilowatt limerick"
	h.extractor.details["https://a.test/1"] = domain.PageDetail{Content: words, CodeSnippets: []string{}, Headings: []string{"A"}}

	out, err := h.searcher(Config{}).Run(context.Background(), domain.SearchRequest{Query: "foo", MaxResults: 1, SlidingWindowSize: 5})
	require.NoError(t, err)

	require.Len(t, out.Processed.KeyPhrases, 5)
	assert.Equal(t, "alphabet bravado charlie deltoid echoing", out.Processed.KeyPhrases[0])
	for _, kp := range out.Processed.KeyPhrases {
		assert.Greater(t, len(kp), 30)
		assert.Less(t, len(kp), 150)
	}
}

// recordingBus delivers synchronously so tests can assert on order.
type recordingBus struct {
	events []domain.Event
}

func (r *recordingBus) Publish(_ context.Context, e domain.Event) { r.events = append(r.events, e) }
func (r *recordingBus) Subscribe(domain.EventType, domain.EventHandler) func() {
	return func() {}
}
func (r *recordingBus) SubscribeAll(domain.EventHandler) func() { return func() {} }
func (r *recordingBus) Close()                                  {}

func (r *recordingBus) types() []domain.EventType {
	out := make([]domain.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func TestRunPublishesProgress(t *testing.T) {
	h := newHarness()
	h.browser.navErr["https://b.test/2"] = errors.New("net::ERR_CONNECTION_RESET")
	bus := &recordingBus{}

	out, err := h.searcher(Config{Events: bus}).Run(context.Background(), domain.SearchRequest{Query: "foo", MaxResults: 2})
	require.NoError(t, err)

	assert.Equal(t, []domain.EventType{
		domain.EventSearchStarted,
		domain.EventListingLoaded,
		domain.EventResultExtracted,
		domain.EventResultExtracted,
		domain.EventSearchCompleted,
	}, bus.types())

	for _, e := range bus.events {
		assert.Equal(t, out.RunID, e.RunID)
	}

	listing, err := bus.events[1].Progress()
	require.NoError(t, err)
	assert.Equal(t, 2, listing.Total)

	first, _ := bus.events[2].Progress()
	assert.Equal(t, domain.SearchProgress{URL: "https://a.test/1", Index: 1, Total: 2, Status: "full"}, first)

	second, _ := bus.events[3].Progress()
	assert.Equal(t, 2, second.Index)
	assert.Equal(t, "partial", second.Status)
	assert.Contains(t, second.Reason, "ERR_CONNECTION_RESET")

	done, _ := bus.events[4].Progress()
	assert.Equal(t, out.ArtifactPath, done.ArtifactPath)
	assert.Equal(t, 2, done.Total)
}

func TestRunPublishesFailure(t *testing.T) {
	h := newHarness()
	h.launcher.err = errors.New("chrome not found")
	bus := &recordingBus{}

	_, err := h.searcher(Config{Events: bus}).Run(context.Background(), domain.SearchRequest{Query: "foo"})
	require.Error(t, err)

	assert.Equal(t, []domain.EventType{domain.EventSearchStarted, domain.EventSearchFailed}, bus.types())
	p, _ := bus.events[1].Progress()
	assert.Contains(t, p.Error, "chrome not found")
}

func TestRunValidationPublishesNothing(t *testing.T) {
	bus := &recordingBus{}
	_, err := newHarness().searcher(Config{Events: bus}).Run(context.Background(), domain.SearchRequest{})
	require.Error(t, err)
	assert.Empty(t, bus.events)
}
