package domain

import "context"

// WaitCondition selects when a navigation counts as finished.
type WaitCondition int

const (
	// WaitDOMReady returns once the document body is ready.
	WaitDOMReady WaitCondition = iota
	// WaitNetworkIdle returns once the page reports no network activity.
	WaitNetworkIdle
)

func (w WaitCondition) String() string {
	switch w {
	case WaitDOMReady:
		return "dom_ready"
	case WaitNetworkIdle:
		return "network_idle"
	default:
		return "unknown"
	}
}

// PageOptions configures a page before its first navigation.
type PageOptions struct {
	// BlockedResources lists resource types (lowercase, e.g. "image") whose
	// requests are aborted. Everything else passes through.
	BlockedResources []string
}

// BrowserLauncher starts a browser instance.
type BrowserLauncher interface {
	Launch(ctx context.Context) (Browser, error)
}

// Browser is one running browser instance. Close releases the process and
// every page still open on it.
type Browser interface {
	NewPage(ctx context.Context, opts PageOptions) (BrowserPage, error)
	Close() error
}

// BrowserPage is a single tab.
type BrowserPage interface {
	Navigate(ctx context.Context, url string, wait WaitCondition) error
	// HTML returns the serialized DOM of the current document.
	HTML(ctx context.Context) (string, error)
	Close() error
}

// ResultExtractor turns rendered pages into candidates and details for one
// search engine.
type ResultExtractor interface {
	SearchURL(query string, max int) string
	ParseListing(html string, max int) (candidates []Candidate, skipped int, err error)
	ExtractDetail(html string) (PageDetail, error)
}

// ArtifactStore persists processed results.
type ArtifactStore interface {
	// Prepare resolves and creates the output directory.
	Prepare(dir string) (string, error)
	Persist(ctx context.Context, dir string, p ProcessedResults) (string, error)
}
