package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Request defaults.
const (
	DefaultMaxResults        = 5
	DefaultSlidingWindowSize = 100
	DefaultOutputDirectory   = "./web-search-results"

	// MaxKeyPhrases caps ProcessedResults.KeyPhrases.
	MaxKeyPhrases = 5

	// NoSummaryText is the summary used when no result carries headings.
	NoSummaryText = "No structured summary available"

	// TimestampLayout is ISO-8601 in UTC with millisecond precision.
	TimestampLayout = "2006-01-02T15:04:05.000Z"
)

// SearchRequest describes one web search. It is not modified once a search
// starts.
type SearchRequest struct {
	Query             string `json:"query"`
	Domain            string `json:"domain,omitempty"`
	MaxResults        int    `json:"maxResults,omitempty"`
	SlidingWindowSize int    `json:"slidingWindowSize,omitempty"`
	OutputDirectory   string `json:"chunkDir,omitempty"`
}

// Normalize returns a copy of r with zero-valued optional fields replaced by
// their defaults and surrounding whitespace trimmed.
func (r SearchRequest) Normalize() SearchRequest {
	r.Query = strings.TrimSpace(r.Query)
	r.Domain = strings.TrimSpace(r.Domain)
	if r.MaxResults == 0 {
		r.MaxResults = DefaultMaxResults
	}
	if r.SlidingWindowSize == 0 {
		r.SlidingWindowSize = DefaultSlidingWindowSize
	}
	if strings.TrimSpace(r.OutputDirectory) == "" {
		r.OutputDirectory = DefaultOutputDirectory
	}
	return r
}

// Validate checks r after normalization.
func (r SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return &MissingParameterError{Name: "query"}
	}
	if r.MaxResults <= 0 {
		return NewDomainError("SearchRequest.Validate", ErrInvalidInput, "maxResults must be > 0")
	}
	if r.SlidingWindowSize <= 0 {
		return NewDomainError("SearchRequest.Validate", ErrInvalidInput, "slidingWindowSize must be > 0")
	}
	return nil
}

// EffectiveQuery is the query sent to the engine, scoped to Domain when set.
func (r SearchRequest) EffectiveQuery() string {
	if r.Domain == "" {
		return r.Query
	}
	return "site:" + r.Domain + " " + r.Query
}

// Candidate is one entry from the search-engine listing, before detail
// extraction.
type Candidate struct {
	Title   string
	URL     string
	Snippet string
}

// PageDetail is what detail extraction pulls out of a result's own page.
type PageDetail struct {
	Content      string
	CodeSnippets []string
	Headings     []string
}

// ExtractionKind tags how much of a result could be extracted.
type ExtractionKind int

const (
	// ExtractionFull means the detail page was loaded and projected.
	ExtractionFull ExtractionKind = iota
	// ExtractionPartial means only listing fields are available.
	ExtractionPartial
)

func (k ExtractionKind) String() string {
	switch k {
	case ExtractionFull:
		return "full"
	case ExtractionPartial:
		return "partial"
	default:
		return "unknown"
	}
}

// ExtractionStatus records whether detail extraction succeeded and, when it
// did not, why.
type ExtractionStatus struct {
	Kind   ExtractionKind
	Reason string
}

// Partial reports whether the result carries listing fields only.
func (s ExtractionStatus) Partial() bool { return s.Kind == ExtractionPartial }

// SearchResult is one processed candidate. Content, CodeSnippets and
// Headings are nil when detail extraction failed; a successful extraction
// always sets all three, possibly to empty values.
type SearchResult struct {
	Title        string   `json:"title"`
	URL          string   `json:"url"`
	Snippet      string   `json:"snippet"`
	Content      *string  `json:"content,omitempty"`
	CodeSnippets []string `json:"codeSnippets,omitempty"`
	Headings     []string `json:"headings,omitempty"`
}

// MarshalJSON keeps empty-but-present detail lists in the output so that a
// decoded artifact distinguishes "no code blocks" from "not extracted".
func (r SearchResult) MarshalJSON() ([]byte, error) {
	type wire struct {
		Title        string    `json:"title"`
		URL          string    `json:"url"`
		Snippet      string    `json:"snippet"`
		Content      *string   `json:"content,omitempty"`
		CodeSnippets *[]string `json:"codeSnippets,omitempty"`
		Headings     *[]string `json:"headings,omitempty"`
	}
	w := wire{Title: r.Title, URL: r.URL, Snippet: r.Snippet, Content: r.Content}
	if r.CodeSnippets != nil {
		w.CodeSnippets = &r.CodeSnippets
	}
	if r.Headings != nil {
		w.Headings = &r.Headings
	}
	return json.Marshal(w)
}

// Extraction pairs a result with how it was obtained.
type Extraction struct {
	Result SearchResult
	Status ExtractionStatus
}

// FullExtraction builds a result from a candidate and its extracted detail.
func FullExtraction(c Candidate, d PageDetail) Extraction {
	content := d.Content
	return Extraction{
		Result: SearchResult{
			Title:        c.Title,
			URL:          c.URL,
			Snippet:      c.Snippet,
			Content:      &content,
			CodeSnippets: nonNil(d.CodeSnippets),
			Headings:     nonNil(d.Headings),
		},
		Status: ExtractionStatus{Kind: ExtractionFull},
	}
}

// PartialExtraction builds a listing-only result.
func PartialExtraction(c Candidate, reason string) Extraction {
	return Extraction{
		Result: SearchResult{
			Title:   c.Title,
			URL:     c.URL,
			Snippet: c.Snippet,
		},
		Status: ExtractionStatus{Kind: ExtractionPartial, Reason: reason},
	}
}

// Results unwraps the results of xs in order.
func Results(xs []Extraction) []SearchResult {
	out := make([]SearchResult, len(xs))
	for i, x := range xs {
		out[i] = x.Result
	}
	return out
}

// ContentText returns the extracted body text, or "" when absent.
func (r SearchResult) ContentText() string {
	if r.Content == nil {
		return ""
	}
	return *r.Content
}

// ProcessedResults is the persisted record of one completed search.
type ProcessedResults struct {
	Query         string         `json:"query"`
	Domain        string         `json:"domain"`
	Results       []SearchResult `json:"results"`
	KeyPhrases    []string       `json:"keyPhrases"`
	SearchSummary string         `json:"searchSummary"`
	Timestamp     string         `json:"timestamp"`
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
