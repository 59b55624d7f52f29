package search

import (
	"fmt"
	"strings"

	"websift/internal/domain"
)

// FormatReport renders processed results as the plain-text report returned
// to the caller. Results keep their listing order.
func FormatReport(p domain.ProcessedResults, artifactPath string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Web search results for \"%s\"\n", p.Query)
	if p.Domain != "" {
		fmt.Fprintf(&b, "Domain: %s\n", p.Domain)
	}
	fmt.Fprintf(&b, "Results saved to: %s\n", artifactPath)

	b.WriteString("\nSearch Summary:\n")
	b.WriteString(p.SearchSummary)
	b.WriteString("\n")

	b.WriteString("\nKey Phrases:\n")
	for _, kp := range p.KeyPhrases {
		b.WriteString(kp)
		b.WriteString("\n")
	}

	b.WriteString("\nResults:\n")
	for _, r := range p.Results {
		fmt.Fprintf(&b, "- %s\n", r.Title)
		fmt.Fprintf(&b, "  URL: %s\n", r.URL)
		fmt.Fprintf(&b, "  Snippet: %s\n", r.Snippet)
		if len(r.CodeSnippets) > 0 {
			fmt.Fprintf(&b, "  Code snippets: %d\n", len(r.CodeSnippets))
		}
		if len(r.Headings) > 0 {
			fmt.Fprintf(&b, "  Headings: %s\n", strings.Join(r.Headings, " > "))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
