package extract

import (
	"fmt"
	"strings"

	"websift/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

// ParseListing reads up to max candidates from a results page in listing
// order. Entries without a title, snippet or usable link are skipped and
// do not count toward max, as are repeats of a URL already taken; skipped
// reports how many were dropped. A result container nested inside another
// is part of its parent, not an entry of its own.
func ParseListing(html string, engine Engine, max int) (candidates []domain.Candidate, skipped int, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: parse listing: %w", domain.ErrExtraction, err)
	}

	seen := make(map[string]bool)
	doc.Find(engine.ResultSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if max > 0 && len(candidates) >= max {
			return false
		}
		if s.ParentsFiltered(engine.ResultSelector).Length() > 0 {
			return true
		}
		if engine.SkipSelector != "" && s.Is(engine.SkipSelector) {
			skipped++
			return true
		}

		c, ok := candidateFrom(s, engine)
		if !ok || seen[c.URL] {
			skipped++
			return true
		}
		seen[c.URL] = true
		candidates = append(candidates, c)
		return true
	})
	return candidates, skipped, nil
}

func candidateFrom(s *goquery.Selection, engine Engine) (domain.Candidate, bool) {
	title := strings.TrimSpace(s.Find(engine.TitleSelector).First().Text())
	snippet := strings.TrimSpace(s.Find(engine.SnippetSelector).First().Text())
	if title == "" || snippet == "" {
		return domain.Candidate{}, false
	}

	href, _ := s.Find(engine.LinkSelector).First().Attr("href")
	link, ok := engine.resolveLink(href)
	if !ok {
		return domain.Candidate{}, false
	}
	return domain.Candidate{Title: title, URL: link, Snippet: snippet}, true
}
