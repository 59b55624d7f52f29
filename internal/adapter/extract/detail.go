package extract

import (
	"fmt"
	"strings"

	"websift/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

// contentSelectors are tried in order; the first one that matches
// anything supplies the page content.
var contentSelectors = []string{
	"main",
	"article",
	`[role="main"]`,
	".content",
	"#content",
	".main-content",
	"#main-content",
	".post-content",
	".article-content",
}

// ExtractDetail projects a rendered result page into its body text, code
// blocks and h1-h3 headings. Nothing is truncated.
func ExtractDetail(html string) (domain.PageDetail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return domain.PageDetail{}, fmt.Errorf("%w: parse page: %w", domain.ErrExtraction, err)
	}

	return domain.PageDetail{
		Content:      mainText(doc),
		CodeSnippets: texts(doc.Find("pre, code"), false),
		Headings:     texts(doc.Find("h1, h2, h3"), true),
	}, nil
}

func mainText(doc *goquery.Document) string {
	for _, sel := range contentSelectors {
		if m := doc.Find(sel).First(); m.Length() > 0 {
			return strings.TrimSpace(m.Text())
		}
	}
	if body := doc.Find("body"); body.Length() > 0 {
		return strings.TrimSpace(body.Text())
	}
	return strings.TrimSpace(doc.Text())
}

// texts collects the text of every node in sel, in document order, dropping
// whitespace-only entries. Code keeps its inner whitespace.
func texts(sel *goquery.Selection, trim bool) []string {
	out := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		t := s.Text()
		if strings.TrimSpace(t) == "" {
			return
		}
		if trim {
			t = strings.TrimSpace(t)
		}
		out = append(out, t)
	})
	return out
}
