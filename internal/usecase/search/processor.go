package search

import (
	"strings"
	"unicode/utf8"

	"websift/internal/domain"
)

// Key phrase length bounds, both exclusive.
const (
	minPhraseLen = 30
	maxPhraseLen = 150
)

// DeriveKeyPhrases slides a window of windowSize words (step 1) over each
// result's content and keeps windows whose space-joined length is strictly
// between 30 and 150 characters (runes). The first MaxKeyPhrases distinct phrases
// are returned in discovery order. A result with no more than windowSize
// words contributes nothing.
func DeriveKeyPhrases(results []domain.SearchResult, windowSize int) []string {
	phrases := make([]string, 0, domain.MaxKeyPhrases)
	if windowSize <= 0 {
		return phrases
	}
	seen := make(map[string]bool)

	for _, r := range results {
		words := strings.Fields(r.ContentText())
		if len(words) <= windowSize {
			continue
		}

		// prefix[i] is the total rune count of words[:i], so a window's joined
		// length is known without building the string.
		prefix := make([]int, len(words)+1)
		for i, w := range words {
			prefix[i+1] = prefix[i] + utf8.RuneCountInString(w)
		}

		for i := 0; i < len(words)-windowSize; i++ {
			n := prefix[i+windowSize] - prefix[i] + windowSize - 1
			if n <= minPhraseLen || n >= maxPhraseLen {
				continue
			}
			phrase := strings.Join(words[i:i+windowSize], " ")
			if seen[phrase] {
				continue
			}
			seen[phrase] = true
			phrases = append(phrases, phrase)
			if len(phrases) == domain.MaxKeyPhrases {
				return phrases
			}
		}
	}
	return phrases
}

// DeriveSummary joins each result's headings with " > " and the per-result
// breadcrumbs with newlines. Results without headings are left out.
func DeriveSummary(results []domain.SearchResult) string {
	var lines []string
	for _, r := range results {
		if len(r.Headings) == 0 {
			continue
		}
		lines = append(lines, strings.Join(r.Headings, " > "))
	}
	if len(lines) == 0 {
		return domain.NoSummaryText
	}
	return strings.Join(lines, "\n")
}
