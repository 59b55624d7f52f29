package extract

import "websift/internal/domain"

var _ domain.ResultExtractor = (*Extractor)(nil)

// Extractor binds the listing and detail projections to one engine.
type Extractor struct {
	engine Engine
}

// NewExtractor creates an Extractor for engine.
func NewExtractor(engine Engine) *Extractor {
	return &Extractor{engine: engine}
}

// Engine returns the bound engine profile.
func (x *Extractor) Engine() Engine { return x.engine }

func (x *Extractor) SearchURL(query string, max int) string {
	return x.engine.BuildURL(query, max)
}

func (x *Extractor) ParseListing(html string, max int) ([]domain.Candidate, int, error) {
	return ParseListing(html, x.engine, max)
}

func (x *Extractor) ExtractDetail(html string) (domain.PageDetail, error) {
	return ExtractDetail(html)
}
