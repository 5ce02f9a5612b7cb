package sources

import (
	"context"

	"github.com/cesargomez89/pdfhunter/internal/crossref"
	"github.com/cesargomez89/pdfhunter/internal/domain"
)

// CrossRefLinksProbe uses full-text links publishers register with CrossRef.
type CrossRefLinksProbe struct {
	lookup crossref.Lookup
}

func NewCrossRefLinksProbe(lookup crossref.Lookup) *CrossRefLinksProbe {
	return &CrossRefLinksProbe{lookup: lookup}
}

func (p *CrossRefLinksProbe) Name() string { return CrossRefLinks }

func (p *CrossRefLinksProbe) Probe(ctx context.Context, doi string) domain.ProbeResult {
	work, err := p.lookup.GetWork(ctx, doi)
	if err != nil {
		return missFromError(err)
	}
	if work == nil {
		return domain.NotFound(domain.FailureNotFound, "DOI not registered with CrossRef")
	}
	links := work.PDFLinks()
	if len(links) == 0 {
		return domain.NotFound(domain.FailureNotFound, "no pdf link registered")
	}
	return domain.Found(links[0])
}
