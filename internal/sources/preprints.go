package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/cesargomez89/pdfhunter/internal/domain"
	"github.com/cesargomez89/pdfhunter/internal/httpclient"
)

const (
	arxivDOIPrefix   = "10.48550"
	biorxivDOIPrefix = "10.1101"
)

var (
	arxivPDFBase   = "https://arxiv.org/pdf/"
	biorxivAPIBase = "https://api.biorxiv.org/details/"
	rxivContent    = map[string]string{
		"biorxiv": "https://www.biorxiv.org/content/",
		"medrxiv": "https://www.medrxiv.org/content/",
	}
)

// ArxivProbe builds the PDF URL for arXiv DataCite DOIs without a network call.
type ArxivProbe struct{}

func NewArxivProbe() *ArxivProbe { return &ArxivProbe{} }

func (p *ArxivProbe) Name() string { return Arxiv }

func (p *ArxivProbe) Probe(ctx context.Context, doi string) domain.ProbeResult {
	id, ok := arxivID(doi)
	if !ok {
		return domain.NotFound(domain.FailureNotFound, "not an arXiv DOI")
	}
	return domain.Found(arxivPDFBase + id)
}

// arxivID extracts "2301.07041" from "10.48550/arxiv.2301.07041".
func arxivID(doi string) (string, bool) {
	if domain.DOIPrefix(doi) != arxivDOIPrefix {
		return "", false
	}
	suffix := domain.DOISuffix(doi)
	id := strings.TrimPrefix(suffix, "arxiv.")
	if id == suffix || id == "" {
		return "", false
	}
	return id, true
}

// BiorxivProbe asks the bioRxiv details API for the latest version of a
// preprint, checking bioRxiv first and then medRxiv.
type BiorxivProbe struct {
	client *httpclient.Client
}

func NewBiorxivProbe(client *httpclient.Client) *BiorxivProbe {
	return &BiorxivProbe{client: client}
}

func (p *BiorxivProbe) Name() string { return Biorxiv }

func (p *BiorxivProbe) Probe(ctx context.Context, doi string) domain.ProbeResult {
	if domain.DOIPrefix(doi) != biorxivDOIPrefix {
		return domain.NotFound(domain.FailureNotFound, "not a bioRxiv/medRxiv DOI")
	}

	var last domain.ProbeResult
	for _, server := range []string{"biorxiv", "medrxiv"} {
		var resp struct {
			Collection []struct {
				DOI     string `json:"doi"`
				Version string `json:"version"`
			} `json:"collection"`
		}
		if err := p.client.GetJSON(ctx, biorxivAPIBase+server+"/"+doi, nil, &resp); err != nil {
			last = missFromError(err)
			if last.Kind == domain.ProbeTransient || last.Kind == domain.ProbeFailed {
				return last
			}
			continue
		}
		if n := len(resp.Collection); n > 0 {
			latest := resp.Collection[n-1]
			version := latest.Version
			if version == "" {
				version = "1"
			}
			return domain.Found(fmt.Sprintf("%s%sv%s.full.pdf", rxivContent[server], doi, version))
		}
		last = domain.NotFound(domain.FailureNotFound, "no results")
	}
	return last
}
