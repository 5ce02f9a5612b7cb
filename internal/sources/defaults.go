package sources

import (
	"github.com/cesargomez89/pdfhunter/internal/constants"
	"github.com/cesargomez89/pdfhunter/internal/domain"
)

// Source names.
const (
	Unpaywall       = "unpaywall"
	OpenAlex        = "openalex"
	SemanticScholar = "semantic_scholar"
	EuropePMC       = "europe_pmc"
	Core            = "core"
	CrossRefLinks   = "crossref_links"
	Arxiv           = "arxiv"
	Biorxiv         = "biorxiv"
	Mirror          = "mirror"
)

// DefaultSources is the built-in registry, in priority order.
func DefaultSources() []domain.Source {
	return []domain.Source{
		{Name: Unpaywall, Description: "Unpaywall open access index", RequiresCapability: constants.CapabilityContactEmail, Priority: 1, TimeoutSec: 15, RateLimit: 10, Enabled: true},
		{Name: OpenAlex, Description: "OpenAlex works API", Priority: 2, TimeoutSec: 15, RateLimit: 10, Enabled: true},
		{Name: SemanticScholar, Description: "Semantic Scholar open access PDFs", Priority: 3, TimeoutSec: 15, RateLimit: 1, Enabled: true},
		{Name: EuropePMC, Description: "Europe PMC full text", Priority: 4, TimeoutSec: 20, RateLimit: 5, Enabled: true},
		{Name: Core, Description: "CORE aggregator", RequiresCapability: constants.CapabilityCoreAPIKey, Priority: 5, TimeoutSec: 20, RateLimit: 2, Enabled: true},
		{Name: CrossRefLinks, Description: "Full-text links registered with CrossRef", Priority: 6, TimeoutSec: 15, RateLimit: 5, Enabled: true},
		{Name: Arxiv, Description: "arXiv DataCite DOIs", Priority: 7, TimeoutSec: 10, Enabled: true},
		{Name: Biorxiv, Description: "bioRxiv and medRxiv preprints", Priority: 8, TimeoutSec: 20, RateLimit: 2, Enabled: true},
		{Name: Mirror, Description: "Configured mirror sites", RequiresCapability: constants.CapabilityMirrorURLs, Priority: 9, TimeoutSec: 30, RateLimit: 0.5, Enabled: false, UseProxy: true},
	}
}
