package sources

import (
	"fmt"
	"net/url"

	"github.com/cesargomez89/pdfhunter/internal/config"
	"github.com/cesargomez89/pdfhunter/internal/constants"
	"github.com/cesargomez89/pdfhunter/internal/crossref"
	"github.com/cesargomez89/pdfhunter/internal/domain"
	"github.com/cesargomez89/pdfhunter/internal/httpclient"
)

// BuildProbes constructs one probe per known source. Each probe gets its own
// single-attempt client paced by the source's rate limit; the engine's retry
// queue owns retries.
func BuildProbes(cfg *config.Config, defs []domain.Source, lookup crossref.Lookup) ([]Probe, error) {
	direct := httpclient.NewHTTPClient(constants.DefaultHTTPTimeout, nil)

	var proxied = direct
	if cfg.InstitutionalProxy != "" {
		u, err := url.Parse(cfg.InstitutionalProxy)
		if err != nil {
			return nil, fmt.Errorf("institutional proxy: %w", err)
		}
		proxied = httpclient.NewHTTPClient(constants.DefaultHTTPTimeout, u)
	}

	byName := make(map[string]domain.Source, len(defs))
	for _, d := range defs {
		byName[d.Name] = d
	}
	clientFor := func(name string) *httpclient.Client {
		def := byName[name]
		base := direct
		if def.UseProxy {
			base = proxied
		}
		return httpclient.NewClient(base,
			httpclient.WithMaxAttempts(1),
			httpclient.WithRateLimit(def.RateLimit),
			httpclient.WithUserAgent(cfg.UserAgent),
		)
	}

	return []Probe{
		NewUnpaywallProbe(clientFor(Unpaywall), cfg.ContactEmail),
		NewOpenAlexProbe(clientFor(OpenAlex), cfg.ContactEmail),
		NewSemanticScholarProbe(clientFor(SemanticScholar), cfg.SemanticScholarAPIKey),
		NewEuropePMCProbe(clientFor(EuropePMC)),
		NewCoreProbe(clientFor(Core), cfg.CoreAPIKey),
		NewCrossRefLinksProbe(lookup),
		NewArxivProbe(),
		NewBiorxivProbe(clientFor(Biorxiv)),
		NewMirrorProbe(clientFor(Mirror), cfg.MirrorURLs),
	}, nil
}
