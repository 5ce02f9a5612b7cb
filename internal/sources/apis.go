package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cesargomez89/pdfhunter/internal/domain"
	"github.com/cesargomez89/pdfhunter/internal/httpclient"
)

// API endpoints. Declared as vars so tests can point them at httptest servers.
var (
	unpaywallAPIBase       = "https://api.unpaywall.org/v2/"
	openAlexAPIBase        = "https://api.openalex.org/works/"
	semanticScholarAPIBase = "https://api.semanticscholar.org/graph/v1/paper/"
	europePMCAPIBase       = "https://www.ebi.ac.uk/europepmc/webservices/rest/search"
	europePMCRenderBase    = "https://europepmc.org/articles/"
	coreAPIBase            = "https://api.core.ac.uk/v3/search/works"
)

// UnpaywallProbe reads best_oa_location.url_for_pdf from Unpaywall.
type UnpaywallProbe struct {
	client *httpclient.Client
	email  string
}

func NewUnpaywallProbe(client *httpclient.Client, email string) *UnpaywallProbe {
	return &UnpaywallProbe{client: client, email: email}
}

func (p *UnpaywallProbe) Name() string { return Unpaywall }

func (p *UnpaywallProbe) Probe(ctx context.Context, doi string) domain.ProbeResult {
	var resp struct {
		IsOA           bool `json:"is_oa"`
		BestOALocation *struct {
			URLForPDF string `json:"url_for_pdf"`
		} `json:"best_oa_location"`
		OALocations []struct {
			URLForPDF string `json:"url_for_pdf"`
		} `json:"oa_locations"`
	}

	u := unpaywallAPIBase + doi + "?email=" + url.QueryEscape(p.email)
	if err := p.client.GetJSON(ctx, u, nil, &resp); err != nil {
		return missFromError(err)
	}

	if resp.BestOALocation != nil && resp.BestOALocation.URLForPDF != "" {
		return domain.Found(resp.BestOALocation.URLForPDF)
	}
	for _, loc := range resp.OALocations {
		if loc.URLForPDF != "" {
			return domain.Found(loc.URLForPDF)
		}
	}
	if !resp.IsOA {
		return domain.NotFound(domain.FailurePaywall, "not open access")
	}
	return domain.NotFound(domain.FailureNotFound, "no pdf url in open access locations")
}

// OpenAlexProbe reads best_oa_location.pdf_url, falling back to any location
// that carries a PDF.
type OpenAlexProbe struct {
	client *httpclient.Client
	mailto string
}

func NewOpenAlexProbe(client *httpclient.Client, mailto string) *OpenAlexProbe {
	return &OpenAlexProbe{client: client, mailto: mailto}
}

func (p *OpenAlexProbe) Name() string { return OpenAlex }

func (p *OpenAlexProbe) Probe(ctx context.Context, doi string) domain.ProbeResult {
	type location struct {
		PDFURL string `json:"pdf_url"`
	}
	var resp struct {
		OpenAccess struct {
			IsOA bool `json:"is_oa"`
		} `json:"open_access"`
		BestOALocation *location  `json:"best_oa_location"`
		Locations      []location `json:"locations"`
	}

	u := openAlexAPIBase + "https://doi.org/" + doi
	if p.mailto != "" {
		u += "?mailto=" + url.QueryEscape(p.mailto)
	}
	if err := p.client.GetJSON(ctx, u, nil, &resp); err != nil {
		return missFromError(err)
	}

	if resp.BestOALocation != nil && resp.BestOALocation.PDFURL != "" {
		return domain.Found(resp.BestOALocation.PDFURL)
	}
	for _, loc := range resp.Locations {
		if loc.PDFURL != "" {
			return domain.Found(loc.PDFURL)
		}
	}
	if !resp.OpenAccess.IsOA {
		return domain.NotFound(domain.FailurePaywall, "not open access")
	}
	return domain.NotFound(domain.FailureNotFound, "no pdf url")
}

// SemanticScholarProbe reads openAccessPdf.url from the Graph API.
type SemanticScholarProbe struct {
	client *httpclient.Client
	apiKey string
}

func NewSemanticScholarProbe(client *httpclient.Client, apiKey string) *SemanticScholarProbe {
	return &SemanticScholarProbe{client: client, apiKey: apiKey}
}

func (p *SemanticScholarProbe) Name() string { return SemanticScholar }

func (p *SemanticScholarProbe) Probe(ctx context.Context, doi string) domain.ProbeResult {
	var resp struct {
		OpenAccessPDF *struct {
			URL string `json:"url"`
		} `json:"openAccessPdf"`
	}

	header := http.Header{}
	if p.apiKey != "" {
		header.Set("x-api-key", p.apiKey)
	}
	u := semanticScholarAPIBase + "DOI:" + doi + "?fields=openAccessPdf"
	if err := p.client.GetJSON(ctx, u, header, &resp); err != nil {
		return missFromError(err)
	}

	if resp.OpenAccessPDF == nil || resp.OpenAccessPDF.URL == "" {
		return domain.NotFound(domain.FailureNotFound, "no open access pdf")
	}
	return domain.Found(resp.OpenAccessPDF.URL)
}

// EuropePMCProbe finds the PMC id for a DOI and points at the rendered PDF.
type EuropePMCProbe struct {
	client *httpclient.Client
}

func NewEuropePMCProbe(client *httpclient.Client) *EuropePMCProbe {
	return &EuropePMCProbe{client: client}
}

func (p *EuropePMCProbe) Name() string { return EuropePMC }

func (p *EuropePMCProbe) Probe(ctx context.Context, doi string) domain.ProbeResult {
	var resp struct {
		ResultList struct {
			Result []struct {
				DOI          string `json:"doi"`
				PMCID        string `json:"pmcid"`
				IsOpenAccess string `json:"isOpenAccess"`
			} `json:"result"`
		} `json:"resultList"`
	}

	q := url.Values{}
	q.Set("query", fmt.Sprintf(`DOI:"%s"`, doi))
	q.Set("format", "json")
	q.Set("resultType", "lite")
	if err := p.client.GetJSON(ctx, europePMCAPIBase+"?"+q.Encode(), nil, &resp); err != nil {
		return missFromError(err)
	}

	results := resp.ResultList.Result
	if len(results) == 0 {
		return domain.NotFound(domain.FailureNotFound, "no results")
	}
	for _, r := range results {
		if r.PMCID != "" {
			return domain.Found(europePMCRenderBase + r.PMCID + "?pdf=render")
		}
	}
	if strings.EqualFold(results[0].IsOpenAccess, "N") {
		return domain.NotFound(domain.FailurePaywall, "not open access")
	}
	return domain.NotFound(domain.FailureNotFound, "no PMC full text")
}

// CoreProbe searches the CORE aggregator for a download URL.
type CoreProbe struct {
	client *httpclient.Client
	apiKey string
}

func NewCoreProbe(client *httpclient.Client, apiKey string) *CoreProbe {
	return &CoreProbe{client: client, apiKey: apiKey}
}

func (p *CoreProbe) Name() string { return Core }

func (p *CoreProbe) Probe(ctx context.Context, doi string) domain.ProbeResult {
	var resp struct {
		TotalHits int `json:"totalHits"`
		Results   []struct {
			DownloadURL string `json:"downloadUrl"`
		} `json:"results"`
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+p.apiKey)
	q := url.Values{}
	q.Set("q", fmt.Sprintf(`doi:"%s"`, doi))
	q.Set("limit", "5")
	if err := p.client.GetJSON(ctx, coreAPIBase+"?"+q.Encode(), header, &resp); err != nil {
		return missFromError(err)
	}

	for _, r := range resp.Results {
		if r.DownloadURL != "" {
			return domain.Found(r.DownloadURL)
		}
	}
	if len(resp.Results) == 0 {
		return domain.NotFound(domain.FailureNotFound, "no results")
	}
	return domain.NotFound(domain.FailureNotFound, "no download url")
}
