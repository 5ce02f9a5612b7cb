package crossref

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cesargomez89/pdfhunter/internal/domain"
	"github.com/cesargomez89/pdfhunter/internal/httpclient"
)

// Work is the subset of a CrossRef work record the engine uses.
type Work struct {
	DOI       string   `json:"DOI"`
	Title     []string `json:"title"`
	Publisher string   `json:"publisher"`
	Prefix    string   `json:"prefix"`
	Type      string   `json:"type"`
	Link      []Link   `json:"link"`
}

type Link struct {
	URL                 string `json:"URL"`
	ContentType         string `json:"content-type"`
	IntendedApplication string `json:"intended-application"`
}

// PDFLinks returns the full-text links advertised as PDF.
func (w *Work) PDFLinks() []string {
	var links []string
	for _, l := range w.Link {
		if l.URL != "" && strings.Contains(strings.ToLower(l.ContentType), "pdf") {
			links = append(links, l.URL)
		}
	}
	return links
}

// Lookup resolves DOIs against CrossRef. GetWork returns nil, nil when the
// DOI is not registered.
type Lookup interface {
	GetWork(ctx context.Context, doi string) (*Work, error)
}

var _ Lookup = (*Client)(nil)
var _ Lookup = (*CachedClient)(nil)

type Client struct {
	http    *httpclient.Client
	baseURL string
	mailto  string
}

func NewClient(hc *httpclient.Client, baseURL, mailto string) *Client {
	return &Client{
		http:    hc,
		baseURL: strings.TrimRight(baseURL, "/"),
		mailto:  mailto,
	}
}

type workResponse struct {
	Status  string `json:"status"`
	Message Work   `json:"message"`
}

func (c *Client) GetWork(ctx context.Context, doi string) (*Work, error) {
	doi = domain.NormalizeDOI(doi)
	u := c.baseURL + "/works/" + (&url.URL{Path: doi}).EscapedPath()
	if c.mailto != "" {
		u += "?mailto=" + url.QueryEscape(c.mailto)
	}

	var resp workResponse
	if err := c.http.GetJSON(ctx, u, nil, &resp); err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("crossref lookup %s: %w", doi, err)
	}
	if resp.Status != "" && resp.Status != "ok" {
		return nil, fmt.Errorf("crossref lookup %s: status %q", doi, resp.Status)
	}
	return &resp.Message, nil
}
