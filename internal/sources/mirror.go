package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/cesargomez89/pdfhunter/internal/constants"
	"github.com/cesargomez89/pdfhunter/internal/domain"
	"github.com/cesargomez89/pdfhunter/internal/httpclient"
)

const (
	maxMirrors       = 5
	maxMirrorPageLen = 2 << 20
)

// MirrorProbe scrapes a fixed, ordered list of mirror pages for an embedded
// PDF link. Mirrors are tried one after another; the first link wins.
type MirrorProbe struct {
	client  *httpclient.Client
	mirrors []string
}

func NewMirrorProbe(client *httpclient.Client, mirrors []string) *MirrorProbe {
	if len(mirrors) > maxMirrors {
		mirrors = mirrors[:maxMirrors]
	}
	return &MirrorProbe{client: client, mirrors: mirrors}
}

func (p *MirrorProbe) Name() string { return Mirror }

func (p *MirrorProbe) Probe(ctx context.Context, doi string) domain.ProbeResult {
	if len(p.mirrors) == 0 {
		return domain.NotFound(domain.FailureNotFound, "no mirrors configured")
	}

	last := domain.NotFound(domain.FailureNotFound, "no pdf on any mirror")
	for _, base := range p.mirrors {
		if ctx.Err() != nil {
			return missFromError(ctx.Err())
		}
		link, res := p.scrape(ctx, strings.TrimRight(base, "/")+"/"+doi)
		if link != "" {
			return domain.Found(link)
		}
		last = res
	}
	return last
}

func (p *MirrorProbe) scrape(ctx context.Context, pageURL string) (string, domain.ProbeResult) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", domain.Failed(err)
	}
	req.Header.Set("User-Agent", constants.BrowserUserAgent)

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return "", missFromError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", missFromError(&httpclient.StatusError{StatusCode: resp.StatusCode, URL: pageURL})
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxMirrorPageLen))
	if err != nil {
		return "", domain.Failed(fmt.Errorf("parse mirror page: %w", err))
	}

	href := findPDFLink(doc)
	if href == "" {
		return "", domain.NotFound(domain.FailureNotFound, "no pdf link on mirror page")
	}
	abs, err := resolveLink(resp.Request.URL, href)
	if err != nil {
		return "", domain.Failed(err)
	}
	return abs, domain.ProbeResult{}
}

// findPDFLink walks the document iteratively and returns the first embed,
// iframe or anchor pointing at a PDF. Embedded viewers win over anchors.
func findPDFLink(root *html.Node) string {
	var anchor string
	stack := []*html.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.Type == html.ElementNode {
			switch n.Data {
			case "embed", "iframe", "object":
				for _, key := range []string{"src", "data"} {
					if v := attr(n, key); v != "" && looksLikePDF(v) {
						return v
					}
				}
			case "a":
				if v := attr(n, "href"); anchor == "" && v != "" && looksLikePDF(v) {
					anchor = v
				}
			}
		}

		// Push children in reverse so they pop in document order.
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
	return anchor
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func looksLikePDF(link string) bool {
	l := strings.ToLower(link)
	if i := strings.IndexAny(l, "?#"); i >= 0 {
		l = l[:i]
	}
	return strings.HasSuffix(l, ".pdf")
}

func resolveLink(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("bad pdf link %q: %w", href, err)
	}
	if base == nil {
		if !ref.IsAbs() {
			return "", errors.New("relative pdf link without base")
		}
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}
