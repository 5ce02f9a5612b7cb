package sources

import (
	"strings"

	"github.com/cesargomez89/pdfhunter/internal/domain"
)

var doiResolverBase = "https://doi.org/"

// publisherTemplates maps a DOI prefix to URL builders for publishers whose
// PDF locations can be derived from the DOI alone.
var publisherTemplates = map[string]func(doi, suffix string) string{
	"10.1371": func(doi, _ string) string {
		return "https://journals.plos.org/plosone/article/file?id=" + doi + "&type=printable"
	},
	"10.3389": func(doi, _ string) string {
		return "https://www.frontiersin.org/articles/" + doi + "/pdf"
	},
	"10.7717": func(_, suffix string) string {
		if n := strings.TrimPrefix(suffix, "peerj."); n != suffix {
			return "https://peerj.com/articles/" + n + ".pdf"
		}
		return ""
	},
	"10.7554": func(_, suffix string) string {
		if n := strings.TrimPrefix(suffix, "elife."); n != suffix {
			return "https://elifesciences.org/articles/" + n + ".pdf"
		}
		return ""
	},
	"10.1038": func(_, suffix string) string {
		return "https://www.nature.com/articles/" + suffix + ".pdf"
	},
	"10.1101": func(doi, _ string) string {
		return rxivContent["biorxiv"] + doi + ".full.pdf"
	},
	"10.48550": func(doi, _ string) string {
		if id, ok := arxivID(doi); ok {
			return arxivPDFBase + id
		}
		return ""
	},
}

// PublisherDirectURLs returns candidate URLs built from the DOI, most
// specific first. The DOI resolver is always the last candidate.
func PublisherDirectURLs(doi string) []string {
	var urls []string
	if build, ok := publisherTemplates[domain.DOIPrefix(doi)]; ok {
		if u := build(doi, domain.DOISuffix(doi)); u != "" {
			urls = append(urls, u)
		}
	}
	return append(urls, doiResolverBase+doi)
}

// URLPattern generalizes a resolved URL by replacing the DOI, or its
// suffix, with placeholders.
func URLPattern(doi, pdfURL string) string {
	if doi == "" || pdfURL == "" {
		return ""
	}
	lower := strings.ToLower(pdfURL)
	if i := strings.Index(lower, doi); i >= 0 {
		return pdfURL[:i] + "{doi}" + pdfURL[i+len(doi):]
	}
	suffix := domain.DOISuffix(doi)
	if suffix != "" {
		if i := strings.Index(lower, suffix); i >= 0 {
			return pdfURL[:i] + "{suffix}" + pdfURL[i+len(suffix):]
		}
	}
	return ""
}
