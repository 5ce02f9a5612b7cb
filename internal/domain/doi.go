package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/cesargomez89/pdfhunter/internal/constants"
)

var (
	doiPrefixPattern = regexp.MustCompile(`^10\.\d+`)
	doiFormatPattern = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)
)

var doiURLPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi:",
}

// NormalizeDOI returns the canonical form of a DOI: trimmed, resolver and
// "doi:" prefixes stripped, lowercased. It is idempotent.
func NormalizeDOI(raw string) string {
	doi := strings.ToLower(strings.TrimSpace(raw))
	for {
		stripped := false
		for _, p := range doiURLPrefixes {
			if strings.HasPrefix(doi, p) {
				doi = strings.TrimSpace(strings.TrimPrefix(doi, p))
				stripped = true
			}
		}
		if !stripped {
			return doi
		}
	}
}

// DOIPrefix returns the registrant prefix ("10.1371") of a normalized DOI,
// or "" when the value does not start with one.
func DOIPrefix(doi string) string {
	return doiPrefixPattern.FindString(NormalizeDOI(doi))
}

// DOISuffix returns everything after the first slash of a normalized DOI.
func DOISuffix(doi string) string {
	doi = NormalizeDOI(doi)
	if i := strings.IndexByte(doi, '/'); i >= 0 {
		return doi[i+1:]
	}
	return ""
}

// ValidDOIFormat reports whether the normalized DOI has a plausible shape.
func ValidDOIFormat(doi string) bool {
	return doiFormatPattern.MatchString(NormalizeDOI(doi))
}

// PDFFilename is the on-disk name for a DOI's PDF within its project directory.
func PDFFilename(doi string) string {
	sum := sha256.Sum256([]byte(NormalizeDOI(doi)))
	return hex.EncodeToString(sum[:])[:constants.PDFFilenameHashLen] + constants.ExtPDF
}
