// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort              = "8080"
	DefaultDBPath            = "pdfhunter.db"
	DefaultDownloadsDir      = "data/projects"
	DefaultCrossRefURL       = "https://api.crossref.org"
	DefaultHTTPTimeout       = 60 * time.Second
	DefaultProbeTimeout      = 15 * time.Second
	DefaultRetryCount        = 3
	DefaultRetryBase         = 1 * time.Second
	DefaultDownloadDelay     = 1 * time.Second
	DefaultStaleThreshold    = 300 * time.Second
	DefaultRetryPollInterval = 1 * time.Minute
	DefaultMaxRetries        = 5
	DefaultMaxRetryDelay     = 24 * time.Hour
	DefaultValidationWorkers = 10
	DefaultValidationTTL     = 1 * time.Hour
	DefaultValidationDelay   = 500 * time.Millisecond
	DefaultMetadataCacheTTL  = 7 * 24 * time.Hour
	DefaultMinPDFBytes       = 10 * 1024
	DefaultMaxPDFBytes       = 200 * 1024 * 1024
	DefaultShutdownTimeout   = 10 * time.Second
)

// BrowserUserAgent is sent on PDF downloads; several publishers reject
// requests that do not look like a browser.
const BrowserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// APIUserAgent is sent to metadata APIs.
const APIUserAgent = "pdfhunter/1.0 (https://github.com/cesargomez89/pdfhunter)"

// Source tags that never appear in the registry.
const (
	SourceCached          = "cached"
	SourcePublisherDirect = "publisher_direct"
)

// Capabilities a source may require before it can be used.
const (
	CapabilityContactEmail = "contact_email"
	CapabilityCoreAPIKey   = "core_api_key"
	CapabilityMirrorURLs   = "mirror_urls"
	CapabilityProxy        = "institutional_proxy"
)

// MIME Types
const (
	MimeTypePDF  = "application/pdf"
	MimeTypeJSON = "application/json"
)

// File Extensions
const (
	ExtPDF = ".pdf"
)

// File Permissions
const (
	DirPermissions  = 0755
	FilePermissions = 0644
)

// Listing limits
const (
	DefaultAttemptLimit = 100
	MaxAttemptLimit     = 1000
	MaxValidateBatch    = 500
	MaxProjectDOIs      = 10000
	RetrySweepLimit     = 100
)

// PDFFilenameHashLen is the number of hex characters of sha256(doi) used in filenames.
const PDFFilenameHashLen = 16
