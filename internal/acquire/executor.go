package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/cesargomez89/pdfhunter/internal/constants"
	"github.com/cesargomez89/pdfhunter/internal/domain"
	"github.com/cesargomez89/pdfhunter/internal/httpclient"
	"github.com/cesargomez89/pdfhunter/internal/storage"
)

// DownloadError is a download that reached the remote side and was rejected
// or produced something that is not a usable PDF. Any other error returned
// by the executor is a local failure.
type DownloadError struct {
	Category   domain.FailureCategory
	Reason     string
	StatusCode int
}

func (e *DownloadError) Error() string {
	return e.Reason
}

// DownloadResult describes a PDF on disk.
type DownloadResult struct {
	Path   string
	Size   int64
	Cached bool
}

type ExecutorConfig struct {
	MinBytes        int64
	MaxBytes        int64
	VerifyStructure bool
}

// Executor fetches candidate URLs and keeps only files that look like PDFs.
type Executor struct {
	client  *httpclient.Client
	proxied *httpclient.Client
	cfg     ExecutorConfig
}

// NewExecutor builds an executor. proxied may be nil, in which case sources
// flagged for the proxy download directly.
func NewExecutor(client, proxied *httpclient.Client, cfg ExecutorConfig) *Executor {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = constants.DefaultMaxPDFBytes
	}
	return &Executor{client: client, proxied: proxied, cfg: cfg}
}

// Cached returns the existing file for doi in dir, if any.
func (e *Executor) Cached(dir, doi string) (*DownloadResult, bool) {
	path := storage.PDFPath(dir, doi)
	if size := storage.CachedSize(path); size > 0 {
		return &DownloadResult{Path: path, Size: size, Cached: true}, true
	}
	return nil, false
}

// Download stores the PDF at pdfURL as the file for doi in dir. A file that
// already exists is returned untouched without any network traffic.
func (e *Executor) Download(ctx context.Context, dir, doi, pdfURL string, useProxy bool) (*DownloadResult, error) {
	if res, ok := e.Cached(dir, doi); ok {
		return res, nil
	}
	if err := storage.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create project dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return nil, &DownloadError{Category: domain.FailureNotFound, Reason: fmt.Sprintf("bad url %q: %v", pdfURL, err)}
	}
	req.Header.Set("User-Agent", constants.BrowserUserAgent)
	req.Header.Set("Accept", constants.MimeTypePDF+",*/*;q=0.8")

	client := e.client
	if useProxy && e.proxied != nil {
		client = e.proxied
	}

	resp, err := client.Do(ctx, req)
	if err != nil {
		return nil, &DownloadError{Category: domain.ClassifyError(err), Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &DownloadError{
			Category:   domain.Classify("", resp.StatusCode),
			Reason:     fmt.Sprintf("HTTP %d from %s", resp.StatusCode, pdfURL),
			StatusCode: resp.StatusCode,
		}
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(ct), "pdf") {
		return nil, &DownloadError{Category: domain.FailureInvalidPDF, Reason: fmt.Sprintf("unexpected content-type %q", ct)}
	}

	return e.store(resp.Body, dir, doi)
}

func (e *Executor) store(body io.Reader, dir, doi string) (*DownloadResult, error) {
	tmp, err := storage.CreateTemp(dir)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	keep := false
	defer func() {
		if !keep {
			_ = storage.RemoveFile(tmpPath)
		}
	}()

	n, copyErr := io.Copy(tmp, io.LimitReader(body, e.cfg.MaxBytes+1))
	if err := tmp.Close(); err != nil && copyErr == nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	if copyErr != nil {
		return nil, &DownloadError{Category: domain.ClassifyError(copyErr), Reason: "reading body: " + copyErr.Error()}
	}

	if n > e.cfg.MaxBytes {
		return nil, &DownloadError{Category: domain.FailureInvalidPDF, Reason: fmt.Sprintf("file exceeds %d bytes", e.cfg.MaxBytes)}
	}
	if n < e.cfg.MinBytes {
		return nil, &DownloadError{Category: domain.FailureInvalidPDF, Reason: fmt.Sprintf("file too small (%d bytes)", n)}
	}
	if e.cfg.VerifyStructure {
		if err := verifyPDF(tmpPath); err != nil {
			return nil, &DownloadError{Category: domain.FailureInvalidPDF, Reason: "invalid pdf: " + err.Error()}
		}
	}

	final := storage.PDFPath(dir, doi)
	if err := storage.MoveFile(tmpPath, final); err != nil {
		return nil, err
	}
	keep = true
	return &DownloadResult{Path: final, Size: n}, nil
}

// verifyPDF parses the file and requires at least one page.
func verifyPDF(path string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if r.NumPage() < 1 {
		return fmt.Errorf("no pages")
	}
	return nil
}

// IsLocal reports whether err came from this machine rather than the remote side.
func IsLocal(err error) bool {
	if err == nil {
		return false
	}
	var de *DownloadError
	return !errors.As(err, &de)
}

