// Package sources holds the registry of external content sources and the
// probes that ask each one for a PDF URL.
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cesargomez89/pdfhunter/internal/domain"
	"github.com/cesargomez89/pdfhunter/internal/httpclient"
)

// Probe asks one external source for a DOI's PDF URL. Probes never persist
// anything; the caller records the attempt.
type Probe interface {
	Name() string
	Probe(ctx context.Context, doi string) domain.ProbeResult
}

// Run calls p with a per-source timeout, stamps the latency and converts a
// panic into a Failed result.
func Run(ctx context.Context, p Probe, doi string, timeout time.Duration) (res domain.ProbeResult) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = domain.Failed(r)
		}
		res.Latency = time.Since(start)
	}()

	res = p.Probe(ctx, doi)
	if res.Kind == domain.ProbeFound && res.URL == "" {
		res = domain.Failed(fmt.Sprintf("%s returned an empty URL", p.Name()))
	}
	return res
}

// missFromError turns a transport or decoding error into a probe result.
func missFromError(err error) domain.ProbeResult {
	var se *httpclient.StatusError
	if errors.As(err, &se) {
		return domain.Miss(domain.Classify("", se.StatusCode), err.Error())
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return domain.Failed(err)
	}

	return domain.Miss(domain.ClassifyError(err), err.Error())
}
