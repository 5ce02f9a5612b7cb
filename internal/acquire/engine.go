// Package acquire resolves a DOI to a PDF on disk by working through the
// source registry, learning from every attempt as it goes.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cesargomez89/pdfhunter/internal/constants"
	"github.com/cesargomez89/pdfhunter/internal/crossref"
	"github.com/cesargomez89/pdfhunter/internal/domain"
	"github.com/cesargomez89/pdfhunter/internal/logger"
	"github.com/cesargomez89/pdfhunter/internal/sources"
)

// Engine runs the acquisition pipeline for one DOI at a time. It is safe
// for concurrent use by batches of different projects.
type Engine struct {
	registry *sources.Registry
	executor *Executor
	tracker  *Tracker
	patterns *PatternLearner
	retries  *RetryScheduler
	lookup   crossref.Lookup
	direct   func(doi string) []string
	logger   *logger.Logger
	now      func() time.Time
}

type EngineDeps struct {
	Registry *sources.Registry
	Executor *Executor
	Tracker  *Tracker
	Patterns *PatternLearner
	Retries  *RetryScheduler
	Lookup   crossref.Lookup // optional, names publishers for learned patterns
	Logger   *logger.Logger
	// DirectURLs builds last-resort URLs from the DOI. Defaults to
	// sources.PublisherDirectURLs.
	DirectURLs func(doi string) []string
}

func NewEngine(deps EngineDeps) *Engine {
	log := deps.Logger
	if log == nil {
		log = logger.Default()
	}
	direct := deps.DirectURLs
	if direct == nil {
		direct = sources.PublisherDirectURLs
	}
	return &Engine{
		direct:   direct,
		registry: deps.Registry,
		executor: deps.Executor,
		tracker:  deps.Tracker,
		patterns: deps.Patterns,
		retries:  deps.Retries,
		lookup:   deps.Lookup,
		logger:   log.WithComponent("acquire"),
		now:      time.Now,
	}
}

// failure is the most recent reason a DOI is still unresolved.
type failure struct {
	kind     domain.ProbeKind
	category domain.FailureCategory
	reason   string
	source   string
}

// Acquire tries to place the PDF for doi in dir. The returned outcome is
// always usable; a non-nil error additionally reports a local failure
// (disk, database, cancellation) that cut the pipeline short.
func (e *Engine) Acquire(ctx context.Context, projectID, dir, rawDOI string) (domain.Outcome, error) {
	doi := domain.NormalizeDOI(rawDOI)
	out := domain.Outcome{DOI: doi}

	if res, ok := e.executor.Cached(dir, doi); ok {
		out.Status = domain.OutcomeDownloaded
		out.Source = constants.SourceCached
		out.Path = res.Path
		if err := e.retries.Remove(ctx, projectID, doi); err != nil {
			e.logger.Warn("Failed to clear retry entry", "doi", doi, "error", err)
		}
		return out, nil
	}

	candidates, err := e.registry.Candidates(ctx)
	if err != nil {
		return e.fail(out, fmt.Errorf("load sources: %w", err))
	}
	ranked, err := e.tracker.Rank(ctx, candidates)
	if err != nil {
		return e.fail(out, fmt.Errorf("rank sources: %w", err))
	}
	ranked = e.preferLearned(ctx, doi, ranked)

	var last *failure

	for _, src := range ranked {
		if err := ctx.Err(); err != nil {
			return e.fail(out, err)
		}
		probe, ok := e.registry.Probe(src.Name)
		if !ok {
			continue
		}

		res := sources.Run(ctx, probe, doi, src.Timeout())
		out.Attempts++
		if !res.IsFound() {
			e.logger.Debug("Source miss", "doi", doi, "source", src.Name, "kind", res.Kind.String(), "reason", res.Reason)
			if err := e.record(ctx, projectID, doi, src.Name, res.Latency, "", nil, res.Category, res.Reason); err != nil {
				return e.fail(out, err)
			}
			last = &failure{kind: res.Kind, category: res.Category, reason: res.Reason, source: src.Name}
			continue
		}

		done, f, err := e.fetch(ctx, &out, projectID, dir, doi, src.Name, res.URL, src.UseProxy, res.Latency)
		if err != nil {
			return e.fail(out, err)
		}
		if done {
			e.learn(ctx, doi, src.Name, res.URL)
			return out, nil
		}
		last = &f
	}

	for _, u := range e.direct(doi) {
		if err := ctx.Err(); err != nil {
			return e.fail(out, err)
		}
		out.Attempts++
		done, f, err := e.fetch(ctx, &out, projectID, dir, doi, constants.SourcePublisherDirect, u, false, 0)
		if err != nil {
			return e.fail(out, err)
		}
		if done {
			return out, nil
		}
		// The heuristic only decides routing when no registry source
		// produced a classified failure.
		if last == nil {
			last = &f
		}
	}

	return e.route(ctx, out, projectID, doi, last)
}

// preferLearned moves the source that last worked for the DOI's publisher
// to the front, provided it is still a candidate.
func (e *Engine) preferLearned(ctx context.Context, doi string, ranked []domain.Source) []domain.Source {
	name, err := e.patterns.Preferred(ctx, doi)
	if err != nil {
		e.logger.Warn("Pattern lookup failed", "doi", doi, "error", err)
		return ranked
	}
	if name == "" {
		return ranked
	}
	for i, s := range ranked {
		if s.Name == name {
			reordered := make([]domain.Source, 0, len(ranked))
			reordered = append(reordered, s)
			reordered = append(reordered, ranked[:i]...)
			return append(reordered, ranked[i+1:]...)
		}
	}
	return ranked
}

// fetch downloads pdfURL and records the attempt. done is true once the
// file is on disk.
func (e *Engine) fetch(ctx context.Context, out *domain.Outcome, projectID, dir, doi, source, pdfURL string, useProxy bool, probeLatency time.Duration) (bool, failure, error) {
	start := time.Now()
	res, err := e.executor.Download(ctx, dir, doi, pdfURL, useProxy)
	latency := probeLatency + time.Since(start)

	if err != nil {
		var de *DownloadError
		if !errors.As(err, &de) {
			a := e.attempt(projectID, doi, source, latency, pdfURL, nil, "", "Exception: "+err.Error())
			if recErr := e.tracker.RecordLocal(ctx, a); recErr != nil {
				e.logger.Error("Failed to record local failure", "doi", doi, "source", source, "error", recErr)
			}
			return false, failure{}, err
		}
		e.logger.Debug("Download rejected", "doi", doi, "source", source, "category", string(de.Category), "reason", de.Reason)
		if err := e.record(ctx, projectID, doi, source, latency, pdfURL, nil, de.Category, de.Reason); err != nil {
			return false, failure{}, err
		}
		kind := domain.Miss(de.Category, de.Reason).Kind
		return false, failure{kind: kind, category: de.Category, reason: de.Reason, source: source}, nil
	}

	if err := e.record(ctx, projectID, doi, source, latency, pdfURL, res, "", ""); err != nil {
		return false, failure{}, err
	}
	if err := e.retries.Remove(ctx, projectID, doi); err != nil {
		e.logger.Warn("Failed to clear retry entry", "doi", doi, "error", err)
	}

	out.Status = domain.OutcomeDownloaded
	out.Source = source
	out.Path = res.Path
	e.logger.Info("Downloaded PDF", "doi", doi, "source", source, "bytes", res.Size)
	return true, failure{}, nil
}

func (e *Engine) learn(ctx context.Context, doi, source, pdfURL string) {
	var publisher string
	if e.lookup != nil {
		if work, err := e.lookup.GetWork(ctx, doi); err == nil && work != nil {
			publisher = work.Publisher
		}
	}
	if err := e.patterns.Learn(ctx, doi, source, pdfURL, publisher, e.now()); err != nil {
		e.logger.Warn("Failed to record publisher pattern", "doi", doi, "source", source, "error", err)
	}
}

// route files an unresolved DOI by the failure that ended the search.
func (e *Engine) route(ctx context.Context, out domain.Outcome, projectID, doi string, last *failure) (domain.Outcome, error) {
	if last == nil {
		out.Status = domain.OutcomeNeedsUpload
		out.Category = domain.FailureNotFound
		out.Reason = "no source available"
		return out, nil
	}

	out.Source = last.source
	out.Category = last.category
	out.Reason = last.reason

	switch last.kind {
	case domain.ProbeTransient:
		entry, err := e.retries.Enqueue(ctx, projectID, doi, last.category, last.reason)
		switch {
		case err == nil:
			out.Status = domain.OutcomeRetryQueued
			e.logger.Info("Queued for retry", "doi", doi, "category", string(last.category), "retry_count", entry.RetryCount, "next_retry_at", entry.NextRetryAt)
		case errors.Is(err, ErrRetriesExhausted):
			out.Status = domain.OutcomeNeedsUpload
			out.Reason = "retries exhausted: " + last.reason
		default:
			out.Status = domain.OutcomeError
			return out, fmt.Errorf("enqueue retry: %w", err)
		}
	case domain.ProbeFailed:
		out.Status = domain.OutcomeError
	default:
		out.Status = domain.OutcomeNeedsUpload
	}
	return out, nil
}

func (e *Engine) fail(out domain.Outcome, err error) (domain.Outcome, error) {
	out.Status = domain.OutcomeError
	out.Category = domain.FailureNetworkError
	out.Reason = "Exception: " + err.Error()
	return out, err
}

func (e *Engine) record(ctx context.Context, projectID, doi, source string, latency time.Duration, pdfURL string, res *DownloadResult, category domain.FailureCategory, reason string) error {
	a := e.attempt(projectID, doi, source, latency, pdfURL, res, category, reason)
	if err := e.tracker.Record(ctx, a); err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

func (e *Engine) attempt(projectID, doi, source string, latency time.Duration, pdfURL string, res *DownloadResult, category domain.FailureCategory, reason string) *domain.DownloadAttempt {
	a := &domain.DownloadAttempt{
		ProjectID:       projectID,
		DOI:             doi,
		SourceName:      source,
		Success:         res != nil,
		FailureReason:   reason,
		FailureCategory: category,
		ResponseTimeMs:  latency.Milliseconds(),
		PDFURL:          pdfURL,
		Timestamp:       e.now(),
	}
	if res != nil {
		a.FileSizeBytes = res.Size
	}
	return a
}
