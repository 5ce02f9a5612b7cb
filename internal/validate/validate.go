// Package validate checks batches of DOIs against the CrossRef registry.
package validate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cesargomez89/pdfhunter/internal/cache"
	"github.com/cesargomez89/pdfhunter/internal/constants"
	"github.com/cesargomez89/pdfhunter/internal/crossref"
	"github.com/cesargomez89/pdfhunter/internal/domain"
	"github.com/cesargomez89/pdfhunter/internal/logger"
)

var ErrTooMany = errors.New("too many identifiers in one request")

// Invalid is an identifier that failed validation.
type Invalid struct {
	DOI    string `json:"doi"`
	Reason string `json:"reason"`
}

// Result splits a batch into registered and rejected identifiers.
type Result struct {
	Valid   []string  `json:"valid"`
	Invalid []Invalid `json:"invalid"`
}

type verdict struct {
	valid  bool
	reason string
}

type Config struct {
	Workers  int
	CacheTTL time.Duration
	// Delay is paid once per Validate call that needs the registry.
	Delay    time.Duration
	MaxBatch int
}

type Service struct {
	lookup  crossref.Lookup
	verdict *cache.TTL[string, verdict]
	cfg     Config
	logger  *logger.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewService(lookup crossref.Lookup, cfg Config, log *logger.Logger) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = constants.DefaultValidationWorkers
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = constants.DefaultValidationTTL
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = constants.MaxValidateBatch
	}
	if log == nil {
		log = logger.Default()
	}
	return &Service{
		lookup:  lookup,
		verdict: cache.NewTTL[string, verdict](cfg.CacheTTL),
		cfg:     cfg,
		logger:  log.WithComponent("validate"),
		sleep:   sleepCtx,
	}
}

// Validate normalizes and deduplicates dois, then checks each one that is
// not already cached against the registry with a bounded pool. Valid keeps
// input order.
func (s *Service) Validate(ctx context.Context, dois []string) (*Result, error) {
	if len(dois) > s.cfg.MaxBatch {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooMany, len(dois), s.cfg.MaxBatch)
	}

	var order []string
	seen := make(map[string]bool, len(dois))
	for _, raw := range dois {
		doi := domain.NormalizeDOI(raw)
		if seen[doi] {
			continue
		}
		seen[doi] = true
		order = append(order, doi)
	}

	verdicts := make(map[string]verdict, len(order))
	var pending []string
	for _, doi := range order {
		switch {
		case doi == "":
			verdicts[doi] = verdict{reason: "empty identifier"}
		case !domain.ValidDOIFormat(doi):
			verdicts[doi] = verdict{reason: "invalid DOI format"}
		default:
			if v, ok := s.verdict.Get(doi); ok {
				verdicts[doi] = v
			} else {
				pending = append(pending, doi)
			}
		}
	}

	if len(pending) > 0 {
		if err := s.sleep(ctx, s.cfg.Delay); err != nil {
			return nil, err
		}
		looked, err := s.lookupAll(ctx, pending)
		if err != nil {
			return nil, err
		}
		for doi, v := range looked {
			verdicts[doi] = v
		}
		expired := s.verdict.Purge()
		s.logger.Debug("Validated identifiers", "requested", len(dois), "looked_up", len(pending), "expired", expired)
	}

	res := &Result{Valid: []string{}, Invalid: []Invalid{}}
	for _, doi := range order {
		v := verdicts[doi]
		if v.valid {
			res.Valid = append(res.Valid, doi)
		} else {
			res.Invalid = append(res.Invalid, Invalid{DOI: doi, Reason: v.reason})
		}
	}
	return res, nil
}

func (s *Service) lookupAll(ctx context.Context, dois []string) (map[string]verdict, error) {
	results := make([]verdict, len(dois))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, doi := range dois {
		i, doi := i, doi
		g.Go(func() error {
			work, err := s.lookup.GetWork(gctx, doi)
			switch {
			case err != nil:
				// Not cached: the next request asks again.
				results[i] = verdict{reason: "lookup failed: " + err.Error()}
			case work == nil:
				results[i] = verdict{reason: "not registered with CrossRef"}
				s.verdict.Set(doi, results[i])
			default:
				results[i] = verdict{valid: true}
				s.verdict.Set(doi, results[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]verdict, len(dois))
	for i, doi := range dois {
		out[doi] = results[i]
	}
	return out, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
