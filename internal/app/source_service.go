package app

import (
	"context"
	"fmt"
	"time"

	"github.com/cesargomez89/pdfhunter/internal/acquire"
	"github.com/cesargomez89/pdfhunter/internal/domain"
	"github.com/cesargomez89/pdfhunter/internal/logger"
	"github.com/cesargomez89/pdfhunter/internal/sources"
	"github.com/cesargomez89/pdfhunter/internal/store"
)

// SourceView is a registry entry with its live ranking and statistics.
type SourceView struct {
	domain.Source
	Available   bool                      `json:"available"`
	Rank        int                       `json:"rank"`
	Performance *domain.SourcePerformance `json:"performance,omitempty"`
}

type SourceStats struct {
	Performance []*domain.SourcePerformance `json:"performance"`
	Failures    []store.CategoryCount       `json:"failures"`
}

// SourceUpdate holds the admin-editable fields; nil means unchanged.
type SourceUpdate struct {
	Enabled  *bool
	Priority *int
}

type SourceService struct {
	Registry *sources.Registry
	Tracker  *acquire.Tracker
	Logger   *logger.Logger
}

func NewSourceService(reg *sources.Registry, tracker *acquire.Tracker, log *logger.Logger) *SourceService {
	if log == nil {
		log = logger.Default()
	}
	return &SourceService{Registry: reg, Tracker: tracker, Logger: log.WithComponent("source_service")}
}

// List returns every registered source in the order the engine would try
// them, unavailable sources included.
func (s *SourceService) List(ctx context.Context) ([]SourceView, error) {
	all, err := s.Registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	ranked, err := s.Tracker.Rank(ctx, all)
	if err != nil {
		return nil, fmt.Errorf("failed to rank sources: %w", err)
	}
	perf, err := s.Tracker.Performance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load performance: %w", err)
	}
	byName := make(map[string]*domain.SourcePerformance, len(perf))
	for _, p := range perf {
		byName[p.SourceName] = p
	}

	views := make([]SourceView, len(ranked))
	for i := range ranked {
		views[i] = SourceView{
			Source:      ranked[i],
			Available:   s.Registry.Available(&ranked[i]),
			Rank:        i + 1,
			Performance: byName[ranked[i].Name],
		}
	}
	return views, nil
}

func (s *SourceService) Update(ctx context.Context, name string, u SourceUpdate) (*domain.Source, error) {
	if u.Priority != nil && *u.Priority < 0 {
		return nil, fmt.Errorf("%w: priority must not be negative", ErrInvalidInput)
	}
	if u.Enabled != nil {
		if err := s.Registry.SetEnabled(ctx, name, *u.Enabled); err != nil {
			return nil, err
		}
		s.Logger.Info("Source toggled", "source", name, "enabled", *u.Enabled)
	}
	if u.Priority != nil {
		if err := s.Registry.SetPriority(ctx, name, *u.Priority); err != nil {
			return nil, err
		}
		s.Logger.Info("Source priority changed", "source", name, "priority", *u.Priority)
	}
	return s.Registry.Get(ctx, name)
}

func (s *SourceService) Stats(ctx context.Context) (*SourceStats, error) {
	perf, err := s.Tracker.Performance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load performance: %w", err)
	}
	failures, err := s.Tracker.FailureBreakdown(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load failure breakdown: %w", err)
	}
	if perf == nil {
		perf = []*domain.SourcePerformance{}
	}
	if failures == nil {
		failures = []store.CategoryCount{}
	}
	return &SourceStats{Performance: perf, Failures: failures}, nil
}

// ResetPerformance clears the aggregates of one source, or all when source is "".
func (s *SourceService) ResetPerformance(ctx context.Context, source string) (int64, error) {
	if source != "" {
		if _, err := s.Registry.Get(ctx, source); err != nil {
			return 0, err
		}
	}
	n, err := s.Tracker.Reset(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("failed to reset performance: %w", err)
	}
	s.Logger.Info("Performance reset", "source", source, "rows", n)
	return n, nil
}

// PruneAttempts deletes attempt history older than the given number of days.
func (s *SourceService) PruneAttempts(ctx context.Context, olderThanDays int) (int64, error) {
	if olderThanDays < 1 {
		return 0, fmt.Errorf("%w: older_than_days must be at least 1", ErrInvalidInput)
	}
	n, err := s.Tracker.Prune(ctx, time.Duration(olderThanDays)*24*time.Hour)
	if err != nil {
		return 0, fmt.Errorf("failed to prune attempts: %w", err)
	}
	s.Logger.Info("Attempts pruned", "older_than_days", olderThanDays, "rows", n)
	return n, nil
}
