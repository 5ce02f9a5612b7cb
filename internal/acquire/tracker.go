package acquire

import (
	"context"
	"sort"
	"time"

	"github.com/cesargomez89/pdfhunter/internal/domain"
	"github.com/cesargomez89/pdfhunter/internal/store"
)

// TrackerStore is the persistence behind the performance tracker.
type TrackerStore interface {
	RecordAttempt(ctx context.Context, a *domain.DownloadAttempt) error
	InsertAttempt(ctx context.Context, a *domain.DownloadAttempt) error
	ListPerformance(ctx context.Context) ([]*domain.SourcePerformance, error)
	GetPerformance(ctx context.Context, source string) (*domain.SourcePerformance, error)
	ResetPerformance(ctx context.Context, source string) (int64, error)
	PruneAttempts(ctx context.Context, olderThan time.Time) (int64, error)
	FailureBreakdown(ctx context.Context) ([]store.CategoryCount, error)
}

// Tracker keeps the append-only attempt log and the per-source aggregates
// used to rank sources.
type Tracker struct {
	store TrackerStore
}

func NewTracker(s TrackerStore) *Tracker {
	return &Tracker{store: s}
}

// Record persists one attempt together with its aggregate update.
func (t *Tracker) Record(ctx context.Context, a *domain.DownloadAttempt) error {
	return t.store.RecordAttempt(ctx, a)
}

// RecordLocal appends an attempt that failed on this machine. The source's
// aggregate is left alone.
func (t *Tracker) RecordLocal(ctx context.Context, a *domain.DownloadAttempt) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	a.Timestamp = a.Timestamp.UTC()
	return t.store.InsertAttempt(ctx, a)
}

// Rank orders sources by success rate (desc), average response time (asc)
// and static priority (asc). Sources without history count as 0% and 0ms.
func (t *Tracker) Rank(ctx context.Context, candidates []domain.Source) ([]domain.Source, error) {
	rows, err := t.store.ListPerformance(ctx)
	if err != nil {
		return nil, err
	}
	perf := make(map[string]*domain.SourcePerformance, len(rows))
	for _, r := range rows {
		perf[r.SourceName] = r
	}

	ranked := make([]domain.Source, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		pi, pj := perf[ranked[i].Name], perf[ranked[j].Name]
		var ri, rj, ai, aj float64
		if pi != nil {
			ri, ai = pi.SuccessRate, pi.AvgResponseTimeMs
		}
		if pj != nil {
			rj, aj = pj.SuccessRate, pj.AvgResponseTimeMs
		}
		if ri != rj {
			return ri > rj
		}
		if ai != aj {
			return ai < aj
		}
		if ranked[i].Priority != ranked[j].Priority {
			return ranked[i].Priority < ranked[j].Priority
		}
		return ranked[i].Name < ranked[j].Name
	})
	return ranked, nil
}

func (t *Tracker) Performance(ctx context.Context) ([]*domain.SourcePerformance, error) {
	return t.store.ListPerformance(ctx)
}

func (t *Tracker) FailureBreakdown(ctx context.Context) ([]store.CategoryCount, error) {
	return t.store.FailureBreakdown(ctx)
}

// Reset clears aggregates for one source, or all sources when source is empty.
func (t *Tracker) Reset(ctx context.Context, source string) (int64, error) {
	return t.store.ResetPerformance(ctx, source)
}

// Prune deletes attempt history older than age.
func (t *Tracker) Prune(ctx context.Context, age time.Duration) (int64, error) {
	return t.store.PruneAttempts(ctx, time.Now().Add(-age))
}
