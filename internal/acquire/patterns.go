package acquire

import (
	"context"
	"time"

	"github.com/cesargomez89/pdfhunter/internal/domain"
	"github.com/cesargomez89/pdfhunter/internal/sources"
)

type PatternStore interface {
	RecordPatternSuccess(ctx context.Context, prefix, publisher, source, urlPattern string, at time.Time) error
	BestPattern(ctx context.Context, prefix string) (*domain.PublisherPattern, error)
}

// PatternLearner remembers which source worked for which DOI prefix.
type PatternLearner struct {
	store PatternStore
}

func NewPatternLearner(s PatternStore) *PatternLearner {
	return &PatternLearner{store: s}
}

// Learn records a success. Only successes are ever learned.
func (l *PatternLearner) Learn(ctx context.Context, doi, source, pdfURL, publisher string, at time.Time) error {
	prefix := domain.DOIPrefix(doi)
	if prefix == "" {
		return nil
	}
	return l.store.RecordPatternSuccess(ctx, prefix, publisher, source, sources.URLPattern(doi, pdfURL), at)
}

// Preferred returns the most successful source for the DOI's prefix, or ""
// when nothing has been learned yet.
func (l *PatternLearner) Preferred(ctx context.Context, doi string) (string, error) {
	prefix := domain.DOIPrefix(doi)
	if prefix == "" {
		return "", nil
	}
	p, err := l.store.BestPattern(ctx, prefix)
	if err != nil || p == nil {
		return "", err
	}
	return p.SuccessfulSource, nil
}
