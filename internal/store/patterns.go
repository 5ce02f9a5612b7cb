package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cesargomez89/pdfhunter/internal/domain"
)

const patternColumns = `doi_prefix, publisher_name, successful_source, url_pattern, success_count, last_success_at`

// RecordPatternSuccess inserts the (prefix, source) pair or bumps its count.
func (db *DB) RecordPatternSuccess(ctx context.Context, prefix, publisher, source, urlPattern string, at time.Time) error {
	query := `INSERT INTO publisher_patterns (` + patternColumns + `)
		VALUES (?, ?, ?, ?, 1, ?)
		ON CONFLICT(doi_prefix, successful_source) DO UPDATE SET
			success_count = success_count + 1,
			last_success_at = MAX(last_success_at, excluded.last_success_at),
			publisher_name = CASE WHEN excluded.publisher_name != '' THEN excluded.publisher_name ELSE publisher_name END,
			url_pattern = CASE WHEN excluded.url_pattern != '' THEN excluded.url_pattern ELSE url_pattern END`

	_, err := db.ExecContext(ctx, query, prefix, publisher, source, urlPattern, at.UTC())
	return err
}

// BestPattern returns the pattern with the highest success count for the
// prefix, or nil if the prefix has never succeeded.
func (db *DB) BestPattern(ctx context.Context, prefix string) (*domain.PublisherPattern, error) {
	query := `SELECT ` + patternColumns + ` FROM publisher_patterns
		WHERE doi_prefix = ? ORDER BY success_count DESC, last_success_at DESC LIMIT 1`

	p := &domain.PublisherPattern{}
	err := db.GetContext(ctx, p, query, prefix)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (db *DB) ListPatterns(ctx context.Context, prefix string) ([]*domain.PublisherPattern, error) {
	query := `SELECT ` + patternColumns + ` FROM publisher_patterns WHERE doi_prefix = ? ORDER BY success_count DESC`

	var patterns []*domain.PublisherPattern
	err := db.SelectContext(ctx, &patterns, query, prefix)
	return patterns, err
}
