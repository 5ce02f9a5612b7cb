package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cesargomez89/pdfhunter/internal/domain"
)

const performanceColumns = `source_name, total_attempts, success_count, failure_count, avg_response_time_ms, success_rate, last_success_at, last_failure_at`

// UpdatePerformance folds one attempt into the source aggregate. SQLite
// evaluates every SET expression against the row as it was before the update,
// so the running mean and rate stay exact under concurrent writers.
func (db *DB) UpdatePerformance(ctx context.Context, source string, success bool, responseTimeMs int64, at time.Time) error {
	var successInc, failureInc int
	var lastSuccess, lastFailure *time.Time
	at = at.UTC()
	if success {
		successInc = 1
		lastSuccess = &at
	} else {
		failureInc = 1
		lastFailure = &at
	}

	query := `INSERT INTO source_performance (` + performanceColumns + `)
		VALUES (?, 1, ?, ?, ?, ? * 100.0, ?, ?)
		ON CONFLICT(source_name) DO UPDATE SET
			total_attempts = total_attempts + 1,
			success_count = success_count + excluded.success_count,
			failure_count = failure_count + excluded.failure_count,
			avg_response_time_ms = (avg_response_time_ms * total_attempts + excluded.avg_response_time_ms) / (total_attempts + 1),
			success_rate = (success_count + excluded.success_count) * 100.0 / (total_attempts + 1),
			last_success_at = COALESCE(excluded.last_success_at, last_success_at),
			last_failure_at = COALESCE(excluded.last_failure_at, last_failure_at)`

	_, err := db.ExecContext(ctx, query,
		source, successInc, failureInc, float64(responseTimeMs), successInc, lastSuccess, lastFailure)
	return err
}

func (db *DB) GetPerformance(ctx context.Context, source string) (*domain.SourcePerformance, error) {
	p := &domain.SourcePerformance{}
	err := db.GetContext(ctx, p, `SELECT `+performanceColumns+` FROM source_performance WHERE source_name = ?`, source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPerformance returns every aggregate row in ranking order.
func (db *DB) ListPerformance(ctx context.Context) ([]*domain.SourcePerformance, error) {
	query := `SELECT ` + performanceColumns + ` FROM source_performance
		ORDER BY success_rate DESC, avg_response_time_ms ASC, source_name ASC`

	var rows []*domain.SourcePerformance
	err := db.SelectContext(ctx, &rows, query)
	return rows, err
}

// ResetPerformance clears the aggregate for one source, or for all sources
// when source is empty.
func (db *DB) ResetPerformance(ctx context.Context, source string) (int64, error) {
	var res sql.Result
	var err error
	if source == "" {
		res, err = db.ExecContext(ctx, `DELETE FROM source_performance`)
	} else {
		res, err = db.ExecContext(ctx, `DELETE FROM source_performance WHERE source_name = ?`, source)
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
