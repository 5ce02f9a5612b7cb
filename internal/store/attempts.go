package store

import (
	"context"
	"time"

	"github.com/cesargomez89/pdfhunter/internal/domain"
	"github.com/google/uuid"
)

const attemptColumns = `id, project_id, doi, source_name, success, failure_reason, failure_category, response_time_ms, file_size_bytes, pdf_url, timestamp`

// RecordAttempt appends the attempt and folds it into the source's aggregate
// in a single transaction.
func (db *DB) RecordAttempt(ctx context.Context, a *domain.DownloadAttempt) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	a.Timestamp = a.Timestamp.UTC()

	return db.RunInTx(ctx, func(tx *DB) error {
		if err := tx.InsertAttempt(ctx, a); err != nil {
			return err
		}
		return tx.UpdatePerformance(ctx, a.SourceName, a.Success, a.ResponseTimeMs, a.Timestamp)
	})
}

// InsertAttempt appends one attempt row. Attempts are never updated.
func (db *DB) InsertAttempt(ctx context.Context, a *domain.DownloadAttempt) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	query := `INSERT INTO download_attempts (` + attemptColumns + `)
		VALUES (:id, :project_id, :doi, :source_name, :success, :failure_reason, :failure_category, :response_time_ms, :file_size_bytes, :pdf_url, :timestamp)`
	_, err := db.NamedExecContext(ctx, query, a)
	return err
}

func (db *DB) ListAttemptsByProject(ctx context.Context, projectID string, limit int) ([]*domain.DownloadAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM download_attempts
		WHERE project_id = ? ORDER BY timestamp DESC, rowid DESC LIMIT ?`

	var attempts []*domain.DownloadAttempt
	err := db.SelectContext(ctx, &attempts, query, projectID, limit)
	return attempts, err
}

func (db *DB) ListAttemptsByDOI(ctx context.Context, doi string) ([]*domain.DownloadAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM download_attempts WHERE doi = ? ORDER BY timestamp ASC, rowid ASC`

	var attempts []*domain.DownloadAttempt
	err := db.SelectContext(ctx, &attempts, query, doi)
	return attempts, err
}

// CategoryCount is one cell of the per-source failure breakdown.
type CategoryCount struct {
	SourceName string                 `json:"source_name" db:"source_name"`
	Category   domain.FailureCategory `json:"category" db:"failure_category"`
	Count      int64                  `json:"count" db:"count"`
}

func (db *DB) FailureBreakdown(ctx context.Context) ([]CategoryCount, error) {
	query := `SELECT source_name, failure_category, COUNT(*) AS count FROM download_attempts
		WHERE success = 0 AND failure_category != ''
		GROUP BY source_name, failure_category
		ORDER BY source_name ASC, count DESC`

	var rows []CategoryCount
	err := db.SelectContext(ctx, &rows, query)
	return rows, err
}

// PruneAttempts deletes attempt history older than the cutoff and returns the
// number of rows removed. Aggregates are not touched.
func (db *DB) PruneAttempts(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM download_attempts WHERE timestamp < ?`, olderThan.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
