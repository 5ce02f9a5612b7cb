package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cesargomez89/pdfhunter/internal/domain"
)

const retryColumns = `project_id, doi, failure_category, retry_count, next_retry_at, last_attempted_at, last_error`

func (db *DB) GetRetryEntry(ctx context.Context, projectID, doi string) (*domain.RetryQueueEntry, error) {
	e := &domain.RetryQueueEntry{}
	err := db.GetContext(ctx, e, `SELECT `+retryColumns+` FROM retry_queue WHERE project_id = ? AND doi = ?`, projectID, doi)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (db *DB) UpsertRetryEntry(ctx context.Context, e *domain.RetryQueueEntry) error {
	e.NextRetryAt = e.NextRetryAt.UTC()
	e.LastAttemptedAt = e.LastAttemptedAt.UTC()

	query := `INSERT INTO retry_queue (` + retryColumns + `)
		VALUES (:project_id, :doi, :failure_category, :retry_count, :next_retry_at, :last_attempted_at, :last_error)
		ON CONFLICT(project_id, doi) DO UPDATE SET
			failure_category = excluded.failure_category,
			retry_count = excluded.retry_count,
			next_retry_at = excluded.next_retry_at,
			last_attempted_at = excluded.last_attempted_at,
			last_error = excluded.last_error`

	_, err := db.NamedExecContext(ctx, query, e)
	return err
}

func (db *DB) RemoveRetryEntry(ctx context.Context, projectID, doi string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM retry_queue WHERE project_id = ? AND doi = ?`, projectID, doi)
	return err
}

// DueRetries returns entries whose next attempt time has passed, oldest first.
func (db *DB) DueRetries(ctx context.Context, now time.Time, limit int) ([]*domain.RetryQueueEntry, error) {
	query := `SELECT ` + retryColumns + ` FROM retry_queue
		WHERE next_retry_at <= ? ORDER BY next_retry_at ASC LIMIT ?`

	var entries []*domain.RetryQueueEntry
	err := db.SelectContext(ctx, &entries, query, now.UTC(), limit)
	return entries, err
}

// ListRetries lists queued entries for a project, or for every project when
// projectID is empty.
func (db *DB) ListRetries(ctx context.Context, projectID string) ([]*domain.RetryQueueEntry, error) {
	var entries []*domain.RetryQueueEntry
	var err error
	if projectID == "" {
		err = db.SelectContext(ctx, &entries, `SELECT `+retryColumns+` FROM retry_queue ORDER BY next_retry_at ASC`)
	} else {
		err = db.SelectContext(ctx, &entries, `SELECT `+retryColumns+` FROM retry_queue WHERE project_id = ? ORDER BY next_retry_at ASC`, projectID)
	}
	return entries, err
}
