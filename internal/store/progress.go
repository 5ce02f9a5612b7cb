package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cesargomez89/pdfhunter/internal/domain"
)

const progressColumns = `project_id, status, total, current, current_doi, current_source, downloaded, needs_upload, retrying, errors, project_dir, start_time, end_time, updated_at`

// InitProgress replaces any previous batch row for the project.
func (db *DB) InitProgress(ctx context.Context, p *domain.BatchProgress) error {
	normalizeProgressTimes(p)
	query := `INSERT OR REPLACE INTO batch_progress (` + progressColumns + `)
		VALUES (:project_id, :status, :total, :current, :current_doi, :current_source, :downloaded, :needs_upload, :retrying, :errors, :project_dir, :start_time, :end_time, :updated_at)`
	_, err := db.NamedExecContext(ctx, query, p)
	return err
}

// SaveProgress writes the batch state. updated_at only ever moves forward.
func (db *DB) SaveProgress(ctx context.Context, p *domain.BatchProgress) error {
	normalizeProgressTimes(p)
	query := `UPDATE batch_progress SET
			status = :status,
			total = :total,
			current = :current,
			current_doi = :current_doi,
			current_source = :current_source,
			downloaded = :downloaded,
			needs_upload = :needs_upload,
			retrying = :retrying,
			errors = :errors,
			project_dir = :project_dir,
			end_time = :end_time,
			updated_at = MAX(updated_at, :updated_at)
		WHERE project_id = :project_id`
	_, err := db.NamedExecContext(ctx, query, p)
	return err
}

func (db *DB) GetProgress(ctx context.Context, projectID string) (*domain.BatchProgress, error) {
	p := &domain.BatchProgress{}
	err := db.GetContext(ctx, p, `SELECT `+progressColumns+` FROM batch_progress WHERE project_id = ?`, projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// MarkProgressInterrupted flips a running row to interrupted, keeping every
// result list. It reports whether a running row was changed.
func (db *DB) MarkProgressInterrupted(ctx context.Context, projectID string, at time.Time) (bool, error) {
	at = at.UTC()
	res, err := db.ExecContext(ctx, `UPDATE batch_progress
		SET status = ?, end_time = ?, updated_at = MAX(updated_at, ?)
		WHERE project_id = ? AND status = ?`,
		domain.BatchStatusInterrupted, at, at, projectID, domain.BatchStatusRunning)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (db *DB) ListRunningProgress(ctx context.Context) ([]*domain.BatchProgress, error) {
	var rows []*domain.BatchProgress
	err := db.SelectContext(ctx, &rows, `SELECT `+progressColumns+` FROM batch_progress WHERE status = ?`, domain.BatchStatusRunning)
	return rows, err
}

func normalizeProgressTimes(p *domain.BatchProgress) {
	p.StartTime = p.StartTime.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	if p.EndTime != nil {
		t := p.EndTime.UTC()
		p.EndTime = &t
	}
}
