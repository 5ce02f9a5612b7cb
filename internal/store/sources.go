package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cesargomez89/pdfhunter/internal/domain"
)

const sourceColumns = `name, description, requires_capability, priority, timeout_sec, rate_limit, enabled, use_proxy`

// SeedSources inserts any registry defaults that are not stored yet. Rows an
// operator already edited are left alone.
func (db *DB) SeedSources(ctx context.Context, sources []domain.Source) error {
	query := `INSERT OR IGNORE INTO sources (` + sourceColumns + `, updated_at)
		VALUES (:name, :description, :requires_capability, :priority, :timeout_sec, :rate_limit, :enabled, :use_proxy, CURRENT_TIMESTAMP)`

	for i := range sources {
		if _, err := db.NamedExecContext(ctx, query, &sources[i]); err != nil {
			return err
		}
	}
	return nil
}

// UpsertSource writes a source definition, replacing every mutable field.
func (db *DB) UpsertSource(ctx context.Context, s *domain.Source) error {
	query := `INSERT INTO sources (` + sourceColumns + `, updated_at)
		VALUES (:name, :description, :requires_capability, :priority, :timeout_sec, :rate_limit, :enabled, :use_proxy, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			requires_capability = excluded.requires_capability,
			priority = excluded.priority,
			timeout_sec = excluded.timeout_sec,
			rate_limit = excluded.rate_limit,
			enabled = excluded.enabled,
			use_proxy = excluded.use_proxy,
			updated_at = excluded.updated_at`

	_, err := db.NamedExecContext(ctx, query, s)
	return err
}

func (db *DB) ListSources(ctx context.Context) ([]domain.Source, error) {
	var sources []domain.Source
	err := db.SelectContext(ctx, &sources, `SELECT `+sourceColumns+` FROM sources ORDER BY priority ASC, name ASC`)
	return sources, err
}

func (db *DB) GetSource(ctx context.Context, name string) (*domain.Source, error) {
	s := &domain.Source{}
	err := db.GetContext(ctx, s, `SELECT `+sourceColumns+` FROM sources WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SetSourceEnabled toggles a source. It reports false when no such source exists.
func (db *DB) SetSourceEnabled(ctx context.Context, name string, enabled bool) (bool, error) {
	res, err := db.ExecContext(ctx, `UPDATE sources SET enabled = ?, updated_at = ? WHERE name = ?`, enabled, time.Now().UTC(), name)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SetSourcePriority changes a source's static priority. It reports false when
// no such source exists.
func (db *DB) SetSourcePriority(ctx context.Context, name string, priority int) (bool, error) {
	res, err := db.ExecContext(ctx, `UPDATE sources SET priority = ?, updated_at = ? WHERE name = ?`, priority, time.Now().UTC(), name)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
