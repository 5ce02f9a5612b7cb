package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cesargomez89/pdfhunter/internal/domain"
)

func (db *DB) CreateProject(ctx context.Context, p *domain.Project) error {
	p.CreatedAt = p.CreatedAt.UTC()
	query := `INSERT INTO projects (id, name, dois, created_at) VALUES (:id, :name, :dois, :created_at)`
	_, err := db.NamedExecContext(ctx, query, p)
	return err
}

func (db *DB) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	p := &domain.Project{}
	err := db.GetContext(ctx, p, `SELECT id, name, dois, created_at FROM projects WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (db *DB) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	var projects []*domain.Project
	err := db.SelectContext(ctx, &projects, `SELECT id, name, dois, created_at FROM projects ORDER BY created_at DESC`)
	return projects, err
}
