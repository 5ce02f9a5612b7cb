package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cesargomez89/pdfhunter/internal/constants"
	"github.com/cesargomez89/pdfhunter/internal/domain"
	"github.com/cesargomez89/pdfhunter/internal/logger"
)

type ProjectStore interface {
	CreateProject(ctx context.Context, p *domain.Project) error
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	ListProjects(ctx context.Context) ([]*domain.Project, error)
	ListAttemptsByProject(ctx context.Context, projectID string, limit int) ([]*domain.DownloadAttempt, error)
	ListRetries(ctx context.Context, projectID string) ([]*domain.RetryQueueEntry, error)
}

// ProjectService stands in for the project collaborator: it stores named,
// ordered DOI lists and exposes their acquisition history.
type ProjectService struct {
	Repo   ProjectStore
	Logger *logger.Logger
}

func NewProjectService(repo ProjectStore, log *logger.Logger) *ProjectService {
	if log == nil {
		log = logger.Default()
	}
	return &ProjectService{Repo: repo, Logger: log.WithComponent("project_service")}
}

// Create stores a project. DOIs are normalized and deduplicated, keeping
// their first position.
func (s *ProjectService) Create(ctx context.Context, name string, dois []string) (*domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(dois) > constants.MaxProjectDOIs {
		return nil, fmt.Errorf("%w: at most %d DOIs per project", ErrInvalidInput, constants.MaxProjectDOIs)
	}

	list := domain.StringSlice{}
	seen := make(map[string]bool, len(dois))
	for _, raw := range dois {
		doi := domain.NormalizeDOI(raw)
		if doi == "" || seen[doi] {
			continue
		}
		seen[doi] = true
		list = append(list, doi)
	}

	p := &domain.Project{
		ID:        uuid.New().String(),
		Name:      name,
		DOIs:      list,
		CreatedAt: time.Now(),
	}
	if err := s.Repo.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	s.Logger.Info("Project created", "project_id", p.ID, "dois", len(list))
	return p, nil
}

func (s *ProjectService) Get(ctx context.Context, id string) (*domain.Project, error) {
	p, err := s.Repo.GetProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	if p == nil {
		return nil, ErrProjectNotFound
	}
	return p, nil
}

func (s *ProjectService) List(ctx context.Context) ([]*domain.Project, error) {
	return s.Repo.ListProjects(ctx)
}

// Attempts returns the most recent attempts for a project, newest first.
func (s *ProjectService) Attempts(ctx context.Context, id string, limit int) ([]*domain.DownloadAttempt, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = constants.DefaultAttemptLimit
	}
	if limit > constants.MaxAttemptLimit {
		limit = constants.MaxAttemptLimit
	}
	attempts, err := s.Repo.ListAttemptsByProject(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	if attempts == nil {
		attempts = []*domain.DownloadAttempt{}
	}
	return attempts, nil
}

func (s *ProjectService) RetryQueue(ctx context.Context, id string) ([]*domain.RetryQueueEntry, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.Repo.ListRetries(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list retry queue: %w", err)
	}
	if entries == nil {
		entries = []*domain.RetryQueueEntry{}
	}
	return entries, nil
}
