package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cesargomez89/pdfhunter/internal/constants"
	"github.com/cesargomez89/pdfhunter/internal/domain"
	"github.com/cesargomez89/pdfhunter/internal/logger"
	"github.com/cesargomez89/pdfhunter/internal/storage"
	"github.com/cesargomez89/pdfhunter/internal/worker"
)

type BatchStore interface {
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	GetProgress(ctx context.Context, projectID string) (*domain.BatchProgress, error)
	InitProgress(ctx context.Context, p *domain.BatchProgress) error
	MarkProgressInterrupted(ctx context.Context, projectID string, at time.Time) (bool, error)
}

// BatchStatus is a progress snapshot with its derived liveness fields.
type BatchStatus struct {
	*domain.BatchProgress
	IsStale            bool    `json:"is_stale"`
	SecondsSinceUpdate float64 `json:"seconds_since_update"`
}

// BatchService starts, inspects and resets project batches.
type BatchService struct {
	Repo   BatchStore
	Runner *worker.BatchRunner
	Root   string
	Stale  time.Duration
	Logger *logger.Logger

	mu  sync.Mutex
	now func() time.Time
}

func NewBatchService(repo BatchStore, runner *worker.BatchRunner, root string, stale time.Duration, log *logger.Logger) *BatchService {
	if log == nil {
		log = logger.Default()
	}
	if stale <= 0 {
		stale = constants.DefaultStaleThreshold
	}
	return &BatchService{
		Repo:   repo,
		Runner: runner,
		Root:   root,
		Stale:  stale,
		Logger: log.WithComponent("batch_service"),
		now:    time.Now,
	}
}

// Busy reports whether a batch for projectID is live, either in this
// process or in another one sharing the database (a running row that is not
// stale). Lookup errors count as busy.
func (s *BatchService) Busy(projectID string) bool {
	if s.Runner != nil && s.Runner.IsRunning(projectID) {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p, err := s.Repo.GetProgress(ctx, projectID)
	if err != nil {
		s.Logger.Warn("Failed to load progress", "project_id", projectID, "error", err)
		return true
	}
	return p != nil && p.Status == domain.BatchStatusRunning && !p.IsStale(s.now(), s.Stale)
}

// ProjectDir is the storage directory for a project's PDFs.
func (s *BatchService) ProjectDir(projectID string) string {
	return storage.ProjectDir(s.Root, projectID)
}

// Start writes a fresh running progress row and hands the batch to the
// runner. The row exists before Start returns, so an immediate status poll
// never sees a batch that has not started.
func (s *BatchService) Start(ctx context.Context, projectID string, forceRestart bool) (*domain.BatchProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, err := s.Repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}

	now := s.now()
	existing, err := s.Repo.GetProgress(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	if existing != nil && existing.Status == domain.BatchStatusRunning {
		if !forceRestart && !existing.IsStale(now, s.Stale) {
			return nil, ErrBatchRunning
		}
		s.Runner.Stop(projectID)
		if _, err := s.Repo.MarkProgressInterrupted(ctx, projectID, now); err != nil {
			return nil, fmt.Errorf("failed to interrupt previous batch: %w", err)
		}
		s.Logger.Info("Previous batch interrupted", "project_id", projectID, "forced", forceRestart)
	}

	dir := s.ProjectDir(projectID)
	if err := storage.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create project dir: %w", err)
	}

	p := domain.NewBatchProgress(projectID, dir, len(project.DOIs), now)
	if err := s.Repo.InitProgress(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to init progress: %w", err)
	}
	snapshot := *p

	s.Runner.Start(worker.Batch{
		ProjectID: projectID,
		Dir:       dir,
		DOIs:      append([]string(nil), project.DOIs...),
		Progress:  p,
	})
	s.Logger.Info("Batch dispatched", "project_id", projectID, "total", len(project.DOIs))
	return &snapshot, nil
}

func (s *BatchService) Status(ctx context.Context, projectID string) (*BatchStatus, error) {
	p, err := s.Repo.GetProgress(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	if p == nil {
		return nil, s.missing(ctx, projectID)
	}
	now := s.now()
	return &BatchStatus{
		BatchProgress:      p,
		IsStale:            p.IsStale(now, s.Stale),
		SecondsSinceUpdate: p.SinceUpdate(now).Seconds(),
	}, nil
}

// Reset marks a stale batch interrupted, keeping its partial results.
func (s *BatchService) Reset(ctx context.Context, projectID string) (*BatchStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.Repo.GetProgress(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	if p == nil {
		return nil, s.missing(ctx, projectID)
	}
	if !p.IsStale(s.now(), s.Stale) {
		return nil, ErrNotStale
	}

	s.Runner.Stop(projectID)
	if _, err := s.Repo.MarkProgressInterrupted(ctx, projectID, s.now()); err != nil {
		return nil, fmt.Errorf("failed to reset batch: %w", err)
	}
	s.Logger.Info("Stale batch reset", "project_id", projectID, "current", p.Current, "total", p.Total)
	return s.Status(ctx, projectID)
}

func (s *BatchService) missing(ctx context.Context, projectID string) error {
	project, err := s.Repo.GetProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}
	if project == nil {
		return ErrProjectNotFound
	}
	return ErrBatchNotFound
}
