package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cesargomez89/pdfhunter/internal/domain"
	"github.com/cesargomez89/pdfhunter/internal/logger"
)

// saveTimeout bounds progress writes made after the batch context is gone.
const saveTimeout = 5 * time.Second

// Acquirer resolves one DOI into a file in dir.
type Acquirer interface {
	Acquire(ctx context.Context, projectID, dir, doi string) (domain.Outcome, error)
}

type ProgressStore interface {
	SaveProgress(ctx context.Context, p *domain.BatchProgress) error
}

// Batch is one project's identifier list plus the progress row already
// written for it.
type Batch struct {
	ProjectID string
	Dir       string
	DOIs      []string
	Progress  *domain.BatchProgress
}

type run struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// BatchRunner runs one goroutine per project. Each goroutine is the only
// writer of its project's progress.
type BatchRunner struct {
	acquirer Acquirer
	store    ProgressStore
	delay    time.Duration
	logger   *logger.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running map[string]*run
}

func NewBatchRunner(acq Acquirer, store ProgressStore, delay time.Duration, log *logger.Logger) *BatchRunner {
	if log == nil {
		log = logger.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchRunner{
		acquirer: acq,
		store:    store,
		delay:    delay,
		logger:   log.WithComponent("batch"),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		running:  make(map[string]*run),
	}
}

// Start dispatches b in the background and returns immediately. Any run
// still registered for the project is stopped first.
func (r *BatchRunner) Start(b Batch) {
	r.Stop(b.ProjectID)

	ctx, cancel := context.WithCancel(r.ctx)
	rn := &run{cancel: cancel, done: make(chan struct{})}

	r.mu.Lock()
	r.running[b.ProjectID] = rn
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			if r.running[b.ProjectID] == rn {
				delete(r.running, b.ProjectID)
			}
			r.mu.Unlock()
			cancel()
			close(rn.done)
		}()
		r.process(ctx, b)
	}()
}

// Stop cancels the project's run and waits for it to write its final state.
// It reports whether a run was active.
func (r *BatchRunner) Stop(projectID string) bool {
	r.mu.Lock()
	rn, ok := r.running[projectID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	rn.cancel()
	<-rn.done
	return true
}

func (r *BatchRunner) IsRunning(projectID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.running[projectID]
	return ok
}

// Shutdown interrupts every active batch and waits for them to persist.
func (r *BatchRunner) Shutdown() {
	r.logger.Info("Stopping batch runner")
	r.cancel()
	r.wg.Wait()
}

func (r *BatchRunner) process(ctx context.Context, b Batch) {
	p := b.Progress
	log := r.logger.WithProject(b.ProjectID)
	log.Info("Batch started", "total", len(b.DOIs))

	var current string
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("Panic in batch", "panic", rec, "doi", current)
			p.Errors = append(p.Errors, domain.ProgressItem{
				DOI:    current,
				Reason: fmt.Sprintf("Exception: %v", rec),
			})
			r.finish(p, domain.BatchStatusError, log)
		}
	}()

	for i, doi := range b.DOIs {
		if i > 0 && r.delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(r.delay):
			}
		}
		if ctx.Err() != nil {
			r.finish(p, domain.BatchStatusInterrupted, log)
			return
		}

		current = doi
		out, err := r.acquirer.Acquire(ctx, b.ProjectID, b.Dir, doi)
		if err != nil {
			if ctx.Err() != nil {
				r.finish(p, domain.BatchStatusInterrupted, log)
				return
			}
			log.Error("Acquisition failed", "doi", out.DOI, "error", err)
		}

		p.Record(out, r.now())
		if err := r.save(p); err != nil {
			log.Error("Failed to save progress", "doi", out.DOI, "error", err)
		}
	}

	r.finish(p, domain.BatchStatusCompleted, log)
}

func (r *BatchRunner) finish(p *domain.BatchProgress, status domain.BatchStatus, log *logger.Logger) {
	now := r.now()
	p.Status = status
	if now.After(p.UpdatedAt) {
		p.UpdatedAt = now
	}
	if status != domain.BatchStatusInterrupted {
		p.EndTime = &now
	}
	if err := r.save(p); err != nil {
		log.Error("Failed to save final progress", "status", string(status), "error", err)
		return
	}
	log.Info("Batch finished",
		"status", string(status),
		"downloaded", len(p.Downloaded),
		"needs_upload", len(p.NeedsUpload),
		"retrying", len(p.Retrying),
		"errors", len(p.Errors),
	)
}

func (r *BatchRunner) save(p *domain.BatchProgress) error {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	return r.store.SaveProgress(ctx, p)
}
