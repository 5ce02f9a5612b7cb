package worker

import (
	"context"
	"sync"
	"time"

	"github.com/cesargomez89/pdfhunter/internal/constants"
	"github.com/cesargomez89/pdfhunter/internal/domain"
	"github.com/cesargomez89/pdfhunter/internal/logger"
)

type RetryQueue interface {
	Due(ctx context.Context, now time.Time, limit int) ([]*domain.RetryQueueEntry, error)
	Remove(ctx context.Context, projectID, doi string) error
}

// SweepStats summarizes one pass over the due retry entries.
type SweepStats struct {
	Due        int `json:"due"`
	Downloaded int `json:"downloaded"`
	Requeued   int `json:"requeued"`
	Dropped    int `json:"dropped"`
	Skipped    int `json:"skipped"`
}

// RetrySweeper periodically re-runs acquisition for DOIs whose backoff has
// elapsed.
type RetrySweeper struct {
	queue    RetryQueue
	acquirer Acquirer
	dirFor   func(projectID string) string
	busy     func(projectID string) bool
	interval time.Duration
	limit    int
	logger   *logger.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRetrySweeper builds a sweeper. busy may be nil; when set, entries for
// projects it reports as busy are left for a later pass.
func NewRetrySweeper(queue RetryQueue, acq Acquirer, dirFor func(string) string, busy func(string) bool, interval time.Duration, log *logger.Logger) *RetrySweeper {
	if log == nil {
		log = logger.Default()
	}
	if interval <= 0 {
		interval = constants.DefaultRetryPollInterval
	}
	if busy == nil {
		busy = func(string) bool { return false }
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RetrySweeper{
		queue:    queue,
		acquirer: acq,
		dirFor:   dirFor,
		busy:     busy,
		interval: interval,
		limit:    constants.RetrySweepLimit,
		logger:   log.WithComponent("retry"),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *RetrySweeper) Start() {
	s.logger.Info("Starting retry sweeper", "interval", s.interval)
	s.wg.Add(1)
	go s.loop()
}

func (s *RetrySweeper) Stop() {
	s.logger.Info("Stopping retry sweeper")
	s.cancel()
	s.wg.Wait()
}

func (s *RetrySweeper) loop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			stats, err := s.Sweep(s.ctx)
			if err != nil {
				s.logger.Error("Retry sweep failed", "error", err)
				continue
			}
			if stats.Due > 0 {
				s.logger.Info("Retry sweep done",
					"due", stats.Due,
					"downloaded", stats.Downloaded,
					"requeued", stats.Requeued,
					"dropped", stats.Dropped,
					"skipped", stats.Skipped,
				)
			}
		}
	}
}

// Sweep processes every entry due now. The engine removes entries on
// success and re-enqueues temporary failures; anything else is dropped.
func (s *RetrySweeper) Sweep(ctx context.Context) (SweepStats, error) {
	var stats SweepStats

	due, err := s.queue.Due(ctx, s.now(), s.limit)
	if err != nil {
		return stats, err
	}
	stats.Due = len(due)

	for _, e := range due {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		if s.busy(e.ProjectID) {
			stats.Skipped++
			continue
		}

		log := s.logger.WithProject(e.ProjectID)
		out, err := s.acquirer.Acquire(ctx, e.ProjectID, s.dirFor(e.ProjectID), e.DOI)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			log.Error("Retry attempt failed", "doi", e.DOI, "error", err)
		}

		switch out.Status {
		case domain.OutcomeDownloaded:
			stats.Downloaded++
		case domain.OutcomeRetryQueued:
			stats.Requeued++
		default:
			stats.Dropped++
			if err := s.queue.Remove(ctx, e.ProjectID, e.DOI); err != nil {
				log.Error("Failed to drop retry entry", "doi", e.DOI, "error", err)
			}
			log.Info("Retry entry dropped", "doi", e.DOI, "status", string(out.Status), "reason", out.Reason)
		}
	}
	return stats, nil
}
