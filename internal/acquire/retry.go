package acquire

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/cesargomez89/pdfhunter/internal/constants"
	"github.com/cesargomez89/pdfhunter/internal/domain"
)

var (
	ErrPermanentCategory = errors.New("failure category is not retryable")
	ErrRetriesExhausted  = errors.New("retry limit reached")
)

// baseDelays is the first backoff step per temporary category.
var baseDelays = map[domain.FailureCategory]time.Duration{
	domain.FailureRateLimit:    30 * time.Minute,
	domain.FailureServerError:  10 * time.Minute,
	domain.FailureNetworkError: 5 * time.Minute,
	domain.FailureTimeout:      2 * time.Minute,
}

type RetryStore interface {
	GetRetryEntry(ctx context.Context, projectID, doi string) (*domain.RetryQueueEntry, error)
	UpsertRetryEntry(ctx context.Context, e *domain.RetryQueueEntry) error
	RemoveRetryEntry(ctx context.Context, projectID, doi string) error
	DueRetries(ctx context.Context, now time.Time, limit int) ([]*domain.RetryQueueEntry, error)
	ListRetries(ctx context.Context, projectID string) ([]*domain.RetryQueueEntry, error)
}

type RetryConfig struct {
	MaxRetries int
	MaxDelay   time.Duration
}

// RetryScheduler queues temporarily failed DOIs with exponential backoff.
type RetryScheduler struct {
	store  RetryStore
	cfg    RetryConfig
	locks  *keyedMutex
	now    func() time.Time
	jitter func() float64 // in [0, 1)
}

func NewRetryScheduler(s RetryStore, cfg RetryConfig) *RetryScheduler {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = constants.DefaultMaxRetries
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = constants.DefaultMaxRetryDelay
	}
	return &RetryScheduler{
		store:  s,
		cfg:    cfg,
		locks:  newKeyedMutex(),
		now:    time.Now,
		jitter: rand.Float64,
	}
}

// BackoffDelay returns base(category) * 2^retryCount plus jitter*10% of that,
// capped at max. jitter must be in [0, 1).
func BackoffDelay(category domain.FailureCategory, retryCount int, jitter float64, max time.Duration) time.Duration {
	delay := baseDelays[category]
	for i := 0; i < retryCount && delay < max; i++ {
		delay *= 2
	}
	delay += time.Duration(float64(delay) * 0.1 * jitter)
	if delay > max {
		delay = max
	}
	return delay
}

// Enqueue schedules the next attempt for (projectID, doi). Each call bumps
// the retry count, so repeated failures push the next attempt further out.
func (s *RetryScheduler) Enqueue(ctx context.Context, projectID, doi string, category domain.FailureCategory, lastErr string) (*domain.RetryQueueEntry, error) {
	if !category.IsTemporary() {
		return nil, ErrPermanentCategory
	}

	unlock := s.locks.Lock(projectID + "\x00" + doi)
	defer unlock()

	existing, err := s.store.GetRetryEntry(ctx, projectID, doi)
	if err != nil {
		return nil, err
	}
	count := 0
	if existing != nil {
		count = existing.RetryCount
	}
	count++

	if count > s.cfg.MaxRetries {
		if existing != nil {
			if err := s.store.RemoveRetryEntry(ctx, projectID, doi); err != nil {
				return nil, err
			}
		}
		return nil, ErrRetriesExhausted
	}

	now := s.now()
	entry := &domain.RetryQueueEntry{
		ProjectID:       projectID,
		DOI:             doi,
		FailureCategory: category,
		RetryCount:      count,
		NextRetryAt:     now.Add(BackoffDelay(category, count, s.jitter(), s.cfg.MaxDelay)),
		LastAttemptedAt: now,
		LastError:       lastErr,
	}
	if err := s.store.UpsertRetryEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *RetryScheduler) Remove(ctx context.Context, projectID, doi string) error {
	unlock := s.locks.Lock(projectID + "\x00" + doi)
	defer unlock()
	return s.store.RemoveRetryEntry(ctx, projectID, doi)
}

func (s *RetryScheduler) Due(ctx context.Context, now time.Time, limit int) ([]*domain.RetryQueueEntry, error) {
	return s.store.DueRetries(ctx, now, limit)
}

func (s *RetryScheduler) List(ctx context.Context, projectID string) ([]*domain.RetryQueueEntry, error) {
	return s.store.ListRetries(ctx, projectID)
}

// keyedMutex hands out one lock per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
