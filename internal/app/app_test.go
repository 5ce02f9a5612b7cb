package app

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cesargomez89/pdfhunter/internal/acquire"
	"github.com/cesargomez89/pdfhunter/internal/domain"
	"github.com/cesargomez89/pdfhunter/internal/httpclient"
	"github.com/cesargomez89/pdfhunter/internal/logger"
	"github.com/cesargomez89/pdfhunter/internal/sources"
	"github.com/cesargomez89/pdfhunter/internal/storage"
	"github.com/cesargomez89/pdfhunter/internal/store"
	"github.com/cesargomez89/pdfhunter/internal/worker"
)

func setupTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.NewSQLiteDB(filepath.Join(t.TempDir(), "test_app.db"))
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// tableProbe answers from a fixed DOI table and misses everything else.
type tableProbe struct {
	name  string
	found map[string]string
	miss  domain.ProbeResult
}

func (p *tableProbe) Name() string { return p.name }

func (p *tableProbe) Probe(ctx context.Context, doi string) domain.ProbeResult {
	if u, ok := p.found[doi]; ok {
		return domain.Found(u)
	}
	return p.miss
}

type fixture struct {
	db       *store.DB
	batches  *BatchService
	projects *ProjectService
	sources  *SourceService
	runner   *worker.BatchRunner
	server   *httptest.Server
	first    *tableProbe
	second   *tableProbe
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	ctx := context.Background()
	log := logger.Discard()

	body := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("0"), 512)...)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(body)
	}))
	t.Cleanup(srv.Close)

	reg := sources.NewRegistry(db, nil)
	if err := reg.Seed(ctx, []domain.Source{
		{Name: "first", Priority: 1, TimeoutSec: 5, Enabled: true},
		{Name: "second", Priority: 2, TimeoutSec: 5, Enabled: true},
	}, nil); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	first := &tableProbe{name: "first", found: map[string]string{}, miss: domain.NotFound(domain.FailureNotFound, "no results")}
	second := &tableProbe{name: "second", found: map[string]string{}, miss: domain.NotFound(domain.FailurePaywall, "closed access")}
	reg.Register(first, second)

	tracker := acquire.NewTracker(db)
	engine := acquire.NewEngine(acquire.EngineDeps{
		Registry:   reg,
		Executor:   acquire.NewExecutor(httpclient.NewClient(nil, httpclient.WithMaxAttempts(1)), nil, acquire.ExecutorConfig{MinBytes: 64}),
		Tracker:    tracker,
		Patterns:   acquire.NewPatternLearner(db),
		Retries:    acquire.NewRetryScheduler(db, acquire.RetryConfig{}),
		Logger:     log,
		DirectURLs: func(string) []string { return nil },
	})

	runner := worker.NewBatchRunner(engine, db, 0, log)
	t.Cleanup(runner.Shutdown)

	return &fixture{
		db:       db,
		batches:  NewBatchService(db, runner, t.TempDir(), 300*time.Second, log),
		projects: NewProjectService(db, log),
		sources:  NewSourceService(reg, tracker, log),
		runner:   runner,
		server:   srv,
		first:    first,
		second:   second,
	}
}

func waitDone(t *testing.T, svc *BatchService, projectID string) *BatchStatus {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		st, err := svc.Status(context.Background(), projectID)
		if err != nil {
			t.Fatalf("Status failed: %v", err)
		}
		if st.Status != domain.BatchStatusRunning {
			return st
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Batch did not finish")
	return nil
}

func TestBatch_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	project, err := f.projects.Create(ctx, "review", []string{"10.1000/cached", "10.1000/second", "10.1000/paywalled"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	dir := f.batches.ProjectDir(project.ID)
	if err := storage.EnsureDir(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(storage.PDFPath(dir, "10.1000/cached"), []byte("%PDF-1.4 cached"), 0644); err != nil {
		t.Fatal(err)
	}
	f.second.found["10.1000/second"] = f.server.URL + "/second.pdf"

	started, err := f.batches.Start(ctx, project.ID, false)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if started.Status != domain.BatchStatusRunning || started.Total != 3 {
		t.Errorf("Unexpected initial progress %+v", started)
	}

	st := waitDone(t, f.batches, project.ID)
	if st.Status != domain.BatchStatusCompleted {
		t.Fatalf("Expected completed, got %s", st.Status)
	}
	if len(st.Downloaded) != 2 || len(st.NeedsUpload) != 1 || len(st.Errors) != 0 {
		t.Errorf("Expected 2 downloaded and 1 needs upload, got %d/%d/%d", len(st.Downloaded), len(st.NeedsUpload), len(st.Errors))
	}
	if st.Downloaded[0].Source != "cached" || st.Downloaded[1].Source != "second" {
		t.Errorf("Unexpected sources %+v", st.Downloaded)
	}
	if st.NeedsUpload[0].DOI != "10.1000/paywalled" || st.NeedsUpload[0].Category.IsTemporary() {
		t.Errorf("Expected a permanent failure for the last DOI, got %+v", st.NeedsUpload[0])
	}
	if entries, _ := f.projects.RetryQueue(ctx, project.ID); len(entries) != 0 {
		t.Errorf("Expected empty retry queue, got %+v", entries)
	}

	attempts, err := f.projects.Attempts(ctx, project.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	// cached: none, second: 2, paywalled: 2
	if len(attempts) != 4 {
		t.Errorf("Expected 4 attempts, got %d", len(attempts))
	}
}

func TestBatch_StartRejectsRunning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	project, err := f.projects.Create(ctx, "p", []string{"10.1000/x"})
	if err != nil {
		t.Fatal(err)
	}
	live := domain.NewBatchProgress(project.ID, "", 1, time.Now())
	if err := f.db.InitProgress(ctx, live); err != nil {
		t.Fatal(err)
	}

	if _, err := f.batches.Start(ctx, project.ID, false); !errors.Is(err, ErrBatchRunning) {
		t.Fatalf("Expected ErrBatchRunning, got %v", err)
	}
	if _, err := f.batches.Start(ctx, project.ID, true); err != nil {
		t.Fatalf("Forced start failed: %v", err)
	}
	if st := waitDone(t, f.batches, project.ID); st.Status != domain.BatchStatusCompleted {
		t.Errorf("Expected forced batch to complete, got %s", st.Status)
	}
}

func TestBatch_UnknownProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.batches.Start(ctx, "nope", false); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("Start: expected ErrProjectNotFound, got %v", err)
	}
	if _, err := f.batches.Status(ctx, "nope"); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("Status: expected ErrProjectNotFound, got %v", err)
	}

	project, _ := f.projects.Create(ctx, "idle", nil)
	if _, err := f.batches.Status(ctx, project.ID); !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("Status: expected ErrBatchNotFound, got %v", err)
	}
}

func TestBatch_StaleAndReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	project, _ := f.projects.Create(ctx, "stale", []string{"10.1000/a", "10.1000/b"})
	then := time.Now().Add(-400 * time.Second)
	p := domain.NewBatchProgress(project.ID, "", 2, then)
	p.Record(domain.Outcome{DOI: "10.1000/a", Status: domain.OutcomeDownloaded, Source: "first"}, then)
	p.Errors = append(p.Errors, domain.ProgressItem{DOI: "10.1000/z", Reason: "Exception: boom"})
	if err := f.db.InitProgress(ctx, p); err != nil {
		t.Fatal(err)
	}

	st, err := f.batches.Status(ctx, project.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !st.IsStale || st.SecondsSinceUpdate < 399 {
		t.Errorf("Expected stale row, got stale=%v since=%v", st.IsStale, st.SecondsSinceUpdate)
	}

	st, err = f.batches.Reset(ctx, project.ID)
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if st.Status != domain.BatchStatusInterrupted {
		t.Errorf("Expected interrupted, got %s", st.Status)
	}
	if len(st.Downloaded) != 1 || len(st.Errors) != 1 {
		t.Errorf("Expected partial results kept, got %+v", st.BatchProgress)
	}

	if _, err := f.batches.Reset(ctx, project.ID); !errors.Is(err, ErrNotStale) {
		t.Errorf("Expected ErrNotStale for an interrupted batch, got %v", err)
	}
}

func TestBatch_ResetRejectsFresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	project, _ := f.projects.Create(ctx, "fresh", []string{"10.1000/a"})
	if err := f.db.InitProgress(ctx, domain.NewBatchProgress(project.ID, "", 1, time.Now())); err != nil {
		t.Fatal(err)
	}
	if _, err := f.batches.Reset(ctx, project.ID); !errors.Is(err, ErrNotStale) {
		t.Errorf("Expected ErrNotStale, got %v", err)
	}
}

func TestBatch_BusyFromStoredProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		updated time.Time
		status  domain.BatchStatus
		want    bool
	}{
		{"running elsewhere", time.Now(), domain.BatchStatusRunning, true},
		{"stale", time.Now().Add(-400 * time.Second), domain.BatchStatusRunning, false},
		{"completed", time.Now(), domain.BatchStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project, err := f.projects.Create(ctx, tt.name, []string{"10.1000/a"})
			if err != nil {
				t.Fatal(err)
			}
			p := domain.NewBatchProgress(project.ID, "", 1, tt.updated)
			p.Status = tt.status
			if err := f.db.InitProgress(ctx, p); err != nil {
				t.Fatal(err)
			}
			if got := f.batches.Busy(project.ID); got != tt.want {
				t.Errorf("Busy = %v, want %v", got, tt.want)
			}
		})
	}

	if f.batches.Busy("never-started") {
		t.Error("Expected a project without progress to be idle")
	}
}

func TestProjectService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.projects.Create(ctx, "  refs ", []string{"https://doi.org/10.1000/A", "10.1000/a", "", "10.1000/b"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if p.Name != "refs" || len(p.DOIs) != 2 || p.DOIs[0] != "10.1000/a" {
		t.Errorf("Unexpected project %+v", p)
	}

	got, err := f.projects.Get(ctx, p.ID)
	if err != nil || len(got.DOIs) != 2 {
		t.Errorf("Get returned %+v, %v", got, err)
	}

	if _, err := f.projects.Create(ctx, " ", nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for blank name, got %v", err)
	}
	if _, err := f.projects.Get(ctx, "missing"); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("Expected ErrProjectNotFound, got %v", err)
	}
}

func TestSourceService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	disabled := false
	prio := 7
	src, err := f.sources.Update(ctx, "first", SourceUpdate{Enabled: &disabled, Priority: &prio})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if src.Enabled || src.Priority != 7 {
		t.Errorf("Unexpected source %+v", src)
	}

	views, err := f.sources.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 2 || views[0].Name != "second" || views[1].Available {
		t.Errorf("Unexpected listing %+v", views)
	}

	if _, err := f.sources.Update(ctx, "ghost", SourceUpdate{Enabled: &disabled}); !errors.Is(err, sources.ErrSourceNotFound) {
		t.Errorf("Expected ErrSourceNotFound, got %v", err)
	}
	if _, err := f.sources.PruneAttempts(ctx, 0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}

	stats, err := f.sources.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Performance == nil || stats.Failures == nil {
		t.Error("Expected empty, non-nil stats lists")
	}
}
