package store

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cesargomez89/pdfhunter/internal/domain"
)

func setupTestDB(t *testing.T) (*DB, func()) {
	tmpFile := filepath.Join(t.TempDir(), "test.db")
	db, err := NewSQLiteDB(tmpFile)
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	cleanup := func() {
		if cErr := db.Close(); cErr != nil {
			t.Logf("db.Close error: %v", cErr)
		}
	}
	return db, cleanup
}

func TestDB_Sources(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	defaults := []domain.Source{
		{Name: "openalex", Priority: 2, TimeoutSec: 15, Enabled: true},
		{Name: "unpaywall", Priority: 1, TimeoutSec: 15, Enabled: true, RequiresCapability: "contact_email"},
	}
	if err := db.SeedSources(ctx, defaults); err != nil {
		t.Fatalf("SeedSources failed: %v", err)
	}

	ok, err := db.SetSourceEnabled(ctx, "openalex", false)
	if err != nil || !ok {
		t.Fatalf("SetSourceEnabled failed: ok=%v err=%v", ok, err)
	}

	// Seeding again must not undo operator changes
	if err := db.SeedSources(ctx, defaults); err != nil {
		t.Fatalf("SeedSources failed: %v", err)
	}

	s, err := db.GetSource(ctx, "openalex")
	if err != nil {
		t.Fatalf("GetSource failed: %v", err)
	}
	if s.Enabled {
		t.Error("Expected openalex to stay disabled after reseed")
	}

	list, err := db.ListSources(ctx)
	if err != nil {
		t.Fatalf("ListSources failed: %v", err)
	}
	if len(list) != 2 || list[0].Name != "unpaywall" {
		t.Errorf("Expected unpaywall first by priority, got %+v", list)
	}
	if list[0].RequiresCapability != "contact_email" {
		t.Errorf("Expected capability to round-trip, got %q", list[0].RequiresCapability)
	}

	ok, err = db.SetSourcePriority(ctx, "openalex", 0)
	if err != nil || !ok {
		t.Fatalf("SetSourcePriority failed: ok=%v err=%v", ok, err)
	}
	s, _ = db.GetSource(ctx, "openalex")
	if s.Priority != 0 {
		t.Errorf("Expected priority 0, got %d", s.Priority)
	}

	ok, err = db.SetSourceEnabled(ctx, "nope", true)
	if err != nil {
		t.Fatalf("SetSourceEnabled failed: %v", err)
	}
	if ok {
		t.Error("Expected unknown source to report not found")
	}

	missing, err := db.GetSource(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("Expected nil, nil for unknown source, got %v, %v", missing, err)
	}
}

func TestDB_RecordAttemptUpdatesPerformance(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	samples := []struct {
		success bool
		ms      int64
	}{
		{true, 100},
		{false, 200},
		{true, 300},
	}
	for i, s := range samples {
		a := &domain.DownloadAttempt{
			ProjectID:      "p1",
			DOI:            "10.1000/x",
			SourceName:     "openalex",
			Success:        s.success,
			ResponseTimeMs: s.ms,
			Timestamp:      base.Add(time.Duration(i) * time.Minute),
		}
		if !s.success {
			a.FailureCategory = domain.FailureNotFound
			a.FailureReason = "no pdf"
		}
		if err := db.RecordAttempt(ctx, a); err != nil {
			t.Fatalf("RecordAttempt failed: %v", err)
		}
		if a.ID == "" {
			t.Error("Expected attempt ID to be assigned")
		}
	}

	perf, err := db.GetPerformance(ctx, "openalex")
	if err != nil {
		t.Fatalf("GetPerformance failed: %v", err)
	}
	if perf.TotalAttempts != 3 || perf.SuccessCount != 2 || perf.FailureCount != 1 {
		t.Errorf("Unexpected counters: %+v", perf)
	}
	if perf.AvgResponseTimeMs != 200 {
		t.Errorf("Expected avg 200, got %f", perf.AvgResponseTimeMs)
	}
	if math.Abs(perf.SuccessRate-200.0/3) > 1e-9 {
		t.Errorf("Expected success rate 66.67, got %f", perf.SuccessRate)
	}
	if perf.LastSuccessAt == nil || !perf.LastSuccessAt.Equal(base.Add(2*time.Minute)) {
		t.Errorf("Unexpected last success: %v", perf.LastSuccessAt)
	}
	if perf.LastFailureAt == nil || !perf.LastFailureAt.Equal(base.Add(time.Minute)) {
		t.Errorf("Unexpected last failure: %v", perf.LastFailureAt)
	}

	attempts, err := db.ListAttemptsByProject(ctx, "p1", 10)
	if err != nil {
		t.Fatalf("ListAttemptsByProject failed: %v", err)
	}
	if len(attempts) != 3 {
		t.Fatalf("Expected 3 attempts, got %d", len(attempts))
	}
	if attempts[0].ResponseTimeMs != 300 {
		t.Errorf("Expected newest attempt first, got %+v", attempts[0])
	}

	breakdown, err := db.FailureBreakdown(ctx)
	if err != nil {
		t.Fatalf("FailureBreakdown failed: %v", err)
	}
	if len(breakdown) != 1 || breakdown[0].Category != domain.FailureNotFound || breakdown[0].Count != 1 {
		t.Errorf("Unexpected breakdown: %+v", breakdown)
	}
}

func TestDB_PerformanceConcurrentWriters(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	const n = 40
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- db.UpdatePerformance(ctx, "core", i%2 == 0, 50, time.Now())
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("UpdatePerformance failed: %v", err)
		}
	}

	perf, err := db.GetPerformance(ctx, "core")
	if err != nil {
		t.Fatalf("GetPerformance failed: %v", err)
	}
	if perf.TotalAttempts != n {
		t.Errorf("Expected %d attempts, got %d", n, perf.TotalAttempts)
	}
	if perf.SuccessCount+perf.FailureCount != perf.TotalAttempts {
		t.Errorf("Counters out of balance: %+v", perf)
	}
	if perf.SuccessRate != 50 {
		t.Errorf("Expected success rate 50, got %f", perf.SuccessRate)
	}
	if perf.AvgResponseTimeMs != 50 {
		t.Errorf("Expected avg 50, got %f", perf.AvgResponseTimeMs)
	}
}

func TestDB_ResetPerformanceAndPrune(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	for _, src := range []string{"a", "b"} {
		if err := db.RecordAttempt(ctx, &domain.DownloadAttempt{ProjectID: "p", DOI: "10.1/x", SourceName: src, Success: true, Timestamp: old}); err != nil {
			t.Fatalf("RecordAttempt failed: %v", err)
		}
	}
	if err := db.RecordAttempt(ctx, &domain.DownloadAttempt{ProjectID: "p", DOI: "10.1/y", SourceName: "a", Success: true}); err != nil {
		t.Fatalf("RecordAttempt failed: %v", err)
	}

	n, err := db.PruneAttempts(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneAttempts failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 pruned attempts, got %d", n)
	}

	n, err = db.ResetPerformance(ctx, "a")
	if err != nil || n != 1 {
		t.Fatalf("ResetPerformance(a) = %d, %v", n, err)
	}
	if p, _ := db.GetPerformance(ctx, "a"); p != nil {
		t.Error("Expected performance for a to be gone")
	}
	if p, _ := db.GetPerformance(ctx, "b"); p == nil {
		t.Error("Expected performance for b to survive")
	}

	if _, err := db.ResetPerformance(ctx, ""); err != nil {
		t.Fatalf("ResetPerformance(all) failed: %v", err)
	}
	all, _ := db.ListPerformance(ctx)
	if len(all) != 0 {
		t.Errorf("Expected no performance rows, got %d", len(all))
	}
}

func TestDB_PublisherPatterns(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Now()
	for i := 0; i < 2; i++ {
		if err := db.RecordPatternSuccess(ctx, "10.1371", "PLOS", "openalex", "", now); err != nil {
			t.Fatalf("RecordPatternSuccess failed: %v", err)
		}
	}
	if err := db.RecordPatternSuccess(ctx, "10.1371", "PLOS", "unpaywall", "", now); err != nil {
		t.Fatalf("RecordPatternSuccess failed: %v", err)
	}

	best, err := db.BestPattern(ctx, "10.1371")
	if err != nil {
		t.Fatalf("BestPattern failed: %v", err)
	}
	if best.SuccessfulSource != "openalex" || best.SuccessCount != 2 {
		t.Errorf("Expected openalex with 2 successes, got %+v", best)
	}

	none, err := db.BestPattern(ctx, "10.9999")
	if err != nil || none != nil {
		t.Errorf("Expected nil, nil for unknown prefix, got %v, %v", none, err)
	}
}

func TestDB_RetryQueue(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Now()
	entries := []*domain.RetryQueueEntry{
		{ProjectID: "p", DOI: "10.1/late", FailureCategory: domain.FailureTimeout, RetryCount: 1, NextRetryAt: now.Add(time.Hour), LastAttemptedAt: now},
		{ProjectID: "p", DOI: "10.1/due", FailureCategory: domain.FailureRateLimit, RetryCount: 1, NextRetryAt: now.Add(-time.Minute), LastAttemptedAt: now},
	}
	for _, e := range entries {
		if err := db.UpsertRetryEntry(ctx, e); err != nil {
			t.Fatalf("UpsertRetryEntry failed: %v", err)
		}
	}

	due, err := db.DueRetries(ctx, now, 10)
	if err != nil {
		t.Fatalf("DueRetries failed: %v", err)
	}
	if len(due) != 1 || due[0].DOI != "10.1/due" {
		t.Fatalf("Expected only 10.1/due to be due, got %+v", due)
	}

	entries[1].RetryCount = 2
	entries[1].LastError = "429"
	if err := db.UpsertRetryEntry(ctx, entries[1]); err != nil {
		t.Fatalf("UpsertRetryEntry failed: %v", err)
	}
	got, err := db.GetRetryEntry(ctx, "p", "10.1/due")
	if err != nil {
		t.Fatalf("GetRetryEntry failed: %v", err)
	}
	if got.RetryCount != 2 || got.LastError != "429" {
		t.Errorf("Expected updated entry, got %+v", got)
	}

	if err := db.RemoveRetryEntry(ctx, "p", "10.1/due"); err != nil {
		t.Fatalf("RemoveRetryEntry failed: %v", err)
	}
	list, err := db.ListRetries(ctx, "p")
	if err != nil {
		t.Fatalf("ListRetries failed: %v", err)
	}
	if len(list) != 1 || list[0].DOI != "10.1/late" {
		t.Errorf("Expected only 10.1/late left, got %+v", list)
	}
}

func TestDB_Progress(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := domain.NewBatchProgress("p1", "/tmp/p1", 2, start)
	if err := db.InitProgress(ctx, p); err != nil {
		t.Fatalf("InitProgress failed: %v", err)
	}

	p.Record(domain.Outcome{DOI: "10.1/a", Status: domain.OutcomeDownloaded, Source: "openalex", Path: "/tmp/p1/a.pdf"}, start.Add(10*time.Second))
	if err := db.SaveProgress(ctx, p); err != nil {
		t.Fatalf("SaveProgress failed: %v", err)
	}

	// An older timestamp must never move updated_at backward
	stale := *p
	stale.UpdatedAt = start.Add(time.Second)
	if err := db.SaveProgress(ctx, &stale); err != nil {
		t.Fatalf("SaveProgress failed: %v", err)
	}

	got, err := db.GetProgress(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProgress failed: %v", err)
	}
	if !got.UpdatedAt.Equal(start.Add(10 * time.Second)) {
		t.Errorf("Expected updated_at to stay at +10s, got %v", got.UpdatedAt)
	}
	if got.Current != 1 || len(got.Downloaded) != 1 || got.Downloaded[0].Source != "openalex" {
		t.Errorf("Unexpected progress: %+v", got)
	}
	if got.NeedsUpload == nil || len(got.NeedsUpload) != 0 {
		t.Errorf("Expected empty needs_upload list, got %v", got.NeedsUpload)
	}

	ok, err := db.MarkProgressInterrupted(ctx, "p1", start.Add(time.Hour))
	if err != nil || !ok {
		t.Fatalf("MarkProgressInterrupted = %v, %v", ok, err)
	}
	got, _ = db.GetProgress(ctx, "p1")
	if got.Status != domain.BatchStatusInterrupted {
		t.Errorf("Expected interrupted, got %s", got.Status)
	}
	if len(got.Downloaded) != 1 {
		t.Error("Expected lists to be preserved on interrupt")
	}

	ok, _ = db.MarkProgressInterrupted(ctx, "p1", start.Add(2*time.Hour))
	if ok {
		t.Error("Expected second interrupt to be a no-op")
	}

	missing, err := db.GetProgress(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("Expected nil, nil for unknown project, got %v, %v", missing, err)
	}
}

func TestDB_Projects(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	p := &domain.Project{ID: "p1", Name: "Review", DOIs: domain.StringSlice{"10.1/b", "10.1/a"}, CreatedAt: time.Now()}
	if err := db.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	got, err := db.GetProject(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if len(got.DOIs) != 2 || got.DOIs[0] != "10.1/b" {
		t.Errorf("Expected DOI order to be preserved, got %v", got.DOIs)
	}
}

func TestDB_Cache(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if err := db.SetCache(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("SetCache failed: %v", err)
	}
	data, err := db.GetCache(ctx, "k")
	if err != nil || string(data) != "v" {
		t.Errorf("GetCache = %q, %v", data, err)
	}

	if err := db.SetCache(ctx, "gone", []byte("v"), -time.Hour); err != nil {
		t.Fatalf("SetCache failed: %v", err)
	}
	// Negative TTL stores no expiry
	data, _ = db.GetCache(ctx, "gone")
	if string(data) != "v" {
		t.Errorf("Expected entry without expiry, got %q", data)
	}

	if err := db.ClearCache(ctx); err != nil {
		t.Fatalf("ClearCache failed: %v", err)
	}
	data, _ = db.GetCache(ctx, "k")
	if data != nil {
		t.Error("Expected cache to be empty")
	}
}

func TestDB_RunInTxRollback(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.RunInTx(ctx, func(tx *DB) error {
		if err := tx.InsertAttempt(ctx, &domain.DownloadAttempt{ProjectID: "p", DOI: "10.1/x", SourceName: "a", Timestamp: time.Now().UTC()}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	attempts, err := db.ListAttemptsByProject(ctx, "p", 10)
	if err != nil {
		t.Fatalf("ListAttemptsByProject failed: %v", err)
	}
	if len(attempts) != 0 {
		t.Errorf("Expected rollback to discard the attempt, got %d", len(attempts))
	}
}
