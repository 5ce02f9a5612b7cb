package acquire

import (
	"context"
	"testing"

	"github.com/cesargomez89/pdfhunter/internal/domain"
)

func TestTracker_RankPrefersSuccessRateOverLatency(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	tr := NewTracker(db)

	record := func(source string, success bool, ms int64) {
		if err := tr.Record(ctx, &domain.DownloadAttempt{ProjectID: "p", DOI: "10.1/x", SourceName: source, Success: success, ResponseTimeMs: ms}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	// A: 80% at 500ms, B: 60% at 100ms
	for i := 0; i < 5; i++ {
		record("A", i < 4, 500)
		record("B", i < 3, 100)
	}

	ranked, err := tr.Rank(ctx, []domain.Source{
		{Name: "B", Priority: 1},
		{Name: "A", Priority: 2},
	})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if ranked[0].Name != "A" || ranked[1].Name != "B" {
		t.Errorf("Expected A before B, got %s, %s", ranked[0].Name, ranked[1].Name)
	}
}

func TestTracker_RankTieBreakers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	tr := NewTracker(db)

	for _, a := range []*domain.DownloadAttempt{
		{SourceName: "slow", Success: true, ResponseTimeMs: 900},
		{SourceName: "fast", Success: true, ResponseTimeMs: 100},
	} {
		a.ProjectID, a.DOI = "p", "10.1/x"
		if err := tr.Record(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	ranked, err := tr.Rank(ctx, []domain.Source{
		{Name: "fresh2", Priority: 9},
		{Name: "slow", Priority: 1},
		{Name: "fresh1", Priority: 3},
		{Name: "fast", Priority: 5},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"fast", "slow", "fresh1", "fresh2"}
	for i, name := range want {
		if ranked[i].Name != name {
			t.Errorf("Position %d: expected %s, got %s", i, name, ranked[i].Name)
		}
	}
}
