package domain

import (
	"testing"
	"time"
)

func TestBatchProgress_IsStale(t *testing.T) {
	now := time.Now()
	p := NewBatchProgress("p1", "/tmp/p1", 3, now.Add(-400*time.Second))

	if !p.IsStale(now, 300*time.Second) {
		t.Error("Expected running batch updated 400s ago to be stale")
	}
	if p.IsStale(now, 500*time.Second) {
		t.Error("Expected batch within threshold to be fresh")
	}

	p.Status = BatchStatusCompleted
	if p.IsStale(now, 300*time.Second) {
		t.Error("Completed batches are never stale")
	}
}

func TestBatchProgress_Record(t *testing.T) {
	start := time.Now()
	p := NewBatchProgress("p1", "/tmp/p1", 4, start)

	p.Record(Outcome{DOI: "10.1/a", Status: OutcomeDownloaded, Source: "openalex"}, start.Add(time.Second))
	p.Record(Outcome{DOI: "10.1/b", Status: OutcomeNeedsUpload, Category: FailurePaywall}, start.Add(2*time.Second))
	p.Record(Outcome{DOI: "10.1/c", Status: OutcomeRetryQueued, Category: FailureTimeout}, start.Add(3*time.Second))
	p.Record(Outcome{DOI: "10.1/d", Status: OutcomeError, Reason: "Exception: boom"}, start)

	if p.Current != 4 {
		t.Errorf("Expected current 4, got %d", p.Current)
	}
	if len(p.Downloaded) != 1 || len(p.NeedsUpload) != 1 || len(p.Retrying) != 1 || len(p.Errors) != 1 {
		t.Errorf("Unexpected list sizes: %+v", p)
	}
	if p.CurrentDOI != "10.1/d" {
		t.Errorf("Expected current DOI 10.1/d, got %s", p.CurrentDOI)
	}
	// updated_at never moves backward
	if !p.UpdatedAt.Equal(start.Add(3 * time.Second)) {
		t.Errorf("UpdatedAt went backward: %v", p.UpdatedAt)
	}
}

func TestProgressItems_ValueScan(t *testing.T) {
	var empty ProgressItems
	v, err := empty.Value()
	if err != nil || v != "[]" {
		t.Errorf("Expected [] for empty list, got %v (%v)", v, err)
	}

	items := ProgressItems{{DOI: "10.1/a", Source: "core"}}
	v, err = items.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var back ProgressItems
	if err := back.Scan(v); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(back) != 1 || back[0].Source != "core" {
		t.Errorf("Unexpected scan result: %+v", back)
	}

	if err := back.Scan(nil); err != nil || back != nil {
		t.Errorf("Expected nil after scanning NULL, got %+v (%v)", back, err)
	}
}

func TestSourceTimeout(t *testing.T) {
	s := Source{TimeoutSec: 20}
	if s.Timeout() != 20*time.Second {
		t.Errorf("Expected 20s, got %v", s.Timeout())
	}
	s.TimeoutSec = 0
	if s.Timeout() != 0 {
		t.Errorf("Expected 0, got %v", s.Timeout())
	}
}
