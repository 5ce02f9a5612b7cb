package constants

import (
	"testing"
	"time"
)

func TestDefaultValues(t *testing.T) {
	if DefaultPort != "8080" {
		t.Errorf("Expected DefaultPort to be '8080', got '%s'", DefaultPort)
	}

	if DefaultDBPath != "pdfhunter.db" {
		t.Errorf("Expected DefaultDBPath to be 'pdfhunter.db', got '%s'", DefaultDBPath)
	}

	if DefaultStaleThreshold != 300*time.Second {
		t.Errorf("Expected DefaultStaleThreshold to be 300s, got %v", DefaultStaleThreshold)
	}

	if DefaultValidationWorkers != 10 {
		t.Errorf("Expected DefaultValidationWorkers to be 10, got %d", DefaultValidationWorkers)
	}
}

func TestRetryBounds(t *testing.T) {
	if DefaultMaxRetries < 1 {
		t.Error("DefaultMaxRetries must allow at least one retry")
	}
	if DefaultMaxRetryDelay < time.Hour {
		t.Errorf("DefaultMaxRetryDelay too small to hold a rate limit backoff: %v", DefaultMaxRetryDelay)
	}
}

func TestSizeThresholds(t *testing.T) {
	if DefaultMinPDFBytes <= 0 || DefaultMinPDFBytes >= DefaultMaxPDFBytes {
		t.Errorf("Invalid PDF size window: %d..%d", DefaultMinPDFBytes, DefaultMaxPDFBytes)
	}
}

func TestPermissions(t *testing.T) {
	if DirPermissions != 0755 {
		t.Errorf("Expected DirPermissions to be 0755, got %o", DirPermissions)
	}
	if FilePermissions != 0644 {
		t.Errorf("Expected FilePermissions to be 0644, got %o", FilePermissions)
	}
}
