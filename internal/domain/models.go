package domain

import (
	"time"
)

// Source is one external provider in the acquisition registry.
type Source struct {
	Name               string  `json:"name" db:"name" yaml:"name"`
	Description        string  `json:"description" db:"description" yaml:"description"`
	RequiresCapability string  `json:"requires_capability,omitempty" db:"requires_capability" yaml:"requires_capability"`
	Priority           int     `json:"priority" db:"priority" yaml:"priority"`
	TimeoutSec         int     `json:"timeout_sec" db:"timeout_sec" yaml:"timeout_sec"`
	RateLimit          float64 `json:"rate_limit" db:"rate_limit" yaml:"rate_limit"` // requests per second, 0 = unlimited
	Enabled            bool    `json:"enabled" db:"enabled" yaml:"enabled"`
	UseProxy           bool    `json:"use_proxy" db:"use_proxy" yaml:"use_proxy"`
}

// Timeout returns the per-call timeout for this source.
func (s *Source) Timeout() time.Duration {
	if s.TimeoutSec <= 0 {
		return 0
	}
	return time.Duration(s.TimeoutSec) * time.Second
}

// DownloadAttempt is one append-only record of asking a source for a DOI.
type DownloadAttempt struct {
	Timestamp       time.Time       `json:"timestamp" db:"timestamp"`
	ID              string          `json:"id" db:"id"`
	ProjectID       string          `json:"project_id" db:"project_id"`
	DOI             string          `json:"doi" db:"doi"`
	SourceName      string          `json:"source_name" db:"source_name"`
	FailureReason   string          `json:"failure_reason,omitempty" db:"failure_reason"`
	FailureCategory FailureCategory `json:"failure_category,omitempty" db:"failure_category"`
	PDFURL          string          `json:"pdf_url,omitempty" db:"pdf_url"`
	ResponseTimeMs  int64           `json:"response_time_ms" db:"response_time_ms"`
	FileSizeBytes   int64           `json:"file_size_bytes" db:"file_size_bytes"`
	Success         bool            `json:"success" db:"success"`
}

// SourcePerformance is the running aggregate for one source.
type SourcePerformance struct {
	LastSuccessAt     *time.Time `json:"last_success_at,omitempty" db:"last_success_at"`
	LastFailureAt     *time.Time `json:"last_failure_at,omitempty" db:"last_failure_at"`
	SourceName        string     `json:"source_name" db:"source_name"`
	TotalAttempts     int64      `json:"total_attempts" db:"total_attempts"`
	SuccessCount      int64      `json:"success_count" db:"success_count"`
	FailureCount      int64      `json:"failure_count" db:"failure_count"`
	AvgResponseTimeMs float64    `json:"avg_response_time_ms" db:"avg_response_time_ms"`
	SuccessRate       float64    `json:"success_rate" db:"success_rate"`
}

// PublisherPattern records that a source worked for a DOI prefix.
type PublisherPattern struct {
	LastSuccessAt    time.Time `json:"last_success_at" db:"last_success_at"`
	DOIPrefix        string    `json:"doi_prefix" db:"doi_prefix"`
	PublisherName    string    `json:"publisher_name" db:"publisher_name"`
	SuccessfulSource string    `json:"successful_source" db:"successful_source"`
	URLPattern       string    `json:"url_pattern" db:"url_pattern"`
	SuccessCount     int64     `json:"success_count" db:"success_count"`
}

// RetryQueueEntry is a DOI waiting for another attempt after a temporary failure.
type RetryQueueEntry struct {
	NextRetryAt     time.Time       `json:"next_retry_at" db:"next_retry_at"`
	LastAttemptedAt time.Time       `json:"last_attempted_at" db:"last_attempted_at"`
	ProjectID       string          `json:"project_id" db:"project_id"`
	DOI             string          `json:"doi" db:"doi"`
	FailureCategory FailureCategory `json:"failure_category" db:"failure_category"`
	LastError       string          `json:"last_error,omitempty" db:"last_error"`
	RetryCount      int             `json:"retry_count" db:"retry_count"`
}

type BatchStatus string

const (
	BatchStatusRunning     BatchStatus = "running"
	BatchStatusCompleted   BatchStatus = "completed"
	BatchStatusError       BatchStatus = "error"
	BatchStatusInterrupted BatchStatus = "interrupted"
)

// ProgressItem is one identifier's entry in a batch result list.
type ProgressItem struct {
	DOI      string          `json:"doi"`
	Source   string          `json:"source,omitempty"`
	Reason   string          `json:"reason,omitempty"`
	Category FailureCategory `json:"category,omitempty"`
	Path     string          `json:"path,omitempty"`
}

// BatchProgress is the live state of a project's acquisition batch.
type BatchProgress struct {
	StartTime     time.Time     `json:"start_time" db:"start_time"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
	EndTime       *time.Time    `json:"end_time,omitempty" db:"end_time"`
	ProjectID     string        `json:"project_id" db:"project_id"`
	Status        BatchStatus   `json:"status" db:"status"`
	CurrentDOI    string        `json:"current_doi" db:"current_doi"`
	CurrentSource string        `json:"current_source" db:"current_source"`
	ProjectDir    string        `json:"project_dir" db:"project_dir"`
	Downloaded    ProgressItems `json:"downloaded" db:"downloaded"`
	NeedsUpload   ProgressItems `json:"needs_upload" db:"needs_upload"`
	Retrying      ProgressItems `json:"retrying" db:"retrying"`
	Errors        ProgressItems `json:"errors" db:"errors"`
	Total         int           `json:"total" db:"total"`
	Current       int           `json:"current" db:"current"`
}

// NewBatchProgress returns the initial running state for a batch.
func NewBatchProgress(projectID, projectDir string, total int, now time.Time) *BatchProgress {
	return &BatchProgress{
		ProjectID:   projectID,
		Status:      BatchStatusRunning,
		Total:       total,
		ProjectDir:  projectDir,
		Downloaded:  ProgressItems{},
		NeedsUpload: ProgressItems{},
		Retrying:    ProgressItems{},
		Errors:      ProgressItems{},
		StartTime:   now,
		UpdatedAt:   now,
	}
}

// IsStale reports whether a running batch has stopped reporting progress.
func (p *BatchProgress) IsStale(now time.Time, threshold time.Duration) bool {
	return p.Status == BatchStatusRunning && now.Sub(p.UpdatedAt) > threshold
}

// SinceUpdate returns how long ago the progress row was last refreshed.
func (p *BatchProgress) SinceUpdate(now time.Time) time.Duration {
	return now.Sub(p.UpdatedAt)
}

// Record files an outcome into the matching result list and advances the cursor.
func (p *BatchProgress) Record(o Outcome, now time.Time) {
	item := ProgressItem{
		DOI:      o.DOI,
		Source:   o.Source,
		Reason:   o.Reason,
		Category: o.Category,
		Path:     o.Path,
	}
	switch o.Status {
	case OutcomeDownloaded:
		p.Downloaded = append(p.Downloaded, item)
	case OutcomeRetryQueued:
		p.Retrying = append(p.Retrying, item)
	case OutcomeError:
		p.Errors = append(p.Errors, item)
	default:
		p.NeedsUpload = append(p.NeedsUpload, item)
	}
	p.Current++
	p.CurrentDOI = o.DOI
	p.CurrentSource = o.Source
	if now.After(p.UpdatedAt) {
		p.UpdatedAt = now
	}
}

// OutcomeStatus is the terminal state of one identifier in a batch.
type OutcomeStatus string

const (
	OutcomeDownloaded  OutcomeStatus = "downloaded"
	OutcomeNeedsUpload OutcomeStatus = "needs_upload"
	OutcomeRetryQueued OutcomeStatus = "retry_queued"
	OutcomeError       OutcomeStatus = "error"
)

// Outcome is the result of running the acquisition pipeline for one DOI.
type Outcome struct {
	DOI      string          `json:"doi"`
	Status   OutcomeStatus   `json:"status"`
	Source   string          `json:"source,omitempty"`
	Path     string          `json:"path,omitempty"`
	Reason   string          `json:"reason,omitempty"`
	Category FailureCategory `json:"category,omitempty"`
	Attempts int             `json:"attempts"`
}

// Project is the external collaborator supplying an ordered DOI list.
type Project struct {
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	ID        string      `json:"id" db:"id"`
	Name      string      `json:"name" db:"name"`
	DOIs      StringSlice `json:"dois" db:"dois"`
}
