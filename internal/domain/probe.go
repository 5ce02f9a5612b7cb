package domain

import (
	"fmt"
	"time"
)

// ProbeKind tags the variant held by a ProbeResult.
type ProbeKind int

const (
	// ProbeFound carries a candidate PDF URL.
	ProbeFound ProbeKind = iota
	// ProbeNotFound is a permanent miss for this source.
	ProbeNotFound
	// ProbeTransient is a miss that may succeed on a later attempt.
	ProbeTransient
	// ProbeFailed means the probe itself broke (unexpected response shape, panic).
	ProbeFailed
)

func (k ProbeKind) String() string {
	switch k {
	case ProbeFound:
		return "found"
	case ProbeNotFound:
		return "not_found"
	case ProbeTransient:
		return "transient"
	case ProbeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ProbeResult is the outcome of asking one source for one DOI.
type ProbeResult struct {
	Kind     ProbeKind
	URL      string
	Reason   string
	Category FailureCategory
	Latency  time.Duration
}

// Found builds a successful probe result.
func Found(url string) ProbeResult {
	return ProbeResult{Kind: ProbeFound, URL: url}
}

// NotFound builds a permanent miss.
func NotFound(category FailureCategory, reason string) ProbeResult {
	return ProbeResult{Kind: ProbeNotFound, Category: category, Reason: reason}
}

// Transient builds a retryable miss.
func Transient(category FailureCategory, reason string) ProbeResult {
	return ProbeResult{Kind: ProbeTransient, Category: category, Reason: reason}
}

// Failed builds the result for an unexpected internal error.
func Failed(err interface{}) ProbeResult {
	return ProbeResult{
		Kind:     ProbeFailed,
		Category: FailureNetworkError,
		Reason:   fmt.Sprintf("Exception: %v", err),
	}
}

// Miss builds a NotFound or Transient result depending on the category.
func Miss(category FailureCategory, reason string) ProbeResult {
	if category.IsTemporary() {
		return Transient(category, reason)
	}
	return NotFound(category, reason)
}

// LatencyMs returns the latency in whole milliseconds.
func (r ProbeResult) LatencyMs() int64 {
	return r.Latency.Milliseconds()
}

// IsFound reports whether the result carries a URL.
func (r ProbeResult) IsFound() bool {
	return r.Kind == ProbeFound && r.URL != ""
}
