package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		message string
		status  int
		want    FailureCategory
	}{
		{"HTTP 429", 429, FailureRateLimit},
		{"Not found", 404, FailureNotFound},
		{"anything", 401, FailureAuthentication},
		{"anything", 403, FailureAuthentication},
		{"bad gateway", 502, FailureServerError},
		{"", 503, FailureServerError},
		{"", 504, FailureTimeout},
		{"Rate limit exceeded", 0, FailureRateLimit},
		{"Invalid API key", 0, FailureAuthentication},
		{"No results for DOI", 0, FailureNotFound},
		{"Requires subscription", 0, FailurePaywall},
		{"Article is not open access", 0, FailurePaywall},
		{"unexpected content-type text/html", 0, FailureInvalidPDF},
		{"file too small (512 bytes)", 0, FailureInvalidPDF},
		{"request timed out", 0, FailureTimeout},
		{"connection refused", 0, FailureNetworkError},
		{"", 0, FailureNetworkError},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%s", tt.status, tt.message), func(t *testing.T) {
			if got := Classify(tt.message, tt.status); got != tt.want {
				t.Errorf("Classify(%q, %d) = %s, want %s", tt.message, tt.status, got, tt.want)
			}
		})
	}
}

func TestIsTemporary(t *testing.T) {
	temporary := map[FailureCategory]bool{
		FailureRateLimit:    true,
		FailureTimeout:      true,
		FailureNetworkError: true,
		FailureServerError:  true,
	}

	for _, c := range AllFailureCategories {
		if got := IsTemporary(c); got != temporary[c] {
			t.Errorf("IsTemporary(%s) = %v, want %v", c, got, temporary[c])
		}
	}
	if IsTemporary(FailurePaywall) {
		t.Error("paywall must be permanent")
	}
	if !IsTemporary(FailureRateLimit) {
		t.Error("rate_limit must be temporary")
	}
}

type timeoutError struct{}

func (timeoutError) Error() string { return "i/o timeout" }
func (timeoutError) Timeout() bool { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureCategory
	}{
		{"deadline", context.DeadlineExceeded, FailureTimeout},
		{"wrapped deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), FailureTimeout},
		{"plain refused", errors.New("dial tcp: connection refused"), FailureNetworkError},
		{
			"status code in DOI",
			&url.Error{Op: "Get", URL: "https://api.unpaywall.org/v2/10.1371/journal.pone.0240403", Err: syscall.ECONNRESET},
			FailureNetworkError,
		},
		{
			"server code in DOI",
			&url.Error{Op: "Get", URL: "https://api.unpaywall.org/v2/10.1002/anie.201500123", Err: errors.New("connection reset by peer")},
			FailureNetworkError,
		},
		{
			"refused dial",
			&url.Error{Op: "Get", URL: "http://127.0.0.1:1/works/10.1000/403", Err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}},
			FailureNetworkError,
		},
		{
			"transport timeout",
			&url.Error{Op: "Get", URL: "https://api.unpaywall.org/v2/10.1000/x", Err: timeoutError{}},
			FailureTimeout,
		},
		{"dns", &net.DNSError{Err: "no such host", Name: "paywall.example.org"}, FailureNetworkError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			if got != tt.want {
				t.Errorf("ClassifyError(%v) = %s, want %s", tt.err, got, tt.want)
			}
			if !got.IsTemporary() {
				t.Errorf("Expected transport failure %s to be retryable", got)
			}
		})
	}
}

func TestMissAndFailed(t *testing.T) {
	if r := Miss(FailureTimeout, "slow"); r.Kind != ProbeTransient {
		t.Errorf("Expected transient for timeout, got %s", r.Kind)
	}
	if r := Miss(FailureNotFound, "none"); r.Kind != ProbeNotFound {
		t.Errorf("Expected not_found kind, got %s", r.Kind)
	}
	r := Failed(errors.New("boom"))
	if r.Kind != ProbeFailed || r.Reason != "Exception: boom" {
		t.Errorf("Unexpected failed result: %+v", r)
	}
	if Found("").IsFound() {
		t.Error("Found with empty URL must not count as found")
	}
}
