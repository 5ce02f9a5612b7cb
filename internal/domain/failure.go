package domain

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"strings"
)

// FailureCategory is the closed taxonomy of acquisition failures.
type FailureCategory string

const (
	FailureRateLimit      FailureCategory = "rate_limit"
	FailureAuthentication FailureCategory = "authentication"
	FailureNotFound       FailureCategory = "not_found"
	FailurePaywall        FailureCategory = "paywall"
	FailureInvalidPDF     FailureCategory = "invalid_pdf"
	FailureTimeout        FailureCategory = "timeout"
	FailureServerError    FailureCategory = "server_error"
	FailureNetworkError   FailureCategory = "network_error"
)

// AllFailureCategories lists the taxonomy in a stable order.
var AllFailureCategories = []FailureCategory{
	FailureRateLimit,
	FailureAuthentication,
	FailureNotFound,
	FailurePaywall,
	FailureInvalidPDF,
	FailureTimeout,
	FailureServerError,
	FailureNetworkError,
}

// IsTemporary reports whether failures of this category may succeed later
// and are therefore eligible for the retry queue.
func (c FailureCategory) IsTemporary() bool {
	switch c {
	case FailureRateLimit, FailureTimeout, FailureNetworkError, FailureServerError:
		return true
	default:
		return false
	}
}

// Valid reports whether c belongs to the taxonomy.
func (c FailureCategory) Valid() bool {
	for _, known := range AllFailureCategories {
		if c == known {
			return true
		}
	}
	return false
}

// IsTemporary is the function form of FailureCategory.IsTemporary.
func IsTemporary(c FailureCategory) bool {
	return c.IsTemporary()
}

var messageRules = []struct {
	category FailureCategory
	needles  []string
}{
	{FailureRateLimit, []string{"rate limit", "rate-limit", "ratelimit", "too many requests", "429"}},
	{FailureAuthentication, []string{"unauthorized", "forbidden", "authentication", "api key", "api-key", "apikey", "401", "403"}},
	{FailurePaywall, []string{"subscription", "paywall", "not open access", "not_open_access", "closed access"}},
	{FailureInvalidPDF, []string{"content-type", "content type", "too small", "invalid pdf", "not a pdf"}},
	{FailureNotFound, []string{"not found", "no results", "no pdf", "404"}},
	{FailureTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
	{FailureServerError, []string{"server error", "bad gateway", "service unavailable", "500", "502", "503"}},
}

// Classify maps a failure message and HTTP status (0 when there was no
// response) to a category. Status codes take precedence over message text.
func Classify(message string, statusCode int) FailureCategory {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return FailureRateLimit
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return FailureAuthentication
	case statusCode == http.StatusNotFound || statusCode == http.StatusGone:
		return FailureNotFound
	case statusCode == http.StatusPaymentRequired:
		return FailurePaywall
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		return FailureTimeout
	case statusCode >= 500 && statusCode <= 599:
		return FailureServerError
	}

	msg := strings.ToLower(message)
	for _, rule := range messageRules {
		for _, needle := range rule.needles {
			if strings.Contains(msg, needle) {
				return rule.category
			}
		}
	}
	return FailureNetworkError
}

// ClassifyError maps a transport-level Go error to a category by its type.
// Error text is not inspected: it usually carries the request URL, and
// DOIs and hostnames would trip the message rules.
func ClassifyError(err error) FailureCategory {
	if err == nil {
		return FailureNetworkError
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	return FailureNetworkError
}
